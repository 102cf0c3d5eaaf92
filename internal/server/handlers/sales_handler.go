package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmcoop/internal/domain/models"
)

// ListSales returns sales, optionally filtered by ?product_id=.
func (h *Handler) ListSales(c *gin.Context) {
	sales, err := h.sales.List(c.Request.Context(), sessionFrom(c), c.Query("product_id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": sales})
}

// GetSale returns one sale.
func (h *Handler) GetSale(c *gin.Context) {
	sale, err := h.sales.Get(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// CreateSale records a sale and decrements stock.
func (h *Handler) CreateSale(c *gin.Context) {
	var req models.SaleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	sale, err := h.sales.Create(c.Request.Context(), sessionFrom(c), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.logger.Debug("sale created via api", zap.String("sale_id", sale.ID))
	c.JSON(http.StatusCreated, sale)
}

// UpdateSale edits a sale and adjusts stock by the difference.
func (h *Handler) UpdateSale(c *gin.Context) {
	var req models.SaleUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	sale, err := h.sales.Update(c.Request.Context(), sessionFrom(c), c.Param("id"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// DeleteSale removes a sale and restores stock.
func (h *Handler) DeleteSale(c *gin.Context) {
	if err := h.sales.Delete(c.Request.Context(), sessionFrom(c), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
