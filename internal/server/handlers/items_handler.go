package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/farmcoop/internal/domain/models"
)

// ListItems returns every item with its derived statuses.
func (h *Handler) ListItems(c *gin.Context) {
	items, err := h.items.ListItems(c.Request.Context(), sessionFrom(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetItem returns one item.
func (h *Handler) GetItem(c *gin.Context) {
	item, err := h.items.GetItem(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// RegisterItem creates an item.
func (h *Handler) RegisterItem(c *gin.Context) {
	var req models.ItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	item, err := h.items.RegisterItem(c.Request.Context(), sessionFrom(c), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// AddProduction records produced stock on an item.
func (h *Handler) AddProduction(c *gin.Context) {
	var req models.ProductionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	item, err := h.items.AddProduction(c.Request.Context(), sessionFrom(c), c.Param("id"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteItem removes an item.
func (h *Handler) DeleteItem(c *gin.Context) {
	if err := h.items.DeleteItem(c.Request.Context(), sessionFrom(c), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
