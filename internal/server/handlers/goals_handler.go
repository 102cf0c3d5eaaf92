package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/farmcoop/internal/domain/models"
)

// ListGoals returns every goal with its display status.
func (h *Handler) ListGoals(c *gin.Context) {
	goals, err := h.goals.List(c.Request.Context(), sessionFrom(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goals": goals})
}

// GetGoal returns one goal.
func (h *Handler) GetGoal(c *gin.Context) {
	goal, err := h.goals.Get(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

// CreateGoal creates a goal.
func (h *Handler) CreateGoal(c *gin.Context) {
	var req models.GoalInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	goal, err := h.goals.Create(c.Request.Context(), sessionFrom(c), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, goal)
}

// UpdateGoal edits a goal.
func (h *Handler) UpdateGoal(c *gin.Context) {
	var req models.GoalInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	goal, err := h.goals.Update(c.Request.Context(), sessionFrom(c), c.Param("id"), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

// DeleteGoal removes a goal.
func (h *Handler) DeleteGoal(c *gin.Context) {
	if err := h.goals.Delete(c.Request.Context(), sessionFrom(c), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RecalculateGoals refreshes goal progress on demand.
func (h *Handler) RecalculateGoals(c *gin.Context) {
	goals, err := h.goals.Recalculate(c.Request.Context(), sessionFrom(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goals": goals})
}
