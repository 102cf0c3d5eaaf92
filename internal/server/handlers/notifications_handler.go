package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/farmcoop/internal/domain/apperror"
)

const defaultNotificationLimit = 50

// ListNotifications returns the newest notifications, ?limit= bounded.
func (h *Handler) ListNotifications(c *gin.Context) {
	if !sessionFrom(c).Authenticated() {
		writeError(c, h.logger, apperror.NewUnauthenticated())
		return
	}

	limit := defaultNotificationLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(c, h.logger, apperror.NewValidation("limit must be a positive integer"))
			return
		}
		limit = n
	}

	notifications, err := h.notifications.ListNotifications(c.Request.Context(), limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}
