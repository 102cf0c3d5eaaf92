package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmcoop/internal/domain/apperror"
	"github.com/mamadbah2/farmcoop/internal/domain/models"
)

const sessionKey = "farmcoop.session"

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindTransactionConflict:
		return http.StatusConflict
	case apperror.KindInsufficientStock:
		return http.StatusUnprocessableEntity
	case apperror.KindTimeout:
		return http.StatusGatewayTimeout
	case apperror.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error *apperror.Error `json:"error"`
}

func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		appErr = apperror.NewStorage(err)
	}
	code := StatusFor(appErr.Kind)
	if code >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("kind", string(appErr.Kind)),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(code, errorBody{Error: appErr})
}

func badRequest(c *gin.Context, logger *zap.Logger, err error) {
	logger.Debug("invalid request body", zap.Error(err))
	writeError(c, logger, apperror.NewValidation("invalid request body: "+err.Error()))
}

// SetSession stores the authenticated session on the request context.
func SetSession(c *gin.Context, session models.Session) {
	c.Set(sessionKey, session)
}

// sessionFrom returns the request's session. A missing session is the zero
// value, which services reject as Unauthenticated.
func sessionFrom(c *gin.Context) models.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(models.Session); ok {
			return s
		}
	}
	return models.Session{}
}
