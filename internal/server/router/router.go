package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmcoop/internal/server/handlers"
)

// Options tunes the middleware stack.
type Options struct {
	RateLimitPerMinute int
	// TrustedProxies lists the proxy IPs or CIDRs whose X-Forwarded-For
	// header is believed. Empty means the peer address is the client.
	TrustedProxies []string
}

// New wires the Gin engine with required routes and middlewares. It fails
// when a trusted proxy entry is not an IP or CIDR.
func New(handler *handlers.Handler, auth Authenticator, opts Options, logger *zap.Logger) (*gin.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.Use(rateLimitMiddleware(newIPLimiter(opts.RateLimitPerMinute)))
	api.Use(authMiddleware(auth, logger))

	items := api.Group("/items")
	items.GET("", handler.ListItems)
	items.POST("", handler.RegisterItem)
	items.GET("/:id", handler.GetItem)
	items.DELETE("/:id", handler.DeleteItem)
	items.POST("/:id/productions", handler.AddProduction)

	sales := api.Group("/sales")
	sales.GET("", handler.ListSales)
	sales.POST("", handler.CreateSale)
	sales.GET("/:id", handler.GetSale)
	sales.PUT("/:id", handler.UpdateSale)
	sales.DELETE("/:id", handler.DeleteSale)

	goals := api.Group("/goals")
	goals.GET("", handler.ListGoals)
	goals.POST("", handler.CreateGoal)
	goals.POST("/recalculate", handler.RecalculateGoals)
	goals.GET("/:id", handler.GetGoal)
	goals.PUT("/:id", handler.UpdateGoal)
	goals.DELETE("/:id", handler.DeleteGoal)

	api.GET("/notifications", handler.ListNotifications)

	logger.Info("router initialized", zap.Strings("trusted_proxies", opts.TrustedProxies))
	return r, nil
}
