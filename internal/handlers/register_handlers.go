package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	portssvc "github.com/mexihaiti/remesa-backend/internal/core/ports/services"
	"github.com/mexihaiti/remesa-backend/internal/metrics"
	"github.com/mexihaiti/remesa-backend/internal/middleware"
	"github.com/mexihaiti/remesa-backend/internal/platform/config"
)

// RegisterRoutes attaches every route group to the engine. Auth routes are
// rate limited per client IP, /api/v1 requires a bearer token, and the
// admin group additionally requires the admin claim.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, container *portssvc.ServiceContainer, authLimiter *limiter.Limiter, logger *slog.Logger) {
	r.GET("/health", getHealth)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	auth := r.Group("/auth", middleware.RateLimit(authLimiter))
	registerAuthRoutes(auth, cfg, container.Account)

	v1 := r.Group("/api/v1", middleware.AuthMiddleware(cfg.JWTSecret))
	registerAccountRoutes(v1, container.Account)
	registerTransactionRoutes(v1, container.Ledger)

	admin := v1.Group("/admin", middleware.RequireAdmin())
	registerAdminRoutes(admin, container.Account, container.Ledger)
}
