package httptransport

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"

	"github.com/healthplan/scheduler/internal/transport/http/handler"
	"github.com/healthplan/scheduler/internal/transport/http/middleware"
)

// NewRouter wires the HTTP surface SPEC_FULL.md §6b describes: public auth
// routes, JWT-protected run routes, and liveness/readiness probes. The
// access-log and panic-recovery middleware come from samber/slog-gin
// (already in the teacher's go.mod but unused by its own router) instead
// of gin's default logger/recovery.
func NewRouter(runHandler *handler.RunHandler, authHandler *handler.AuthHandler, healthHandler *handler.HealthHandler, logger *slog.Logger, jwksURL string, jwtKey []byte) *gin.Engine {
	r := gin.New()
	r.Use(sloggin.New(logger), sloggin.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(middleware.Metrics())

	r.GET("/livez", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	auth := r.Group("/v1/auth")
	auth.POST("/magic-link", authHandler.RequestMagicLink)
	auth.GET("/verify", authHandler.Verify)

	runs := r.Group("/v1/runs", middleware.Auth(jwksURL, jwtKey))
	runs.POST("", runHandler.Create)
	runs.GET("/:id", runHandler.GetByID)
	runs.GET("", runHandler.List)

	return r
}
