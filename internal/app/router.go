package app

import (
	"github.com/gin-gonic/gin"

	httpserver "github.com/yungbote/enrollment-backend/internal/http"
	"github.com/yungbote/enrollment-backend/internal/observability"
	"github.com/yungbote/enrollment-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *gin.Engine {
	if cfg.LogMode == "prod" || cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return httpserver.NewRouter(httpserver.RouterConfig{
		Log:               log,
		Metrics:           metrics,
		AuthHandler:       handlers.Auth,
		AuthMiddleware:    middleware.Auth,
		StudentHandler:    handlers.Student,
		EnrollmentHandler: handlers.Enrollment,
		HealthHandler:     handlers.Health,
		Idempotency:       middleware.Idempotency,
		AllowedIPs:        middleware.AllowedIPs,
		CORSOrigins:       cfg.CORSOrigins,
	})
}
