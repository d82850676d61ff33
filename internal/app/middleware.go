package app

import (
	"fmt"
	"net/netip"

	"github.com/yungbote/enrollment-backend/internal/http/middleware"
	"github.com/yungbote/enrollment-backend/internal/observability"
	"github.com/yungbote/enrollment-backend/internal/platform/logger"
)

type Middleware struct {
	Auth        *middleware.AuthMiddleware
	Idempotency *middleware.Idempotency
	AllowedIPs  []netip.Prefix
}

// wireMiddleware leaves Idempotency nil when no store is configured; the middleware then
// passes every request through.
func wireMiddleware(log *logger.Logger, cfg Config, services Services, store middleware.IdempotencyStore, metrics *observability.Metrics) (Middleware, error) {
	log.Info("Wiring middleware...")
	allowed, err := middleware.ParseAllowList(cfg.AllowedIPs)
	if err != nil {
		return Middleware{}, fmt.Errorf("ALLOWED_IPS: %w", err)
	}
	mw := Middleware{
		Auth:       middleware.NewAuthMiddleware(log, services.Auth),
		AllowedIPs: allowed,
	}
	if store != nil {
		mw.Idempotency = middleware.NewIdempotency(log, store, metrics, middleware.IdempotencyConfig{
			TTL:     cfg.IdempotencyTTL,
			LockTTL: cfg.IdempotencyLock,
		})
	}
	return mw, nil
}
