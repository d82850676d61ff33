package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/enrollment-backend/internal/domain/aggregates"
	"github.com/yungbote/enrollment-backend/internal/platform/apierr"
	"github.com/yungbote/enrollment-backend/internal/platform/ctxutil"
)

func requirePrincipal(ctx context.Context) (*ctxutil.RequestData, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.StudentID == uuid.Nil {
		return nil, apierr.Unauthorized("request data not set in context")
	}
	return rd, nil
}

func requireAdmin(ctx context.Context) (*ctxutil.RequestData, error) {
	rd, err := requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if !rd.IsAdmin() {
		return nil, apierr.Forbidden("admin role required")
	}
	return rd, nil
}

func notFound(op, what string, id uuid.UUID) error {
	return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("%s %s not found", what, id), nil)
}

// withWriteTimeout bounds a write when the caller did not set a deadline of its own.
func withWriteTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
