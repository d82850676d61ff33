package ctxutil

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/enrollment-backend/internal/domain/enrollment"
)

type requestDataKey struct{}

// RequestData is the authenticated principal resolved from the bearer token.
type RequestData struct {
	StudentID uuid.UUID
	Role      enrollment.Role
}

func (rd *RequestData) IsAdmin() bool {
	return rd != nil && rd.Role == enrollment.RoleAdmin
}

// CanActFor reports whether the principal may act on resources owned by studentID.
func (rd *RequestData) CanActFor(studentID uuid.UUID) bool {
	if rd == nil || rd.StudentID == uuid.Nil {
		return false
	}
	return rd.IsAdmin() || rd.StudentID == studentID
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}
