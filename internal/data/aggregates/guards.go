package aggregates

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/enrollment-backend/internal/domain/enrollment"
	"github.com/yungbote/enrollment-backend/internal/platform/dbctx"
)

// CASGuard applies enrollment header writes only when the stored version still equals the
// version the caller loaded. A false result with a nil error means another writer got there
// first.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) scoped(dbc dbctx.Context, row *enrollment.SemesterEnrollment) (*gorm.DB, error) {
	if row == nil || row.ID == uuid.Nil {
		return nil, ValidationError("enrollment row with an id is required")
	}
	if row.Version < 0 {
		return nil, ValidationError(fmt.Sprintf("enrollment %s has negative version %d", row.ID, row.Version))
	}
	t := dbc.Tx
	if t == nil {
		t = g.db
	}
	if t == nil {
		return nil, ValidationError("missing db transaction context")
	}
	return t.WithContext(dbc.Ctx).
		Model(&enrollment.SemesterEnrollment{}).
		Where("id = ? AND version = ?", row.ID, row.Version), nil
}

// PublishTotal stores a new credit total and bumps the version. row is updated in place
// only when the write applied.
func (g CASGuard) PublishTotal(dbc dbctx.Context, row *enrollment.SemesterEnrollment, total int) (bool, error) {
	q, err := g.scoped(dbc, row)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	res := q.Updates(map[string]any{
		"current_credit_hours": total,
		"version":              row.Version + 1,
		"updated_at":           now,
	})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	row.CurrentCreditHours = total
	row.Version++
	row.UpdatedAt = now
	return true, nil
}

// DeleteAtVersion removes the header if nobody wrote it since it was loaded.
func (g CASGuard) DeleteAtVersion(dbc dbctx.Context, row *enrollment.SemesterEnrollment) (bool, error) {
	q, err := g.scoped(dbc, row)
	if err != nil {
		return false, err
	}
	res := q.Delete(&enrollment.SemesterEnrollment{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func lostRace(applied bool, what string) error {
	if applied {
		return nil
	}
	return ConflictError(what)
}
