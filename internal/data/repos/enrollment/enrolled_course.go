package enrollment

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/yungbote/enrollment-backend/internal/domain/enrollment"
	"github.com/yungbote/enrollment-backend/internal/platform/dbctx"
	"github.com/yungbote/enrollment-backend/internal/platform/logger"
)

type EnrolledCourseRepo interface {
	Create(dbc dbctx.Context, rows []*domain.EnrolledCourse) ([]*domain.EnrolledCourse, error)

	ListByEnrollment(dbc dbctx.Context, enrollmentID uuid.UUID) ([]domain.EnrolledCourse, error)
	SumCreditHours(dbc dbctx.Context, enrollmentID uuid.UUID) (int, error)

	// DeleteByID deletes a course only when it belongs to enrollmentID.
	DeleteByID(dbc dbctx.Context, enrollmentID, courseID uuid.UUID) (int64, error)
	DeleteByEnrollment(dbc dbctx.Context, enrollmentID uuid.UUID) (int64, error)
}

type enrolledCourseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrolledCourseRepo(db *gorm.DB, baseLog *logger.Logger) EnrolledCourseRepo {
	return &enrolledCourseRepo{db: db, log: baseLog.With("repo", "EnrolledCourseRepo")}
}

func (r *enrolledCourseRepo) Create(dbc dbctx.Context, rows []*domain.EnrolledCourse) ([]*domain.EnrolledCourse, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*domain.EnrolledCourse{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *enrolledCourseRepo) ListByEnrollment(dbc dbctx.Context, enrollmentID uuid.UUID) ([]domain.EnrolledCourse, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []domain.EnrolledCourse{}
	if enrollmentID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Where("semester_enrollment_id = ?", enrollmentID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *enrolledCourseRepo) SumCreditHours(dbc dbctx.Context, enrollmentID uuid.UUID) (int, error) {
	if enrollmentID == uuid.Nil {
		return 0, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var sum int64
	err := t.WithContext(dbc.Ctx).
		Model(&domain.EnrolledCourse{}).
		Where("semester_enrollment_id = ?", enrollmentID).
		Select("COALESCE(SUM(credit_hours), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return int(sum), nil
}

func (r *enrolledCourseRepo) DeleteByID(dbc dbctx.Context, enrollmentID, courseID uuid.UUID) (int64, error) {
	if enrollmentID == uuid.Nil || courseID == uuid.Nil {
		return 0, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Where("id = ? AND semester_enrollment_id = ?", courseID, enrollmentID).
		Delete(&domain.EnrolledCourse{})
	return res.RowsAffected, res.Error
}

func (r *enrolledCourseRepo) DeleteByEnrollment(dbc dbctx.Context, enrollmentID uuid.UUID) (int64, error) {
	if enrollmentID == uuid.Nil {
		return 0, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Where("semester_enrollment_id = ?", enrollmentID).
		Delete(&domain.EnrolledCourse{})
	return res.RowsAffected, res.Error
}
