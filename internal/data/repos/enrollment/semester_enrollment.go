package enrollment

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/yungbote/enrollment-backend/internal/domain/enrollment"
	"github.com/yungbote/enrollment-backend/internal/platform/dbctx"
	"github.com/yungbote/enrollment-backend/internal/platform/logger"
)

type SemesterEnrollmentRepo interface {
	Create(dbc dbctx.Context, rows []*domain.SemesterEnrollment) ([]*domain.SemesterEnrollment, error)

	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.SemesterEnrollment, error)
	GetWithCourses(dbc dbctx.Context, id uuid.UUID) (*domain.SemesterEnrollment, error)
	FindActiveByStudent(dbc dbctx.Context, studentID uuid.UUID) (*domain.SemesterEnrollment, error)

	ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*domain.SemesterEnrollment, error)
	List(dbc dbctx.Context, page Page) ([]*domain.SemesterEnrollment, int64, error)

	DeleteByID(dbc dbctx.Context, id uuid.UUID) (int64, error)
}

type semesterEnrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSemesterEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) SemesterEnrollmentRepo {
	return &semesterEnrollmentRepo{db: db, log: baseLog.With("repo", "SemesterEnrollmentRepo")}
}

func (r *semesterEnrollmentRepo) Create(dbc dbctx.Context, rows []*domain.SemesterEnrollment) ([]*domain.SemesterEnrollment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*domain.SemesterEnrollment{}, nil
	}
	// Courses are written through the aggregate, never as a side effect of the header insert.
	if err := t.WithContext(dbc.Ctx).Omit(clause.Associations).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *semesterEnrollmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.SemesterEnrollment, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row domain.SemesterEnrollment
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *semesterEnrollmentRepo) GetWithCourses(dbc dbctx.Context, id uuid.UUID) (*domain.SemesterEnrollment, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row domain.SemesterEnrollment
	err := t.WithContext(dbc.Ctx).
		Preload("Courses", orderCourses).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *semesterEnrollmentRepo) FindActiveByStudent(dbc dbctx.Context, studentID uuid.UUID) (*domain.SemesterEnrollment, error) {
	if studentID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row domain.SemesterEnrollment
	if err := t.WithContext(dbc.Ctx).Where("active_owner_id = ?", studentID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *semesterEnrollmentRepo) ListByStudent(dbc dbctx.Context, studentID uuid.UUID) ([]*domain.SemesterEnrollment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*domain.SemesterEnrollment
	if studentID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Preload("Courses", orderCourses).
		Where("student_id = ?", studentID).
		Order("enrolled_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *semesterEnrollmentRepo) List(dbc dbctx.Context, page Page) ([]*domain.SemesterEnrollment, int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var total int64
	if err := t.WithContext(dbc.Ctx).Model(&domain.SemesterEnrollment{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*domain.SemesterEnrollment
	err := t.WithContext(dbc.Ctx).
		Preload("Courses", orderCourses).
		Order("enrolled_at DESC, id ASC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *semesterEnrollmentRepo) DeleteByID(dbc dbctx.Context, id uuid.UUID) (int64, error) {
	if id == uuid.Nil {
		return 0, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).Where("id = ?", id).Delete(&domain.SemesterEnrollment{})
	return res.RowsAffected, res.Error
}

func orderCourses(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}
