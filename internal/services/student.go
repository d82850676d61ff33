package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/enrollment-backend/internal/data/repos"
	"github.com/yungbote/enrollment-backend/internal/domain/enrollment"
	"github.com/yungbote/enrollment-backend/internal/platform/apierr"
	"github.com/yungbote/enrollment-backend/internal/platform/dbctx"
	"github.com/yungbote/enrollment-backend/internal/platform/logger"
)

type UpdateStudentRequest struct {
	FirstName *string
	LastName  *string
	Email     *string
	Role      *string
}

type StudentPage struct {
	Items    []*enrollment.Student `json:"items"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

type StudentService interface {
	Get(ctx context.Context, id uuid.UUID) (*enrollment.Student, error)
	List(ctx context.Context, page repos.Page) (StudentPage, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateStudentRequest) (*enrollment.Student, error)
	// Delete removes the student together with every enrollment and course they own.
	Delete(ctx context.Context, id uuid.UUID) error
}

type studentService struct {
	db          *gorm.DB
	log         *logger.Logger
	students    repos.StudentRepo
	enrollments repos.SemesterEnrollmentRepo
	courses     repos.EnrolledCourseRepo
}

func NewStudentService(
	db *gorm.DB,
	log *logger.Logger,
	students repos.StudentRepo,
	enrollments repos.SemesterEnrollmentRepo,
	courses repos.EnrolledCourseRepo,
) StudentService {
	return &studentService{
		db:          db,
		log:         log.With("service", "StudentService"),
		students:    students,
		enrollments: enrollments,
		courses:     courses,
	}
}

func (ss *studentService) Get(ctx context.Context, id uuid.UUID) (*enrollment.Student, error) {
	rd, err := requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if !rd.CanActFor(id) {
		return nil, apierr.Forbidden("cannot read another student")
	}
	student, err := ss.students.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, notFound("StudentService.Get", "student", id)
	}
	return student, nil
}

func (ss *studentService) List(ctx context.Context, page repos.Page) (StudentPage, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return StudentPage{}, err
	}
	items, total, err := ss.students.List(dbctx.Context{Ctx: ctx}, page)
	if err != nil {
		return StudentPage{}, fmt.Errorf("list students: %w", err)
	}
	return StudentPage{
		Items:    items,
		Total:    total,
		Page:     page.Offset()/page.Limit() + 1,
		PageSize: page.Limit(),
	}, nil
}

func (ss *studentService) Update(ctx context.Context, id uuid.UUID, req UpdateStudentRequest) (*enrollment.Student, error) {
	rd, err := requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if !rd.CanActFor(id) {
		return nil, apierr.Forbidden("cannot update another student")
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		v, err := enrollment.NormalizePersonName(*req.FirstName)
		if err != nil {
			return nil, err
		}
		updates["first_name"] = v
	}
	if req.LastName != nil {
		v, err := enrollment.NormalizePersonName(*req.LastName)
		if err != nil {
			return nil, err
		}
		updates["last_name"] = v
	}
	var email string
	if req.Email != nil {
		email, err = enrollment.NormalizeEmail(*req.Email)
		if err != nil {
			return nil, err
		}
		updates["email"] = email
	}
	if req.Role != nil {
		if !rd.IsAdmin() {
			return nil, apierr.Forbidden("only admins can change roles")
		}
		role, err := enrollment.ParseRole(*req.Role)
		if err != nil {
			return nil, err
		}
		updates["role"] = role
	}

	var out *enrollment.Student
	err = ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		current, err := ss.students.GetByID(dbc, id)
		if err != nil {
			return fmt.Errorf("get student: %w", err)
		}
		if current == nil {
			return notFound("StudentService.Update", "student", id)
		}
		if email != "" {
			taken, err := ss.students.EmailTaken(dbc, email, id)
			if err != nil {
				return fmt.Errorf("check email: %w", err)
			}
			if taken {
				return errEmailTaken
			}
		}
		if err := ss.students.UpdateFields(dbc, id, updates); err != nil {
			return fmt.Errorf("update student: %w", err)
		}
		out, err = ss.students.GetByID(dbc, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes enrollment headers before their courses. An aggregate write racing the
// delete then fails its version check and observes not_found on retry, so no course outlives
// its enrollment.
func (ss *studentService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	var removed int
	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		student, err := ss.students.GetByID(dbc, id)
		if err != nil {
			return fmt.Errorf("get student: %w", err)
		}
		if student == nil {
			return notFound("StudentService.Delete", "student", id)
		}
		rows, err := ss.enrollments.ListByStudent(dbc, id)
		if err != nil {
			return fmt.Errorf("list enrollments: %w", err)
		}
		for _, row := range rows {
			if _, err := ss.courses.DeleteByEnrollment(dbc, row.ID); err != nil {
				return fmt.Errorf("delete courses of %s: %w", row.ID, err)
			}
			if _, err := ss.enrollments.DeleteByID(dbc, row.ID); err != nil {
				return fmt.Errorf("delete enrollment %s: %w", row.ID, err)
			}
		}
		n, err := ss.students.DeleteByID(dbc, id)
		if err != nil {
			return fmt.Errorf("delete student: %w", err)
		}
		if n == 0 {
			return errors.New("student deleted concurrently")
		}
		removed = len(rows)
		return nil
	})
	if err != nil {
		return err
	}
	ss.log.Info("student deleted", "student_id", id, "enrollments_removed", removed)
	return nil
}
