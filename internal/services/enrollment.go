package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/enrollment-backend/internal/data/repos"
	domainagg "github.com/yungbote/enrollment-backend/internal/domain/aggregates"
	"github.com/yungbote/enrollment-backend/internal/domain/enrollment"
	"github.com/yungbote/enrollment-backend/internal/observability"
	"github.com/yungbote/enrollment-backend/internal/platform/apierr"
	"github.com/yungbote/enrollment-backend/internal/platform/dbctx"
	"github.com/yungbote/enrollment-backend/internal/platform/logger"
)

const DefaultEnrollmentWriteTimeout = 5 * time.Second

type StartEnrollmentRequest struct {
	// StudentID defaults to the caller. Only admins may start an enrollment for someone else.
	StudentID      uuid.UUID
	SemesterName   string
	MaxCreditHours int
	EnrolledAt     time.Time
}

type EnrollmentPage struct {
	Items    []domainagg.EnrollmentSnapshot `json:"items"`
	Total    int64                          `json:"total"`
	Page     int                            `json:"page"`
	PageSize int                            `json:"page_size"`
}

type EnrollmentService interface {
	StartEnrollment(ctx context.Context, req StartEnrollmentRequest) (domainagg.EnrollmentSnapshot, error)
	EnrollCourse(ctx context.Context, enrollmentID uuid.UUID, courseName string, creditHours int) (domainagg.AddCourseResult, error)
	RemoveCourse(ctx context.Context, enrollmentID, courseID uuid.UUID) (domainagg.RemoveCourseResult, error)
	DeleteEnrollment(ctx context.Context, enrollmentID uuid.UUID) error

	GetEnrollment(ctx context.Context, enrollmentID uuid.UUID) (domainagg.EnrollmentSnapshot, error)
	// ListEnrollments pages over every enrollment for admins and over the caller's own otherwise.
	ListEnrollments(ctx context.Context, page repos.Page) (EnrollmentPage, error)
}

type enrollmentService struct {
	log          *logger.Logger
	aggregate    domainagg.EnrollmentAggregate
	enrollments  repos.SemesterEnrollmentRepo
	writeTimeout time.Duration
}

func NewEnrollmentService(
	log *logger.Logger,
	aggregate domainagg.EnrollmentAggregate,
	enrollments repos.SemesterEnrollmentRepo,
	writeTimeout time.Duration,
) EnrollmentService {
	if writeTimeout == 0 {
		writeTimeout = DefaultEnrollmentWriteTimeout
	}
	return &enrollmentService{
		log:          log.With("service", "EnrollmentService"),
		aggregate:    aggregate,
		enrollments:  enrollments,
		writeTimeout: writeTimeout,
	}
}

func (s *enrollmentService) StartEnrollment(ctx context.Context, req StartEnrollmentRequest) (out domainagg.EnrollmentSnapshot, err error) {
	ctx, span := observability.StartSpan(ctx, "EnrollmentService.StartEnrollment")
	defer func() { observability.EndSpan(span, err) }()

	rd, err := requirePrincipal(ctx)
	if err != nil {
		return out, err
	}
	studentID := req.StudentID
	if studentID == uuid.Nil {
		studentID = rd.StudentID
	}
	if !rd.CanActFor(studentID) {
		return out, apierr.Forbidden("cannot start an enrollment for another student")
	}
	span.SetAttributes(attribute.String("student_id", studentID.String()))

	ctx, cancel := withWriteTimeout(ctx, s.writeTimeout)
	defer cancel()
	out, err = s.aggregate.Start(ctx, domainagg.StartEnrollmentInput{
		StudentID:      studentID,
		SemesterName:   req.SemesterName,
		MaxCreditHours: req.MaxCreditHours,
		EnrolledAt:     req.EnrolledAt,
	})
	if err != nil {
		return domainagg.EnrollmentSnapshot{}, err
	}
	s.log.Info("enrollment started", "enrollment_id", out.ID, "student_id", studentID, "max_credit_hours", out.MaxCreditHours)
	return out, nil
}

func (s *enrollmentService) EnrollCourse(ctx context.Context, enrollmentID uuid.UUID, courseName string, creditHours int) (out domainagg.AddCourseResult, err error) {
	ctx, span := observability.StartSpan(ctx, "EnrollmentService.EnrollCourse",
		attribute.String("enrollment_id", enrollmentID.String()),
		attribute.Int("credit_hours", creditHours),
	)
	defer func() { observability.EndSpan(span, err) }()

	if _, err = s.authorize(ctx, "EnrollmentService.EnrollCourse", enrollmentID); err != nil {
		return out, err
	}
	ctx, cancel := withWriteTimeout(ctx, s.writeTimeout)
	defer cancel()
	out, err = s.aggregate.AddCourse(ctx, domainagg.AddCourseInput{
		EnrollmentID: enrollmentID,
		CourseName:   courseName,
		CreditHours:  creditHours,
	})
	if err != nil {
		if ce, ok := enrollment.AsCapacityExceeded(err); ok {
			s.log.Debug("course rejected by credit limit",
				"enrollment_id", enrollmentID,
				"attempted", ce.Attempted,
				"current", ce.Current,
				"ceiling", ce.Ceiling,
			)
		}
		return domainagg.AddCourseResult{}, err
	}
	return out, nil
}

func (s *enrollmentService) RemoveCourse(ctx context.Context, enrollmentID, courseID uuid.UUID) (out domainagg.RemoveCourseResult, err error) {
	ctx, span := observability.StartSpan(ctx, "EnrollmentService.RemoveCourse",
		attribute.String("enrollment_id", enrollmentID.String()),
		attribute.String("course_id", courseID.String()),
	)
	defer func() { observability.EndSpan(span, err) }()

	if _, err = s.authorize(ctx, "EnrollmentService.RemoveCourse", enrollmentID); err != nil {
		return out, err
	}
	ctx, cancel := withWriteTimeout(ctx, s.writeTimeout)
	defer cancel()
	out, err = s.aggregate.RemoveCourse(ctx, domainagg.RemoveCourseInput{
		EnrollmentID: enrollmentID,
		CourseID:     courseID,
	})
	if err != nil {
		return domainagg.RemoveCourseResult{}, err
	}
	return out, nil
}

func (s *enrollmentService) DeleteEnrollment(ctx context.Context, enrollmentID uuid.UUID) (err error) {
	ctx, span := observability.StartSpan(ctx, "EnrollmentService.DeleteEnrollment",
		attribute.String("enrollment_id", enrollmentID.String()),
	)
	defer func() { observability.EndSpan(span, err) }()

	if _, err = s.authorize(ctx, "EnrollmentService.DeleteEnrollment", enrollmentID); err != nil {
		return err
	}
	ctx, cancel := withWriteTimeout(ctx, s.writeTimeout)
	defer cancel()
	if err = s.aggregate.Delete(ctx, domainagg.DeleteEnrollmentInput{EnrollmentID: enrollmentID}); err != nil {
		return err
	}
	s.log.Info("enrollment deleted", "enrollment_id", enrollmentID)
	return nil
}

func (s *enrollmentService) GetEnrollment(ctx context.Context, enrollmentID uuid.UUID) (domainagg.EnrollmentSnapshot, error) {
	row, err := s.authorize(ctx, "EnrollmentService.GetEnrollment", enrollmentID)
	if err != nil {
		return domainagg.EnrollmentSnapshot{}, err
	}
	return domainagg.SnapshotOf(row, row.Courses), nil
}

func (s *enrollmentService) ListEnrollments(ctx context.Context, page repos.Page) (EnrollmentPage, error) {
	rd, err := requirePrincipal(ctx)
	if err != nil {
		return EnrollmentPage{}, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	out := EnrollmentPage{
		Page:     page.Offset()/page.Limit() + 1,
		PageSize: page.Limit(),
	}

	var rows []*enrollment.SemesterEnrollment
	if rd.IsAdmin() {
		rows, out.Total, err = s.enrollments.List(dbc, page)
		if err != nil {
			return EnrollmentPage{}, fmt.Errorf("list enrollments: %w", err)
		}
	} else {
		all, err := s.enrollments.ListByStudent(dbc, rd.StudentID)
		if err != nil {
			return EnrollmentPage{}, fmt.Errorf("list enrollments for student: %w", err)
		}
		out.Total = int64(len(all))
		from := min(page.Offset(), len(all))
		to := min(from+page.Limit(), len(all))
		rows = all[from:to]
	}

	out.Items = make([]domainagg.EnrollmentSnapshot, 0, len(rows))
	for _, row := range rows {
		out.Items = append(out.Items, domainagg.SnapshotOf(row, row.Courses))
	}
	return out, nil
}

// authorize loads the enrollment with its courses and checks the caller may act on it.
func (s *enrollmentService) authorize(ctx context.Context, op string, enrollmentID uuid.UUID) (*enrollment.SemesterEnrollment, error) {
	rd, err := requirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if enrollmentID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "enrollment_id is required", nil)
	}
	row, err := s.enrollments.GetWithCourses(dbctx.Context{Ctx: ctx}, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment %s: %w", enrollmentID, err)
	}
	if row == nil {
		return nil, notFound(op, "enrollment", enrollmentID)
	}
	if !rd.CanActFor(row.StudentID) {
		s.log.Warn("enrollment access denied", "enrollment_id", enrollmentID, "student_id", rd.StudentID)
		return nil, apierr.Forbidden("enrollment belongs to another student")
	}
	return row, nil
}
