package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/enrollment-backend/internal/domain/enrollment"
)

var EnrollmentAggregateContract = Contract{
	Name:             "Enrollment.SemesterEnrollmentAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Concurrency:      ConcurrencyOptimisticVersion,
	Notes:            "Owns the credit ceiling of a semester enrollment and its enrolled courses; one active enrollment per student.",
}

// EnrollmentAggregate is the only write path for semester enrollments and their courses.
//
// Every method is all-or-nothing: on error nothing was persisted. Cancellation and deadlines
// come from ctx. Version conflicts are retried a bounded number of times before CodeConflict
// is returned.
type EnrollmentAggregate interface {
	Aggregate

	// Start creates an empty enrollment for a student. Fails with CodeDuplicateActive when the
	// student already has one, CodeNotFound when the student does not exist.
	Start(ctx context.Context, in StartEnrollmentInput) (EnrollmentSnapshot, error)
	// AddCourse fails with CodeCapacityExceeded (cause *enrollment.CapacityExceededError)
	// when the course does not fit under the ceiling.
	AddCourse(ctx context.Context, in AddCourseInput) (AddCourseResult, error)
	// RemoveCourse fails with CodeNotFound when the course is not part of this enrollment.
	RemoveCourse(ctx context.Context, in RemoveCourseInput) (RemoveCourseResult, error)
	// Delete removes the enrollment and its courses and frees the student's active slot.
	Delete(ctx context.Context, in DeleteEnrollmentInput) error
}

type StartEnrollmentInput struct {
	StudentID      uuid.UUID
	SemesterName   string
	MaxCreditHours int
	EnrolledAt     time.Time
}

type AddCourseInput struct {
	EnrollmentID uuid.UUID
	CourseName   string
	CreditHours  int
}

type AddCourseResult struct {
	Enrollment EnrollmentSnapshot `json:"enrollment"`
	Course     CourseSnapshot     `json:"course"`
}

type RemoveCourseInput struct {
	EnrollmentID uuid.UUID
	CourseID     uuid.UUID
}

type RemoveCourseResult struct {
	Enrollment EnrollmentSnapshot `json:"enrollment"`
	Removed    CourseSnapshot     `json:"removed"`
}

type DeleteEnrollmentInput struct {
	EnrollmentID uuid.UUID
}

// EnrollmentSnapshot is the committed state of one enrollment.
type EnrollmentSnapshot struct {
	ID                   uuid.UUID        `json:"id"`
	StudentID            uuid.UUID        `json:"student_id"`
	SemesterName         string           `json:"semester_name"`
	EnrolledAt           time.Time        `json:"enrolled_at"`
	MaxCreditHours       int              `json:"max_credit_hours"`
	CurrentCreditHours   int              `json:"current_credit_hours"`
	RemainingCreditHours int              `json:"remaining_credit_hours"`
	State                enrollment.State `json:"state"`
	Version              int              `json:"version"`
	Courses              []CourseSnapshot `json:"courses"`
}

type CourseSnapshot struct {
	ID           uuid.UUID `json:"id"`
	EnrollmentID uuid.UUID `json:"enrollment_id"`
	CourseName   string    `json:"course_name"`
	CreditHours  int       `json:"credit_hours"`
	CreatedAt    time.Time `json:"created_at"`
}

// SnapshotOf builds a snapshot from a persisted row and its courses.
func SnapshotOf(row *enrollment.SemesterEnrollment, courses []enrollment.EnrolledCourse) EnrollmentSnapshot {
	if row == nil {
		return EnrollmentSnapshot{}
	}
	out := EnrollmentSnapshot{
		ID:                   row.ID,
		StudentID:            row.StudentID,
		SemesterName:         row.SemesterName,
		EnrolledAt:           row.EnrolledAt,
		MaxCreditHours:       row.MaxCreditHours,
		CurrentCreditHours:   row.CurrentCreditHours,
		RemainingCreditHours: row.MaxCreditHours - row.CurrentCreditHours,
		State:                enrollment.StateOpen,
		Version:              row.Version,
		Courses:              make([]CourseSnapshot, 0, len(courses)),
	}
	if row.CurrentCreditHours >= row.MaxCreditHours {
		out.State = enrollment.StateSaturated
	}
	for _, c := range courses {
		out.Courses = append(out.Courses, CourseSnapshotOf(c))
	}
	return out
}

func CourseSnapshotOf(c enrollment.EnrolledCourse) CourseSnapshot {
	return CourseSnapshot{
		ID:           c.ID,
		EnrollmentID: c.SemesterEnrollmentID,
		CourseName:   c.CourseName,
		CreditHours:  c.CreditHours,
		CreatedAt:    c.CreatedAt,
	}
}
