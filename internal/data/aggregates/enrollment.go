package aggregates

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	repos "github.com/yungbote/enrollment-backend/internal/data/repos/enrollment"
	domainagg "github.com/yungbote/enrollment-backend/internal/domain/aggregates"
	"github.com/yungbote/enrollment-backend/internal/domain/enrollment"
	"github.com/yungbote/enrollment-backend/internal/platform/dbctx"
)

type EnrollmentAggregateDeps struct {
	Base        BaseDeps
	Students    repos.StudentRepo
	Enrollments repos.SemesterEnrollmentRepo
	Courses     repos.EnrolledCourseRepo
	Limits      enrollment.Limits
}

type enrollmentAggregate struct {
	deps EnrollmentAggregateDeps
}

func NewEnrollmentAggregate(deps EnrollmentAggregateDeps) domainagg.EnrollmentAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Limits == (enrollment.Limits{}) {
		deps.Limits = enrollment.DefaultLimits()
	}
	return &enrollmentAggregate{deps: deps}
}

func (a *enrollmentAggregate) Contract() domainagg.Contract {
	return domainagg.EnrollmentAggregateContract
}

func (a *enrollmentAggregate) Start(ctx context.Context, in domainagg.StartEnrollmentInput) (domainagg.EnrollmentSnapshot, error) {
	const op = "Enrollment.SemesterEnrollment.Start"
	var out domainagg.EnrollmentSnapshot

	if in.StudentID == uuid.Nil {
		return out, MapError(op, ValidationError("student_id is required"))
	}
	name, err := enrollment.NormalizeSemesterName(in.SemesterName)
	if err != nil {
		return out, MapError(op, err)
	}
	if err := a.deps.Limits.CheckCeiling(in.MaxCreditHours); err != nil {
		return out, MapError(op, err)
	}
	enrolledAt := in.EnrolledAt.UTC()
	if in.EnrolledAt.IsZero() {
		enrolledAt = time.Now().UTC()
	}

	err = newWriteOp(a.deps.Base, op).run(ctx, func(dbc dbctx.Context) error {
		student, err := a.deps.Students.GetByID(dbc, in.StudentID)
		if err != nil {
			return err
		}
		if student == nil {
			return NotFoundError(fmt.Sprintf("student %s not found", in.StudentID))
		}
		existing, err := a.deps.Enrollments.FindActiveByStudent(dbc, in.StudentID)
		if err != nil {
			return err
		}
		if existing != nil {
			return duplicateActive(op, in.StudentID, nil)
		}

		ledger, err := enrollment.NewCreditLedger(uuid.New(), in.MaxCreditHours, a.deps.Limits)
		if err != nil {
			return err
		}
		owner := in.StudentID
		row := &enrollment.SemesterEnrollment{
			ID:                 ledger.EnrollmentID(),
			StudentID:          in.StudentID,
			ActiveOwnerID:      &owner,
			SemesterName:       name,
			EnrolledAt:         enrolledAt,
			MaxCreditHours:     ledger.Ceiling(),
			CurrentCreditHours: ledger.Total(),
		}
		if _, err := a.deps.Enrollments.Create(dbc, []*enrollment.SemesterEnrollment{row}); err != nil {
			// Lost the race to a concurrent Start for the same student.
			if isUniqueViolation(err) {
				return duplicateActive(op, in.StudentID, err)
			}
			return err
		}
		out = domainagg.SnapshotOf(row, ledger.Courses())
		return nil
	})
	if err != nil {
		return domainagg.EnrollmentSnapshot{}, err
	}
	return out, nil
}

func (a *enrollmentAggregate) AddCourse(ctx context.Context, in domainagg.AddCourseInput) (domainagg.AddCourseResult, error) {
	const op = "Enrollment.SemesterEnrollment.AddCourse"
	var out domainagg.AddCourseResult

	if in.EnrollmentID == uuid.Nil {
		return out, MapError(op, ValidationError("enrollment_id is required"))
	}

	err := newWriteOp(a.deps.Base, op).run(ctx, func(dbc dbctx.Context) error {
		row, ledger, err := a.load(dbc, in.EnrollmentID)
		if err != nil {
			return err
		}
		added, err := ledger.Add(enrollment.EnrolledCourse{
			CourseName:  in.CourseName,
			CreditHours: in.CreditHours,
		})
		if err != nil {
			return err
		}
		if _, err := a.deps.Courses.Create(dbc, []*enrollment.EnrolledCourse{&added}); err != nil {
			return err
		}
		if err := a.commitTotal(dbc, row, ledger); err != nil {
			return err
		}
		out = domainagg.AddCourseResult{
			Enrollment: domainagg.SnapshotOf(row, ledger.Courses()),
			Course:     domainagg.CourseSnapshotOf(added),
		}
		return nil
	})
	if err != nil {
		return domainagg.AddCourseResult{}, err
	}
	return out, nil
}

func (a *enrollmentAggregate) RemoveCourse(ctx context.Context, in domainagg.RemoveCourseInput) (domainagg.RemoveCourseResult, error) {
	const op = "Enrollment.SemesterEnrollment.RemoveCourse"
	var out domainagg.RemoveCourseResult

	if in.EnrollmentID == uuid.Nil || in.CourseID == uuid.Nil {
		return out, MapError(op, ValidationError("enrollment_id and course_id are required"))
	}

	err := newWriteOp(a.deps.Base, op).run(ctx, func(dbc dbctx.Context) error {
		row, ledger, err := a.load(dbc, in.EnrollmentID)
		if err != nil {
			return err
		}
		removed, err := ledger.Remove(in.CourseID)
		if err != nil {
			return err
		}
		n, err := a.deps.Courses.DeleteByID(dbc, in.EnrollmentID, in.CourseID)
		if err != nil {
			return err
		}
		if n == 0 {
			return ConflictError("course removed concurrently")
		}
		if err := a.commitTotal(dbc, row, ledger); err != nil {
			return err
		}
		out = domainagg.RemoveCourseResult{
			Enrollment: domainagg.SnapshotOf(row, ledger.Courses()),
			Removed:    domainagg.CourseSnapshotOf(removed),
		}
		return nil
	})
	if err != nil {
		return domainagg.RemoveCourseResult{}, err
	}
	return out, nil
}

func (a *enrollmentAggregate) Delete(ctx context.Context, in domainagg.DeleteEnrollmentInput) error {
	const op = "Enrollment.SemesterEnrollment.Delete"
	if in.EnrollmentID == uuid.Nil {
		return MapError(op, ValidationError("enrollment_id is required"))
	}
	return newWriteOp(a.deps.Base, op).run(ctx, func(dbc dbctx.Context) error {
		row, err := a.deps.Enrollments.GetByID(dbc, in.EnrollmentID)
		if err != nil {
			return err
		}
		if row == nil {
			return NotFoundError(fmt.Sprintf("enrollment %s not found", in.EnrollmentID))
		}
		if _, err := a.deps.Courses.DeleteByEnrollment(dbc, row.ID); err != nil {
			return err
		}
		ok, err := a.deps.Base.CASGuard.DeleteAtVersion(dbc, row)
		if err != nil {
			return err
		}
		return lostRace(ok, "enrollment changed while deleting")
	})
}

// load reads the header, its courses and the header version again. A version that moved
// between the two header reads means the course read may mix two commits, so the attempt is
// reported as a conflict rather than as a corrupt ledger.
func (a *enrollmentAggregate) load(dbc dbctx.Context, id uuid.UUID) (*enrollment.SemesterEnrollment, *enrollment.CreditLedger, error) {
	row, err := a.deps.Enrollments.GetByID(dbc, id)
	if err != nil {
		return nil, nil, err
	}
	if row == nil {
		return nil, nil, NotFoundError(fmt.Sprintf("enrollment %s not found", id))
	}
	courses, err := a.deps.Courses.ListByEnrollment(dbc, id)
	if err != nil {
		return nil, nil, err
	}
	again, err := a.deps.Enrollments.GetByID(dbc, id)
	if err != nil {
		return nil, nil, err
	}
	if again == nil {
		return nil, nil, ConflictError("enrollment deleted while loading")
	}
	if again.Version != row.Version {
		return nil, nil, ConflictError(fmt.Sprintf("enrollment version moved from %d to %d while loading", row.Version, again.Version))
	}
	ledger, err := enrollment.RestoreCreditLedger(row, courses, a.deps.Limits)
	if err != nil {
		return nil, nil, err
	}
	return row, ledger, nil
}

// commitTotal publishes the new total with a version-guarded update, then checks the
// persisted child set against it. The update goes first: once it applies, this transaction
// holds the header row, so any other writer's courses are either committed under an older
// version or cannot commit at all. row is updated in place on success.
func (a *enrollmentAggregate) commitTotal(dbc dbctx.Context, row *enrollment.SemesterEnrollment, ledger *enrollment.CreditLedger) error {
	if err := ledger.CheckInvariant(); err != nil {
		return err
	}
	ok, err := a.deps.Base.CASGuard.PublishTotal(dbc, row, ledger.Total())
	if err != nil {
		return err
	}
	if err := lostRace(ok, "enrollment version moved"); err != nil {
		return err
	}

	sum, err := a.deps.Courses.SumCreditHours(dbc, row.ID)
	if err != nil {
		return err
	}
	if sum != ledger.Total() {
		return InvariantError(fmt.Sprintf("persisted courses sum to %d, ledger total is %d", sum, ledger.Total()))
	}
	return nil
}

func duplicateActive(op string, studentID uuid.UUID, cause error) error {
	return domainagg.NewError(domainagg.CodeDuplicateActive, op,
		fmt.Sprintf("student %s already has an active enrollment", studentID), cause)
}
