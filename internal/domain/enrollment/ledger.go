package enrollment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State is derived from the running total; it is never stored.
type State string

const (
	StateOpen      State = "open"
	StateSaturated State = "saturated"
)

// CreditLedger is the capacity-bounded aggregate for one semester enrollment.
//
// Invariant: total == sum(course credit hours) and 0 <= total <= ceiling.
// The total has no setter; Add and Remove are the only mutation paths and both leave
// the ledger untouched when they return an error.
type CreditLedger struct {
	enrollmentID uuid.UUID
	ceiling      int
	total        int
	courses      []EnrolledCourse
	limits       Limits
}

// NewCreditLedger starts an empty ledger. The ceiling must lie within limits.
func NewCreditLedger(enrollmentID uuid.UUID, ceiling int, limits Limits) (*CreditLedger, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	if err := limits.CheckCeiling(ceiling); err != nil {
		return nil, err
	}
	if enrollmentID == uuid.Nil {
		enrollmentID = uuid.New()
	}
	return &CreditLedger{
		enrollmentID: enrollmentID,
		ceiling:      ceiling,
		courses:      []EnrolledCourse{},
		limits:       limits,
	}, nil
}

// RestoreCreditLedger rebuilds a ledger from persisted rows and refuses rows that break the invariant.
// The stored ceiling is trusted even if limits have since been narrowed.
func RestoreCreditLedger(row *SemesterEnrollment, courses []EnrolledCourse, limits Limits) (*CreditLedger, error) {
	if row == nil || row.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing enrollment row", ErrLedgerCorrupt)
	}
	l := &CreditLedger{
		enrollmentID: row.ID,
		ceiling:      row.MaxCreditHours,
		total:        row.CurrentCreditHours,
		courses:      make([]EnrolledCourse, 0, len(courses)),
		limits:       limits,
	}
	for _, c := range courses {
		if c.SemesterEnrollmentID != row.ID {
			return nil, fmt.Errorf("%w: course %s belongs to enrollment %s", ErrLedgerCorrupt, c.ID, c.SemesterEnrollmentID)
		}
		l.courses = append(l.courses, c)
	}
	if err := l.CheckInvariant(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *CreditLedger) EnrollmentID() uuid.UUID { return l.enrollmentID }
func (l *CreditLedger) Ceiling() int            { return l.ceiling }
func (l *CreditLedger) Total() int              { return l.total }
func (l *CreditLedger) Remaining() int          { return l.ceiling - l.total }

func (l *CreditLedger) State() State {
	if l.total >= l.ceiling {
		return StateSaturated
	}
	return StateOpen
}

// Courses returns a copy of the child set.
func (l *CreditLedger) Courses() []EnrolledCourse {
	out := make([]EnrolledCourse, len(l.courses))
	copy(out, l.courses)
	return out
}

// Add appends a course if its credit hours fit under the ceiling.
// Landing exactly on the ceiling is allowed. The stored child is returned with its
// enrollment id and, when missing, a fresh id and creation time.
//
// Order of checks: a non-positive weight is invalid input; a weight that does not fit is
// CapacityExceeded even when it is also above the per-course maximum; only then is the
// per-course maximum and the course name checked.
func (l *CreditLedger) Add(course EnrolledCourse) (EnrolledCourse, error) {
	if course.CreditHours < MinCourseCredits {
		return EnrolledCourse{}, l.limits.CheckCourseCredits(course.CreditHours)
	}
	if l.total+course.CreditHours > l.ceiling {
		return EnrolledCourse{}, &CapacityExceededError{
			Attempted: course.CreditHours,
			Current:   l.total,
			Ceiling:   l.ceiling,
		}
	}
	if err := l.limits.CheckCourseCredits(course.CreditHours); err != nil {
		return EnrolledCourse{}, err
	}
	name, err := NormalizeCourseName(course.CourseName)
	if err != nil {
		return EnrolledCourse{}, err
	}
	course.CourseName = name
	course.SemesterEnrollmentID = l.enrollmentID
	if course.ID == uuid.Nil {
		course.ID = uuid.New()
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	l.courses = append(l.courses, course)
	l.total += course.CreditHours
	return course, nil
}

// Remove drops the course with courseID from this ledger only.
// A course of another enrollment, or one already removed, yields ErrCourseNotFound.
func (l *CreditLedger) Remove(courseID uuid.UUID) (EnrolledCourse, error) {
	for i, c := range l.courses {
		if c.ID != courseID {
			continue
		}
		l.courses = append(l.courses[:i:i], l.courses[i+1:]...)
		l.total -= c.CreditHours
		return c, nil
	}
	return EnrolledCourse{}, fmt.Errorf("%w: %s", ErrCourseNotFound, courseID)
}

// CheckInvariant verifies the running total against the child set and the ceiling.
func (l *CreditLedger) CheckInvariant() error {
	sum := 0
	for _, c := range l.courses {
		sum += c.CreditHours
	}
	switch {
	case sum != l.total:
		return fmt.Errorf("%w: total %d but courses sum to %d", ErrLedgerCorrupt, l.total, sum)
	case l.total < 0:
		return fmt.Errorf("%w: negative total %d", ErrLedgerCorrupt, l.total)
	case l.total > l.ceiling:
		return fmt.Errorf("%w: total %d above ceiling %d", ErrLedgerCorrupt, l.total, l.ceiling)
	}
	return nil
}
