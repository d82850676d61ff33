package enrollment

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCeiling      = errors.New("invalid max credit hours")
	ErrInvalidCreditHours  = errors.New("invalid course credit hours")
	ErrInvalidCourseName   = errors.New("invalid course name")
	ErrInvalidSemesterName = errors.New("invalid semester name")
	ErrInvalidStudentName  = errors.New("invalid student name")
	ErrInvalidEmail        = errors.New("invalid email")
	ErrWeakPassword        = errors.New("password too short")
	ErrInvalidRole         = errors.New("invalid role")

	ErrCourseNotFound = errors.New("course not found in enrollment")
	ErrLedgerCorrupt  = errors.New("enrollment credit ledger is inconsistent")
)

// CapacityExceededError reports a rejected add together with the numbers that caused it.
type CapacityExceededError struct {
	Attempted int
	Current   int
	Ceiling   int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded: adding %d credit hours to %d would exceed the limit of %d",
		e.Attempted, e.Current, e.Ceiling)
}

// Remaining is the headroom left at the time of the rejected add.
func (e *CapacityExceededError) Remaining() int {
	return e.Ceiling - e.Current
}

// AsCapacityExceeded extracts a *CapacityExceededError from err's chain.
func AsCapacityExceeded(err error) (*CapacityExceededError, bool) {
	var ce *CapacityExceededError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsInvalidInput reports whether err is a caller input rejection from this package.
func IsInvalidInput(err error) bool {
	for _, target := range []error{
		ErrInvalidCeiling,
		ErrInvalidCreditHours,
		ErrInvalidCourseName,
		ErrInvalidSemesterName,
		ErrInvalidStudentName,
		ErrInvalidEmail,
		ErrWeakPassword,
		ErrInvalidRole,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
