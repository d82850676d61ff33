package enrollment

import "fmt"

const (
	DefaultMinCeiling       = 1
	DefaultMaxCeiling       = 30
	DefaultMaxCourseCredits = 10

	// MinCourseCredits is fixed: a course always consumes capacity.
	MinCourseCredits = 1
)

// Limits bounds the values a ledger accepts. The zero value is not usable; start from DefaultLimits.
type Limits struct {
	MinCeiling       int
	MaxCeiling       int
	MaxCourseCredits int
}

func DefaultLimits() Limits {
	return Limits{
		MinCeiling:       DefaultMinCeiling,
		MaxCeiling:       DefaultMaxCeiling,
		MaxCourseCredits: DefaultMaxCourseCredits,
	}
}

func (l Limits) Validate() error {
	if l.MinCeiling < 1 || l.MaxCeiling < l.MinCeiling {
		return fmt.Errorf("invalid ceiling range [%d,%d]", l.MinCeiling, l.MaxCeiling)
	}
	if l.MaxCourseCredits < MinCourseCredits {
		return fmt.Errorf("invalid max course credits %d", l.MaxCourseCredits)
	}
	return nil
}

func (l Limits) CheckCeiling(ceiling int) error {
	if ceiling < l.MinCeiling || ceiling > l.MaxCeiling {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidCeiling, ceiling, l.MinCeiling, l.MaxCeiling)
	}
	return nil
}

func (l Limits) CheckCourseCredits(credits int) error {
	if credits < MinCourseCredits || credits > l.MaxCourseCredits {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidCreditHours, credits, MinCourseCredits, l.MaxCourseCredits)
	}
	return nil
}
