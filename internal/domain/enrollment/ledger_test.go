package enrollment

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/uuid"
)

func newLedger(t *testing.T, ceiling int) *CreditLedger {
	t.Helper()
	l, err := NewCreditLedger(uuid.New(), ceiling, DefaultLimits())
	if err != nil {
		t.Fatalf("NewCreditLedger(%d): %v", ceiling, err)
	}
	return l
}

func course(name string, credits int) EnrolledCourse {
	return EnrolledCourse{CourseName: name, CreditHours: credits}
}

func TestNewCreditLedgerRejectsCeilingOutsideRange(t *testing.T) {
	for _, ceiling := range []int{-1, 0, 31, 100} {
		_, err := NewCreditLedger(uuid.New(), ceiling, DefaultLimits())
		if !errors.Is(err, ErrInvalidCeiling) {
			t.Fatalf("ceiling %d: want ErrInvalidCeiling got=%v", ceiling, err)
		}
	}
	for _, ceiling := range []int{1, 15, 30} {
		l := newLedger(t, ceiling)
		if l.Total() != 0 || len(l.Courses()) != 0 {
			t.Fatalf("ceiling %d: new ledger not empty", ceiling)
		}
		if l.State() != StateOpen {
			t.Fatalf("ceiling %d: state want=%s got=%s", ceiling, StateOpen, l.State())
		}
	}
}

func TestAddCourseScenario(t *testing.T) {
	l := newLedger(t, 21)

	if _, err := l.Add(course("Calculus I", 4)); err != nil {
		t.Fatalf("add 4: %v", err)
	}
	if l.Total() != 4 {
		t.Fatalf("total after 4: want=4 got=%d", l.Total())
	}
	if _, err := l.Add(course("Physics", 5)); err != nil {
		t.Fatalf("add 5: %v", err)
	}
	if l.Total() != 9 {
		t.Fatalf("total after 5: want=9 got=%d", l.Total())
	}

	_, err := l.Add(course("Thesis", 20))
	ce, ok := AsCapacityExceeded(err)
	if !ok {
		t.Fatalf("add 20: want CapacityExceededError got=%v", err)
	}
	if ce.Attempted != 20 || ce.Current != 9 || ce.Ceiling != 21 {
		t.Fatalf("capacity error: want={20 9 21} got=%+v", *ce)
	}
	if l.Total() != 9 || len(l.Courses()) != 2 {
		t.Fatalf("state after rejected add: total=%d courses=%d", l.Total(), len(l.Courses()))
	}
}

func TestAddCourseBoundary(t *testing.T) {
	l := newLedger(t, 10)
	if _, err := l.Add(course("Seminar", 6)); err != nil {
		t.Fatalf("add 6: %v", err)
	}
	if _, err := l.Add(course("Lab", 4)); err != nil {
		t.Fatalf("add to exactly the ceiling should succeed: %v", err)
	}
	if l.State() != StateSaturated {
		t.Fatalf("state: want=%s got=%s", StateSaturated, l.State())
	}

	l2 := newLedger(t, 10)
	if _, err := l2.Add(course("Seminar", 6)); err != nil {
		t.Fatalf("add 6: %v", err)
	}
	_, err := l2.Add(course("Lab", 5))
	if ce, ok := AsCapacityExceeded(err); !ok || ce.Remaining() != 4 {
		t.Fatalf("one over the ceiling: want capacity error with remaining=4 got=%v", err)
	}
}

func TestAddCourseRejectsInvalidInputWithoutMutation(t *testing.T) {
	l := newLedger(t, 20)
	cases := []struct {
		name string
		in   EnrolledCourse
		want error
	}{
		{"zero credits", course("Art", 0), ErrInvalidCreditHours},
		{"negative credits", course("Art", -2), ErrInvalidCreditHours},
		{"above per-course maximum", course("Art", 11), ErrInvalidCreditHours},
		{"empty name", course("  ", 3), ErrInvalidCourseName},
		{"bad characters", course("Art<script>", 3), ErrInvalidCourseName},
	}
	for _, tc := range cases {
		_, err := l.Add(tc.in)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: want=%v got=%v", tc.name, tc.want, err)
		}
		if !IsInvalidInput(err) {
			t.Fatalf("%s: IsInvalidInput should be true", tc.name)
		}
	}
	if l.Total() != 0 || len(l.Courses()) != 0 {
		t.Fatalf("ledger mutated by invalid input: total=%d", l.Total())
	}
}

func TestRemoveCourseTwice(t *testing.T) {
	l := newLedger(t, 12)
	added, err := l.Add(course("Chemistry", 3))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	before := l.Total()

	removed, err := l.Remove(added.ID)
	if err != nil {
		t.Fatalf("first remove: %v", err)
	}
	if removed.ID != added.ID || l.Total() != before-3 {
		t.Fatalf("first remove: removed=%s total=%d", removed.ID, l.Total())
	}

	_, err = l.Remove(added.ID)
	if !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("second remove: want ErrCourseNotFound got=%v", err)
	}
	if l.Total() != 0 {
		t.Fatalf("second remove changed total: %d", l.Total())
	}
}

func TestRemoveCourseOfAnotherLedger(t *testing.T) {
	a := newLedger(t, 12)
	b := newLedger(t, 12)
	foreign, err := b.Add(course("History", 2))
	if err != nil {
		t.Fatalf("add to b: %v", err)
	}
	if _, err := a.Remove(foreign.ID); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("remove foreign course: want ErrCourseNotFound got=%v", err)
	}
	if b.Total() != 2 {
		t.Fatalf("other ledger touched: total=%d", b.Total())
	}
}

func TestAddThenRemoveRestoresTotal(t *testing.T) {
	l := newLedger(t, 25)
	if _, err := l.Add(course("Base", 7)); err != nil {
		t.Fatalf("add base: %v", err)
	}
	before := l.Total()
	added, err := l.Add(course("Extra", 5))
	if err != nil {
		t.Fatalf("add extra: %v", err)
	}
	if _, err := l.Remove(added.ID); err != nil {
		t.Fatalf("remove extra: %v", err)
	}
	if l.Total() != before {
		t.Fatalf("round trip: want=%d got=%d", before, l.Total())
	}
}

func TestRandomOperationsKeepInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	l := newLedger(t, 18)
	for i := 0; i < 500; i++ {
		if rng.Intn(3) == 0 && len(l.courses) > 0 {
			victim := l.courses[rng.Intn(len(l.courses))]
			if _, err := l.Remove(victim.ID); err != nil {
				t.Fatalf("step %d remove: %v", i, err)
			}
		} else {
			_, err := l.Add(course("Course", 1+rng.Intn(10)))
			if err != nil {
				if _, ok := AsCapacityExceeded(err); !ok {
					t.Fatalf("step %d add: unexpected %v", i, err)
				}
			}
		}
		if err := l.CheckInvariant(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func TestRestoreCreditLedger(t *testing.T) {
	id := uuid.New()
	row := &SemesterEnrollment{ID: id, MaxCreditHours: 10, CurrentCreditHours: 7}
	courses := []EnrolledCourse{
		{ID: uuid.New(), SemesterEnrollmentID: id, CourseName: "A", CreditHours: 3},
		{ID: uuid.New(), SemesterEnrollmentID: id, CourseName: "B", CreditHours: 4},
	}
	l, err := RestoreCreditLedger(row, courses, DefaultLimits())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if l.Total() != 7 || l.Remaining() != 3 {
		t.Fatalf("restored: total=%d remaining=%d", l.Total(), l.Remaining())
	}

	row.CurrentCreditHours = 8
	if _, err := RestoreCreditLedger(row, courses, DefaultLimits()); !errors.Is(err, ErrLedgerCorrupt) {
		t.Fatalf("mismatched total: want ErrLedgerCorrupt got=%v", err)
	}

	row.CurrentCreditHours = 7
	courses[1].SemesterEnrollmentID = uuid.New()
	if _, err := RestoreCreditLedger(row, courses, DefaultLimits()); !errors.Is(err, ErrLedgerCorrupt) {
		t.Fatalf("foreign course: want ErrLedgerCorrupt got=%v", err)
	}
}

func TestCoursesReturnsCopy(t *testing.T) {
	l := newLedger(t, 10)
	if _, err := l.Add(course("Copy", 2)); err != nil {
		t.Fatalf("add: %v", err)
	}
	out := l.Courses()
	out[0].CreditHours = 9
	if err := l.CheckInvariant(); err != nil {
		t.Fatalf("caller mutation leaked into ledger: %v", err)
	}
}
