package aggregates_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/enrollment-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/enrollment-backend/internal/data/aggregates/testutil"
	repos "github.com/yungbote/enrollment-backend/internal/data/repos/enrollment"
	repotest "github.com/yungbote/enrollment-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/enrollment-backend/internal/domain/aggregates"
	"github.com/yungbote/enrollment-backend/internal/domain/enrollment"
	"github.com/yungbote/enrollment-backend/internal/platform/dbctx"
)

func newAggregate(t *testing.T, db *gorm.DB, hooks aggregates.Hooks, runner aggregates.TxRunner) (domainagg.EnrollmentAggregate, repos.SemesterEnrollmentRepo, repos.EnrolledCourseRepo) {
	t.Helper()
	log := repotest.Logger(t)
	enrollments := repos.NewSemesterEnrollmentRepo(db, log)
	courses := repos.NewEnrolledCourseRepo(db, log)
	agg := aggregates.NewEnrollmentAggregate(aggregates.EnrollmentAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:     db,
			Log:    log,
			Runner: runner,
			Hooks:  hooks,
			Retry:  aggregates.RetryPolicy{MaxRetries: 8, Backoff: time.Millisecond},
		},
		Students:    repos.NewStudentRepo(db, log),
		Enrollments: enrollments,
		Courses:     courses,
	})
	return agg, enrollments, courses
}

func cleanupStudent(t *testing.T, db *gorm.DB, studentID uuid.UUID) {
	t.Cleanup(func() {
		ctx := context.Background()
		var ids []uuid.UUID
		_ = db.WithContext(ctx).Model(&enrollment.SemesterEnrollment{}).Where("student_id = ?", studentID).Pluck("id", &ids).Error
		if len(ids) > 0 {
			_ = db.WithContext(ctx).Where("semester_enrollment_id IN ?", ids).Delete(&enrollment.EnrolledCourse{}).Error
		}
		_ = db.WithContext(ctx).Where("student_id = ?", studentID).Delete(&enrollment.SemesterEnrollment{}).Error
		_ = db.WithContext(ctx).Where("id = ?", studentID).Delete(&enrollment.Student{}).Error
	})
}

func TestConcurrentAddCourseNeverExceedsCeiling(t *testing.T) {
	db := repotest.DB(t)
	ctx := context.Background()
	student := repotest.SeedStudent(t, ctx, db, enrollment.RoleStudent)
	cleanupStudent(t, db, student.ID)
	row := repotest.SeedEnrollment(t, ctx, db, student.ID, 30)

	hooks := &aggtest.HooksRecorder{}
	agg, enrollments, courses := newAggregate(t, db, hooks, nil)

	const writers = 20
	var added, rejected, conflicted atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < writers; i++ {
		name := fmt.Sprintf("Course %d", i)
		g.Go(func() error {
			_, err := agg.AddCourse(gctx, domainagg.AddCourseInput{EnrollmentID: row.ID, CourseName: name, CreditHours: 3})
			switch {
			case err == nil:
				added.Add(1)
			case domainagg.IsCode(err, domainagg.CodeCapacityExceeded):
				rejected.Add(1)
			case domainagg.IsCode(err, domainagg.CodeConflict), domainagg.IsCode(err, domainagg.CodeRetryable):
				conflicted.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected writer error: %v", err)
	}

	dbc := dbctx.Context{Ctx: ctx}
	stored, err := enrollments.GetByID(dbc, row.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	list, err := courses.ListByEnrollment(dbc, row.ID)
	if err != nil {
		t.Fatalf("ListByEnrollment: %v", err)
	}
	sum := 0
	for _, c := range list {
		sum += c.CreditHours
	}
	if sum != stored.CurrentCreditHours {
		t.Fatalf("stored total %d but courses sum to %d", stored.CurrentCreditHours, sum)
	}
	if stored.CurrentCreditHours > 30 {
		t.Fatalf("ceiling breached: %d", stored.CurrentCreditHours)
	}
	if int(added.Load()) != len(list) {
		t.Fatalf("successful adds %d but %d courses stored", added.Load(), len(list))
	}
	if stored.Version != len(list) {
		t.Fatalf("version: want=%d got=%d", len(list), stored.Version)
	}
	if added.Load()+rejected.Load()+conflicted.Load() != writers {
		t.Fatalf("outcomes do not add up: added=%d rejected=%d conflicted=%d", added.Load(), rejected.Load(), conflicted.Load())
	}
	if conflicted.Load() == 0 && added.Load() != 10 {
		t.Fatalf("without lost races exactly 10 adds fit, got=%d", added.Load())
	}
	if got := hooks.StatusCounts()["capacity_exceeded"]; got != int(rejected.Load()) {
		t.Fatalf("capacity rejections observed: want=%d got=%d", rejected.Load(), got)
	}
}

func TestConcurrentStartAllowsOneActiveEnrollment(t *testing.T) {
	db := repotest.DB(t)
	ctx := context.Background()
	student := repotest.SeedStudent(t, ctx, db, enrollment.RoleStudent)
	cleanupStudent(t, db, student.ID)

	agg, enrollments, _ := newAggregate(t, db, &aggtest.HooksRecorder{}, nil)

	const writers = 8
	var started, duplicates atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			_, err := agg.Start(gctx, domainagg.StartEnrollmentInput{StudentID: student.ID, SemesterName: "Fall 2026", MaxCreditHours: 18})
			switch {
			case err == nil:
				started.Add(1)
			case domainagg.IsCode(err, domainagg.CodeDuplicateActive):
				duplicates.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected writer error: %v", err)
	}
	if started.Load() != 1 || duplicates.Load() != writers-1 {
		t.Fatalf("started=%d duplicates=%d", started.Load(), duplicates.Load())
	}
	rows, err := enrollments.ListByStudent(dbctx.Context{Ctx: ctx}, student.ID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("stored enrollments: n=%d err=%v", len(rows), err)
	}
}

func TestTransientBeginFailuresAreRetried(t *testing.T) {
	db := repotest.DB(t)
	ctx := context.Background()
	student := repotest.SeedStudent(t, ctx, db, enrollment.RoleStudent)
	cleanupStudent(t, db, student.ID)
	row := repotest.SeedEnrollment(t, ctx, db, student.ID, 12)

	hooks := &aggtest.HooksRecorder{}
	runner := &aggtest.InjectedTxRunner{
		Inner:          aggregates.NewGormTxRunner(db),
		FailBegin:      errors.New("deadlock detected"),
		FailBeginTimes: 2,
	}
	agg, _, _ := newAggregate(t, db, hooks, runner)

	res, err := agg.AddCourse(ctx, domainagg.AddCourseInput{EnrollmentID: row.ID, CourseName: "Biology", CreditHours: 4})
	if err != nil {
		t.Fatalf("AddCourse: %v", err)
	}
	if res.Enrollment.CurrentCreditHours != 4 {
		t.Fatalf("total: want=4 got=%d", res.Enrollment.CurrentCreditHours)
	}
	if runner.BeginCalls != 3 || runner.CommitCalls != 1 {
		t.Fatalf("runner counters begin=%d commit=%d", runner.BeginCalls, runner.CommitCalls)
	}
	if hooks.Count(aggtest.HookRetry) != 2 {
		t.Fatalf("retries observed: want=2 got=%d", hooks.Count(aggtest.HookRetry))
	}
}

func TestCommitFailureLeavesNoTrace(t *testing.T) {
	db := repotest.DB(t)
	ctx := context.Background()
	student := repotest.SeedStudent(t, ctx, db, enrollment.RoleStudent)
	cleanupStudent(t, db, student.ID)
	row := repotest.SeedEnrollment(t, ctx, db, student.ID, 12, 5)

	runner := &aggtest.InjectedTxRunner{
		Inner:      aggregates.NewGormTxRunner(db),
		FailCommit: errors.New("commit refused"),
	}
	agg, enrollments, courses := newAggregate(t, db, nil, runner)

	_, err := agg.RemoveCourse(ctx, domainagg.RemoveCourseInput{EnrollmentID: row.ID, CourseID: row.Courses[0].ID})
	if !domainagg.IsCode(err, domainagg.CodeInternal) {
		t.Fatalf("want internal got=%v", err)
	}
	dbc := dbctx.Context{Ctx: ctx}
	stored, err := enrollments.GetByID(dbc, row.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	list, err := courses.ListByEnrollment(dbc, row.ID)
	if err != nil {
		t.Fatalf("ListByEnrollment: %v", err)
	}
	if stored.CurrentCreditHours != 5 || len(list) != 1 || runner.RollbackCalls != 1 {
		t.Fatalf("state after failed commit: total=%d courses=%d rollbacks=%d", stored.CurrentCreditHours, len(list), runner.RollbackCalls)
	}
}
