package observability

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/enrollment-backend/internal/domain/enrollment"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObserveAggregateOperation("op", "success", time.Millisecond)
	m.IncAggregateConflict("op")
	m.IncAggregateRetry("op")
	m.IncAggregateRejected("op", "capacity_exceeded")
	m.IncSecurityEvent("auth_failed")
	m.IncIdempotency("replayed")
	m.ApiInflightInc()
	m.ApiInflightDec()
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil WritePrometheus: %v", err)
	}
	rec := httptest.NewRecorder()
	m.WriteHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 503 {
		t.Fatalf("nil WriteHTTP status: want=503 got=%d", rec.Code)
	}
}

func TestInitDisabledByDefault(t *testing.T) {
	if Init(nil, DefaultConfig()) != nil {
		t.Fatalf("Init should return nil when metrics are disabled")
	}
}

func TestAggregateMetricsExposition(t *testing.T) {
	m := newMetrics(DefaultConfig())
	m.ObserveAggregateOperation("Enrollment.AddCourse", "success", 2*time.Millisecond)
	m.ObserveAggregateOperation("Enrollment.AddCourse", "conflict", time.Millisecond)
	m.ObserveAggregateOperation("Enrollment.AddCourse", "internal", time.Millisecond)
	m.IncAggregateConflict("Enrollment.AddCourse")
	m.IncAggregateRejected("Enrollment.AddCourse", "capacity_exceeded")

	if got := m.aggOps.Value("Enrollment.AddCourse", "success"); got != 1 {
		t.Fatalf("success ops: want=1 got=%v", got)
	}
	if got := m.aggWriteError.Value(); got != 1 {
		t.Fatalf("write errors: want=1 got=%v", got)
	}

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`enr_aggregate_operations_total{op="Enrollment.AddCourse",status="success"} 1`,
		`enr_aggregate_conflicts_total{op="Enrollment.AddCourse"} 1`,
		`enr_aggregate_rejected_total{op="Enrollment.AddCourse",reason="capacity_exceeded"} 1`,
		`enr_aggregate_operation_duration_seconds_bucket{op="Enrollment.AddCourse",status="success",le="0.0025"} 1`,
		"# TYPE enr_api_inflight_requests gauge",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q", want)
		}
	}
	if strings.Index(out, `status="conflict"`) > strings.Index(out, `status="success"`) {
		t.Fatalf("series should be written in label order")
	}
}

func TestObserveAPICountsErrorsAndGoodLatency(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LatencyThreshold = 100 * time.Millisecond
	m := newMetrics(cfg)
	m.ObserveAPI("POST", "/api/enrollments", "201", 10*time.Millisecond)
	m.ObserveAPI("POST", "/api/enrollments", "500", 10*time.Millisecond)
	m.ObserveAPI("POST", "/api/enrollments", "409", 2*time.Second)
	if m.apiReqTotal.Value() != 3 || m.apiReqError.Value() != 1 || m.apiReqGood.Value() != 2 {
		t.Fatalf("api counters: total=%v error=%v good=%v", m.apiReqTotal.Value(), m.apiReqError.Value(), m.apiReqGood.Value())
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"route"}, []string{"a\"b\\c\nd"})
	want := `{route="a\"b\\c\nd"}`
	if got != want {
		t.Fatalf("labelString: want=%s got=%s", want, got)
	}
	if got := withLe("", "+Inf"); got != `{le="+Inf"}` {
		t.Fatalf("withLe empty: got=%s", got)
	}
}

func TestCollectEnrollmentStates(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&enrollment.SemesterEnrollment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	now := time.Now().UTC()
	for _, row := range []enrollment.SemesterEnrollment{
		{StudentID: uuid.New(), SemesterName: "A", EnrolledAt: now, MaxCreditHours: 10, CurrentCreditHours: 10},
		{StudentID: uuid.New(), SemesterName: "B", EnrolledAt: now, MaxCreditHours: 10, CurrentCreditHours: 3},
		{StudentID: uuid.New(), SemesterName: "C", EnrolledAt: now, MaxCreditHours: 12, CurrentCreditHours: 0},
	} {
		row := row
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	m := newMetrics(DefaultConfig())
	if err := m.collectEnrollmentStates(context.Background(), db); err != nil {
		t.Fatalf("collectEnrollmentStates: %v", err)
	}
	if got := m.enrollments.Value("open"); got != 2 {
		t.Fatalf("open: want=2 got=%v", got)
	}
	if got := m.enrollments.Value("saturated"); got != 1 {
		t.Fatalf("saturated: want=1 got=%v", got)
	}
	if err := m.collectDBStats(db); err != nil {
		t.Fatalf("collectDBStats: %v", err)
	}
	if got := m.dbStats.Value("max_open_connections"); got != 1 {
		t.Fatalf("max_open_connections: want=1 got=%v", got)
	}
}
