package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/enrollment-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqTotal *Counter
	apiReqError *Counter
	apiReqGood  *Counter

	aggOps        *CounterVec
	aggLatency    *HistogramVec
	aggConflicts  *CounterVec
	aggRetries    *CounterVec
	aggRejected   *CounterVec
	aggWriteTotal *Counter
	aggWriteError *Counter

	securityEvents *CounterVec
	idempotency    *CounterVec

	enrollments *GaugeVec
	dbStats     *GaugeVec
	redisUp     *Gauge
	redisPing   *Gauge

	sloCompliance *GaugeVec
	sloBudget     *GaugeVec
	sloBurn       *GaugeVec

	cfg Config
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Init builds the process-wide registry once. It returns nil when metrics are disabled;
// every method on a nil *Metrics is a no-op.
func Init(log *logger.Logger, cfg Config) *Metrics {
	if !cfg.MetricsEnabled {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics(cfg)
		log.Info("metrics enabled", "scrape_interval", cfg.ScrapeInterval.String())
	})
	return instance
}

func newMetrics(cfg Config) *Metrics {
	return &Metrics{
		cfg: cfg,

		apiRequests: NewCounterVec("enr_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"enr_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		apiInflight: NewGauge("enr_api_inflight_requests", "In-flight API requests."),
		apiReqTotal: NewCounter("enr_api_requests_total_all", "Total API requests (all)."),
		apiReqError: NewCounter("enr_api_requests_error_total", "Total API requests with 5xx status."),
		apiReqGood:  NewCounter("enr_api_requests_good_latency_total", "Total API requests under SLO latency threshold."),

		aggOps: NewCounterVec("enr_aggregate_operations_total", "Aggregate write attempts by operation/status.", []string{"op", "status"}),
		aggLatency: NewHistogramVec(
			"enr_aggregate_operation_duration_seconds",
			"Aggregate write attempt latency in seconds by operation/status.",
			[]string{"op", "status"},
			[]float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		),
		aggConflicts:  NewCounterVec("enr_aggregate_conflicts_total", "Aggregate write attempts that lost a version race.", []string{"op"}),
		aggRetries:    NewCounterVec("enr_aggregate_retryable_total", "Aggregate write attempts that failed transiently.", []string{"op"}),
		aggRejected:   NewCounterVec("enr_aggregate_rejected_total", "Aggregate writes refused by a business rule.", []string{"op", "reason"}),
		aggWriteTotal: NewCounter("enr_aggregate_operations_total_all", "Aggregate write attempts (all)."),
		aggWriteError: NewCounter("enr_aggregate_operations_error_total", "Aggregate write attempts with internal or invariant failures."),

		securityEvents: NewCounterVec("enr_security_events_total", "Security-related events by type.", []string{"event"}),
		idempotency:    NewCounterVec("enr_idempotency_requests_total", "Idempotency-Key handling by outcome.", []string{"outcome"}),

		enrollments: NewGaugeVec("enr_enrollments", "Stored semester enrollments by derived state.", []string{"state"}),
		dbStats:     NewGaugeVec("enr_db_stats", "Database connection pool stats.", []string{"metric"}),
		redisUp:     NewGauge("enr_redis_up", "Redis connectivity (1=up, 0=down)."),
		redisPing:   NewGauge("enr_redis_ping_seconds", "Redis ping latency in seconds."),

		sloCompliance: NewGaugeVec("enr_slo_compliance", "SLO compliance (SLI) over window.", []string{"slo", "window"}),
		sloBudget:     NewGaugeVec("enr_slo_error_budget_remaining", "Error budget remaining (0-1).", []string{"slo", "window"}),
		sloBurn:       NewGaugeVec("enr_slo_burn_rate", "Error budget burn rate.", []string{"slo", "window"}),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqTotal, m.apiReqError, m.apiReqGood,
		m.aggOps, m.aggLatency, m.aggConflicts, m.aggRetries, m.aggRejected, m.aggWriteTotal, m.aggWriteError,
		m.securityEvents, m.idempotency,
		m.enrollments, m.dbStats, m.redisUp, m.redisPing,
		m.sloCompliance, m.sloBudget, m.sloBurn,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	m.apiReqTotal.Inc()
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
	if m.cfg.LatencyThreshold > 0 && dur <= m.cfg.LatencyThreshold {
		m.apiReqGood.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.aggOps.Inc(op, status)
	m.aggLatency.Observe(dur.Seconds(), op, status)
	m.aggWriteTotal.Inc()
	if isFailureStatus(status) {
		m.aggWriteError.Inc()
	}
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggConflicts.Inc(op)
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggRetries.Inc(op)
}

func (m *Metrics) IncAggregateRejected(op, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.aggRejected.Inc(op, reason)
}

func (m *Metrics) IncSecurityEvent(event string) {
	if m == nil {
		return
	}
	event = strings.TrimSpace(event)
	if event == "" {
		event = "unknown"
	}
	m.securityEvents.Inc(event)
}

// IncIdempotency counts how an Idempotency-Key request was served: stored, released,
// replayed, in_flight, mismatch or store_error.
func (m *Metrics) IncIdempotency(outcome string) {
	if m == nil {
		return
	}
	m.idempotency.Inc(outcome)
}

func isServerErrorStatus(status string) bool {
	status = strings.TrimSpace(status)
	if len(status) < 3 {
		return false
	}
	return status[0] == '5'
}

func isFailureStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "internal", "invariant_violation", "failure":
		return true
	default:
		return false
	}
}
