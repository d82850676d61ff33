package observability

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/yungbote/enrollment-backend/internal/platform/logger"
)

// window keeps the last len(buckets) per-tick deltas and their running sum.
type window struct {
	buckets []float64
	next    int
	sum     float64
}

func newWindow(size int) *window {
	return &window{buckets: make([]float64, max(size, 1))}
}

func (w *window) push(v float64) {
	w.sum += v - w.buckets[w.next]
	w.buckets[w.next] = v
	w.next = (w.next + 1) % len(w.buckets)
}

// objective is one SLI computed from a pair of monotonic counters.
type objective struct {
	name      string
	target    float64
	readTotal func() float64
	readBad   func() float64

	total, bad         *window
	lastTotal, lastBad float64
}

func (o *objective) tick() (total, bad float64) {
	t, b := o.readTotal(), o.readBad()
	o.total.push(sinceLast(t, o.lastTotal))
	o.bad.push(sinceLast(b, o.lastBad))
	o.lastTotal, o.lastBad = t, b
	return o.total.sum, o.bad.sum
}

// sinceLast treats a counter that went backwards as reset.
func sinceLast(cur, last float64) float64 {
	if cur < last {
		return cur
	}
	return cur - last
}

type SLOEvaluator struct {
	metrics    *Metrics
	log        *logger.Logger
	cfg        SLOConfig
	label      string
	objectives []*objective

	mu        sync.Mutex
	lastAlert map[string]time.Time
}

// StartSLOEvaluator recomputes compliance, remaining budget and burn rate every
// SLO_EVAL_INTERVAL until ctx ends.
func (m *Metrics) StartSLOEvaluator(ctx context.Context, log *logger.Logger) {
	if m == nil || !m.cfg.SLO.Enabled {
		return
	}
	e := newSLOEvaluator(m, log)
	go e.run(ctx)
	log.Info("SLO evaluator started", "window", e.label, "interval", e.cfg.EvalInterval.String())
}

func newSLOEvaluator(m *Metrics, log *logger.Logger) *SLOEvaluator {
	cfg := m.cfg.SLO
	if cfg.EvalInterval <= 0 {
		cfg.EvalInterval = time.Minute
	}
	if cfg.Window < time.Hour {
		cfg.Window = 24 * time.Hour
	}
	size := int(cfg.Window / cfg.EvalInterval)
	e := &SLOEvaluator{
		metrics:   m,
		log:       log,
		cfg:       cfg,
		label:     windowLabel(cfg.Window),
		lastAlert: map[string]time.Time{},
	}
	track := func(name string, target float64, total, bad func() float64) {
		e.objectives = append(e.objectives, &objective{
			name: name, target: clamp01(target),
			readTotal: total, readBad: bad,
			total: newWindow(size), bad: newWindow(size),
		})
	}
	track("api_availability", cfg.AvailabilityTarget, m.apiReqTotal.Value, m.apiReqError.Value)
	track("api_latency", cfg.LatencyTarget, m.apiReqTotal.Value, func() float64 {
		return m.apiReqTotal.Value() - m.apiReqGood.Value()
	})
	track("enrollment_write_success", cfg.WriteTarget, m.aggWriteTotal.Value, m.aggWriteError.Value)
	return e
}

func (e *SLOEvaluator) run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.EvalInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.evaluate()
		}
	}
}

func (e *SLOEvaluator) evaluate() {
	for _, o := range e.objectives {
		total, bad := o.tick()
		sli, budget, burn := 1.0, 1.0, 0.0
		if total > 0 {
			sli = clamp01(1 - bad/total)
			if o.target < 1 {
				burn = (1 - sli) / (1 - o.target)
			}
			budget = clamp01(1 - burn)
		}
		e.metrics.sloCompliance.Set(sli, o.name, e.label)
		e.metrics.sloBudget.Set(budget, o.name, e.label)
		e.metrics.sloBurn.Set(burn, o.name, e.label)
		e.alert(o, sli, budget, burn)
	}
}

func (e *SLOEvaluator) severity(burn float64) string {
	switch {
	case burn >= e.cfg.BurnCrit:
		return "critical"
	case burn >= e.cfg.BurnWarn:
		return "warning"
	default:
		return ""
	}
}

// alert logs at most once per SLO_ALERT_MIN_INTERVAL for each objective and severity.
func (e *SLOEvaluator) alert(o *objective, sli, budget, burn float64) {
	sev := e.severity(burn)
	if sev == "" || e.log == nil {
		return
	}
	key := o.name + "/" + sev
	now := time.Now()
	e.mu.Lock()
	if last, ok := e.lastAlert[key]; ok && now.Sub(last) < e.cfg.AlertMinInterval {
		e.mu.Unlock()
		return
	}
	e.lastAlert[key] = now
	e.mu.Unlock()

	e.log.Warn("SLO burn rate alert",
		"slo", o.name,
		"severity", sev,
		"window", e.label,
		"sli", sli,
		"target", o.target,
		"burn_rate", burn,
		"error_budget_remaining", budget,
	)
}

func windowLabel(d time.Duration) string {
	hours := int(d / time.Hour)
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return strconv.Itoa(hours/24) + "d"
	case hours >= 1:
		return strconv.Itoa(hours) + "h"
	default:
		return strconv.Itoa(int(d/time.Minute)) + "m"
	}
}
