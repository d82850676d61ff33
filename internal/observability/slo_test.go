package observability

import (
	"testing"
	"time"
)

func TestWindowForgetsOldestBucket(t *testing.T) {
	w := newWindow(2)
	for _, v := range []float64{3, 4, 5} {
		w.push(v)
	}
	if w.sum != 9 {
		t.Fatalf("window sum: want=9 got=%v", w.sum)
	}
}

func TestSLOEvaluatorComputesBurn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SLO.AvailabilityTarget = 0.9
	m := newMetrics(cfg)
	e := newSLOEvaluator(m, nil)

	for i := 0; i < 18; i++ {
		m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	}
	m.ObserveAPI("GET", "/x", "500", time.Millisecond)
	m.ObserveAPI("GET", "/x", "503", time.Millisecond)
	e.evaluate()

	if got := m.sloCompliance.Value("api_availability", e.label); got < 0.899 || got > 0.901 {
		t.Fatalf("sli: want~0.9 got=%v", got)
	}
	if got := m.sloBurn.Value("api_availability", e.label); got < 0.99 || got > 1.01 {
		t.Fatalf("burn: want~1 got=%v", got)
	}
	if got := m.sloCompliance.Value("enrollment_write_success", e.label); got != 1 {
		t.Fatalf("idle objective: want=1 got=%v", got)
	}

	// a second tick with no traffic keeps the window's errors
	e.evaluate()
	if got := m.sloCompliance.Value("api_availability", e.label); got < 0.899 || got > 0.901 {
		t.Fatalf("sli after idle tick: want~0.9 got=%v", got)
	}
}

func TestSLOSeverity(t *testing.T) {
	e := &SLOEvaluator{cfg: DefaultConfig().SLO}
	cases := map[float64]string{0.5: "", 2: "warning", 9.9: "warning", 10: "critical"}
	for burn, want := range cases {
		if got := e.severity(burn); got != want {
			t.Fatalf("severity(%v): want=%q got=%q", burn, want, got)
		}
	}
}

func TestWindowLabel(t *testing.T) {
	cases := map[time.Duration]string{
		720 * time.Hour:  "30d",
		36 * time.Hour:   "36h",
		30 * time.Minute: "30m",
	}
	for in, want := range cases {
		if got := windowLabel(in); got != want {
			t.Fatalf("windowLabel(%s): want=%s got=%s", in, want, got)
		}
	}
}
