package observability

import (
	"bufio"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Prometheus text exposition (format 0.0.4). Series are written in label order.

type metricKind string

const (
	kindCounter   metricKind = "counter"
	kindGauge     metricKind = "gauge"
	kindHistogram metricKind = "histogram"
)

// family stores one float per rendered label set.
type family struct {
	name   string
	help   string
	kind   metricKind
	labels []string

	mu     sync.RWMutex
	series map[string]float64
}

func newFamily(name, help string, kind metricKind, labels []string) *family {
	return &family{name: name, help: help, kind: kind, labels: labels, series: map[string]float64{}}
}

func (f *family) update(values []string, fn func(old float64) float64) {
	key := labelString(f.labels, values)
	f.mu.Lock()
	f.series[key] = fn(f.series[key])
	f.mu.Unlock()
}

func (f *family) get(values []string) float64 {
	key := labelString(f.labels, values)
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.series[key]
}

func (f *family) write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	writeHeader(bw, f.name, f.help, f.kind)
	f.mu.RLock()
	keys := sortedKeys(f.series)
	for _, k := range keys {
		writeSample(bw, f.name, k, f.series[k])
	}
	if len(f.labels) == 0 && len(keys) == 0 {
		writeSample(bw, f.name, "", 0)
	}
	f.mu.RUnlock()
	return bw.Flush()
}

type CounterVec struct{ f *family }

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{f: newFamily(name, help, kindCounter, labels)}
}

func (c *CounterVec) Inc(values ...string) { c.Add(1, values...) }

func (c *CounterVec) Add(v float64, values ...string) {
	if c == nil {
		return
	}
	c.f.update(values, func(old float64) float64 { return old + v })
}

// Value returns one series, 0 when it was never touched.
func (c *CounterVec) Value(values ...string) float64 {
	if c == nil {
		return 0
	}
	return c.f.get(values)
}

func (c *CounterVec) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	return c.f.write(w)
}

type Counter struct{ vec *CounterVec }

func NewCounter(name, help string) *Counter {
	return &Counter{vec: NewCounterVec(name, help, nil)}
}

func (c *Counter) Inc() { c.Add(1) }

func (c *Counter) Add(v float64) {
	if c != nil {
		c.vec.Add(v)
	}
}

func (c *Counter) Value() float64 {
	if c == nil {
		return 0
	}
	return c.vec.Value()
}

func (c *Counter) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	return c.vec.WritePrometheus(w)
}

type GaugeVec struct{ f *family }

func NewGaugeVec(name, help string, labels []string) *GaugeVec {
	return &GaugeVec{f: newFamily(name, help, kindGauge, labels)}
}

func (g *GaugeVec) Set(v float64, values ...string) {
	if g == nil {
		return
	}
	g.f.update(values, func(float64) float64 { return v })
}

func (g *GaugeVec) add(v float64, values ...string) {
	if g == nil {
		return
	}
	g.f.update(values, func(old float64) float64 { return old + v })
}

func (g *GaugeVec) Value(values ...string) float64 {
	if g == nil {
		return 0
	}
	return g.f.get(values)
}

func (g *GaugeVec) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	return g.f.write(w)
}

type Gauge struct{ vec *GaugeVec }

func NewGauge(name, help string) *Gauge {
	return &Gauge{vec: NewGaugeVec(name, help, nil)}
}

func (g *Gauge) Set(v float64) {
	if g != nil {
		g.vec.Set(v)
	}
}

func (g *Gauge) Inc() {
	if g != nil {
		g.vec.add(1)
	}
}

func (g *Gauge) Dec() {
	if g != nil {
		g.vec.add(-1)
	}
}

func (g *Gauge) Value() float64 {
	if g == nil {
		return 0
	}
	return g.vec.Value()
}

func (g *Gauge) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	return g.vec.WritePrometheus(w)
}

var defaultBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

type HistogramVec struct {
	name    string
	help    string
	labels  []string
	bounds  []float64
	mu      sync.RWMutex
	entries map[string]*histogram
}

// histogram keeps non-cumulative bucket counts; the extra slot is +Inf.
type histogram struct {
	buckets []uint64
	sum     float64
	count   uint64
}

func NewHistogramVec(name, help string, labels []string, buckets []float64) *HistogramVec {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}
	bounds := slices.Clone(buckets)
	slices.Sort(bounds)
	return &HistogramVec{name: name, help: help, labels: labels, bounds: bounds, entries: map[string]*histogram{}}
}

func (h *HistogramVec) Observe(v float64, values ...string) {
	if h == nil {
		return
	}
	key := labelString(h.labels, values)
	idx, _ := slices.BinarySearch(h.bounds, v)
	h.mu.Lock()
	defer h.mu.Unlock()
	e := h.entries[key]
	if e == nil {
		e = &histogram{buckets: make([]uint64, len(h.bounds)+1)}
		h.entries[key] = e
	}
	e.buckets[idx]++
	e.sum += v
	e.count++
}

func (h *HistogramVec) WritePrometheus(w io.Writer) error {
	if h == nil {
		return nil
	}
	bw := bufio.NewWriter(w)
	writeHeader(bw, h.name, h.help, kindHistogram)
	h.mu.RLock()
	keys := make([]string, 0, len(h.entries))
	for k := range h.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		e := h.entries[k]
		var cumulative uint64
		for i, bound := range h.bounds {
			cumulative += e.buckets[i]
			writeSample(bw, h.name+"_bucket", withLe(k, formatFloat(bound)), float64(cumulative))
		}
		writeSample(bw, h.name+"_bucket", withLe(k, "+Inf"), float64(e.count))
		writeSample(bw, h.name+"_sum", k, e.sum)
		writeSample(bw, h.name+"_count", k, float64(e.count))
	}
	h.mu.RUnlock()
	return bw.Flush()
}

func writeHeader(w *bufio.Writer, name, help string, kind metricKind) {
	w.WriteString("# HELP " + name + " " + help + "\n")
	w.WriteString("# TYPE " + name + " " + string(kind) + "\n")
}

func writeSample(w *bufio.Writer, name, labels string, v float64) {
	w.WriteString(name + labels + " " + formatFloat(v) + "\n")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// labelString renders {a="x",b="y"}. Missing values are filled with "unknown".
func labelString(names, values []string) string {
	if len(names) == 0 {
		return ""
	}
	pairs := make([]string, len(names))
	for i, name := range names {
		val := "unknown"
		if i < len(values) {
			val = values[i]
		}
		pairs[i] = name + `="` + labelEscaper.Replace(val) + `"`
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func withLe(labels, le string) string {
	pair := `le="` + labelEscaper.Replace(le) + `"`
	if inner, ok := strings.CutSuffix(strings.TrimPrefix(labels, "{"), "}"); ok && inner != "" {
		return "{" + inner + "," + pair + "}"
	}
	return "{" + pair + "}"
}
