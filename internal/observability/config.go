package observability

import "time"

// Config is embedded in the app config and parsed from the environment with it.
type Config struct {
	MetricsEnabled   bool          `env:"METRICS_ENABLED"`
	ScrapeInterval   time.Duration `env:"METRICS_SCRAPE_INTERVAL" envDefault:"10s"`
	LatencyThreshold time.Duration `env:"SLO_API_LATENCY_THRESHOLD" envDefault:"500ms"`

	Tracing TracingConfig
	SLO     SLOConfig
}

type TracingConfig struct {
	Enabled     bool              `env:"OTEL_ENABLED"`
	SampleRatio float64           `env:"OTEL_SAMPLER_RATIO" envDefault:"0.1"`
	Endpoint    string            `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Headers     map[string]string `env:"OTEL_EXPORTER_OTLP_HEADERS" envSeparator:"," envKeyValSeparator:"="`
	Insecure    bool              `env:"OTEL_EXPORTER_OTLP_INSECURE"`
}

type SLOConfig struct {
	Enabled          bool          `env:"SLO_ENABLED"`
	EvalInterval     time.Duration `env:"SLO_EVAL_INTERVAL" envDefault:"60s"`
	Window           time.Duration `env:"SLO_WINDOW" envDefault:"720h"`
	AlertMinInterval time.Duration `env:"SLO_ALERT_MIN_INTERVAL" envDefault:"15m"`
	BurnWarn         float64       `env:"SLO_ALERT_BURN_RATE_WARN" envDefault:"2"`
	BurnCrit         float64       `env:"SLO_ALERT_BURN_RATE_CRIT" envDefault:"10"`

	AvailabilityTarget float64 `env:"SLO_API_AVAIL_TARGET" envDefault:"0.995"`
	LatencyTarget      float64 `env:"SLO_API_LATENCY_TARGET" envDefault:"0.95"`
	WriteTarget        float64 `env:"SLO_ENROLLMENT_WRITE_TARGET" envDefault:"0.999"`
}

// DefaultConfig matches the envDefault tags, for callers that never touch the environment.
func DefaultConfig() Config {
	return Config{
		ScrapeInterval:   10 * time.Second,
		LatencyThreshold: 500 * time.Millisecond,
		Tracing:          TracingConfig{SampleRatio: 0.1},
		SLO: SLOConfig{
			EvalInterval:       time.Minute,
			Window:             720 * time.Hour,
			AlertMinInterval:   15 * time.Minute,
			BurnWarn:           2,
			BurnCrit:           10,
			AvailabilityTarget: 0.995,
			LatencyTarget:      0.95,
			WriteTarget:        0.999,
		},
	}
}

func (c TracingConfig) sampleRatio() float64 {
	return clamp01(c.SampleRatio)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
