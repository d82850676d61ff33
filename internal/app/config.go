package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/enrollment-backend/internal/clients/redis"
	"github.com/yungbote/enrollment-backend/internal/data/db"
	"github.com/yungbote/enrollment-backend/internal/domain/enrollment"
	"github.com/yungbote/enrollment-backend/internal/observability"
	"github.com/yungbote/enrollment-backend/internal/platform/config"
)

type Config struct {
	Port         string `env:"PORT" envDefault:"8080"`
	LogMode      string `env:"LOG_MODE" envDefault:"development"`
	LogRedaction bool   `env:"LOG_REDACTION_ENABLED" envDefault:"true"`
	LogHashSalt  string `env:"LOG_HASH_SALT"`
	Environment  string `env:"APP_ENV" envDefault:"development"`
	Version      string `env:"APP_VERSION" envDefault:"dev"`

	DB            db.Config
	Redis         redis.Config
	Observability observability.Config

	JWTSecretKey   string        `env:"JWT_SECRET_KEY" envDefault:"defaultsecret"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	AdminEmail     string        `env:"ADMIN_EMAIL"`
	AdminPassword  string        `env:"ADMIN_PASSWORD"`

	AllowedIPs  []string `env:"ALLOWED_IPS" envSeparator:","`
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	MinCeiling        int           `env:"ENROLLMENT_MIN_CREDITS" envDefault:"1"`
	MaxCeiling        int           `env:"ENROLLMENT_MAX_CREDITS" envDefault:"30"`
	MaxCourseCredits  int           `env:"COURSE_MAX_CREDITS" envDefault:"10"`
	ConflictRetries   int           `env:"ENROLLMENT_CONFLICT_RETRIES" envDefault:"3"`
	ConflictBackoff   time.Duration `env:"ENROLLMENT_CONFLICT_BACKOFF" envDefault:"5ms"`
	WriteTimeout      time.Duration `env:"ENROLLMENT_WRITE_TIMEOUT" envDefault:"5s"`
	IdempotencyTTL    time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	IdempotencyLock   time.Duration `env:"IDEMPOTENCY_LOCK_TTL" envDefault:"30s"`
	MetricsListenAddr string        `env:"METRICS_ADDR"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Limits().Validate(); err != nil {
		return Config{}, fmt.Errorf("enrollment limits: %w", err)
	}
	if cfg.MinCeiling < enrollment.DefaultMinCeiling || cfg.MaxCeiling > enrollment.DefaultMaxCeiling {
		return Config{}, fmt.Errorf("enrollment limits: ceiling range [%d,%d] must stay within [%d,%d]",
			cfg.MinCeiling, cfg.MaxCeiling, enrollment.DefaultMinCeiling, enrollment.DefaultMaxCeiling)
	}
	if cfg.MaxCourseCredits > enrollment.DefaultMaxCourseCredits {
		return Config{}, fmt.Errorf("enrollment limits: COURSE_MAX_CREDITS %d exceeds %d", cfg.MaxCourseCredits, enrollment.DefaultMaxCourseCredits)
	}
	if cfg.ConflictRetries < 0 {
		return Config{}, fmt.Errorf("ENROLLMENT_CONFLICT_RETRIES must not be negative")
	}
	if strings.TrimSpace(cfg.JWTSecretKey) == "" {
		return Config{}, fmt.Errorf("JWT_SECRET_KEY must not be empty")
	}
	if cfg.AccessTokenTTL <= 0 {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	return cfg, nil
}

func (c Config) Limits() enrollment.Limits {
	return enrollment.Limits{
		MinCeiling:       c.MinCeiling,
		MaxCeiling:       c.MaxCeiling,
		MaxCourseCredits: c.MaxCourseCredits,
	}
}
