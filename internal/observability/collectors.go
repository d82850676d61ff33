package observability

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/enrollment-backend/internal/domain/enrollment"
	"github.com/yungbote/enrollment-backend/internal/platform/logger"
)

func (m *Metrics) every(ctx context.Context, fn func()) {
	interval := m.cfg.ScrapeInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

// StartDBCollector publishes database/sql pool stats for whichever driver db uses.
func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	m.every(ctx, func() {
		if err := m.collectDBStats(db); err != nil && log != nil {
			log.Warn("metrics: db stats unavailable", "error", err)
		}
	})
}

func (m *Metrics) collectDBStats(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	stats := sqlDB.Stats()
	m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
	m.dbStats.Set(float64(stats.InUse), "in_use")
	m.dbStats.Set(float64(stats.Idle), "idle")
	m.dbStats.Set(float64(stats.WaitCount), "wait_count")
	m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
	m.dbStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
	return nil
}

// StartEnrollmentCollector publishes how many stored enrollments are open or saturated.
func (m *Metrics) StartEnrollmentCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	m.every(ctx, func() {
		if err := m.collectEnrollmentStates(ctx, db); err != nil && log != nil {
			log.Warn("metrics: enrollment state query failed", "error", err)
		}
	})
}

func (m *Metrics) collectEnrollmentStates(ctx context.Context, db *gorm.DB) error {
	var rows []struct {
		State string
		Count int64
	}
	err := db.WithContext(ctx).
		Model(&enrollment.SemesterEnrollment{}).
		Select("CASE WHEN current_credit_hours >= max_credit_hours THEN 'saturated' ELSE 'open' END AS state, COUNT(*) AS count").
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return err
	}
	m.enrollments.Set(0, string(enrollment.StateOpen))
	m.enrollments.Set(0, string(enrollment.StateSaturated))
	for _, row := range rows {
		m.enrollments.Set(float64(row.Count), row.State)
	}
	return nil
}

// StartRedisCollector pings rdb on every scrape tick. rdb is owned by the caller.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	m.every(ctx, func() {
		start := time.Now()
		if err := rdb.Ping(ctx).Err(); err != nil {
			m.redisUp.Set(0)
			if log != nil {
				log.Warn("metrics: redis ping failed", "error", err)
			}
			return
		}
		m.redisUp.Set(1)
		m.redisPing.Set(time.Since(start).Seconds())
	})
}
