package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/enrollment-backend/internal/platform/logger"
)

const (
	IdempotencyInFlight  = "in_flight"
	IdempotencyCompleted = "completed"
)

// IdempotencyRecord is what a key maps to: a reservation while the first request runs,
// then the response it produced.
type IdempotencyRecord struct {
	State       string    `json:"state"`
	Fingerprint string    `json:"fingerprint"`
	Status      int       `json:"status,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Body        []byte    `json:"body,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type IdempotencyStore struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
}

func NewIdempotencyStore(log *logger.Logger, rdb goredis.UniversalClient, prefix string) *IdempotencyStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "enrollment"
	}
	return &IdempotencyStore{
		log:    log.With("service", "RedisIdempotencyStore"),
		rdb:    rdb,
		prefix: prefix + ":idem:",
	}
}

// Get returns nil, nil when the key is unknown or expired.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (*IdempotencyRecord, error) {
	raw, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var rec IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &rec, nil
}

// Reserve stores rec only when key is free. It reports whether this caller won the key.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string, rec IdempotencyRecord, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	ok, err := s.rdb.SetNX(ctx, s.prefix+key, raw, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// Complete replaces an existing reservation with the final response.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, rec IdempotencyRecord, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetXX(ctx, s.prefix+key, raw, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setxx: %w", err)
	}
	if !ok {
		s.log.Warn("idempotency reservation expired before completion", "key", key)
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
