package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/enrollment-backend/internal/clients/redis"
	"github.com/yungbote/enrollment-backend/internal/http/response"
	"github.com/yungbote/enrollment-backend/internal/observability"
	"github.com/yungbote/enrollment-backend/internal/platform/ctxutil"
	"github.com/yungbote/enrollment-backend/internal/platform/logger"
)

const (
	maxIdempotencyKeyLen  = 255
	maxIdempotentBodySize = 1 << 20
)

var (
	errIdempotencyKeyTooLong = errors.New("idempotency key is longer than 255 characters")
	errBodyTooLarge          = errors.New("request body too large")
	errIdempotencyInFlight   = errors.New("a request with this idempotency key is still being processed")
	errIdempotencyMismatch   = errors.New("idempotency key was already used with a different request body")
)

// IdempotencyStore is satisfied by *redis.IdempotencyStore.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*redis.IdempotencyRecord, error)
	Reserve(ctx context.Context, key string, rec redis.IdempotencyRecord, ttl time.Duration) (bool, error)
	Complete(ctx context.Context, key string, rec redis.IdempotencyRecord, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type IdempotencyConfig struct {
	// TTL is how long a completed response is replayed.
	TTL time.Duration
	// LockTTL bounds a reservation whose request never completes.
	LockTTL time.Duration
}

type Idempotency struct {
	log     *logger.Logger
	store   IdempotencyStore
	metrics *observability.Metrics
	cfg     IdempotencyConfig
}

func NewIdempotency(log *logger.Logger, store IdempotencyStore, metrics *observability.Metrics, cfg IdempotencyConfig) *Idempotency {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	return &Idempotency{
		log:     log.With("middleware", "Idempotency"),
		store:   store,
		metrics: metrics,
		cfg:     cfg,
	}
}

// Handler replays the stored response for a repeated Idempotency-Key on the same route and
// principal. Requests without the header, and all requests when no store is configured, pass
// through. Store failures degrade to normal processing. 5xx responses and responses marked
// retryable are not stored so the client can retry them under the same key.
func (i *Idempotency) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawKey := strings.TrimSpace(c.GetHeader(headerIdempotencyKey))
		if i == nil || i.store == nil || rawKey == "" || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}
		if len(rawKey) > maxIdempotencyKeyLen {
			response.RespondError(c, http.StatusBadRequest, "invalid_idempotency_key", errIdempotencyKeyTooLong)
			c.Abort()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIdempotentBodySize+1))
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			c.Abort()
			return
		}
		if len(body) > maxIdempotentBodySize {
			response.RespondError(c, http.StatusRequestEntityTooLarge, "request_too_large", errBodyTooLarge)
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		ctx := c.Request.Context()
		key := i.scopedKey(c, rawKey)
		fingerprint := fingerprintOf(c.Request.Method, body)

		existing, err := i.store.Get(ctx, key)
		if err != nil {
			i.storeFailed(c, "get", err)
			return
		}
		if existing != nil {
			i.serveExisting(c, existing, fingerprint)
			return
		}

		won, err := i.store.Reserve(ctx, key, redis.IdempotencyRecord{
			State:       redis.IdempotencyInFlight,
			Fingerprint: fingerprint,
			CreatedAt:   time.Now().UTC(),
		}, i.cfg.LockTTL)
		if err != nil {
			i.storeFailed(c, "reserve", err)
			return
		}
		if !won {
			i.metrics.IncIdempotency("in_flight")
			response.RespondError(c, http.StatusConflict, "idempotency_in_flight", errIdempotencyInFlight)
			c.Abort()
			return
		}

		rec := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		// request ctx may be cancelled by now
		bg := context.WithoutCancel(ctx)
		if c.Writer.Status() >= http.StatusInternalServerError || response.IsRetryable(c) {
			if err := i.store.Release(bg, key); err != nil {
				i.log.Warn("idempotency release failed", "error", err, "key", rawKey)
				return
			}
			i.metrics.IncIdempotency("released")
			return
		}
		err = i.store.Complete(bg, key, redis.IdempotencyRecord{
			State:       redis.IdempotencyCompleted,
			Fingerprint: fingerprint,
			Status:      c.Writer.Status(),
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
			CreatedAt:   time.Now().UTC(),
		}, i.cfg.TTL)
		if err != nil {
			i.metrics.IncIdempotency("store_error")
			i.log.Warn("idempotency complete failed", "error", err, "key", rawKey)
			return
		}
		i.metrics.IncIdempotency("stored")
	}
}

func (i *Idempotency) serveExisting(c *gin.Context, rec *redis.IdempotencyRecord, fingerprint string) {
	switch {
	case rec.Fingerprint != fingerprint:
		i.metrics.IncIdempotency("mismatch")
		response.RespondError(c, http.StatusUnprocessableEntity, "idempotency_key_reused", errIdempotencyMismatch)
	case rec.State != redis.IdempotencyCompleted:
		i.metrics.IncIdempotency("in_flight")
		response.RespondError(c, http.StatusConflict, "idempotency_in_flight", errIdempotencyInFlight)
	default:
		i.metrics.IncIdempotency("replayed")
		c.Header(headerIdempotentReplay, "true")
		contentType := rec.ContentType
		if contentType == "" {
			contentType = "application/json; charset=utf-8"
		}
		c.Data(rec.Status, contentType, rec.Body)
	}
	c.Abort()
}

func (i *Idempotency) storeFailed(c *gin.Context, stage string, err error) {
	i.metrics.IncIdempotency("store_error")
	i.log.Warn("idempotency store unavailable, processing without replay protection", "stage", stage, "error", err)
	c.Next()
}

// scopedKey binds the client key to the principal and the matched route.
func (i *Idempotency) scopedKey(c *gin.Context, rawKey string) string {
	principal := "anonymous"
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
		principal = rd.StudentID.String()
	}
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	sum := sha256.Sum256([]byte(principal + "\x00" + c.Request.Method + "\x00" + route + "\x00" + c.Request.URL.Path + "\x00" + rawKey))
	return hex.EncodeToString(sum[:])
}

func fingerprintOf(method string, body []byte) string {
	sum := sha256.Sum256(append([]byte(method+"\x00"), body...))
	return hex.EncodeToString(sum[:])
}

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
