package aggregates

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/enrollment-backend/internal/domain/aggregates"
	"github.com/yungbote/enrollment-backend/internal/platform/dbctx"
	"github.com/yungbote/enrollment-backend/internal/platform/logger"
)

// RetryPolicy bounds how often a write is re-run after losing a version race.
// The zero value means DefaultRetryPolicy; a negative MaxRetries disables retries.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Backoff: 5 * time.Millisecond}
}

// delay grows linearly per attempt with up to 100% jitter.
func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.Backoff <= 0 {
		return 0
	}
	d := p.Backoff * time.Duration(attempt+1)
	return d + time.Duration(rand.Int63n(int64(d)))
}

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
	Retry    RetryPolicy
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.Retry == (RetryPolicy{}) {
		d.Retry = DefaultRetryPolicy()
	}
	return d
}

// writeOp is one named aggregate write. Every attempt runs in its own transaction and
// reports exactly one ObserveOperation.
type writeOp struct {
	name string
	deps BaseDeps
}

func newWriteOp(deps BaseDeps, name string) writeOp {
	if name = strings.TrimSpace(name); name == "" {
		name = "aggregate.write"
	}
	return writeOp{name: name, deps: deps.withDefaults()}
}

// signals maps an outcome code to the extra hook it fires besides ObserveOperation.
var signals = map[domainagg.ErrorCode]func(h Hooks, op, status string){
	domainagg.CodeConflict:         func(h Hooks, op, _ string) { h.IncConflict(op) },
	domainagg.CodeRetryable:        func(h Hooks, op, _ string) { h.IncRetry(op) },
	domainagg.CodeCapacityExceeded: func(h Hooks, op, status string) { h.IncRejected(op, status) },
	domainagg.CodeDuplicateActive:  func(h Hooks, op, status string) { h.IncRejected(op, status) },
}

func (w writeOp) attempt(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	err := MapError(w.name, w.deps.Runner.InTx(ctx, fn))
	status := outcomeStatus(err)
	if signal, ok := signals[domainagg.ErrorCode(status)]; ok {
		signal(w.deps.Hooks, w.name, status)
	}
	w.deps.Hooks.ObserveOperation(w.name, status, time.Since(start))
	return err
}

// run re-runs fn while it fails with a conflict or a transient error, at most
// Retry.MaxRetries extra times. fn must rebuild all of its state from dbc on every attempt.
func (w writeOp) run(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	limit := max(w.deps.Retry.MaxRetries, 0)
	for n := 0; ; n++ {
		err := w.attempt(ctx, fn)
		if err == nil || !domainagg.Retriable(err) || n >= limit || ctx.Err() != nil {
			return err
		}
		if w.deps.Log != nil {
			w.deps.Log.Debug("aggregate write retry", "op", w.name, "attempt", n+1, "error", err)
		}
		if !wait(ctx, w.deps.Retry.delay(n)) {
			return err
		}
	}
}

// wait reports false when ctx ends first.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// outcomeStatus is the metric status for err: "success", a domain code, or "failure".
func outcomeStatus(err error) string {
	if err == nil {
		return "success"
	}
	if code := domainagg.CodeOf(err); code != "" {
		return string(code)
	}
	if code := domainagg.CodeOf(MapError("aggregate.status", err)); code != "" {
		return string(code)
	}
	return "failure"
}
