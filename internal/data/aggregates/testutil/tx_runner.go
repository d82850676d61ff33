package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/enrollment-backend/internal/data/aggregates"
	"github.com/yungbote/enrollment-backend/internal/platform/dbctx"
)

// InjectedTxRunner injects begin and commit failures around an aggregate write.
//
// FailBegin is returned by the first FailBeginTimes calls (every call when zero), so retry
// paths can be driven to recovery. Inner, when set, runs the body; otherwise the body gets a
// context without a transaction and must only touch fakes.
type InjectedTxRunner struct {
	mu sync.Mutex

	Inner          aggregates.TxRunner
	FailBegin      error
	FailBeginTimes int
	FailCommit     error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin := r.FailBegin
	if r.FailBeginTimes > 0 && r.BeginCalls > r.FailBeginTimes {
		failBegin = nil
	}
	failCommit := r.FailCommit
	inner := r.Inner
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	body := func(dbc dbctx.Context) error {
		if fn == nil {
			return failCommit
		}
		if err := fn(dbc); err != nil {
			return err
		}
		return failCommit
	}
	var err error
	if inner != nil {
		err = inner.InTx(ctx, body)
	} else {
		err = body(dbctx.Context{Ctx: ctx})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.RollbackCalls++
		return err
	}
	r.CommitCalls++
	return nil
}
