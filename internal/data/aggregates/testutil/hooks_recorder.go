package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/enrollment-backend/internal/data/aggregates"
)

type HookKind string

const (
	HookOperation HookKind = "operation"
	HookConflict  HookKind = "conflict"
	HookRetry     HookKind = "retry"
	HookRejected  HookKind = "rejected"
)

// HookEvent is one signal emitted by an aggregate. Status is set for operations, Reason for
// rejections.
type HookEvent struct {
	Kind     HookKind
	Op       string
	Status   string
	Reason   string
	Duration time.Duration
}

// HooksRecorder keeps every hook signal in arrival order. Safe for concurrent writers.
type HooksRecorder struct {
	mu     sync.Mutex
	events []HookEvent
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) record(ev HookEvent) {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
}

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.record(HookEvent{Kind: HookOperation, Op: name, Status: status, Duration: dur})
}

func (h *HooksRecorder) IncConflict(name string) {
	h.record(HookEvent{Kind: HookConflict, Op: name})
}

func (h *HooksRecorder) IncRetry(name string) {
	h.record(HookEvent{Kind: HookRetry, Op: name})
}

func (h *HooksRecorder) IncRejected(name, reason string) {
	h.record(HookEvent{Kind: HookRejected, Op: name, Reason: reason})
}

// Events returns a copy of the log, optionally filtered to the given kinds.
func (h *HooksRecorder) Events(kinds ...HookKind) []HookEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HookEvent, 0, len(h.events))
	for _, ev := range h.events {
		if len(kinds) == 0 || containsKind(kinds, ev.Kind) {
			out = append(out, ev)
		}
	}
	return out
}

func (h *HooksRecorder) Count(kind HookKind) int {
	return len(h.Events(kind))
}

// StatusCounts tallies operation events by status.
func (h *HooksRecorder) StatusCounts() map[string]int {
	out := map[string]int{}
	for _, ev := range h.Events(HookOperation) {
		out[ev.Status]++
	}
	return out
}

func containsKind(kinds []HookKind, k HookKind) bool {
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}
