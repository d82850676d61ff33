package testutil

import (
	"sync"
	"testing"
	"time"
)

func TestHooksRecorderKeepsOrderAndKinds(t *testing.T) {
	h := &HooksRecorder{}
	h.IncRetry("Enrollment.AddCourse")
	h.IncConflict("Enrollment.AddCourse")
	h.IncRejected("Enrollment.AddCourse", "capacity_exceeded")
	h.ObserveOperation("Enrollment.AddCourse", "capacity_exceeded", 3*time.Millisecond)

	all := h.Events()
	if len(all) != 4 || all[0].Kind != HookRetry || all[3].Kind != HookOperation {
		t.Fatalf("events: %+v", all)
	}
	if rej := h.Events(HookRejected); len(rej) != 1 || rej[0].Reason != "capacity_exceeded" {
		t.Fatalf("rejections: %+v", rej)
	}
	if got := h.StatusCounts()["capacity_exceeded"]; got != 1 {
		t.Fatalf("status counts: want=1 got=%d", got)
	}
}

func TestHooksRecorderConcurrentWriters(t *testing.T) {
	h := &HooksRecorder{}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.IncConflict("op")
			h.ObserveOperation("op", "success", time.Microsecond)
		}()
	}
	wg.Wait()
	if h.Count(HookConflict) != 16 || h.StatusCounts()["success"] != 16 {
		t.Fatalf("conflicts=%d successes=%d", h.Count(HookConflict), h.StatusCounts()["success"])
	}
}
