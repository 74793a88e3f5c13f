package testutil

import (
	"context"
	"sync"
	"time"
)

// Harness owns per-test execution counters for scheduled callbacks. Each
// test creates its own Harness so counts never leak between tests.
type Harness struct {
	mu      sync.Mutex
	started map[string]int
	done    map[string]int
	starts  map[string][]time.Time
}

// NewHarness creates an empty Harness.
func NewHarness() *Harness {
	return &Harness{
		started: make(map[string]int),
		done:    make(map[string]int),
		starts:  make(map[string][]time.Time),
	}
}

// Callback returns a callback that records its start, runs body (if any)
// and records its completion under name.
func (h *Harness) Callback(name string, body func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		h.mu.Lock()
		h.started[name]++
		h.starts[name] = append(h.starts[name], time.Now())
		h.mu.Unlock()

		defer func() {
			h.mu.Lock()
			h.done[name]++
			h.mu.Unlock()
		}()

		if body == nil {
			return nil
		}
		return body(ctx)
	}
}

// Sleeping returns a body that blocks for d or until ctx is done.
func Sleeping(d time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
		return nil
	}
}

// Started returns how many executions of name have begun.
func (h *Harness) Started(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.started[name]
}

// Completed returns how many executions of name have returned.
func (h *Harness) Completed(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done[name]
}

// InFlight returns how many executions of name are running.
func (h *Harness) InFlight(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.started[name] - h.done[name]
}

// StartTimes returns the start time of each execution of name.
func (h *Harness) StartTimes(name string) []time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]time.Time(nil), h.starts[name]...)
}
