package history

import (
	"context"
	"sync"
	"time"
)

// Outcome classifies a firing.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Record describes one firing of a scheduled task.
type Record struct {
	Scheduler string
	Task      string
	Trigger   string
	Outcome   Outcome
	FiredAt   time.Time
	Duration  time.Duration
	Error     string
}

// Recorder stores firing records. Implementations must be safe for
// concurrent use; the scheduler calls Record from worker goroutines.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Nop discards every record.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Record) error { return nil }

// DefaultCapacity is the ring size used by NewMemoryRecorder for capacity <= 0.
const DefaultCapacity = 256

// MemoryRecorder keeps the most recent records in a fixed-size ring.
type MemoryRecorder struct {
	mu    sync.Mutex
	ring  []Record
	next  int
	full  bool
	total int64
}

// NewMemoryRecorder creates a recorder holding up to capacity records.
func NewMemoryRecorder(capacity int) *MemoryRecorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryRecorder{ring: make([]Record, capacity)}
}

// Record implements Recorder.
func (m *MemoryRecorder) Record(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ring[m.next] = rec
	m.next = (m.next + 1) % len(m.ring)
	if m.next == 0 {
		m.full = true
	}
	m.total++
	return nil
}

// Records returns the retained records, oldest first.
func (m *MemoryRecorder) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.full {
		return append([]Record(nil), m.ring[:m.next]...)
	}
	out := make([]Record, 0, len(m.ring))
	out = append(out, m.ring[m.next:]...)
	return append(out, m.ring[:m.next]...)
}

// ForTask returns the retained records of one task, oldest first.
func (m *MemoryRecorder) ForTask(task string) []Record {
	var out []Record
	for _, rec := range m.Records() {
		if rec.Task == task {
			out = append(out, rec)
		}
	}
	return out
}

// Total returns how many records were ever written, including evicted ones.
func (m *MemoryRecorder) Total() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}
