package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/vnykmshr/cronflow/pkg/scheduling/cronexpr"
)

// Callback is the work a task performs on each firing. The context is
// canceled when the manager stops. A returned error or a panic counts as a
// failed execution; the task keeps its schedule either way.
type Callback func(ctx context.Context) error

// TaskState is the lifecycle state of a scheduled task.
type TaskState int

const (
	// TaskIdle means the manager is not running the task.
	TaskIdle TaskState = iota
	// TaskArmed means a next firing time is set.
	TaskArmed
	// TaskExecuting means at least one execution is in flight.
	TaskExecuting
)

func (s TaskState) String() string {
	switch s {
	case TaskIdle:
		return "idle"
	case TaskArmed:
		return "armed"
	case TaskExecuting:
		return "executing"
	default:
		return "unknown"
	}
}

// TaskStats counts what a task has done since registration.
type TaskStats struct {
	Runs         int64
	Failures     int64
	Skips        int64
	LastFiredAt  time.Time
	LastDuration time.Duration
	LastError    error
}

// TaskInfo is a point-in-time view of a registered task.
type TaskInfo struct {
	Name       string
	Trigger    TriggerSpec
	State      TaskState
	NextFireAt time.Time // zero when not armed
	Running    int
	Stats      TaskStats
}

// TaskOption configures a task at registration.
type TaskOption func(*taskOptions)

type taskOptions struct {
	name string
}

// WithName names the task in logs, metrics and history. Unnamed tasks are
// called task-<n> in registration order.
func WithName(name string) TaskOption {
	return func(o *taskOptions) {
		o.name = name
	}
}

// Registration pairs a trigger with its callback for RegisterAll.
type Registration struct {
	Name     string
	Trigger  TriggerSpec
	Callback Callback
}

type scheduledTask struct {
	name     string
	trigger  TriggerSpec
	kind     TriggerKind
	period   time.Duration
	delay    time.Duration
	expr     *cronexpr.Expression
	callback Callback

	mu         sync.Mutex
	state      TaskState
	nextFireAt time.Time
	running    int
	stats      TaskStats
}

func (t *scheduledTask) info() TaskInfo {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.state
	if state == TaskArmed && t.running > 0 {
		state = TaskExecuting
	}
	return TaskInfo{
		Name:       t.name,
		Trigger:    t.trigger,
		State:      state,
		NextFireAt: t.nextFireAt,
		Running:    t.running,
		Stats:      t.stats,
	}
}

// disarm returns the task to Idle. In-flight executions keep running.
func (t *scheduledTask) disarm() {
	t.mu.Lock()
	t.state = TaskIdle
	t.nextFireAt = time.Time{}
	t.mu.Unlock()
}
