package workerpool

import (
	"context"
	"errors"
	"time"

	gferrors "github.com/vnykmshr/cronflow/pkg/common/errors"
	"github.com/vnykmshr/cronflow/pkg/metrics"
)

// MetricsPool wraps a worker Pool with Prometheus metrics collection.
type MetricsPool struct {
	pool     Pool
	name     string
	registry *metrics.Registry
}

// NewWithMetrics creates a worker pool that reports to registry under
// the given pool name. A nil registry uses metrics.Default().
func NewWithMetrics(config Config, name string, registry *metrics.Registry) *MetricsPool {
	if registry == nil {
		registry = metrics.Default()
	}
	mp := &MetricsPool{
		pool:     NewWithConfig(config),
		name:     name,
		registry: registry,
	}
	mp.updateMetrics()
	return mp
}

// updateMetrics updates the current state metrics.
func (mp *MetricsPool) updateMetrics() {
	mp.registry.WorkerPoolSize.WithLabelValues(mp.name).Set(float64(mp.pool.Size()))
	mp.registry.WorkerPoolActive.WithLabelValues(mp.name).Set(float64(mp.pool.ActiveWorkers()))
	mp.registry.WorkerPoolQueued.WithLabelValues(mp.name).Set(float64(mp.pool.QueueSize()))
}

// Submit adds a task to the pool, waiting for capacity.
func (mp *MetricsPool) Submit(ctx context.Context, task Task) error {
	err := mp.pool.Submit(ctx, mp.wrap(task))
	mp.updateMetrics()
	return err
}

// TrySubmit adds a task to the pool if capacity is free now.
func (mp *MetricsPool) TrySubmit(ctx context.Context, task Task) error {
	err := mp.pool.TrySubmit(ctx, mp.wrap(task))
	if errors.Is(err, gferrors.ErrCapacityExceeded) {
		mp.registry.WorkerPoolRejected.WithLabelValues(mp.name).Inc()
	}
	mp.updateMetrics()
	return err
}

func (mp *MetricsPool) wrap(task Task) Task {
	if task == nil {
		return nil
	}
	return &metricsTask{
		original:   task,
		pool:       mp,
		submitTime: time.Now(),
	}
}

// metricsTask wraps a Task to collect execution metrics.
type metricsTask struct {
	original   Task
	pool       *MetricsPool
	submitTime time.Time
}

// Execute records the queue wait and runs the original task.
func (mt *metricsTask) Execute(ctx context.Context) error {
	mt.pool.registry.WorkerPoolWait.WithLabelValues(mt.pool.name).Observe(time.Since(mt.submitTime).Seconds())
	mt.pool.updateMetrics()

	err := mt.original.Execute(ctx)

	mt.pool.updateMetrics()
	return err
}

// Shutdown initiates graceful shutdown of the pool.
func (mp *MetricsPool) Shutdown() <-chan struct{} {
	return mp.pool.Shutdown()
}

// ShutdownContext shuts the pool down bounded by ctx.
func (mp *MetricsPool) ShutdownContext(ctx context.Context) error {
	return mp.pool.ShutdownContext(ctx)
}

// Size returns the current number of workers.
func (mp *MetricsPool) Size() int {
	return mp.pool.Size()
}

// QueueSize returns the current number of queued tasks.
func (mp *MetricsPool) QueueSize() int {
	return mp.pool.QueueSize()
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (mp *MetricsPool) ActiveWorkers() int {
	return mp.pool.ActiveWorkers()
}

// TotalSubmitted returns the total number of tasks submitted.
func (mp *MetricsPool) TotalSubmitted() int64 {
	return mp.pool.TotalSubmitted()
}

// TotalCompleted returns the total number of tasks completed.
func (mp *MetricsPool) TotalCompleted() int64 {
	return mp.pool.TotalCompleted()
}
