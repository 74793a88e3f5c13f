package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	gferrors "github.com/vnykmshr/cronflow/pkg/common/errors"
)

// Submit adds a task to the pool, waiting for a free worker or queue slot.
// The context is passed to the task's Execute method, enabling timeout and
// cancellation propagation. If the pool has a TaskTimeout configured, the
// effective timeout will be the minimum of the context deadline and TaskTimeout.
func (p *workerPool) Submit(ctx context.Context, task Task) error {
	twc, err := p.prepare(ctx, task)
	if err != nil {
		return err
	}
	return p.enqueue(twc, true)
}

// TrySubmit adds a task only if it can be accepted without waiting.
func (p *workerPool) TrySubmit(ctx context.Context, task Task) error {
	twc, err := p.prepare(ctx, task)
	if err != nil {
		return err
	}
	return p.enqueue(twc, false)
}

// enqueue reserves a slot and hands the task to the queue. A reserved slot
// guarantees a worker or buffer position, so the send completes promptly
// even while workers are still starting.
func (p *workerPool) enqueue(twc taskWithContext, wait bool) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.isShutdown {
		return fmt.Errorf("cannot submit task: %w", gferrors.ErrClosed)
	}

	if wait {
		select {
		case p.slots <- struct{}{}:
		case <-p.shutdownCh:
			return fmt.Errorf("cannot submit task: %w", gferrors.ErrClosed)
		case <-twc.ctx.Done():
			return fmt.Errorf("cannot submit task: context canceled: %w", twc.ctx.Err())
		}
	} else {
		select {
		case p.slots <- struct{}{}:
		default:
			return gferrors.NewOperationError("workerpool", "TrySubmit", gferrors.ErrCapacityExceeded).
				WithContext(fmt.Sprintf("%d workers busy", p.config.WorkerCount))
		}
	}

	select {
	case p.taskQueue <- twc:
		atomic.AddInt64(&p.totalSubmitted, 1)
		return nil
	case <-p.shutdownCh:
		<-p.slots
		return fmt.Errorf("cannot submit task: %w", gferrors.ErrClosed)
	case <-twc.ctx.Done():
		<-p.slots
		return fmt.Errorf("cannot submit task: context canceled: %w", twc.ctx.Err())
	}
}

func (p *workerPool) prepare(ctx context.Context, task Task) (taskWithContext, error) {
	if task == nil {
		return taskWithContext{}, fmt.Errorf("task cannot be nil")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	// Check if context is already canceled before attempting to queue
	// This ensures deterministic behavior for pre-canceled contexts
	select {
	case <-ctx.Done():
		return taskWithContext{}, fmt.Errorf("cannot submit task: context canceled: %w", ctx.Err())
	default:
	}

	return taskWithContext{task: task, ctx: ctx}, nil
}

// Shutdown initiates a graceful shutdown of the pool.
func (p *workerPool) Shutdown() <-chan struct{} {
	p.shutdownOnce.Do(func() {
		// Release blocked submitters before taking the write lock.
		close(p.shutdownCh)

		p.mu.Lock()
		p.isShutdown = true
		close(p.taskQueue)
		p.mu.Unlock()

		go func() {
			p.workerWg.Wait()
			close(p.done)
		}()
	})

	return p.done
}

// ShutdownContext shuts the pool down and waits until ctx is done.
func (p *workerPool) ShutdownContext(ctx context.Context) error {
	select {
	case <-p.Shutdown():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker pool shutdown: %d tasks still running: %w",
			p.ActiveWorkers()+p.QueueSize(), gferrors.ErrTimeout)
	}
}

// Size returns the number of workers in the pool.
func (p *workerPool) Size() int {
	return p.config.WorkerCount
}

// QueueSize returns the current number of queued tasks waiting for execution.
func (p *workerPool) QueueSize() int {
	return len(p.taskQueue)
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (p *workerPool) ActiveWorkers() int {
	return int(atomic.LoadInt64(&p.activeWorkers))
}

// TotalSubmitted returns the total number of tasks accepted by the pool.
func (p *workerPool) TotalSubmitted() int64 {
	return atomic.LoadInt64(&p.totalSubmitted)
}

// TotalCompleted returns the total number of tasks completed by the pool.
func (p *workerPool) TotalCompleted() int64 {
	return atomic.LoadInt64(&p.totalCompleted)
}

// run is the main loop for a worker. Workers drain the queue after
// shutdown and exit once it is closed and empty.
func (w *worker) run() {
	defer w.pool.workerWg.Done()

	for twc := range w.pool.taskQueue {
		w.executeTask(twc)
		<-w.pool.slots
	}
}

// executeTask executes a single task with the provided context.
func (w *worker) executeTask(twc taskWithContext) {
	cfg := w.pool.config
	atomic.AddInt64(&w.pool.activeWorkers, 1)
	start := time.Now()

	if cfg.OnTaskStart != nil {
		cfg.OnTaskStart(w.id, twc.task)
	}

	ctx := twc.ctx
	if cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.TaskTimeout)
		defer cancel()
	}

	err := execute(ctx, twc.task, cfg.PanicHandler)

	atomic.AddInt64(&w.pool.activeWorkers, -1)
	atomic.AddInt64(&w.pool.totalCompleted, 1)

	if cfg.OnTaskComplete != nil {
		cfg.OnTaskComplete(w.id, Result{
			Task:     twc.task,
			Error:    err,
			Duration: time.Since(start),
			WorkerID: w.id,
		})
	}
}

// execute runs task, converting a panic into an error.
func execute(ctx context.Context, task Task, onPanic func(Task, interface{})) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if onPanic != nil {
				onPanic(task, r)
			}
			err = fmt.Errorf("task panicked: %v\nStack trace:\n%s", r, debug.Stack())
		}
	}()

	return task.Execute(ctx)
}

// Recover wraps task so that a panic during Execute is returned as an
// error instead of unwinding the caller.
func Recover(task Task) Task {
	return TaskFunc(func(ctx context.Context) error {
		return execute(ctx, task, nil)
	})
}
