package workerpool

import (
	"context"
	"sync"
	"time"
)

// Task represents a unit of work that can be executed by a worker.
type Task interface {
	// Execute runs the task with the given context.
	// It should respect context cancellation and return any error encountered.
	Execute(ctx context.Context) error
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc func(ctx context.Context) error

// Execute implements the Task interface for TaskFunc.
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Result represents the result of a task execution.
type Result struct {
	// Task is the original task that was executed
	Task Task

	// Error is any error that occurred during task execution
	Error error

	// Duration is how long the task took to execute
	Duration time.Duration

	// WorkerID identifies which worker executed the task
	WorkerID int
}

// Pool represents a worker pool that can execute tasks concurrently.
type Pool interface {
	// Submit queues a task, blocking until a worker or queue slot accepts it,
	// the context is done, or the pool shuts down.
	Submit(ctx context.Context, task Task) error

	// TrySubmit queues a task only if a worker or queue slot is free right
	// now. It returns an error wrapping ErrCapacityExceeded otherwise.
	TrySubmit(ctx context.Context, task Task) error

	// Shutdown stops accepting tasks and lets workers finish queued and
	// running tasks. The returned channel closes when every worker exited.
	Shutdown() <-chan struct{}

	// ShutdownContext is Shutdown bounded by ctx. When ctx ends first the
	// remaining tasks are abandoned and an error wrapping ErrTimeout is
	// returned.
	ShutdownContext(ctx context.Context) error

	// Size returns the number of workers in the pool.
	Size() int

	// QueueSize returns the current number of queued tasks waiting for execution.
	QueueSize() int

	// ActiveWorkers returns the number of workers currently executing tasks.
	ActiveWorkers() int

	// TotalSubmitted returns the total number of tasks accepted by the pool.
	TotalSubmitted() int64

	// TotalCompleted returns the total number of tasks completed by the pool.
	TotalCompleted() int64
}

// Config holds configuration options for creating a worker pool.
type Config struct {
	// WorkerCount is the number of workers in the pool.
	// Must be greater than 0.
	WorkerCount int

	// QueueSize is the number of tasks that may wait for a worker.
	// Zero hands every task directly to an idle worker, so TrySubmit
	// succeeds only while a worker is free.
	QueueSize int

	// TaskTimeout is the default timeout for individual task execution.
	// Zero means no timeout.
	TaskTimeout time.Duration

	// PanicHandler is called when a task panics. The panic is always
	// recovered and reported as the task's error.
	PanicHandler func(task Task, recovered interface{})

	// OnTaskStart is called before a task begins execution.
	OnTaskStart func(workerID int, task Task)

	// OnTaskComplete is called after a task completes (success or failure).
	OnTaskComplete func(workerID int, result Result)
}

type taskWithContext struct {
	task Task
	ctx  context.Context
}

// workerPool implements the Pool interface.
type workerPool struct {
	config Config

	taskQueue    chan taskWithContext
	slots        chan struct{} // one per running or queued task
	shutdownCh   chan struct{}
	done         chan struct{}
	shutdownOnce sync.Once

	mu             sync.RWMutex
	isShutdown     bool
	activeWorkers  int64
	totalSubmitted int64
	totalCompleted int64

	workerWg sync.WaitGroup
}

// worker represents a single worker in the pool.
type worker struct {
	id   int
	pool *workerPool
}

// New creates a new worker pool with the specified number of workers and queue size.
func New(workerCount, queueSize int) Pool {
	return NewWithConfig(Config{
		WorkerCount: workerCount,
		QueueSize:   queueSize,
	})
}

// NewWithConfig creates a new worker pool with the specified configuration.
func NewWithConfig(config Config) Pool {
	if config.WorkerCount <= 0 {
		panic("worker count must be positive")
	}

	if config.QueueSize < 0 {
		panic("queue size must be >= 0")
	}

	pool := &workerPool{
		config:     config,
		taskQueue:  make(chan taskWithContext, config.QueueSize),
		slots:      make(chan struct{}, config.WorkerCount+config.QueueSize),
		shutdownCh: make(chan struct{}),
		done:       make(chan struct{}),
	}

	for i := 0; i < config.WorkerCount; i++ {
		w := &worker{id: i, pool: pool}
		pool.workerWg.Add(1)
		go w.run()
	}

	return pool
}
