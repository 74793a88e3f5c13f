/*
Package workerpool runs tasks on a fixed set of worker goroutines.

The scheduler uses a pool to bound how many task executions run at once.
Every submission carries a context that is handed to the task, so
cancellation of the submitter reaches the running callback.

Basic usage:

	pool := workerpool.New(4, 100) // 4 workers, queue size 100

	task := workerpool.TaskFunc(func(ctx context.Context) error {
		return nil
	})

	if err := pool.Submit(ctx, task); err != nil {
		log.Printf("submit failed: %v", err)
	}

	<-pool.Shutdown()

Submission:

Submit waits for a worker or a queue slot, the context, or shutdown.
TrySubmit never waits. When no worker or slot is free it returns an
*errors.OperationError wrapping errors.ErrCapacityExceeded:

	if err := pool.TrySubmit(ctx, task); errors.Is(err, gferrors.ErrCapacityExceeded) {
		// skip this run
	}

Queue sizes:

	// Bounded queue
	pool := workerpool.New(4, 100)

	// Direct hand-off: a task is accepted only by an idle worker
	pool := workerpool.New(4, 0)

Results:

Task outcomes are reported through Config.OnTaskComplete. A panic inside a
task is recovered and reported as the task's error, and PanicHandler, when
set, sees the recovered value first:

	pool := workerpool.NewWithConfig(workerpool.Config{
		WorkerCount: 8,
		QueueSize:   0,
		TaskTimeout: 30 * time.Second,
		OnTaskComplete: func(workerID int, r workerpool.Result) {
			log.Printf("worker %d finished in %v: %v", workerID, r.Duration, r.Error)
		},
	})

Recover wraps a single task the same way for callers that run it on their
own goroutine.

Shutdown:

Shutdown stops accepting tasks and lets workers drain what was already
accepted. The returned channel closes once every worker has exited.
ShutdownContext bounds the wait and returns an error wrapping
errors.ErrTimeout when tasks are still running at the deadline.

Metrics:

NewWithMetrics wraps a pool and reports size, active workers, queue depth,
rejections and queue wait to a metrics.Registry, labelled with the pool
name.

All pool operations are safe for concurrent use.
*/
package workerpool
