/*
Package scheduler runs callbacks on cron, fixed-rate and fixed-delay
triggers using a bounded worker pool.

Basic usage:

	m, err := scheduler.New(scheduler.Config{ThreadPoolSize: 4},
		scheduler.WithLogger(logger))
	if err != nil {
		return err
	}

	// Every weekday at 02:30 and 14:30.
	m.Register(scheduler.Cron("0 30 2,14 * * 1-5"), report, scheduler.WithName("report"))

	// Every 5s from the previous start, first run after 1s.
	m.Register(scheduler.FixedRate(5*time.Second).WithInitialDelay(time.Second), probe)

	// 10s after each run completes.
	m.Register(scheduler.FixedDelay(10*time.Second), sync)

	if err := m.Start(); err != nil {
		return err
	}
	defer m.Stop(30 * time.Second)

Triggers:

A Cron trigger is calendar anchored. Each firing is computed from the
previous scheduled instant, and instants missed while the process was busy
collapse into the next one after now. Day of month and day of week must both
match.

A FixedRate trigger fires every period measured from the previous scheduled
start. A slow execution does not delay the next firing; if the next firing
finds a free worker it runs concurrently. Periods missed entirely are
skipped rather than replayed.

A FixedDelay trigger fires period after the previous execution completed,
so a FixedDelay task never overlaps itself.

Backpressure:

The pool has no queue. A firing that finds every worker busy is skipped,
logged at warn level and counted; a skipped FixedDelay task tries again one
period later.

Failures:

A callback that returns an error or panics is logged, counted in TaskStats,
metrics and history, and stays scheduled.

Lifecycle:

Tasks are registered while the manager is stopped. Start arms every task
from the current time. Stop halts dispatching, cancels the context handed
to callbacks and waits for in-flight executions up to the grace period.
Executions still running after that are abandoned and Stop returns an error
wrapping ErrStopTimeout. A stopped manager can be started again.
*/
package scheduler
