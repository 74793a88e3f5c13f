/*
Package scheduling groups the time-based execution primitives.

  - cronexpr: parses "second minute hour day-of-month month day-of-week"
    expressions and computes the next matching instant
  - scheduler: runs registered callbacks on cron, fixed-rate or fixed-delay
    triggers
  - workerpool: fixed set of workers that execute submitted tasks
  - history: records of every firing, its outcome and duration

A scheduler owns one worker pool per run:

	m, err := scheduler.New(scheduler.Config{ThreadPoolSize: 4})
	if err != nil {
		return err
	}
	m.Register(scheduler.FixedDelay(5*time.Second), poll)
	if err := m.Start(); err != nil {
		return err
	}
	defer m.Stop(10 * time.Second)

Firings that find every worker busy are skipped, never queued. All
components are safe for concurrent use and pass a context that is canceled
when the scheduler stops.
*/
package scheduling
