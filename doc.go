/*
Package cronflow runs callbacks on cron expressions and fixed periods on a
bounded pool of workers.

Scheduling (pkg/scheduling):
  - cronexpr: six-field cron expressions and next-fire-time computation
  - scheduler: task registry, trigger dispatch, start and graceful stop
  - workerpool: bounded execution of fired callbacks
  - history: execution records kept in memory or in a Redis stream

Support packages:
  - config: YAML/env configuration via viper
  - logger: zap logger construction
  - metrics: Prometheus collectors for pools and schedulers

Example usage:

	import "github.com/vnykmshr/cronflow/pkg/scheduling/scheduler"

	m := scheduler.MustNew(scheduler.DefaultConfig())
	m.Register(scheduler.Cron("0 30 2 * * 1-5"), report, scheduler.WithName("report"))
	m.Register(scheduler.FixedRate(time.Minute), heartbeat)

	m.Start()
	defer m.Stop(30 * time.Second)

The cronflow command (cmd/cronflow) runs tasks declared in a config file.
*/
package cronflow
