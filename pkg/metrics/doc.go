// Package metrics provides Prometheus instrumentation for cronflow components.
//
// # Quick Start
//
// Pass a registry to the components that should report:
//
//	registry := metrics.NewRegistry(prometheus.NewRegistry())
//
//	pool := workerpool.NewWithMetrics(workerpool.Config{WorkerCount: 4}, "jobs", registry)
//	mgr, _ := scheduler.New(cfg, scheduler.WithMetrics(registry, "jobs"))
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # Available Metrics
//
// ## Scheduler
//
//   - cronflow_scheduler_tasks_registered: Tasks registered, by trigger kind
//   - cronflow_scheduler_firings_total: Firings handed to the worker pool
//   - cronflow_scheduler_firings_skipped_total: Firings dropped for lack of a free worker
//   - cronflow_scheduler_tasks_completed_total: Successful executions
//   - cronflow_scheduler_tasks_failed_total: Failed or panicked executions
//   - cronflow_scheduler_task_duration_seconds: Execution time
//   - cronflow_scheduler_task_next_fire_timestamp_seconds: Next armed firing
//   - cronflow_scheduler_executions_abandoned_total: Executions left behind by a timed out stop
//
// ## Worker Pool
//
//   - cronflow_workerpool_size: Current worker pool size
//   - cronflow_workerpool_active_workers: Number of active workers
//   - cronflow_workerpool_queued_tasks: Number of queued tasks
//   - cronflow_workerpool_rejected_total: Submissions rejected for lack of capacity
//   - cronflow_workerpool_queue_wait_seconds: Time between submission and execution
//
// # Labels
//
//   - scheduler_name: User-provided name for the scheduler instance
//   - task: Task name
//   - trigger: "cron", "fixed_rate" or "fixed_delay"
//   - pool_name: User-provided name for the worker pool instance
//
// # Custom Registry
//
// Use a custom Prometheus registry, namespace or constant labels:
//
//	registry := metrics.NewRegistryWithConfig(metrics.Config{
//		Registry:  prometheus.NewRegistry(),
//		Namespace: "myapp",
//		Labels:    prometheus.Labels{"version": "1.0"},
//	})
package metrics
