// Package metrics provides Prometheus instrumentation for cronflow components.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "cronflow"

// Registry holds all metric instances for cronflow components.
type Registry struct {
	// Task Scheduling Metrics
	TasksRegistered       *prometheus.GaugeVec
	TaskFirings           *prometheus.CounterVec
	TaskSkips             *prometheus.CounterVec
	TasksCompleted        *prometheus.CounterVec
	TasksFailed           *prometheus.CounterVec
	TaskExecutionDuration *prometheus.HistogramVec
	TaskNextFire          *prometheus.GaugeVec
	TasksAbandoned        *prometheus.CounterVec

	// Worker Pool Metrics
	WorkerPoolSize     *prometheus.GaugeVec
	WorkerPoolActive   *prometheus.GaugeVec
	WorkerPoolQueued   *prometheus.GaugeVec
	WorkerPoolRejected *prometheus.CounterVec
	WorkerPoolWait     *prometheus.HistogramVec
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry bound to prometheus.DefaultRegisterer,
// creating it on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return NewRegistryWithConfig(Config{Registry: reg})
}

// NewRegistryWithConfig creates a registry honoring the namespace and
// constant labels of cfg.
func NewRegistryWithConfig(cfg Config) *Registry {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	factory := promauto.With(reg)
	taskLabels := []string{"scheduler_name", "task"}

	return &Registry{
		TasksRegistered: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "tasks_registered",
				Help:        "Number of tasks registered with the scheduler",
				ConstLabels: cfg.Labels,
			},
			[]string{"scheduler_name", "trigger"},
		),

		TaskFirings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "firings_total",
				Help:        "Total number of task firings submitted to the worker pool",
				ConstLabels: cfg.Labels,
			},
			taskLabels,
		),

		TaskSkips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "firings_skipped_total",
				Help:        "Total number of firings skipped because no worker was free",
				ConstLabels: cfg.Labels,
			},
			taskLabels,
		),

		TasksCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "tasks_completed_total",
				Help:        "Total number of task executions that completed successfully",
				ConstLabels: cfg.Labels,
			},
			taskLabels,
		),

		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "tasks_failed_total",
				Help:        "Total number of task executions that failed",
				ConstLabels: cfg.Labels,
			},
			taskLabels,
		),

		TaskExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "task_duration_seconds",
				Help:        "Time spent executing tasks",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: cfg.Labels,
			},
			taskLabels,
		),

		TaskNextFire: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "task_next_fire_timestamp_seconds",
				Help:        "Unix time of the next armed firing of a task",
				ConstLabels: cfg.Labels,
			},
			taskLabels,
		),

		TasksAbandoned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "executions_abandoned_total",
				Help:        "Executions still running when a graceful stop timed out",
				ConstLabels: cfg.Labels,
			},
			[]string{"scheduler_name"},
		),

		WorkerPoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "workerpool",
				Name:        "size",
				Help:        "Current worker pool size",
				ConstLabels: cfg.Labels,
			},
			[]string{"pool_name"},
		),

		WorkerPoolActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "workerpool",
				Name:        "active_workers",
				Help:        "Number of active workers",
				ConstLabels: cfg.Labels,
			},
			[]string{"pool_name"},
		),

		WorkerPoolQueued: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "workerpool",
				Name:        "queued_tasks",
				Help:        "Number of queued tasks",
				ConstLabels: cfg.Labels,
			},
			[]string{"pool_name"},
		),

		WorkerPoolRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "workerpool",
				Name:        "rejected_total",
				Help:        "Total number of submissions rejected for lack of capacity",
				ConstLabels: cfg.Labels,
			},
			[]string{"pool_name"},
		),

		WorkerPoolWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "workerpool",
				Name:        "queue_wait_seconds",
				Help:        "Time tasks spent queued before a worker picked them up",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: cfg.Labels,
			},
			[]string{"pool_name"},
		),
	}
}
