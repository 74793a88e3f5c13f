package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	gferrors "github.com/vnykmshr/cronflow/pkg/common/errors"
	"github.com/vnykmshr/cronflow/pkg/common/validation"
	"github.com/vnykmshr/cronflow/pkg/metrics"
	"github.com/vnykmshr/cronflow/pkg/scheduling/history"
	"github.com/vnykmshr/cronflow/pkg/scheduling/workerpool"
)

// Config holds manager configuration.
type Config struct {
	// ThreadPoolSize is the number of executions that may run at once.
	// Must be greater than 0.
	ThreadPoolSize int

	// GracefulStopTimeout bounds Stop when it is called without a grace
	// period. Zero waits for in-flight executions indefinitely.
	GracefulStopTimeout time.Duration

	// Location is the time zone cron expressions are evaluated in.
	// Defaults to time.Local.
	Location *time.Location
}

// DefaultConfig returns the configuration used by cmd/cronflow when the
// config file leaves the scheduler section empty.
func DefaultConfig() Config {
	return Config{
		ThreadPoolSize:      4,
		GracefulStopTimeout: 30 * time.Second,
		Location:            time.Local,
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics reports scheduler and worker pool metrics to registry,
// labelled with name. A nil registry uses metrics.Default().
func WithMetrics(registry *metrics.Registry, name string) Option {
	return func(m *Manager) {
		if registry == nil {
			registry = metrics.Default()
		}
		m.metrics = registry
		if name != "" {
			m.name = name
		}
	}
}

// WithRecorder writes a history record for every firing.
func WithRecorder(recorder history.Recorder) Option {
	return func(m *Manager) {
		if recorder != nil {
			m.recorder = recorder
		}
	}
}

// WithClock replaces the source of the current time used for arming and
// for deciding which tasks are due. Timer waits are measured against it, so
// a clock that does not advance stalls dispatch after the first due check;
// use a frozen clock only to inspect arming before or without firing.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager owns a set of scheduled tasks, the worker pool that runs them and
// their start/stop lifecycle.
type Manager struct {
	cfg      Config
	name     string
	logger   *zap.Logger
	metrics  *metrics.Registry
	recorder history.Recorder
	now      func() time.Time

	mu      sync.Mutex
	tasks   []*scheduledTask
	names   map[string]struct{}
	running bool
	run     *run
}

// run holds the state of one Start/Stop cycle.
type run struct {
	ctx    context.Context
	cancel context.CancelFunc
	pool   workerpool.Pool
	tasks  []*scheduledTask
	wake   chan struct{}
	stop   chan struct{}
	done   chan struct{}
	active int64 // executions in flight
}

// New creates a manager. It fails with an error wrapping
// ErrInvalidConfiguration when cfg is invalid.
func New(cfg Config, opts ...Option) (*Manager, error) {
	if err := validation.ValidatePositive("scheduler", "thread_pool_size", cfg.ThreadPoolSize); err != nil {
		return nil, err
	}
	if err := validation.ValidateNonNegativeDuration("scheduler", "graceful_stop_timeout",
		cfg.GracefulStopTimeout, nil); err != nil {
		return nil, err
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	m := &Manager{
		cfg:      cfg,
		name:     "default",
		logger:   zap.NewNop(),
		recorder: history.Nop{},
		now:      time.Now,
		names:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// MustNew is like New but panics on error.
func MustNew(cfg Config, opts ...Option) *Manager {
	m, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Register adds a task. It must be called while the manager is stopped.
func (m *Manager) Register(spec TriggerSpec, cb Callback, opts ...TaskOption) error {
	var o taskOptions
	for _, opt := range opts {
		opt(&o)
	}
	return m.RegisterAll([]Registration{{Name: o.name, Trigger: spec, Callback: cb}})
}

// RegisterAll adds several tasks. Either every registration is accepted or
// none is.
func (m *Manager) RegisterAll(regs []Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrSchedulerRunning
	}

	batch := make([]*scheduledTask, 0, len(regs))
	seen := make(map[string]struct{}, len(regs))
	for i, reg := range regs {
		name := reg.Name
		if name == "" {
			name = fmt.Sprintf("task-%d", len(m.tasks)+i+1)
		}
		if _, dup := m.names[name]; dup {
			return gferrors.NewValidationError("scheduler", "name", name, "already registered")
		}
		if _, dup := seen[name]; dup {
			return gferrors.NewValidationError("scheduler", "name", name, "already registered")
		}
		seen[name] = struct{}{}

		t, err := newTask(name, reg.Trigger, reg.Callback)
		if err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
		batch = append(batch, t)
	}

	for _, t := range batch {
		m.tasks = append(m.tasks, t)
		m.names[t.name] = struct{}{}
		if m.metrics != nil {
			m.metrics.TasksRegistered.WithLabelValues(m.name, t.kind.String()).Inc()
		}
		m.logger.Debug("task registered",
			zap.String("task", t.name),
			zap.Stringer("trigger", t.trigger))
	}
	return nil
}

func newTask(name string, spec TriggerSpec, cb Callback) (*scheduledTask, error) {
	if cb == nil {
		return nil, ErrNilCallback
	}
	expr, err := spec.compile()
	if err != nil {
		return nil, err
	}
	return &scheduledTask{
		name:     name,
		trigger:  spec,
		kind:     spec.Kind(),
		period:   spec.Period(),
		delay:    spec.Delay(),
		expr:     expr,
		callback: cb,
	}, nil
}

// Start arms every registered task and begins dispatching. Calling Start on
// a running manager does nothing.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	now := m.now().In(m.cfg.Location)
	tasks := append([]*scheduledTask(nil), m.tasks...)
	for _, t := range tasks {
		if err := m.arm(t, now); err != nil {
			for _, armed := range tasks {
				armed.disarm()
			}
			return fmt.Errorf("start: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{
		ctx:    ctx,
		cancel: cancel,
		pool:   m.newPool(),
		tasks:  tasks,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	m.run = r
	m.running = true

	go m.loop(r)

	m.logger.Info("scheduler started",
		zap.String("scheduler", m.name),
		zap.Int("tasks", len(tasks)),
		zap.Int("pool_size", m.cfg.ThreadPoolSize))
	return nil
}

// newPool creates the worker pool for one run. The pool has no queue, so a
// firing is accepted only when a worker is idle.
func (m *Manager) newPool() workerpool.Pool {
	cfg := workerpool.Config{
		WorkerCount: m.cfg.ThreadPoolSize,
		QueueSize:   0,
	}
	if m.metrics != nil {
		return workerpool.NewWithMetrics(cfg, m.name, m.metrics)
	}
	return workerpool.NewWithConfig(cfg)
}

// Stop stops dispatching and waits up to grace for in-flight executions.
// A grace of zero or less uses Config.GracefulStopTimeout. When executions
// are still running at the deadline their context is canceled, they are
// abandoned and an error wrapping ErrStopTimeout is returned. Calling Stop on a stopped manager
// does nothing.
func (m *Manager) Stop(grace time.Duration) error {
	if grace <= 0 {
		grace = m.cfg.GracefulStopTimeout
	}
	ctx := context.Background()
	if grace > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, grace)
		defer cancel()
	}
	return m.Shutdown(ctx)
}

// Shutdown is Stop bounded by ctx instead of a grace period.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	r := m.run
	m.run = nil
	m.mu.Unlock()

	close(r.stop)
	<-r.done

	for _, t := range r.tasks {
		t.disarm()
	}

	// Callbacks keep a live context while they drain; only those still
	// running at the deadline see it canceled.
	err := r.pool.ShutdownContext(ctx)
	r.cancel()
	if err != nil {
		abandoned := atomic.LoadInt64(&r.active)
		if m.metrics != nil {
			m.metrics.TasksAbandoned.WithLabelValues(m.name).Add(float64(abandoned))
		}
		m.logger.Warn("abandoning running executions",
			zap.String("scheduler", m.name),
			zap.Int64("abandoned", abandoned))
		return fmt.Errorf("%w: %d executions abandoned", ErrStopTimeout, abandoned)
	}

	m.logger.Info("scheduler stopped", zap.String("scheduler", m.name))
	return nil
}

// IsRunning reports whether the manager is dispatching.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Tasks returns a snapshot of every registered task in registration order.
func (m *Manager) Tasks() []TaskInfo {
	m.mu.Lock()
	tasks := append([]*scheduledTask(nil), m.tasks...)
	m.mu.Unlock()

	out := make([]TaskInfo, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.info())
	}
	return out
}
