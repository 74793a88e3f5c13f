package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/cronflow/internal/testutil"
	gferrors "github.com/vnykmshr/cronflow/pkg/common/errors"
	"github.com/vnykmshr/cronflow/pkg/metrics"
	"github.com/vnykmshr/cronflow/pkg/scheduling/history"
)

func newManager(t *testing.T, poolSize int, opts ...Option) *Manager {
	t.Helper()
	m, err := New(Config{ThreadPoolSize: poolSize, Location: time.UTC}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Stop(5 * time.Second) })
	return m
}

func fixedClock(s string) func() time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return ts }
}

func noop(context.Context) error { return nil }

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{ThreadPoolSize: 0})
	assert.ErrorIs(t, err, gferrors.ErrInvalidConfiguration)

	_, err = New(Config{ThreadPoolSize: 1, GracefulStopTimeout: -time.Second})
	assert.ErrorIs(t, err, gferrors.ErrInvalidConfiguration)

	assert.Panics(t, func() { MustNew(Config{}) })
}

func TestRegister_Errors(t *testing.T) {
	m := newManager(t, 1)

	assert.ErrorIs(t, m.Register(FixedRate(time.Second), nil), ErrNilCallback)
	assert.ErrorIs(t, m.Register(TriggerSpec{FixedRate: 1, FixedDelay: 1}, noop), gferrors.ErrFixedDelayAndRateAreExclusive)
	assert.ErrorIs(t, m.Register(Cron("61 * * * * *"), noop), gferrors.ErrInvalidCronExpression)

	require.NoError(t, m.Register(FixedRate(time.Hour), noop, WithName("dup")))
	assert.ErrorIs(t, m.Register(FixedRate(time.Hour), noop, WithName("dup")), gferrors.ErrInvalidConfiguration)

	require.NoError(t, m.Start())
	assert.ErrorIs(t, m.Register(FixedRate(time.Hour), noop), ErrSchedulerRunning)
}

func TestRegisterAll_AllOrNothing(t *testing.T) {
	m := newManager(t, 1)

	err := m.RegisterAll([]Registration{
		{Trigger: FixedRate(time.Hour), Callback: noop},
		{Trigger: FixedDelay(-time.Second), Callback: noop},
	})
	assert.ErrorIs(t, err, gferrors.ErrInvalidFixedDelay)
	assert.Empty(t, m.Tasks())

	require.NoError(t, m.RegisterAll([]Registration{
		{Trigger: FixedRate(time.Hour), Callback: noop},
		{Trigger: Cron("0 0 0 * * *"), Callback: noop},
	}))
	tasks := m.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "task-1", tasks[0].Name)
	assert.Equal(t, "task-2", tasks[1].Name)
}

func TestStartStop_Lifecycle(t *testing.T) {
	m := newManager(t, 2)
	require.NoError(t, m.Register(FixedRate(time.Hour).WithInitialDelay(time.Hour), noop))

	assert.False(t, m.IsRunning())
	assert.NoError(t, m.Stop(time.Second), "stop before start is a no-op")
	assert.Equal(t, TaskIdle, m.Tasks()[0].State)

	require.NoError(t, m.Start())
	require.NoError(t, m.Start(), "second start is a no-op")
	assert.True(t, m.IsRunning())
	assert.Equal(t, TaskArmed, m.Tasks()[0].State)
	assert.False(t, m.Tasks()[0].NextFireAt.IsZero())

	require.NoError(t, m.Stop(time.Second))
	require.NoError(t, m.Stop(time.Second))
	assert.False(t, m.IsRunning())
	assert.Equal(t, TaskIdle, m.Tasks()[0].State)
	assert.True(t, m.Tasks()[0].NextFireAt.IsZero())
}

func TestStart_ArmsCronFromNow(t *testing.T) {
	m := newManager(t, 1, WithClock(fixedClock("2022-06-24T22:00:00Z")))
	require.NoError(t, m.Register(Cron("0 30 2,14 * * 1-5"), noop, WithName("weekday")))
	require.NoError(t, m.Register(Cron("0 30 2,14 * * 1-5").WithInitialDelay(72*time.Hour), noop, WithName("delayed")))
	require.NoError(t, m.Register(FixedRate(time.Minute).WithInitialDelay(5*time.Second), noop, WithName("rate")))

	require.NoError(t, m.Start())
	tasks := m.Tasks()

	assert.Equal(t, "2022-06-27T02:30:00Z", tasks[0].NextFireAt.Format(time.RFC3339))
	assert.Equal(t, "2022-06-28T02:30:00Z", tasks[1].NextFireAt.Format(time.RFC3339))
	assert.Equal(t, "2022-06-24T22:00:05Z", tasks[2].NextFireAt.Format(time.RFC3339))
}

func TestStart_CronUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}

	m, err := New(Config{ThreadPoolSize: 1, Location: loc}, WithClock(fixedClock("2022-06-20T12:00:00Z")))
	require.NoError(t, err)
	defer m.Stop(time.Second)

	require.NoError(t, m.Register(Cron("0 0 9 * * *"), noop))
	require.NoError(t, m.Start())

	next := m.Tasks()[0].NextFireAt
	assert.Equal(t, "2022-06-20T09:00:00-04:00", next.Format(time.RFC3339))
}

// A fixed-rate firing does not wait for the previous execution, while a
// fixed-delay firing does.
func TestConcurrency_FixedRateVersusFixedDelay(t *testing.T) {
	if testing.Short() {
		t.Skip("observes a 2.1s window")
	}

	h := testutil.NewHarness()
	run := func(spec TriggerSpec, name string) {
		m := newManager(t, 2)
		require.NoError(t, m.Register(spec, h.Callback(name, testutil.Sleeping(10*time.Second)), WithName(name)))
		require.NoError(t, m.Start())
		t.Cleanup(func() { _ = m.Stop(time.Second) })
	}

	run(FixedRate(time.Second), "rate")
	run(FixedDelay(time.Second), "delay")

	time.Sleep(2100 * time.Millisecond)

	assert.GreaterOrEqual(t, h.Started("rate"), 2)
	assert.Equal(t, 1, h.Started("delay"))
}

func TestFixedRate_Repeats(t *testing.T) {
	h := testutil.NewHarness()
	m := newManager(t, 2)
	require.NoError(t, m.Register(FixedRate(20*time.Millisecond), h.Callback("tick", nil), WithName("tick")))
	require.NoError(t, m.Start())

	testutil.Eventually(t, func() bool { return h.Completed("tick") >= 5 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, m.Stop(time.Second))

	info := m.Tasks()[0]
	assert.GreaterOrEqual(t, info.Stats.Runs, int64(5))
	assert.Zero(t, info.Stats.Failures)
}

func TestFixedDelay_WaitsForCompletion(t *testing.T) {
	h := testutil.NewHarness()
	m := newManager(t, 4)
	require.NoError(t, m.Register(FixedDelay(60*time.Millisecond),
		h.Callback("delay", func(context.Context) error {
			time.Sleep(40 * time.Millisecond)
			return nil
		}), WithName("delay")))
	require.NoError(t, m.Start())

	testutil.Eventually(t, func() bool { return h.Started("delay") >= 3 }, 3*time.Second, 5*time.Millisecond)
	require.NoError(t, m.Stop(time.Second))

	starts := h.StartTimes("delay")
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		assert.GreaterOrEqual(t, gap, 100*time.Millisecond, "execution %d started %v after the previous one", i, gap)
	}
}

func TestInitialDelay(t *testing.T) {
	h := testutil.NewHarness()
	m := newManager(t, 1)
	require.NoError(t, m.Register(FixedRate(time.Hour).WithInitialDelay(150*time.Millisecond), h.Callback("late", nil)))

	require.NoError(t, m.Start())
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, h.Started("late"))

	testutil.Eventually(t, func() bool { return h.Completed("late") == 1 }, time.Second, 5*time.Millisecond)
}

func TestFailures_DoNotDeregister(t *testing.T) {
	h := testutil.NewHarness()
	rec := history.NewMemoryRecorder(64)
	boom := errors.New("boom")

	m := newManager(t, 2, WithRecorder(rec))
	require.NoError(t, m.Register(FixedRate(15*time.Millisecond),
		h.Callback("fail", func(context.Context) error { return boom }), WithName("fail")))
	require.NoError(t, m.Register(FixedDelay(15*time.Millisecond),
		h.Callback("panic", func(context.Context) error { panic("kaboom") }), WithName("panic")))
	require.NoError(t, m.Start())

	testutil.Eventually(t, func() bool {
		return h.Completed("fail") >= 3 && h.Completed("panic") >= 3
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, m.Stop(time.Second))

	for _, info := range m.Tasks() {
		assert.Equal(t, info.Stats.Runs, info.Stats.Failures, info.Name)
		assert.Error(t, info.Stats.LastError, info.Name)
	}
	assert.ErrorIs(t, m.Tasks()[0].Stats.LastError, boom)

	var failed []history.Record
	for _, r := range rec.ForTask("panic") {
		if r.Outcome == history.OutcomeFailed {
			failed = append(failed, r)
		}
	}
	require.NotEmpty(t, failed)
	assert.Contains(t, failed[0].Error, "kaboom")
	assert.Equal(t, "fixed_delay", failed[0].Trigger)
}

func TestSkip_WhenPoolBusy(t *testing.T) {
	rec := history.NewMemoryRecorder(256)
	release := make(chan struct{})
	blocking := func(ctx context.Context) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}

	m := newManager(t, 1, WithRecorder(rec))
	require.NoError(t, m.Register(FixedRate(10*time.Millisecond), blocking, WithName("hog")))
	require.NoError(t, m.Start())

	testutil.Eventually(t, func() bool { return m.Tasks()[0].Stats.Skips >= 3 }, 2*time.Second, 5*time.Millisecond)
	close(release)
	require.NoError(t, m.Stop(time.Second))

	var skipped int
	for _, r := range rec.ForTask("hog") {
		if r.Outcome == history.OutcomeSkipped {
			skipped++
		}
	}
	assert.GreaterOrEqual(t, skipped, 3)
}

func TestStop_DrainsContextAwareCallback(t *testing.T) {
	var canceled atomic.Bool
	h := testutil.NewHarness()
	m := newManager(t, 1)
	require.NoError(t, m.Register(FixedRate(time.Hour), h.Callback("drain", func(ctx context.Context) error {
		select {
		case <-time.After(200 * time.Millisecond):
			return nil
		case <-ctx.Done():
			canceled.Store(true)
			return ctx.Err()
		}
	})))
	require.NoError(t, m.Start())
	testutil.Eventually(t, func() bool { return h.InFlight("drain") == 1 }, time.Second, time.Millisecond)

	start := time.Now()
	require.NoError(t, m.Stop(5*time.Second))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.False(t, canceled.Load(), "context canceled during the grace period")
	assert.Equal(t, 1, h.Completed("drain"))
}

func TestStop_CancelsAbandonedCallbackContext(t *testing.T) {
	h := testutil.NewHarness()
	m := newManager(t, 1)
	require.NoError(t, m.Register(FixedRate(time.Hour), h.Callback("long", testutil.Sleeping(time.Hour))))
	require.NoError(t, m.Start())

	testutil.Eventually(t, func() bool { return h.InFlight("long") == 1 }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, m.Stop(50*time.Millisecond), ErrStopTimeout)
	testutil.Eventually(t, func() bool { return h.Completed("long") == 1 }, time.Second, 5*time.Millisecond)
}

func TestStop_WaitsForInFlight(t *testing.T) {
	h := testutil.NewHarness()
	m := newManager(t, 1)
	require.NoError(t, m.Register(FixedRate(time.Hour), h.Callback("work", func(context.Context) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	})))
	require.NoError(t, m.Start())

	testutil.Eventually(t, func() bool { return h.InFlight("work") == 1 }, time.Second, time.Millisecond)
	require.NoError(t, m.Stop(time.Second))
	assert.Equal(t, 1, h.Completed("work"))
}

func TestStop_GraceElapsed(t *testing.T) {
	h := testutil.NewHarness()
	release := make(chan struct{})
	m := newManager(t, 1)
	require.NoError(t, m.Register(FixedRate(time.Hour), h.Callback("stuck", func(context.Context) error {
		<-release
		return nil
	})))
	require.NoError(t, m.Start())
	testutil.Eventually(t, func() bool { return h.InFlight("stuck") == 1 }, time.Second, time.Millisecond)

	err := m.Stop(50 * time.Millisecond)
	assert.ErrorIs(t, err, ErrStopTimeout)
	assert.ErrorIs(t, err, gferrors.ErrTimeout)
	assert.Contains(t, err.Error(), "1 executions abandoned")
	assert.False(t, m.IsRunning())

	close(release)
	testutil.Eventually(t, func() bool { return h.Completed("stuck") == 1 }, time.Second, time.Millisecond)
}

func TestStop_UsesConfiguredGrace(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	m, err := New(Config{ThreadPoolSize: 1, GracefulStopTimeout: 30 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, m.Register(FixedRate(time.Hour), func(context.Context) error {
		<-release
		return nil
	}))
	require.NoError(t, m.Start())
	testutil.Eventually(t, func() bool { return m.Tasks()[0].Running == 1 }, time.Second, time.Millisecond)

	start := time.Now()
	assert.ErrorIs(t, m.Stop(0), ErrStopTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestShutdown_Context(t *testing.T) {
	m := newManager(t, 1)
	require.NoError(t, m.Register(FixedRate(time.Hour), noop))
	require.NoError(t, m.Start())

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()
	assert.NoError(t, m.Shutdown(ctx))
	assert.False(t, m.IsRunning())
}

func TestRestart(t *testing.T) {
	h := testutil.NewHarness()
	m := newManager(t, 1)
	require.NoError(t, m.Register(FixedRate(time.Hour), h.Callback("once", nil)))

	require.NoError(t, m.Start())
	testutil.Eventually(t, func() bool { return h.Completed("once") == 1 }, time.Second, time.Millisecond)
	require.NoError(t, m.Stop(time.Second))

	require.NoError(t, m.Register(FixedRate(time.Hour), h.Callback("added", nil)))
	require.NoError(t, m.Start())
	testutil.Eventually(t, func() bool {
		return h.Completed("once") == 2 && h.Completed("added") == 1
	}, time.Second, time.Millisecond)
}

func TestRestart_FixedDelayDoesNotOverlapAbandonedRun(t *testing.T) {
	var inFlight, maxInFlight int32
	release := make(chan struct{})
	var blocked atomic.Bool
	h := testutil.NewHarness()

	m := newManager(t, 2)
	require.NoError(t, m.Register(FixedDelay(10*time.Millisecond), h.Callback("delay", func(context.Context) error {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			cur := atomic.LoadInt32(&maxInFlight)
			if n <= cur || atomic.CompareAndSwapInt32(&maxInFlight, cur, n) {
				break
			}
		}
		if blocked.CompareAndSwap(false, true) {
			<-release
		}
		return nil
	})))

	require.NoError(t, m.Start())
	testutil.Eventually(t, func() bool { return h.InFlight("delay") == 1 }, time.Second, time.Millisecond)
	assert.ErrorIs(t, m.Stop(30*time.Millisecond), ErrStopTimeout)

	require.NoError(t, m.Start())
	time.Sleep(100 * time.Millisecond)

	info := m.Tasks()[0]
	assert.Equal(t, 1, info.Running)
	assert.Equal(t, TaskExecuting, info.State)
	assert.Equal(t, 1, h.Started("delay"))

	close(release)
	testutil.Eventually(t, func() bool { return h.Completed("delay") >= 3 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
}

func TestMetrics(t *testing.T) {
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	h := testutil.NewHarness()
	m := newManager(t, 1, WithMetrics(reg, "unit"))
	require.NoError(t, m.Register(FixedRate(10*time.Millisecond), h.Callback("m", nil), WithName("m")))
	require.NoError(t, m.Start())

	testutil.Eventually(t, func() bool { return h.Completed("m") >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, m.Stop(time.Second))

	assert.Equal(t, float64(1), promtest.ToFloat64(reg.TasksRegistered.WithLabelValues("unit", "fixed_rate")))
	assert.GreaterOrEqual(t, promtest.ToFloat64(reg.TaskFirings.WithLabelValues("unit", "m")), float64(3))
	assert.GreaterOrEqual(t, promtest.ToFloat64(reg.TasksCompleted.WithLabelValues("unit", "m")), float64(3))
	assert.Equal(t, float64(1), promtest.ToFloat64(reg.WorkerPoolSize.WithLabelValues("unit")))
}
