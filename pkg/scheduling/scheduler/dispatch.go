package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	gferrors "github.com/vnykmshr/cronflow/pkg/common/errors"
	"github.com/vnykmshr/cronflow/pkg/scheduling/history"
	"github.com/vnykmshr/cronflow/pkg/scheduling/workerpool"
)

// arm computes the first firing of t relative to now. A fixed-delay task
// still executing from an earlier run stays Executing; its completion arms
// it on the current run.
func (m *Manager) arm(t *scheduledTask, now time.Time) error {
	if t.kind == TriggerFixedDelay {
		t.mu.Lock()
		busy := t.running > 0
		if busy {
			t.state = TaskExecuting
			t.nextFireAt = time.Time{}
		}
		t.mu.Unlock()
		if busy {
			return nil
		}
	}

	next := now.Add(t.delay)
	if t.kind == TriggerCron {
		var err error
		if next, err = t.expr.Next(next); err != nil {
			return err
		}
	}

	t.mu.Lock()
	t.state = TaskArmed
	t.nextFireAt = next
	t.mu.Unlock()

	m.observeNextFire(t, next)
	return nil
}

// loop fires due tasks and sleeps until the earliest armed firing or a
// wake-up from a completed fixed-delay execution.
func (m *Manager) loop(r *run) {
	defer close(r.done)

	for {
		next := m.dispatchDue(r, m.now())

		var (
			timer *time.Timer
			fire  <-chan time.Time
		)
		if !next.IsZero() {
			timer = time.NewTimer(next.Sub(m.now()))
			fire = timer.C
		}

		select {
		case <-r.stop:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-r.wake:
		case <-fire:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// dispatchDue fires every task whose firing time has passed and returns the
// earliest remaining firing time, or the zero time when nothing is armed.
func (m *Manager) dispatchDue(r *run, now time.Time) time.Time {
	now = now.In(m.cfg.Location)

	var earliest time.Time
	for _, t := range r.tasks {
		next := m.dispatch(r, t, now)
		if !next.IsZero() && (earliest.IsZero() || next.Before(earliest)) {
			earliest = next
		}
	}
	return earliest
}

// dispatch fires t if it is due and returns its next firing time.
func (m *Manager) dispatch(r *run, t *scheduledTask, now time.Time) time.Time {
	t.mu.Lock()
	if t.state != TaskArmed || t.nextFireAt.IsZero() || t.nextFireAt.After(now) {
		next := t.nextFireAt
		t.mu.Unlock()
		return next
	}

	firedAt := t.nextFireAt
	switch t.kind {
	case TriggerCron:
		next, err := t.expr.Next(firedAt)
		if err == nil && !next.After(now) {
			// Missed instants collapse into the next one after now.
			next, err = t.expr.Next(now)
		}
		if err != nil {
			t.state = TaskIdle
			t.nextFireAt = time.Time{}
			m.logger.Error("cron expression has no further firing",
				zap.String("task", t.name), zap.Error(err))
		} else {
			t.nextFireAt = next
		}
	case TriggerFixedRate:
		next := firedAt.Add(t.period)
		if !next.After(now) {
			missed := now.Sub(firedAt) / t.period
			next = firedAt.Add((missed + 1) * t.period)
		}
		t.nextFireAt = next
	case TriggerFixedDelay:
		t.state = TaskExecuting
		t.nextFireAt = time.Time{}
	}
	t.running++
	t.stats.LastFiredAt = firedAt
	next := t.nextFireAt
	t.mu.Unlock()

	atomic.AddInt64(&r.active, 1)
	if err := r.pool.TrySubmit(r.ctx, m.execution(r, t, firedAt)); err != nil {
		atomic.AddInt64(&r.active, -1)
		next = m.skip(r, t, firedAt, now, err)
	} else if m.metrics != nil {
		m.metrics.TaskFirings.WithLabelValues(m.name, t.name).Inc()
	}

	if !next.IsZero() {
		m.observeNextFire(t, next)
	}
	return next
}

// skip records a firing that found no idle worker. A fixed-delay task is
// re-armed one period after the skip.
func (m *Manager) skip(r *run, t *scheduledTask, firedAt, now time.Time, cause error) time.Time {
	t.mu.Lock()
	t.running--
	t.stats.Skips++
	if t.kind == TriggerFixedDelay {
		t.state = TaskArmed
		t.nextFireAt = now.Add(t.period)
	}
	next := t.nextFireAt
	t.mu.Unlock()

	// A busy pool is routine backpressure; anything else means the run's
	// pool is unusable.
	logf := m.logger.Warn
	if !gferrors.IsRetryable(cause) {
		logf = m.logger.Error
	}
	logf("firing skipped",
		zap.String("task", t.name),
		zap.Time("fired_at", firedAt),
		zap.Error(cause))
	if m.metrics != nil {
		m.metrics.TaskSkips.WithLabelValues(m.name, t.name).Inc()
	}
	m.record(t, history.Record{
		Outcome: history.OutcomeSkipped,
		FiredAt: firedAt,
		Error:   cause.Error(),
	})
	return next
}

// execution wraps one firing of t as a worker pool task. The callback runs
// under panic recovery so completion bookkeeping always happens.
func (m *Manager) execution(r *run, t *scheduledTask, firedAt time.Time) workerpool.Task {
	cb := workerpool.Recover(workerpool.TaskFunc(t.callback))
	return workerpool.TaskFunc(func(ctx context.Context) error {
		start := time.Now()
		err := cb.Execute(ctx)
		m.complete(r, t, firedAt, time.Since(start), err)
		return err
	})
}

// complete finishes one execution started by run r. A fixed-delay task is
// re-armed on whichever run is current, which may be a later run than r.
func (m *Manager) complete(r *run, t *scheduledTask, firedAt time.Time, d time.Duration, err error) {
	m.mu.Lock()
	live := m.run

	t.mu.Lock()
	t.running--
	t.stats.Runs++
	t.stats.LastDuration = d
	t.stats.LastError = err
	if err != nil {
		t.stats.Failures++
	}
	var next time.Time
	if t.kind == TriggerFixedDelay && live != nil && t.running == 0 {
		next = m.now().In(m.cfg.Location).Add(t.period)
		t.state = TaskArmed
		t.nextFireAt = next
	}
	t.mu.Unlock()
	m.mu.Unlock()

	atomic.AddInt64(&r.active, -1)
	if !next.IsZero() {
		m.observeNextFire(t, next)
		select {
		case live.wake <- struct{}{}:
		default:
		}
	}

	rec := history.Record{FiredAt: firedAt, Duration: d, Outcome: history.OutcomeSucceeded}
	if err != nil {
		rec.Outcome = history.OutcomeFailed
		rec.Error = err.Error()
		m.logger.Error("task failed",
			zap.String("task", t.name),
			zap.Duration("duration", d),
			zap.Error(err))
	} else {
		m.logger.Debug("task completed",
			zap.String("task", t.name),
			zap.Duration("duration", d))
	}

	if m.metrics != nil {
		labels := []string{m.name, t.name}
		m.metrics.TaskExecutionDuration.WithLabelValues(labels...).Observe(d.Seconds())
		if err != nil {
			m.metrics.TasksFailed.WithLabelValues(labels...).Inc()
		} else {
			m.metrics.TasksCompleted.WithLabelValues(labels...).Inc()
		}
	}
	m.record(t, rec)
}

func (m *Manager) record(t *scheduledTask, rec history.Record) {
	rec.Scheduler = m.name
	rec.Task = t.name
	rec.Trigger = t.kind.String()
	if err := m.recorder.Record(context.Background(), rec); err != nil {
		m.logger.Warn("history record failed", zap.String("task", t.name), zap.Error(err))
	}
}

func (m *Manager) observeNextFire(t *scheduledTask, next time.Time) {
	if m.metrics != nil {
		m.metrics.TaskNextFire.WithLabelValues(m.name, t.name).Set(float64(next.Unix()))
	}
}
