package scheduler

import (
	"errors"
	"fmt"

	gferrors "github.com/vnykmshr/cronflow/pkg/common/errors"
)

var (
	// ErrSchedulerRunning is returned when tasks are registered while the
	// manager is running.
	ErrSchedulerRunning = errors.New("scheduler: cannot register tasks while running")

	// ErrNilCallback is returned when a task is registered without a callback.
	ErrNilCallback = fmt.Errorf("scheduler: callback is nil: %w", gferrors.ErrInvalidConfiguration)

	// ErrStopTimeout is returned when executions were still running at the
	// end of the stop grace period.
	ErrStopTimeout = fmt.Errorf("scheduler: graceful stop timed out: %w", gferrors.ErrTimeout)
)
