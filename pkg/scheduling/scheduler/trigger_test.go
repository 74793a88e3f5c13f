package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	gferrors "github.com/vnykmshr/cronflow/pkg/common/errors"
)

func TestTriggerSpec_Validate(t *testing.T) {
	tests := []struct {
		name string
		spec TriggerSpec
		want error
	}{
		{"cron", Cron("0 0 * * * *"), nil},
		{"fixed rate", FixedRate(time.Second), nil},
		{"fixed delay with initial delay", FixedDelay(time.Second).WithInitialDelay(time.Minute), nil},
		{"millis", FixedRateMillis(1500), nil},
		{"rate and delay", TriggerSpec{FixedRate: time.Second, FixedDelay: time.Second}, gferrors.ErrFixedDelayAndRateAreExclusive},
		{"cron and rate", TriggerSpec{Cron: "* * * * * *", FixedRate: time.Second}, gferrors.ErrFixedDelayAndRateAreExclusive},
		{"cron and delay", TriggerSpec{Cron: "* * * * * *", FixedDelay: time.Second}, gferrors.ErrFixedDelayAndRateAreExclusive},
		{"nothing set", TriggerSpec{}, gferrors.ErrInvalidConfiguration},
		{"negative rate", FixedRate(-time.Second), gferrors.ErrInvalidFixedRate},
		{"sub-millisecond rate", FixedRate(500 * time.Microsecond), gferrors.ErrInvalidFixedRate},
		{"negative delay", FixedDelayMillis(-1), gferrors.ErrInvalidFixedDelay},
		{"negative initial delay", FixedRate(time.Second).WithInitialDelay(-time.Millisecond), gferrors.ErrInvalidInitialDelay},
		{"bad cron", Cron("1,2,71,4 * *"), gferrors.ErrInvalidCronExpression},
		{"cron out of range", Cron("0 0 25 * * *"), gferrors.ErrInvalidCronExpression},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, gferrors.IsConfigurationError(err))
		})
	}
}

func TestTriggerSpec_ExclusiveIsNotPeriodError(t *testing.T) {
	err := TriggerSpec{FixedRate: -1, FixedDelay: -1}.Validate()
	assert.True(t, errors.Is(err, gferrors.ErrFixedDelayAndRateAreExclusive))
	assert.False(t, errors.Is(err, gferrors.ErrInvalidFixedRate))
}

func TestTriggerSpec_Accessors(t *testing.T) {
	rate := FixedRate(1500*time.Millisecond + 700*time.Microsecond).WithInitialDelay(2 * time.Second)
	assert.Equal(t, TriggerFixedRate, rate.Kind())
	assert.Equal(t, 1500*time.Millisecond, rate.Period())
	assert.Equal(t, 2*time.Second, rate.Delay())
	assert.Equal(t, "fixed_rate(1.5007s) after 2s", rate.String())

	delay := FixedDelayMillis(250)
	assert.Equal(t, TriggerFixedDelay, delay.Kind())
	assert.Equal(t, 250*time.Millisecond, delay.Period())
	assert.Equal(t, "fixed_delay(250ms)", delay.String())

	cron := Cron("0 0 0 1 * *")
	assert.Equal(t, TriggerCron, cron.Kind())
	assert.Equal(t, time.Duration(0), cron.Period())
	assert.Equal(t, "cron(0 0 0 1 * *)", cron.String())

	assert.Equal(t, "none", TriggerSpec{}.String())
	assert.Equal(t, "unknown", TriggerKind(0).String())
}
