package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (e *countingExpirer) ExpireStalePayments(ctx context.Context, now time.Time) (int, error) {
	e.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("missing deadline")
	}
	return 2, e.err
}

func TestPaymentExpiryScheduler_Run(t *testing.T) {
	expirer := &countingExpirer{}
	s := NewPaymentExpiryScheduler(expirer, "")

	s.Run()
	expirer.err = errors.New("db down")
	s.Run()

	assert.Equal(t, int32(2), expirer.calls.Load())
	assert.Equal(t, DefaultExpirySchedule, s.schedule)
}

func TestPaymentExpiryScheduler_Start(t *testing.T) {
	expirer := &countingExpirer{}
	s := NewPaymentExpiryScheduler(expirer, "@every 1s")
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)

	assert.Eventually(t, func() bool {
		return expirer.calls.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)
}

func TestPaymentExpiryScheduler_InvalidSchedule(t *testing.T) {
	s := NewPaymentExpiryScheduler(&countingExpirer{}, "not a schedule")
	assert.Error(t, s.Start())
}
