package clock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/cartsync/internal/pkg/clock"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFake_AdvanceFiresDueTimersInOrder(t *testing.T) {
	c := clock.NewFake(epoch)
	var fired []string

	c.AfterFunc(2*time.Second, func() { fired = append(fired, "second") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "first") })
	c.AfterFunc(5*time.Second, func() { fired = append(fired, "late") })

	c.Advance(3 * time.Second)

	assert.Equal(t, []string{"first", "second"}, fired)
	assert.Equal(t, 1, c.PendingTimers())
	assert.Equal(t, epoch.Add(3*time.Second), c.Now())
}

func TestFake_StopPreventsFiring(t *testing.T) {
	c := clock.NewFake(epoch)
	fired := false

	timer := c.AfterFunc(time.Second, func() { fired = true })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	c.Advance(time.Minute)
	assert.False(t, fired)
	assert.Zero(t, c.PendingTimers())
}

func TestFake_TimerScheduledFromCallbackFiresWhenDue(t *testing.T) {
	c := clock.NewFake(epoch)
	count := 0

	c.AfterFunc(time.Second, func() {
		count++
		c.AfterFunc(0, func() { count++ })
	})

	c.Advance(time.Second)
	assert.Equal(t, 2, count)
}

func TestFake_SleepRecordsDurations(t *testing.T) {
	c := clock.NewFake(epoch)
	ctx := context.Background()

	require.NoError(t, c.Sleep(ctx, time.Second))
	require.NoError(t, c.Sleep(ctx, 2*time.Second))

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, c.Sleeps())
	assert.Equal(t, epoch.Add(3*time.Second), c.Now())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, c.Sleep(cancelled, time.Second), context.Canceled)
}

func TestReal_SleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := clock.New().Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, clock.New().Sleep(context.Background(), time.Millisecond))
}
