package round

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/quizrally/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvTick(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for tick")
		return 0
	}
}

func TestCountdownRunsToZero(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cd := NewCountdown(clock)

	ticks := make(chan int, 16)
	cd.OnTick(func(remaining int) { ticks <- remaining })

	expired := make(chan struct{}, 4)
	require.NoError(t, cd.Start(3, func() { expired <- struct{}{} }))
	require.True(t, cd.Running())
	assert.Equal(t, 3, cd.Remaining())
	assert.InDelta(t, 100.0, cd.PercentRemaining(), 0.001)

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	assert.Equal(t, 2, recvTick(t, ticks))

	clock.Advance(time.Second)
	assert.Equal(t, 1, recvTick(t, ticks))

	clock.Advance(time.Second)
	assert.Equal(t, 0, recvTick(t, ticks))

	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for expiry")
	}

	assert.Equal(t, 0, cd.Remaining())
	assert.False(t, cd.Running())
	assert.Zero(t, cd.PercentRemaining())
	assert.Empty(t, expired, "expiry fired more than once")
}

func TestCountdownRejectsNonPositiveTotal(t *testing.T) {
	cd := NewCountdown(clockwork.NewFakeClock())

	for _, total := range []int{0, -5} {
		err := cd.Start(total, func() { t.Fatal("expiry fired") })
		require.ErrorIs(t, err, common.ErrValidation)
		assert.False(t, cd.Running())
	}
}

func TestCountdownStopIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cd := NewCountdown(clock)

	require.NoError(t, cd.Start(5, func() { t.Error("expiry fired after stop") }))
	clock.BlockUntil(1)

	cd.Stop()
	cd.Stop()
	assert.False(t, cd.Running())

	clock.Advance(time.Second)
	assert.Never(t, func() bool { return cd.Remaining() != 5 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestCountdownRestartInvalidatesStaleSource(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cd := NewCountdown(clock)

	ticks := make(chan int, 16)
	cd.OnTick(func(remaining int) { ticks <- remaining })

	require.NoError(t, cd.Start(3, func() {}))
	clock.BlockUntil(1)

	// Restart before any tick lands; the first source is now stale.
	require.NoError(t, cd.Start(10, func() {}))
	assert.Equal(t, 10, cd.Remaining())

	got := 0
	require.Eventually(t, func() bool {
		clock.Advance(time.Second)
		select {
		case got = <-ticks:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 9, got, "first delivered tick must come from the new source")
}

func TestCountdownSetTotalResets(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cd := NewCountdown(clock)

	ticks := make(chan int, 16)
	cd.OnTick(func(remaining int) { ticks <- remaining })

	require.NoError(t, cd.Start(10, func() {}))
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	require.Equal(t, 9, recvTick(t, ticks))

	cd.SetTotal(20)
	assert.Equal(t, 20, cd.Total())
	assert.Equal(t, 20, cd.Remaining())
	assert.InDelta(t, 100.0, cd.PercentRemaining(), 0.001)
}

func TestCountdownPercentRemainingZeroTotal(t *testing.T) {
	cd := NewCountdown(clockwork.NewFakeClock())
	assert.Zero(t, cd.PercentRemaining())
}
