package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

func fail() error    { return errUpstream }
func succeed() error { return nil }

func TestBreakerStaysClosedOnSuccess(t *testing.T) {
	b := NewBreaker("test", 3, time.Minute)

	for i := 0; i < 10; i++ {
		require.NoError(t, b.Do(succeed))
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker("test", 3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Do(fail), errUpstream)
	}
	assert.Equal(t, StateOpen, b.State())

	// Refused without touching the upstream
	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	b := NewBreaker("test", 3, time.Minute)

	require.Error(t, b.Do(fail))
	require.Error(t, b.Do(fail))
	require.NoError(t, b.Do(succeed))
	require.Error(t, b.Do(fail))
	require.Error(t, b.Do(fail))

	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerProbeClosesAfterCooldown(t *testing.T) {
	b := NewBreaker("test", 1, 10*time.Millisecond)

	require.Error(t, b.Do(fail))
	require.Equal(t, StateOpen, b.State())

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Do(succeed))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b := NewBreaker("test", 1, 10*time.Millisecond)

	require.Error(t, b.Do(fail))
	time.Sleep(20 * time.Millisecond)

	require.ErrorIs(t, b.Do(fail), errUpstream)
	assert.Equal(t, StateOpen, b.State())
}
