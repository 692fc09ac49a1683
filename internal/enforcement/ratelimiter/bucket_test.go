package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryConsumeWithinCapacityDoesNotBlock(t *testing.T) {
	tb := NewTokenBucket(100, 100*time.Millisecond, ModeArithmetic, false, 0)

	start := time.Now()
	tb.TryConsume(50)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.InDelta(t, 50, tb.Tokens(), 0.01)
}

func TestTryConsumeCapsRateAboveCapacity(t *testing.T) {
	tb := NewTokenBucket(10, 20*time.Millisecond, ModeArithmetic, false, 0)

	start := time.Now()
	tb.TryConsume(30) // 3x the bucket's capacity, forces at least two refills
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond, "a request above capacity must wait for at least one refill period")
}

func TestInitResetsCapacityAndTokens(t *testing.T) {
	tb := NewTokenBucket(10, 10*time.Millisecond, ModeArithmetic, false, 0)
	tb.Init(50*time.Millisecond, 200)

	assert.Equal(t, 200.0, tb.Capacity())
	assert.Equal(t, 200.0, tb.Tokens())
	assert.Equal(t, 50*time.Millisecond, tb.RefillPeriod())
}

func TestSetRateClampsExistingTokens(t *testing.T) {
	tb := NewTokenBucket(100, time.Second, ModeArithmetic, false, 0)
	require.Equal(t, 100.0, tb.Tokens())

	tb.SetRate(20)
	assert.Equal(t, 20.0, tb.Capacity())
	assert.Equal(t, 20.0, tb.Tokens(), "tokens above the new, lower capacity must be clamped down")
}

func TestSetRefillWindowPreservesEffectiveRate(t *testing.T) {
	tb := NewTokenBucket(100, time.Second, ModeArithmetic, false, 0)
	tb.SetRefillWindow(2 * time.Second)

	assert.Equal(t, 200.0, tb.Capacity(), "doubling the window at a constant rate must double capacity")
	assert.Equal(t, 2*time.Second, tb.RefillPeriod())
}

func TestCollectStatisticsDisabledByDefault(t *testing.T) {
	tb := NewTokenBucket(1, time.Millisecond, ModeArithmetic, false, 0)
	_, ok := tb.CollectStatistics()
	assert.False(t, ok)
}

func TestCollectStatisticsRecordsDeficitSamples(t *testing.T) {
	tb := NewTokenBucket(1, 5*time.Millisecond, ModeArithmetic, true, 0)
	tb.TryConsume(3) // forces at least one deficit sample before admission

	entries, ok := tb.CollectStatistics()
	require.True(t, ok)
	assert.NotEmpty(t, entries)
}

func TestThreadedModeRefillsOnTicker(t *testing.T) {
	tb := NewTokenBucket(10, 10*time.Millisecond, ModeThreaded, false, 0)
	defer tb.Close()

	tb.TryConsume(10)
	assert.InDelta(t, 0, tb.Tokens(), 0.01)

	time.Sleep(30 * time.Millisecond)
	assert.InDelta(t, 10, tb.Tokens(), 0.01, "threaded mode should reset to capacity on its own ticker")
}

func TestCloseStopsRefillGoroutine(t *testing.T) {
	tb := NewTokenBucket(10, time.Millisecond, ModeThreaded, false, 0)
	done := make(chan struct{})
	go func() {
		tb.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return: refill goroutine failed to observe shutdown")
	}
}
