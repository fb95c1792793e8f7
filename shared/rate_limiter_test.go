package shared

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steppingClock advances itself by the requested duration whenever After is called,
// so pacing is observable without real sleeps.
type steppingClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *steppingClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *steppingClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRequestPacerFirstCallIsImmediate(t *testing.T) {
	clock := &steppingClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	pacer := NewRequestPacer("quote", 1200*time.Millisecond, clock)

	require.NoError(t, pacer.Wait(context.Background()))
	assert.Empty(t, clock.sleeps)
	assert.Equal(t, int64(1), pacer.GetRequestCount())
}

func TestRequestPacerEnforcesMinimumSpacing(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &steppingClock{now: start}
	pacer := NewRequestPacer("quote", 1200*time.Millisecond, clock)

	var released []time.Time
	for i := 0; i < 4; i++ {
		require.NoError(t, pacer.Wait(context.Background()))
		released = append(released, pacer.GetLastRequestTime())
	}

	for i := 1; i < len(released); i++ {
		assert.GreaterOrEqual(t, released[i].Sub(released[i-1]), 1200*time.Millisecond)
	}
	assert.Equal(t, []time.Duration{1200 * time.Millisecond, 1200 * time.Millisecond, 1200 * time.Millisecond}, clock.sleeps)
}

func TestRequestPacerOnlyWaitsForRemainder(t *testing.T) {
	clock := &steppingClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	pacer := NewRequestPacer("quote", time.Second, clock)

	require.NoError(t, pacer.Wait(context.Background()))
	clock.advance(700 * time.Millisecond)
	require.NoError(t, pacer.Wait(context.Background()))
	clock.advance(2 * time.Second)
	require.NoError(t, pacer.Wait(context.Background()))

	assert.Equal(t, []time.Duration{300 * time.Millisecond}, clock.sleeps)
}

type blockingClock struct {
	now time.Time
}

func (c *blockingClock) Now() time.Time                         { return c.now }
func (c *blockingClock) After(d time.Duration) <-chan time.Time { return make(chan time.Time) }

func TestRequestPacerHonoursCancellation(t *testing.T) {
	clock := &blockingClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	pacer := NewRequestPacer("quote", time.Minute, clock)
	require.NoError(t, pacer.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, pacer.Wait(ctx), context.Canceled)
	assert.Equal(t, int64(1), pacer.GetRequestCount())
}
