package shared

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Clock is the time source used by RequestPacer. Tests swap in a manual clock.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns the wall clock
func SystemClock() Clock {
	return systemClock{}
}

// RequestPacer enforces a minimum spacing between calls sharing one external quota.
// Waiters are served one at a time, so calls released by a pacer never overlap
// their start times by less than the interval.
type RequestPacer struct {
	name            string
	interval        time.Duration
	clock           Clock
	mutex           sync.Mutex
	lastRequestTime time.Time
	requestCount    int64
}

// NewRequestPacer creates a pacer with the given minimum interval
func NewRequestPacer(name string, interval time.Duration, clock Clock) *RequestPacer {
	if clock == nil {
		clock = SystemClock()
	}
	return &RequestPacer{
		name:     name,
		interval: interval,
		clock:    clock,
	}
}

// Wait blocks until the interval has elapsed since the previously released call.
// The first call is released immediately. Returns ctx.Err() if cancelled while waiting.
func (p *RequestPacer) Wait(ctx context.Context) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.lastRequestTime.IsZero() {
		elapsed := p.clock.Now().Sub(p.lastRequestTime)
		if elapsed < p.interval {
			remaining := p.interval - elapsed

			logrus.WithFields(logrus.Fields{
				"component":       "RequestPacer",
				"pacer":           p.name,
				"elapsed_time":    elapsed,
				"minimum_delay":   p.interval,
				"remaining_delay": remaining,
				"request_count":   p.requestCount + 1,
			}).Debug("Enforcing request pacing delay")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-p.clock.After(remaining):
			}
		}
	}

	p.lastRequestTime = p.clock.Now()
	p.requestCount++
	return nil
}

// Interval returns the configured minimum spacing
func (p *RequestPacer) Interval() time.Duration {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.interval
}

// GetRequestCount returns the number of calls released so far
func (p *RequestPacer) GetRequestCount() int64 {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.requestCount
}

// GetLastRequestTime returns when the last call was released
func (p *RequestPacer) GetLastRequestTime() time.Time {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.lastRequestTime
}
