// Package reconnect implements the per-adapter reconnect controller:
// exponential backoff with ±25% uniform jitter, bounded
// attempts, and the connected/disconnected/reconnecting/reconnected/
// error event sequence.
package reconnect

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/polyquery/polyquery"
	"github.com/polyquery/polyquery/event"
)

// jitterBackOff implements backoff.BackOff with an exact
// delay formula: min(initial × multiplier^(attempt-1), max), then a
// uniform ±25% jitter. cenkalti/backoff/v5's built-in
// ExponentialBackOff applies a different (randomization-factor based)
// jitter strategy, so this is a small custom implementation of its
// BackOff interface rather than a reuse of its default policy.
type jitterBackOff struct {
	initial    time.Duration
	max        time.Duration
	multiplier float64
	attempt    int
	rand       func() float64
}

func (b *jitterBackOff) NextBackOff() (time.Duration, error) {
	b.attempt++
	base := float64(b.initial) * math.Pow(b.multiplier, float64(b.attempt-1))
	if max := float64(b.max); base > max {
		base = max
	}
	r := b.rand
	if r == nil {
		r = rand.Float64
	}
	jitter := 1 + (r()*0.5 - 0.25) // uniform in [0.75, 1.25]
	return time.Duration(base * jitter), nil
}

var _ backoff.BackOff = (*jitterBackOff)(nil)

// ConnectFunc attempts one connection and reports whether it
// succeeded.
type ConnectFunc func(ctx context.Context) error

// Controller drives the reconnect loop for one adapter.
type Controller struct {
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64
	MaxAttempts int
	Backend     string
	Bus         *event.Bus

	// Rand overrides the jitter source; nil uses math/rand.Float64.
	Rand func() float64
}

// Run emits `disconnected`, then attempts to reconnect up to
// MaxAttempts times, emitting `reconnecting` before each attempt and
// either `reconnected` on success or `error` (CONNECTION_LOST) after
// the final failed attempt.
func (c *Controller) Run(ctx context.Context, connect ConnectFunc) error {
	disconnectedAt := time.Now()
	c.Bus.Emit(event.Event{Kind: event.KindDisconnected, Backend: c.Backend, Time: disconnectedAt})

	bo := &jitterBackOff{initial: c.Initial, max: c.Max, multiplier: c.Multiplier, rand: c.Rand}

	for attempt := 1; attempt <= c.MaxAttempts; attempt++ {
		delay, _ := bo.NextBackOff()
		c.Bus.Emit(event.Event{
			Kind:        event.KindReconnecting,
			Backend:     c.Backend,
			Attempt:     attempt,
			MaxAttempts: c.MaxAttempts,
			Delay:       delay,
		})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		if err := connect(ctx); err == nil {
			c.Bus.Emit(event.Event{
				Kind:     event.KindReconnected,
				Backend:  c.Backend,
				Downtime: time.Since(disconnectedAt),
			})
			return nil
		}
	}

	connErr := polyquery.NewError(
		polyquery.CodeConnectionLost,
		"exhausted reconnect attempts",
		"check backend availability and raise maxAttempts if the outage is expected to be longer",
	).WithBackend(c.Backend)

	c.Bus.Emit(event.Event{Kind: event.KindError, Backend: c.Backend, Err: connErr})
	return connErr
}
