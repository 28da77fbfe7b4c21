package state

import (
	"context"
	"log"
	"time"

	"github.com/zoobzio/clockz"

	"fleet-insight/internal/metrics"
)

// Evictor periodically drops vehicles that have gone quiet, bounding store
// memory under a long-lived stream. Disabled entirely when timeout <= 0.
type Evictor struct {
	store   *Store
	timeout time.Duration
	clock   clockz.Clock
}

func NewEvictor(store *Store, timeout time.Duration) *Evictor {
	return &Evictor{store: store, timeout: timeout}
}

// WithClock overrides the clock, for tests.
func (e *Evictor) WithClock(clock clockz.Clock) *Evictor {
	e.clock = clock
	return e
}

func (e *Evictor) getClock() clockz.Clock {
	if e.clock == nil {
		return clockz.RealClock
	}
	return e.clock
}

// Run sweeps at half the idle timeout until ctx is cancelled.
func (e *Evictor) Run(ctx context.Context) {
	if e.timeout <= 0 {
		return
	}

	interval := e.timeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	clock := e.getClock()

	for {
		select {
		case <-ctx.Done():
			return
		case <-clock.After(interval):
			cutoff := clock.Now().Add(-e.timeout)
			if n := e.store.EvictIdleSince(cutoff); n > 0 {
				metrics.VehiclesEvicted.Add(int64(n))
				log.Printf("evicted %d idle vehicles (cutoff %s)", n, cutoff.Format(time.RFC3339))
			}
		}
	}
}
