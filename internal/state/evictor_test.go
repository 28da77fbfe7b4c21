package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"
)

func TestEvictor_SweepsIdleVehicles(t *testing.T) {
	clock := clockz.NewFakeClock()
	now := clock.Now()

	s := NewStore()
	s.Upsert(event("idle", now.Add(-time.Hour), 10), nil)
	s.Upsert(event("active", now, 10), nil)
	require.Equal(t, 2, s.Len())

	ev := NewEvictor(s, 10*time.Second).WithClock(clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		ev.Run(ctx)
		close(done)
	}()

	// Let the sweep loop register its timer before advancing.
	time.Sleep(10 * time.Millisecond)

	// Interval is timeout/2 = 5s.
	clock.Advance(5 * time.Second)
	clock.BlockUntilReady()
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, 1, s.Len(), "idle vehicle swept, active one kept")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("evictor did not stop on cancel")
	}
}

func TestEvictor_DisabledWhenTimeoutZero(t *testing.T) {
	s := NewStore()
	ev := NewEvictor(s, 0)

	done := make(chan struct{})
	go func() {
		ev.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("evictor with zero timeout must return immediately")
	}
}
