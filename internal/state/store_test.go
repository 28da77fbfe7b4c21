package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-insight/internal/domain"
)

var baseTime = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func event(vehicleID string, ts time.Time, speed float64) domain.PositionEvent {
	return domain.PositionEvent{
		Agency:      "demo-transit",
		VehicleID:   vehicleID,
		RouteTag:    "manhattan-loop",
		Position:    domain.Coordinate{Latitude: 40.7128, Longitude: -74.0060},
		SpeedKmh:    speed,
		Timestamp:   ts,
		Predictable: true,
	}
}

func TestUpsert_FirstEvent(t *testing.T) {
	s := NewStore()

	res := s.Upsert(event("v1", baseTime, 30), nil)
	require.False(t, res.Stale)
	assert.Nil(t, res.Previous)
	assert.Equal(t, 30.0, res.Current.CurrentSpeedKmh)
	assert.Nil(t, res.Current.PreviousPosition)
	assert.Equal(t, baseTime, res.Current.LastEventTime)
	assert.Equal(t, 1, s.Len())
}

func TestUpsert_AdvancesState(t *testing.T) {
	s := NewStore()
	s.Upsert(event("v1", baseTime, 30), nil)

	second := event("v1", baseTime.Add(time.Second), 45)
	second.Position = domain.Coordinate{Latitude: 40.75, Longitude: -73.99}

	res := s.Upsert(second, nil)
	require.False(t, res.Stale)
	require.NotNil(t, res.Previous)
	assert.Equal(t, 30.0, res.Previous.CurrentSpeedKmh)
	assert.Equal(t, 45.0, res.Current.CurrentSpeedKmh)
	require.NotNil(t, res.Current.PreviousPosition)
	assert.Equal(t, 40.7128, res.Current.PreviousPosition.Latitude)
	assert.Equal(t, 1, s.Len())
}

func TestUpsert_StaleEventIgnored(t *testing.T) {
	s := NewStore()
	s.Upsert(event("v1", baseTime, 30), nil)

	older := event("v1", baseTime.Add(-time.Second), 99)
	res := s.Upsert(older, func(prev, cur *domain.VehicleState) {
		t.Fatal("transition must not run for a stale event")
	})

	assert.True(t, res.Stale)
	assert.Equal(t, 30.0, res.Current.CurrentSpeedKmh, "state unchanged")

	st, ok := s.Get(domain.Key{Agency: "demo-transit", VehicleID: "v1"})
	require.True(t, ok)
	assert.Equal(t, 30.0, st.CurrentSpeedKmh)
	assert.Equal(t, baseTime, st.LastEventTime)
}

func TestUpsert_DuplicateTimestampIsStale(t *testing.T) {
	s := NewStore()
	s.Upsert(event("v1", baseTime, 30), nil)

	res := s.Upsert(event("v1", baseTime, 30), nil)
	assert.True(t, res.Stale, "exact duplicate delivery must be a no-op")
}

func TestUpsert_TransitionRunsInCriticalSection(t *testing.T) {
	s := NewStore()

	var sawPrev bool
	s.Upsert(event("v1", baseTime, 30), func(prev, cur *domain.VehicleState) {
		assert.Nil(t, prev)
		cur.ActiveZones = map[string]struct{}{"downtown": {}}
	})

	s.Upsert(event("v1", baseTime.Add(time.Second), 40), func(prev, cur *domain.VehicleState) {
		sawPrev = prev != nil
		assert.True(t, prev.InZone("downtown"), "previous snapshot keeps the zones set before")
		assert.True(t, cur.InZone("downtown"), "zones persist until the transition replaces them")
	})
	assert.True(t, sawPrev)
}

func TestGet_ReturnsSnapshotCopy(t *testing.T) {
	s := NewStore()
	s.Upsert(event("v1", baseTime, 30), func(_, cur *domain.VehicleState) {
		cur.ActiveZones = map[string]struct{}{"downtown": {}}
	})

	key := domain.Key{Agency: "demo-transit", VehicleID: "v1"}
	st, ok := s.Get(key)
	require.True(t, ok)

	// Mutating the snapshot must not leak into the store.
	st.ActiveZones["injected"] = struct{}{}
	st.CurrentSpeedKmh = 999

	fresh, _ := s.Get(key)
	assert.False(t, fresh.InZone("injected"))
	assert.Equal(t, 30.0, fresh.CurrentSpeedKmh)
}

func TestGet_UnknownKey(t *testing.T) {
	s := NewStore()
	_, ok := s.Get(domain.Key{Agency: "a", VehicleID: "missing"})
	assert.False(t, ok)
}

func TestEvictIdleSince(t *testing.T) {
	s := NewStore()
	s.Upsert(event("old-1", baseTime.Add(-time.Hour), 10), nil)
	s.Upsert(event("old-2", baseTime.Add(-2*time.Hour), 10), nil)
	s.Upsert(event("fresh", baseTime, 10), nil)

	evicted := s.EvictIdleSince(baseTime.Add(-30 * time.Minute))
	assert.Equal(t, 2, evicted)
	assert.Equal(t, 1, s.Len())

	_, ok := s.Get(domain.Key{Agency: "demo-transit", VehicleID: "fresh"})
	assert.True(t, ok)
	_, ok = s.Get(domain.Key{Agency: "demo-transit", VehicleID: "old-1"})
	assert.False(t, ok)
}

func TestEvictIdleSince_BoundaryExclusive(t *testing.T) {
	s := NewStore()
	s.Upsert(event("v1", baseTime, 10), nil)

	// Exactly at the cutoff is not "before" it.
	assert.Zero(t, s.EvictIdleSince(baseTime))
	assert.Equal(t, 1, s.Len())
}

func TestUpsert_ConcurrentSameKey(t *testing.T) {
	s := NewStore()
	const n = 200

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Upsert(event("v1", baseTime.Add(time.Duration(i)*time.Second), float64(i)), nil)
		}(i)
	}
	wg.Wait()

	st, ok := s.Get(domain.Key{Agency: "demo-transit", VehicleID: "v1"})
	require.True(t, ok)
	assert.Equal(t, baseTime.Add((n-1)*time.Second), st.LastEventTime,
		"state must reflect the maximum timestamp")
	assert.Equal(t, float64(n-1), st.CurrentSpeedKmh)
	assert.Equal(t, 1, s.Len())
}

func TestUpsert_ConcurrentDistinctKeys(t *testing.T) {
	s := NewStore()
	const n = 100

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "vehicle-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
			s.Upsert(event(id, baseTime, float64(i)), nil)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, s.Len())
}
