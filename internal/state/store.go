// Package state owns the latest-known state for every tracked vehicle.
//
// The store is the only writer of VehicleState. All mutation happens inside
// a per-key critical section (sharded by key hash so unrelated vehicles
// never contend), and callers only ever receive copies.
package state

import (
	"hash/fnv"
	"sync"
	"time"

	"fleet-insight/internal/domain"
)

const shardCount = 64

type shard struct {
	mu      sync.Mutex
	entries map[domain.Key]*domain.VehicleState
}

// Store is a concurrency-safe keyed store of vehicle state.
type Store struct {
	shards [shardCount]shard
}

func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i].entries = make(map[domain.Key]*domain.VehicleState)
	}
	return s
}

// UpsertResult reports the outcome of one state update.
type UpsertResult struct {
	// Previous is a snapshot of the state before the event, nil on the
	// first event for the key.
	Previous *domain.VehicleState
	// Current is a snapshot after the event (unchanged when Stale).
	Current domain.VehicleState
	// Stale is set when the event did not advance the stored timestamp
	// and was dropped from state mutation.
	Stale bool
}

// Transition runs inside the key's critical section, after the positional
// fields have been advanced but before snapshots are taken. prev is nil on
// the first event. Implementations may replace cur.ActiveZones; they must
// not retain either pointer past the call.
type Transition func(prev *domain.VehicleState, cur *domain.VehicleState)

// Upsert applies evt to the state for its identity key, atomically.
//
// An event whose timestamp is not strictly newer than the stored one is
// stale: nothing is mutated, transition is not called, and the result
// carries the unchanged state. Duplicate delivery is therefore always a
// no-op.
func (s *Store) Upsert(evt domain.PositionEvent, transition Transition) UpsertResult {
	sh := s.shardFor(evt.Key())
	sh.mu.Lock()
	defer sh.mu.Unlock()

	cur, exists := sh.entries[evt.Key()]
	if exists && !evt.Timestamp.After(cur.LastEventTime) {
		return UpsertResult{Current: cur.Clone(), Stale: true}
	}

	var prev *domain.VehicleState
	if exists {
		snapshot := cur.Clone()
		prev = &snapshot

		lastPos := cur.CurrentPosition
		cur.PreviousPosition = &lastPos
	} else {
		cur = &domain.VehicleState{
			Key:         evt.Key(),
			ActiveZones: make(map[string]struct{}),
		}
		sh.entries[evt.Key()] = cur
	}

	cur.CurrentPosition = evt.Position
	cur.CurrentSpeedKmh = evt.SpeedKmh
	cur.CurrentHeading = evt.HeadingDegrees
	cur.CurrentRoute = evt.RouteTag
	cur.LastEventTime = evt.Timestamp

	if transition != nil {
		transition(prev, cur)
	}

	return UpsertResult{Previous: prev, Current: cur.Clone()}
}

// Get returns a consistent snapshot of the state for key.
func (s *Store) Get(key domain.Key) (domain.VehicleState, bool) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	cur, ok := sh.entries[key]
	if !ok {
		return domain.VehicleState{}, false
	}
	return cur.Clone(), true
}

// Len returns the number of tracked vehicles.
func (s *Store) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}

// EvictIdleSince removes every vehicle whose last event precedes cutoff and
// returns the count evicted. Takes the same shard locks as Upsert, so a key
// is never evicted mid-update.
func (s *Store) EvictIdleSince(cutoff time.Time) int {
	evicted := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for key, cur := range sh.entries {
			if cur.LastEventTime.Before(cutoff) {
				delete(sh.entries, key)
				evicted++
			}
		}
		sh.mu.Unlock()
	}
	return evicted
}

func (s *Store) shardFor(key domain.Key) *shard {
	h := fnv.New32a()
	h.Write([]byte(key.Agency))
	h.Write([]byte{0})
	h.Write([]byte(key.VehicleID))
	return &s.shards[h.Sum32()%shardCount]
}
