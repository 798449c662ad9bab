// Package handoff carries extracted frames from the render phase to the
// simulation phase.
//
// A Store holds one slot per recorder. Each slot keeps the recorder's render
// target and at most one pending extract. The render phase overwrites the
// pending extract every time it reads a target (most-recent-wins) and the
// simulation phase moves it out. A single mutex guards the whole map and is
// never held across device or file I/O.
package handoff

import (
	"sort"
	"sync"

	"github.com/gogpu/capture/frame"
	"github.com/gogpu/capture/render"
)

// Slot is the per-recorder handoff state.
type Slot struct {
	Target  render.Target
	Pending *frame.Extract
}

// Entry is one (id, target) pair of a Targets snapshot.
type Entry struct {
	ID     frame.ID
	Target render.Target
}

// Stats reports handoff counters.
type Stats struct {
	// Slots is the number of registered recorders.
	Slots int

	// Pending is the number of slots holding an extract.
	Pending int

	// Overwritten counts extracts replaced before the simulation phase
	// consumed them.
	Overwritten uint64

	// Dropped counts extracts that arrived for a removed slot.
	Dropped uint64
}

// Store is the shared map from recorder ID to handoff slot.
// It is safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	slots       map[frame.ID]*Slot
	overwritten uint64
	dropped     uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{slots: make(map[frame.ID]*Slot)}
}

// Register creates an empty slot for id, replacing any existing slot.
func (s *Store) Register(id frame.ID, target render.Target) {
	s.mu.Lock()
	s.slots[id] = &Slot{Target: target}
	s.mu.Unlock()
}

// Remove deletes the slot for id and discards its pending extract.
// It reports whether a slot existed.
func (s *Store) Remove(id frame.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slots[id]; !ok {
		return false
	}
	delete(s.slots, id)
	return true
}

// Has reports whether a slot is registered for id.
func (s *Store) Has(id frame.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.slots[id]
	return ok
}

// Targets returns a snapshot of the registered targets ordered by ID.
// The render phase reads the targets after the lock is released.
func (s *Store) Targets() []Entry {
	s.mu.Lock()
	out := make([]Entry, 0, len(s.slots))
	for id, slot := range s.slots {
		out = append(out, Entry{ID: id, Target: slot.Target})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Put stores e as the pending extract of id, replacing any extract that
// has not been taken yet. It returns false and drops e when id has no slot,
// which happens when the recorder was torn down during the readback.
func (s *Store) Put(id frame.ID, e frame.Extract) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		s.dropped++
		return false
	}
	if slot.Pending != nil {
		s.overwritten++
	}
	slot.Pending = &e
	return true
}

// Take moves the pending extract of id out of the store.
func (s *Store) Take(id frame.ID) (*frame.Extract, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok || slot.Pending == nil {
		return nil, false
	}
	e := slot.Pending
	slot.Pending = nil
	return e, true
}

// TakeAll moves every pending extract out of the store.
func (s *Store) TakeAll() map[frame.ID]frame.Extract {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[frame.ID]frame.Extract)
	for id, slot := range s.slots {
		if slot.Pending == nil {
			continue
		}
		out[id] = *slot.Pending
		slot.Pending = nil
	}
	return out
}

// Len returns the number of registered slots.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

// Stats returns the current counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		Slots:       len(s.slots),
		Overwritten: s.overwritten,
		Dropped:     s.dropped,
	}
	for _, slot := range s.slots {
		if slot.Pending != nil {
			st.Pending++
		}
	}
	return st
}
