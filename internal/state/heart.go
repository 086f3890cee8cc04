package state

import (
	"sync"

	"github.com/vibesense/vibesense/internal/domain"
)

// HeartStates owns the per-user heart estimates. Each user gets its own
// slot with its own lock, so the smoothed-bpm/zone update is atomic for a
// user while different users never contend.
type HeartStates struct {
	mu    sync.RWMutex
	slots map[string]*heartSlot
}

type heartSlot struct {
	mu    sync.Mutex
	state domain.HeartState
	has   bool
}

// NewHeartStates creates an empty per-user state store.
func NewHeartStates() *HeartStates {
	return &HeartStates{
		slots: make(map[string]*heartSlot),
	}
}

func (s *HeartStates) slot(userID string) *heartSlot {
	s.mu.RLock()
	slot, ok := s.slots[userID]
	s.mu.RUnlock()
	if ok {
		return slot
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if slot, ok = s.slots[userID]; ok {
		return slot
	}
	slot = &heartSlot{}
	s.slots[userID] = slot
	return slot
}

// Update applies a read-modify-write to the user's state under its lock.
// apply receives nil on the first reading for a user.
func (s *HeartStates) Update(userID string, apply func(prev *domain.HeartState) domain.HeartState) domain.HeartState {
	slot := s.slot(userID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	var prev *domain.HeartState
	if slot.has {
		current := slot.state
		prev = &current
	}
	slot.state = apply(prev)
	slot.has = true
	return slot.state
}

// Latest returns a copy of the user's current state, if any.
func (s *HeartStates) Latest(userID string) (domain.HeartState, bool) {
	s.mu.RLock()
	slot, ok := s.slots[userID]
	s.mu.RUnlock()
	if !ok {
		return domain.HeartState{}, false
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.state, slot.has
}
