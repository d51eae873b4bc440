package events

import (
	"sync"
)

// IEventsDB is the minimal contract the state layer needs from an event sink
type IEventsDB interface {
	AddEvent(event Event)
	LoadEvents(round uint64) Events
	CommitEvents(round uint64) error
}

// MemStore accumulates events per round in memory. Production nodes may
// substitute a persistent implementation.
type MemStore struct {
	pending Events
	byRound map[uint64]Events

	lock sync.RWMutex
}

func NewMemStore() *MemStore {
	return &MemStore{byRound: map[uint64]Events{}}
}

func (s *MemStore) AddEvent(event Event) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.pending = append(s.pending, event)
}

func (s *MemStore) LoadEvents(round uint64) Events {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.byRound[round]
}

func (s *MemStore) CommitEvents(round uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if len(s.pending) != 0 {
		s.byRound[round] = append(s.byRound[round], s.pending...)
		s.pending = nil
	}

	return nil
}
