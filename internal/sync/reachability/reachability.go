// Package reachability tells the engine whether the remote API can be
// reached and when that changes.
package reachability

import (
	"slices"
	"sync"
)

// Monitor is the reachability signal consumed by the engine.
type Monitor interface {
	IsOnline() bool
	// OnChange registers fn for online/offline transitions and returns a
	// function that unregisters it.
	OnChange(fn func(online bool)) func()
}

// signal holds the current state and change callbacks.
type signal struct {
	mu        sync.RWMutex
	online    bool
	callbacks map[uint64]func(bool)
	nextID    uint64
}

func (s *signal) IsOnline() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

func (s *signal) OnChange(fn func(bool)) func() {
	s.mu.Lock()
	if s.callbacks == nil {
		s.callbacks = make(map[uint64]func(bool))
	}
	id := s.nextID
	s.nextID++
	s.callbacks[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.callbacks, id)
		s.mu.Unlock()
	}
}

// set updates the state and fires callbacks on a transition only.
func (s *signal) set(online bool) bool {
	s.mu.Lock()
	if s.online == online {
		s.mu.Unlock()
		return false
	}
	s.online = online
	ids := make([]uint64, 0, len(s.callbacks))
	for id := range s.callbacks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(bool), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.callbacks[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(online)
	}
	return true
}

// Manual is a Monitor driven by explicit SetOnline calls, e.g. from the
// mobile OS connectivity callback.
type Manual struct {
	signal
}

// NewManual creates a Manual monitor with the given initial state.
func NewManual(online bool) *Manual {
	m := &Manual{}
	m.online = online
	return m
}

// SetOnline updates the state. Callbacks fire only when it changes.
func (m *Manual) SetOnline(online bool) {
	m.set(online)
}

// Always is a Monitor that is permanently online.
type Always struct{}

// IsOnline returns true.
func (Always) IsOnline() bool { return true }

// OnChange never fires.
func (Always) OnChange(func(bool)) func() { return func() {} }

var (
	_ Monitor = (*Manual)(nil)
	_ Monitor = (*Prober)(nil)
	_ Monitor = Always{}
)
