// Package connectivity tracks the device's online/offline state and
// publishes transitions to subscribers.
//
// The state is an explicit injected object rather than a module-level flag:
// the sync scheduler and download manager read it through State.Online and
// react to transitions through Subscribe. A developer-only simulate-offline
// override blocks all non-loopback requests at the transport layer so the
// reconciliation logic can be tested without physical network changes.
package connectivity

import (
	"sync"
)

// Event is a connectivity transition.
type Event struct {
	// Online is the new effective state.
	Online bool
	// WasOnline is the state before the transition.
	WasOnline bool
}

// Reconnected reports an offline→online transition.
func (e Event) Reconnected() bool {
	return e.Online && !e.WasOnline
}

// State holds the current connectivity state.
//
// Effective state combines the observed network state with the
// simulate-offline override: the device reports online only when the
// network is up and the override is off.
type State struct {
	mu              sync.Mutex
	online          bool
	simulateOffline bool
	subs            []chan Event
}

// NewState creates a State with the given initial network observation.
func NewState(online bool) *State {
	return &State{online: online}
}

// Online reports the effective connectivity state.
func (s *State) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effective()
}

// SimulatingOffline reports whether the developer override is active.
func (s *State) SimulatingOffline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.simulateOffline
}

// SetOnline records a network state observation.
// Subscribers are notified only when the effective state changes.
func (s *State) SetOnline(online bool) {
	s.transition(func() { s.online = online })
}

// SetSimulateOffline toggles the developer-only offline override.
// Turning it on is indistinguishable from going offline for every consumer.
func (s *State) SetSimulateOffline(simulate bool) {
	s.transition(func() { s.simulateOffline = simulate })
}

// Subscribe returns a channel receiving effective-state transitions.
// The channel is buffered; a slow subscriber drops events rather than
// blocking the publisher.
func (s *State) Subscribe() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, 8)
	s.subs = append(s.subs, ch)
	return ch
}

func (s *State) effective() bool {
	return s.online && !s.simulateOffline
}

func (s *State) transition(mutate func()) {
	s.mu.Lock()
	was := s.effective()
	mutate()
	now := s.effective()

	var subs []chan Event
	if was != now {
		subs = append(subs, s.subs...)
	}
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- Event{Online: now, WasOnline: was}:
		default:
		}
	}
}
