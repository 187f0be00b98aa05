package metrics

import (
	"sync"
	"time"

	"github.com/vincentbai/accounts-metrics/internal/clock"
)

// inactivityScheduler is a single-shot timer that is pushed back by every
// Reset. A fire racing a Reset or Cancel is dropped.
type inactivityScheduler struct {
	mu         sync.Mutex
	clock      clock.Clock
	timeout    time.Duration
	onFire     func()
	timer      clock.Timer
	generation uint64
}

func newInactivityScheduler(c clock.Clock, timeout time.Duration, onFire func()) *inactivityScheduler {
	return &inactivityScheduler{clock: c, timeout: timeout, onFire: onFire}
}

func (s *inactivityScheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	generation := s.generation
	s.timer = s.clock.AfterFunc(s.timeout, func() { s.fire(generation) })
}

func (s *inactivityScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// stopLocked assumes s.mu is held.
func (s *inactivityScheduler) stopLocked() {
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *inactivityScheduler) fire(generation uint64) {
	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	s.onFire()
}
