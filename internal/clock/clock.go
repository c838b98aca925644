package clock

import (
	"sync"
	"time"
)

// Clock abstracts time operations for testability.
type Clock interface {
	Now() time.Time
}

// Real is a Clock backed by the system clock.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time { return time.Now() }

// Mock is a Clock that always returns a fixed time.
type Mock struct {
	T time.Time
}

// Now returns the fixed time.
func (m Mock) Now() time.Time { return m.T }

// Stepper is a Clock that advances by Step on every call, so consecutive
// history entries get distinct, increasing timestamps.
type Stepper struct {
	mu   sync.Mutex
	T    time.Time
	Step time.Duration
}

// Now returns the current time and advances it.
func (s *Stepper) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.T
	s.T = s.T.Add(s.Step)
	return now
}
