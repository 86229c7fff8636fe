package sync

import "sync/atomic"

// StopFlag is a cooperative shutdown signal. Runners poll it at page
// boundaries only, so an in-flight page always finishes and its checkpoint
// stays consistent. Hard aborts go through the context instead.
type StopFlag struct {
	stopped atomic.Bool
}

// Stop requests a graceful shutdown. Safe to call from signal handlers and
// multiple goroutines.
func (s *StopFlag) Stop() {
	s.stopped.Store(true)
}

// Stopped reports whether a shutdown has been requested. A nil flag never
// stops.
func (s *StopFlag) Stopped() bool {
	if s == nil {
		return false
	}
	return s.stopped.Load()
}
