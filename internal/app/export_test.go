package app

import "time"

// Generation exposes the current timer segment for tests.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickGen
}

// TickSegment delivers one tick to timer segment gen.
func (s *Session) TickSegment(gen uint64) bool {
	return s.handleTick(gen)
}

// SetClock replaces the service clock. Sessions created afterwards share it.
func (s *AssessmentService) SetClock(now func() time.Time) {
	s.now = now
}
