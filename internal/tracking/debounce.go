package tracking

import (
	"sync"
	"time"
)

// DefaultSaveDebounce coalescing window for snapshot writes
const DefaultSaveDebounce = 2 * time.Second

// SaveScheduler per-user coalescing write scheduler. Scheduling a save for
// a user cancels and supersedes any pending one, so at most one write is
// outstanding per debounce window
type SaveScheduler struct {
	mu     sync.Mutex
	delay  time.Duration
	save   func(userID string)
	timers map[string]*time.Timer
	closed bool
}

// NewSaveScheduler create a scheduler calling save after the debounce delay
func NewSaveScheduler(delay time.Duration, save func(userID string)) *SaveScheduler {
	if delay <= 0 {
		delay = DefaultSaveDebounce
	}
	return &SaveScheduler{
		delay:  delay,
		save:   save,
		timers: map[string]*time.Timer{},
	}
}

// Schedule arm (or re-arm) the debounced save for a user
func (s *SaveScheduler) Schedule(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if t, ok := s.timers[userID]; ok {
		t.Stop()
	}
	s.timers[userID] = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		delete(s.timers, userID)
		s.mu.Unlock()
		s.save(userID)
	})
}

// Cancel drop any pending save for a user without writing
func (s *SaveScheduler) Cancel(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[userID]; ok {
		t.Stop()
		delete(s.timers, userID)
	}
}

// Close cancel all timers and flush every pending save synchronously
func (s *SaveScheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pending := make([]string, 0, len(s.timers))
	for id, t := range s.timers {
		t.Stop()
		pending = append(pending, id)
	}
	s.timers = map[string]*time.Timer{}
	s.mu.Unlock()

	for _, id := range pending {
		s.save(id)
	}
}
