package alarm

import (
	"fmt"
	"sync"
	"time"
)

// MinuteKey identifies the wall-clock minute of now as "H:M".
func MinuteKey(now time.Time) string {
	return fmt.Sprintf("%d:%d", now.Hour(), now.Minute())
}

// PollState remembers the last evaluated minute so a minute is never
// evaluated twice in a row, whatever the tick rate.
type PollState struct {
	mu                sync.Mutex
	lastCheckedMinute string
}

// Mark records key and reports whether it differs from the last one.
func (s *PollState) Mark(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == s.lastCheckedMinute {
		return false
	}

	s.lastCheckedMinute = key

	return true
}

// LastCheckedMinute returns the last recorded key.
func (s *PollState) LastCheckedMinute() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastCheckedMinute
}
