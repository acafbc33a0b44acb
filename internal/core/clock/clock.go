package clock

import (
	"sync"
	"time"
)

// Clock abstracts wall-clock time so timer arithmetic can be tested.
type Clock interface {
	Now() time.Time
}

// System reads the real clock.
type System struct{}

func (System) Now() time.Time {
	return time.Now()
}

// Manual is a Clock that only moves when told to.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a manual clock set to start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (manual *Manual) Now() time.Time {
	manual.mu.Lock()
	defer manual.mu.Unlock()
	return manual.now
}

// Advance moves the clock forward by delta.
func (manual *Manual) Advance(delta time.Duration) {
	manual.mu.Lock()
	manual.now = manual.now.Add(delta)
	manual.mu.Unlock()
}
