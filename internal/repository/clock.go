package repository

import (
	"sync"
	"time"
)

// monotonicClock hands out strictly increasing UTC timestamps at
// microsecond precision, the resolution every backend can store.
type monotonicClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func newMonotonicClock() *monotonicClock {
	return &monotonicClock{now: time.Now}
}

func (c *monotonicClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}

// Observe moves the floor forward so later timestamps sort after t.
func (c *monotonicClock) Observe(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.last) {
		c.last = t.UTC()
	}
}
