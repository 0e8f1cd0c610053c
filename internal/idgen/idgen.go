// Package idgen produces time-ordered identifiers for store keys and blob names.
package idgen

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock hands out strictly increasing Unix millisecond timestamps, so two
// calls within the same millisecond never collide.
type Clock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// NextMillis returns the current Unix time in milliseconds, bumped past the
// previously returned value when the wall clock has not advanced.
func (c *Clock) NextMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return ms
}

// PushKey returns a key that sorts lexicographically in creation order.
func (c *Clock) PushKey() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%013d%s", c.NextMillis(), suffix)
}

var defaultClock = NewClock(nil)

// NextMillis uses the process-wide clock.
func NextMillis() int64 { return defaultClock.NextMillis() }

// PushKey uses the process-wide clock.
func PushKey() string { return defaultClock.PushKey() }
