package status

import (
	"sync"
	"sync/atomic"
	"time"
)

// Freshness classifies the latest snapshot against the staleness bound.
type Freshness uint8

const (
	// Unknown means nothing was published yet.
	Unknown Freshness = iota
	// Stale means the latest snapshot is older than the staleness bound.
	Stale
	// Fresh means the latest snapshot is within the staleness bound.
	Fresh
)

func (f Freshness) String() string {
	switch f {
	case Stale:
		return "stale"
	case Fresh:
		return "fresh"
	default:
		return "unknown"
	}
}

// Cache holds the most recent RobotState. Readers never block the publisher
// and always see a complete snapshot.
type Cache struct {
	bound time.Duration

	state atomic.Pointer[RobotState]

	mu      sync.Mutex // serializes Publish
	changed chan struct{}
	now     func() time.Time
}

// NewCache creates a cache that treats snapshots older than bound as stale.
func NewCache(bound time.Duration) *Cache {
	return &Cache{
		bound:   bound,
		changed: make(chan struct{}),
		now:     time.Now,
	}
}

// Bound returns the staleness bound.
func (c *Cache) Bound() time.Duration {
	return c.bound
}

// Publish replaces the latest snapshot. Fields derived from the previous
// snapshot (generation, last trajectory) are filled in before s becomes visible.
func (c *Cache) Publish(s *RobotState) {
	if s == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s.follow(c.state.Load())
	c.state.Store(s)

	close(c.changed)
	c.changed = make(chan struct{})
}

// Changed returns a channel closed by the next Publish.
func (c *Cache) Changed() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.changed
}

// Latest returns the latest snapshot if it is fresh.
func (c *Cache) Latest() (*RobotState, Freshness) {
	return c.LatestAt(c.now())
}

// LatestAt is Latest evaluated at now.
func (c *Cache) LatestAt(now time.Time) (*RobotState, Freshness) {
	s := c.state.Load()
	if s == nil {
		return nil, Unknown
	}
	if s.Age(now) > c.bound {
		return nil, Stale
	}

	return s, Fresh
}

// Peek returns the latest snapshot regardless of its age, or nil.
func (c *Cache) Peek() *RobotState {
	return c.state.Load()
}

// Require returns the latest snapshot, or ErrStateUnknown / ErrStateStale.
func (c *Cache) Require() (*RobotState, error) {
	s, freshness := c.Latest()
	switch freshness {
	case Fresh:
		return s, nil
	case Stale:
		return nil, ErrStateStale
	default:
		return nil, ErrStateUnknown
	}
}
