// Package resource tracks memory reserved by arenas against an optional hard limit.
package resource

import (
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrMemoryLimitExceeded is returned when a reservation would exceed the limit.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Controller manages a memory budget shared by one or more arenas.
//
// A nil *Controller is valid and imposes no limit.
type Controller struct {
	limit int64
	sem   *semaphore.Weighted // nil if unlimited
	used  atomic.Int64
	peak  atomic.Int64
}

// NewController creates a controller. A limit <= 0 only tracks usage.
func NewController(limit int64) *Controller {
	c := &Controller{limit: max(limit, 0)}
	if limit > 0 {
		c.sem = semaphore.NewWeighted(limit)
	}
	return c
}

// Acquire reserves bytes without blocking.
// Returns ErrMemoryLimitExceeded if the reservation does not fit.
func (c *Controller) Acquire(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.sem != nil && !c.sem.TryAcquire(bytes) {
		return ErrMemoryLimitExceeded
	}

	used := c.used.Add(bytes)
	for {
		p := c.peak.Load()
		if used <= p || c.peak.CompareAndSwap(p, used) {
			break
		}
	}
	return nil
}

// Release returns bytes previously reserved with Acquire.
func (c *Controller) Release(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.sem != nil {
		c.sem.Release(bytes)
	}
	c.used.Add(-bytes)
}

// Usage returns the bytes currently reserved.
func (c *Controller) Usage() int64 {
	if c == nil {
		return 0
	}
	return c.used.Load()
}

// Peak returns the highest reservation seen.
func (c *Controller) Peak() int64 {
	if c == nil {
		return 0
	}
	return c.peak.Load()
}

// Limit returns the configured limit in bytes (0 if unlimited).
func (c *Controller) Limit() int64 {
	if c == nil {
		return 0
	}
	return c.limit
}
