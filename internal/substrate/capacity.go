package substrate

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// reservedRegistrationSlots documents the §9 open question "the source
// reserves one building-capacity slot (N-1) at initialization but comments
// describe N as the hard cap". This implementation follows dyrektor.cpp
// literally (`queue_slots = capacity > 1 ? capacity - 1 : 1`): one unit of
// capacity is permanently reserved for the registration tier, so at most
// N-1 visitors are admitted concurrently. See DESIGN.md.
const reservedRegistrationSlots = 1

// Capacity is the building-admission counting semaphore (§3/§5's
// "capacity" semaphore, index 0). It wraps golang.org/x/sync/semaphore's
// weighted counting semaphore, which natively supports acquiring more than
// one unit at once — exactly what a client accompanied by a child needs
// ("plus a second seat if accompanied by a child", §4.4 ENTER).
type Capacity struct {
	sem *semaphore.Weighted
	n   int64
}

// NewCapacity sizes the semaphore at N minus the reserved registration
// slot, floored at 1 (dyrektor.cpp: `capacity > 1 ? capacity - 1 : 1`).
func NewCapacity(buildingCapacity int) *Capacity {
	n := int64(buildingCapacity) - reservedRegistrationSlots
	if n < 1 {
		n = 1
	}
	return &Capacity{sem: semaphore.NewWeighted(n), n: n}
}

// Slots returns the total number of admittable seats (for tests and the
// N=1 boundary case: a solo client can always enter, but a client with a
// child cannot, since n==1 < 2).
func (c *Capacity) Slots() int64 { return c.n }

// Acquire reserves n seats (1, or 2 for a client with a child), blocking
// until available or ctx is done (evacuation/shutdown).
func (c *Capacity) Acquire(ctx context.Context, n int64) error {
	return c.sem.Acquire(ctx, n)
}

// TryAcquire attempts a non-blocking reservation, used by tests probing
// the N=1 boundary.
func (c *Capacity) TryAcquire(n int64) bool {
	return c.sem.TryAcquire(n)
}

// Release frees n seats back to the pool.
func (c *Capacity) Release(n int64) {
	c.sem.Release(n)
}
