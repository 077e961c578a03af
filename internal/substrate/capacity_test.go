package substrate

import (
	"context"
	"testing"
	"time"
)

func TestCapacityReservesOneSlotForRegistration(t *testing.T) {
	c := NewCapacity(5)
	if c.Slots() != 4 {
		t.Fatalf("Slots() = %d, want 4 (N-1)", c.Slots())
	}
}

func TestCapacityFloorsAtOneForSmallN(t *testing.T) {
	for _, n := range []int{0, 1} {
		c := NewCapacity(n)
		if c.Slots() != 1 {
			t.Fatalf("NewCapacity(%d).Slots() = %d, want 1", n, c.Slots())
		}
	}
}

func TestCapacityN1RejectsChildCompanion(t *testing.T) {
	c := NewCapacity(1) // Slots() == 1
	if !c.TryAcquire(1) {
		t.Fatal("a solo client must always be able to enter when N=1")
	}
	c.Release(1)

	if c.TryAcquire(2) {
		t.Fatal("a client with a child (2 seats) must never fit when N=1")
	}
}

func TestCapacityAcquireBlocksUntilReleased(t *testing.T) {
	c := NewCapacity(2) // Slots() == 1
	if err := c.Acquire(context.Background(), 1); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := c.Acquire(ctx, 1); err == nil {
		t.Fatal("second Acquire should have blocked on the exhausted single slot")
	}

	c.Release(1)
	if !c.TryAcquire(1) {
		t.Fatal("slot should be available again after Release")
	}
}

func TestCapacityAcquireUnblocksOnContextCancellation(t *testing.T) {
	c := NewCapacity(2)
	_ = c.Acquire(context.Background(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Acquire(ctx, 1) }()

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Acquire should return an error once ctx is cancelled")
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not unblock on context cancellation")
	}
}
