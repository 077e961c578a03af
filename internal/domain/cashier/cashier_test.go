package cashier

import (
	"context"
	"testing"
	"time"

	"github.com/kurtskinny/officesim/internal/domain"
	"github.com/kurtskinny/officesim/internal/substrate"
)

// A huge time multiplier collapses the simulated 5-30 minute payment delay
// down to ~1ms of real time, keeping this test fast without touching the
// worker's delay logic.
const fastTimeMul = 1_000_000_000

func TestCashierProcessesRequestAndRespondsToClient(t *testing.T) {
	sub := substrate.New(10, [5]int{0, 0, 0, 0, 0}, fastTimeMul)
	w := New(sub)

	sub.Cashier.Send(domain.CashierRequest{ClientID: 42, Department: domain.DeptKM})
	sub.Cashier.SendSentinel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	finish := make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, finish) }()

	resp, ok := sub.Reg.ReceiveResponse(ctx, 42)
	if !ok {
		t.Fatal("expected a response addressed to client 42")
	}
	if resp.Done == nil {
		t.Fatalf("expected a ServiceDone response, got %+v", resp)
	}
	if resp.Done.Action != domain.ActionComplete {
		t.Fatalf("Action = %v, want ActionComplete", resp.Done.Action)
	}
	if resp.Done.Department != domain.DeptKM {
		t.Fatalf("Department = %v, want KM", resp.Done.Department)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after sentinel")
	}
}

func TestCashierStopsOnContextCancel(t *testing.T) {
	sub := substrate.New(10, [5]int{0, 0, 0, 0, 0}, fastTimeMul)
	w := New(sub)

	ctx, cancel := context.WithCancel(context.Background())
	finish := make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, finish) }()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after context cancel")
	}
}
