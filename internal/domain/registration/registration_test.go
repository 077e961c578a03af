package registration

import (
	"context"
	"testing"
	"time"

	"github.com/kurtskinny/officesim/internal/domain"
	"github.com/kurtskinny/officesim/internal/substrate"
)

// enterAsClient mimics the client-side ENTER transition (Capacity.Acquire +
// IncQueueLocked) that always precedes a real TicketRequest, so handle()'s
// unconditional release doesn't panic on an unheld semaphore unit.
func enterAsClient(t *testing.T, sub *substrate.Substrate) {
	t.Helper()
	if err := sub.Capacity.Acquire(context.Background(), 1); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	sub.State.Lock()
	sub.State.IncQueueLocked(1)
	sub.State.Unlock()
}

func TestRegistrationIssuesTicketWhenOpenAndUnderQuota(t *testing.T) {
	sub := substrate.New(10, [5]int{0, 0, 0, 0, 0}, 1)
	sub.State.SetOpen(true)
	enterAsClient(t, sub)

	w := New(1, sub)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	finish := make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, finish) }()

	sub.Reg.SendRequest(domain.TicketRequest{ClientID: 100, Department: domain.DeptSC})

	resp, ok := sub.Reg.ReceiveResponse(ctx, 100)
	if !ok {
		t.Fatal("expected a response")
	}
	if resp.Ticket == nil || resp.Ticket.Reject != domain.RejectNone {
		t.Fatalf("resp = %+v, want an issued ticket", resp)
	}
	if resp.Ticket.TicketNumber != 1 {
		t.Fatalf("TicketNumber = %d, want 1", resp.Ticket.TicketNumber)
	}

	close(finish)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRegistrationRejectsWhenOfficeClosed(t *testing.T) {
	sub := substrate.New(10, [5]int{0, 0, 0, 0, 0}, 1)
	sub.State.SetOpen(false)
	enterAsClient(t, sub)

	w := New(1, sub)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	finish := make(chan struct{})
	go func() { _ = w.Run(ctx, finish) }()
	defer close(finish)

	sub.Reg.SendRequest(domain.TicketRequest{ClientID: 101, Department: domain.DeptSC})
	resp, ok := sub.Reg.ReceiveResponse(ctx, 101)
	if !ok {
		t.Fatal("expected a response")
	}
	if resp.Ticket == nil || resp.Ticket.Reject != domain.RejectOfficeClosed {
		t.Fatalf("resp = %+v, want RejectOfficeClosed", resp)
	}
}

func TestRegistrationRejectsWhenQuotaExhausted(t *testing.T) {
	sub := substrate.New(10, [5]int{0, 1, 0, 0, 0}, 1) // SC quota == 1
	sub.State.SetOpen(true)
	sub.State.TryIssueTicket(int(domain.DeptSC)) // consume the one slot directly
	enterAsClient(t, sub)

	w := New(1, sub)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	finish := make(chan struct{})
	go func() { _ = w.Run(ctx, finish) }()
	defer close(finish)

	sub.Reg.SendRequest(domain.TicketRequest{ClientID: 102, Department: domain.DeptSC})
	resp, ok := sub.Reg.ReceiveResponse(ctx, 102)
	if !ok {
		t.Fatal("expected a response")
	}
	if resp.Ticket == nil || resp.Ticket.Reject != domain.RejectLimitReached {
		t.Fatalf("resp = %+v, want RejectLimitReached", resp)
	}
}

func TestRegistrationCoercesOutOfRangeDepartment(t *testing.T) {
	sub := substrate.New(10, [5]int{0, 0, 0, 0, 0}, 1)
	sub.State.SetOpen(true)
	enterAsClient(t, sub)

	w := New(1, sub)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	finish := make(chan struct{})
	go func() { _ = w.Run(ctx, finish) }()
	defer close(finish)

	sub.Reg.SendRequest(domain.TicketRequest{ClientID: 103, Department: domain.Department(99)})
	resp, ok := sub.Reg.ReceiveResponse(ctx, 103)
	if !ok {
		t.Fatal("expected a response")
	}
	if resp.Ticket == nil || resp.Ticket.Department != domain.DeptSA {
		t.Fatalf("resp = %+v, want coercion to SA", resp)
	}
}

func TestRegistrationStopsOnSentinel(t *testing.T) {
	sub := substrate.New(10, [5]int{0, 0, 0, 0, 0}, 1)
	w := New(1, sub)

	sub.Reg.SendSentinel()

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background(), nil) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on sentinel")
	}
}
