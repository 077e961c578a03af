package substrate

import (
	"testing"

	"github.com/kr/pretty"
)

func newTestState(quotas [5]int) *AdmissionState {
	return NewAdmissionState(20, quotas, 60)
}

func TestTryIssueTicketRespectsQuota(t *testing.T) {
	s := newTestState([5]int{0, 2, 0, 0, 0})

	n1, rej1 := s.TryIssueTicket(1)
	n2, rej2 := s.TryIssueTicket(1)
	n3, rej3 := s.TryIssueTicket(1)

	if rej1 || n1 != 1 {
		t.Fatalf("first ticket: got (%d,%v), want (1,false)", n1, rej1)
	}
	if rej2 || n2 != 2 {
		t.Fatalf("second ticket: got (%d,%v), want (2,false)", n2, rej2)
	}
	if !rej3 {
		t.Fatalf("third ticket should be rejected once quota 2 is exhausted: %# v", pretty.Formatter(struct{ n int; r bool }{n3, rej3}))
	}
}

func TestTryIssueTicketZeroQuotaIsUnlimited(t *testing.T) {
	if !ZeroQuotaMeansUnlimited {
		t.Skip("implementation chose the opposite interpretation")
	}
	s := newTestState([5]int{0, 0, 0, 0, 0})
	for i := 1; i <= 50; i++ {
		n, rej := s.TryIssueTicket(0)
		if rej || n != i {
			t.Fatalf("ticket %d: got (%d,%v), want (%d,false)", i, n, rej, i)
		}
	}
}

func TestQueueLengthNeverGoesNegative(t *testing.T) {
	s := newTestState([5]int{1, 1, 1, 1, 1})
	s.Lock()
	s.DecQueueLocked(1)
	s.Unlock()
	if s.QueueLength.Load() != 0 {
		t.Fatalf("queue length after over-decrement = %d, want 0", s.QueueLength.Load())
	}

	s.Lock()
	s.IncQueueLocked(3)
	s.DecQueueLocked(1)
	s.Unlock()
	if got := s.QueueLength.Load(); got != 2 {
		t.Fatalf("queue length = %d, want 2", got)
	}
}

func TestResetDayClearsCountersAndQueue(t *testing.T) {
	s := newTestState([5]int{5, 5, 5, 5, 5})
	s.TryIssueTicket(0)
	s.TryIssueTicket(2)
	s.Lock()
	s.IncQueueLocked(4)
	s.Unlock()

	s.ResetDay()

	if s.QueueLength.Load() != 0 {
		t.Fatalf("queue length after ResetDay = %d, want 0", s.QueueLength.Load())
	}
	for d := 0; d < 5; d++ {
		if c := s.TicketCounter(d); c != 0 {
			t.Fatalf("department %d counter after ResetDay = %d, want 0", d, c)
		}
	}
}

func TestOfficeOpenClosedTransition(t *testing.T) {
	s := newTestState([5]int{0, 0, 0, 0, 0})
	if s.IsOpen() {
		t.Fatal("new AdmissionState must start Closed")
	}
	s.SetOpen(true)
	if !s.IsOpen() {
		t.Fatal("SetOpen(true) did not open the office")
	}
	s.SetOpen(false)
	if s.IsOpen() {
		t.Fatal("SetOpen(false) did not close the office")
	}
}
