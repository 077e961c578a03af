// Package substrate implements the coordination fabric described in
// spec.md §3/§5/§9: the shared admission state, the capacity/state-mutex
// pair, and the four typed priority channels. Per §9's design notes, the
// cross-process shared memory + semaphore set + message queues of the
// original system are realized in-process as goroutines, a weighted
// semaphore (golang.org/x/sync/semaphore) and condition-variable-guarded
// queues — an explicitly licensed "portable alternative" ("natural in any
// language with threads plus a condition variable").
package substrate

import (
	"sync"

	"go.uber.org/atomic"
)

// ZeroQuotaMeansUnlimited records the decision for the §9 open question
// "quota semantics: value 0 is variously treated as 'none' and 'unlimited'
// across source revisions". This implementation treats 0 as unlimited,
// matching rejestracja.cpp's pre-split revision where an uninitialized
// (zero) quota slot never rejects; see DESIGN.md.
const ZeroQuotaMeansUnlimited = true

// AdmissionState is the single shared mutable record described in §3. All
// actors hold a pointer to the same instance; the Supervisor owns its
// lifetime. Fields that are read far more often than written (day, sim
// time, queue length, active registration worker count, time multiplier,
// office status) are go.uber.org/atomic values so readers never block on
// the mutex that otherwise guards the per-department counters and any
// multi-field transition.
type AdmissionState struct {
	mu sync.Mutex // state_mutex (§3, §5): guards ticketCounters and any
	// compound transition (day rollover, counter resets) that must be seen
	// atomically by every actor.

	Day           atomic.Int64
	SimTimeSec    atomic.Int64
	QueueLength   atomic.Int64
	ActiveRegWork atomic.Int32
	TimeMul       atomic.Int64
	Status        atomic.Int32 // domain.OfficeStatus

	BuildingCapacity int        // N, read-only after init
	Quotas           [5]int     // per-department quota, read-only after init
	ticketCounters   [5]int     // guarded by mu
}

// NewAdmissionState builds the initial state: day 0, office closed, all
// counters zeroed, as required by §4.1 step "Creates admission state with
// day=0, office Closed, counters zeroed, quotas loaded from configuration."
func NewAdmissionState(capacity int, quotas [5]int, timeMul int) *AdmissionState {
	s := &AdmissionState{
		BuildingCapacity: capacity,
		Quotas:           quotas,
	}
	s.TimeMul.Store(int64(timeMul))
	return s
}

// Lock/Unlock expose state_mutex directly to callers (registration's
// dequeue, client enter/exit queue-length transitions) that must hold it
// around the *Locked helpers below.
func (s *AdmissionState) Lock()   { s.mu.Lock() }
func (s *AdmissionState) Unlock() { s.mu.Unlock() }

// IncQueueLocked and DecQueueLocked mutate queue length under state_mutex.
// DecQueueLocked clamps at 0; IncQueueLocked has no upper clamp, since the
// capacity semaphore already bounds how many seats are held. Callers must
// hold the lock (via Lock/Unlock) around the mutation; clients acquire
// their capacity seats before taking it, per §5 "Capacity semaphore and
// state_mutex must be acquired before mutating queue length".
func (s *AdmissionState) IncQueueLocked(n int64) {
	s.QueueLength.Add(n)
}

func (s *AdmissionState) DecQueueLocked(n int64) {
	if s.QueueLength.Load() <= 0 {
		return
	}
	s.QueueLength.Sub(n)
	if s.QueueLength.Load() < 0 {
		s.QueueLength.Store(0)
	}
}

// TicketCounter reads the current ticket count for a department under
// state_mutex.
func (s *AdmissionState) TicketCounter(d int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticketCounters[d]
}

// TryIssueTicket implements the quota check and assignment of §4.2 step 4:
// "let c = current count for the target department, q = quota. If q != 0
// and c >= q, emit LimitReached. Else assign ticket number = ++c." Must be
// called while already holding state_mutex is NOT required: it takes the
// lock itself, matching the original's single atomic read-modify-write.
func (s *AdmissionState) TryIssueTicket(d int) (ticketNumber int, reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.Quotas[d]
	c := s.ticketCounters[d]
	if q != 0 && c >= q {
		return 0, true
	}
	if q == 0 && !ZeroQuotaMeansUnlimited && c >= 0 {
		// Unreachable while ZeroQuotaMeansUnlimited is true; kept so the
		// alternative interpretation from §9 is a one-line flip away.
		return 0, true
	}
	s.ticketCounters[d]++
	return s.ticketCounters[d], false
}

// ResetDay clears per-day counters and the queue length on a day-rollover
// transition (§3 invariants: "ticket counters reset on new-day transition;
// current queue length resets on new-day transition").
func (s *AdmissionState) ResetDay() {
	s.mu.Lock()
	for i := range s.ticketCounters {
		s.ticketCounters[i] = 0
	}
	s.mu.Unlock()
	s.QueueLength.Store(0)
}

func (s *AdmissionState) SetOpen(open bool) {
	if open {
		s.Status.Store(int32(1))
	} else {
		s.Status.Store(int32(0))
	}
}

func (s *AdmissionState) IsOpen() bool {
	return s.Status.Load() == 1
}
