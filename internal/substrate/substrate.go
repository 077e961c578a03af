package substrate

import (
	"github.com/kurtskinny/officesim/internal/domain"
)

// Substrate bundles the admission state and the four kinds of typed
// channels described in §3 into the single object the Supervisor creates,
// hands out to every worker, and destroys on shutdown. It is the in-process
// stand-in for the shared-memory segment, semaphore set, and message
// queues of the original design (§6 "Substrate keys").
type Substrate struct {
	State    *AdmissionState
	Capacity *Capacity
	Reg      *RegistrationChannel
	Cashier  *CashierChannel
	Depts    map[domain.Department]*DepartmentChannel
}

// New creates a fresh substrate. Config validation (Tp<Tk, N>=1, quotas>=0)
// happens in internal/infra/config before this is called; New assumes a
// valid capacity/quota/time-mul triple.
func New(capacity int, quotas [5]int, timeMul int) *Substrate {
	s := &Substrate{
		State:    NewAdmissionState(capacity, quotas, timeMul),
		Capacity: NewCapacity(capacity),
		Reg:      NewRegistrationChannel(),
		Cashier:  NewCashierChannel(),
		Depts:    make(map[domain.Department]*DepartmentChannel, domain.NumDepartments),
	}
	for d := domain.Department(0); int(d) < domain.NumDepartments; d++ {
		s.Depts[d] = NewDepartmentChannel()
	}
	return s
}
