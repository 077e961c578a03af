// Package domain defines the shared vocabulary of the office simulation:
// actor roles, service departments, and the message shapes that travel
// across the coordination fabric in internal/substrate.
package domain

import "fmt"

// Role identifies one of the six long-lived actor kinds described in the
// system overview. It is distinct from Department, which names a clerk's
// desk.
type Role int

const (
	RoleSupervisor Role = iota
	RoleRegistration
	RoleClerk
	RoleClient
	RoleCashier
	RoleGenerator
)

func (r Role) String() string {
	switch r {
	case RoleSupervisor:
		return "supervisor"
	case RoleRegistration:
		return "registration"
	case RoleClerk:
		return "clerk"
	case RoleClient:
		return "client"
	case RoleCashier:
		return "cashier"
	case RoleGenerator:
		return "generator"
	default:
		return "unknown"
	}
}

// ParseRole validates the --role CLI flag.
func ParseRole(s string) (Role, error) {
	switch s {
	case "supervisor":
		return RoleSupervisor, nil
	case "registration":
		return RoleRegistration, nil
	case "clerk":
		return RoleClerk, nil
	case "client":
		return RoleClient, nil
	case "cashier":
		return RoleCashier, nil
	case "generator":
		return RoleGenerator, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

// Department identifies one of the five clerk desks. The zero value is SA,
// the general-admissions desk with redirect authority, also used as the
// coercion target for malformed department fields (§7(e) of the spec).
type Department int

const (
	DeptSA Department = iota
	DeptSC
	DeptKM
	DeptML
	DeptPD

	NumDepartments = 5
)

var deptNames = [NumDepartments]string{"SA", "SC", "KM", "ML", "PD"}

func (d Department) String() string {
	if d < 0 || int(d) >= NumDepartments {
		return "SA"
	}
	return deptNames[d]
}

// ParseDepartment coerces an out-of-range or unrecognized department to SA.
// The second result is true when s was recognized and false when it was
// coerced, so the caller can log a warning.
func ParseDepartment(s string) (Department, bool) {
	for i, n := range deptNames {
		if n == s {
			return Department(i), true
		}
	}
	return DeptSA, false
}

// RedirectTargets lists the departments SA may redirect a generic request
// to (§4.3 step 3). SA itself is never a redirect target.
func RedirectTargets() []Department {
	return []Department{DeptSC, DeptKM, DeptML, DeptPD}
}

// RejectReason explains why a TicketRequest was not honored.
type RejectReason int

const (
	RejectNone RejectReason = iota
	RejectOfficeClosed
	RejectLimitReached
)

func (r RejectReason) String() string {
	switch r {
	case RejectOfficeClosed:
		return "OfficeClosed"
	case RejectLimitReached:
		return "LimitReached"
	default:
		return "None"
	}
}

// ServiceAction is carried by ServiceDone to tell a client whether it is
// finished or must detour through the cashier.
type ServiceAction int

const (
	ActionComplete ServiceAction = iota
	ActionGoToCashier
)

func (a ServiceAction) String() string {
	if a == ActionGoToCashier {
		return "GoToCashier"
	}
	return "Complete"
}

// OfficeStatus tracks whether the building is accepting new tickets.
type OfficeStatus int32

const (
	StatusClosed OfficeStatus = iota
	StatusOpen
)

func (s OfficeStatus) String() string {
	if s == StatusOpen {
		return "Open"
	}
	return "Closed"
}

// SentinelClientID is the reserved client id meaning "terminate this
// consumer after draining the current message" (§3).
const SentinelClientID int64 = 0

// Priority classes used by the typed channels (§3). ClassFIFO is the
// Registration Channel's single intake class; ClassVIP/ClassNormal/
// ClassReturn are the three sub-queues of a Department Channel.
const (
	ClassFIFO    = 1
	ClassVIP     = 1
	ClassNormal  = 2
	ClassReturn  = 3
	ClassCashier = 1
)

// TicketRequest is sent by a client to Registration (class 1, FIFO).
type TicketRequest struct {
	ClientID   int64
	Department Department
	VIP        bool
	HasChild   bool
}

func (r TicketRequest) IsSentinel() bool { return r.ClientID == SentinelClientID }

// TicketIssued is Registration's response to a client (addressed by client
// id on the Registration Channel), or a clerk's forward of a redirected
// ticket onto a target Department Channel (class 1 or 2).
type TicketIssued struct {
	ClientID         int64
	TicketNumber     int
	Department       Department
	RedirectedFromSA bool
	Reject           RejectReason
	VIP              bool
}

func (t TicketIssued) IsSentinel() bool { return t.ClientID == SentinelClientID }

// ServiceDone is sent by a clerk or cashier to Registration, addressed by
// client id, to report that a visit (or payment) is finished or that the
// client must proceed to the cashier.
type ServiceDone struct {
	ClientID   int64
	Department Department
	Action     ServiceAction
}

// CashierRequest is sent by a client to the Cashier Channel (class 1).
type CashierRequest struct {
	ClientID   int64
	Department Department
}

func (r CashierRequest) IsSentinel() bool { return r.ClientID == SentinelClientID }

// CashierReturn is sent by a client back onto its originating Department
// Channel (class 3) once payment has been confirmed, to resume the parked
// clerk session.
type CashierReturn struct {
	ClientID   int64
	Department Department
}
