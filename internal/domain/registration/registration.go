// Package registration implements the Registration worker of §4.2: it
// serves ticket requests FIFO, enforces the per-department quota, and
// routes office-closed/quota-exhausted rejections back to the requesting
// client.
package registration

import (
	"context"

	"github.com/kurtskinny/officesim/internal/domain"
	"github.com/kurtskinny/officesim/internal/infra/logger"
	"github.com/kurtskinny/officesim/internal/substrate"
	"go.uber.org/zap"
)

// Worker is one instance of the registration tier; the supervisor may run
// several concurrently (§4.1 autoscaling).
type Worker struct {
	ID  int
	sub *substrate.Substrate
	log *zap.Logger
}

func New(id int, sub *substrate.Substrate) *Worker {
	return &Worker{ID: id, sub: sub, log: logger.With("registration", int64(id))}
}

// Run processes requests until ctx is done (hard shutdown/evacuation), a
// sentinel request arrives (explicit scale-down, §4.1), or finish is
// closed (finish-after-current, §4.2): it then returns after the request
// in hand, or at once if none is pending, and leaves any other queued
// requests unread.
func (w *Worker) Run(ctx context.Context, finish <-chan struct{}) error {
	w.log.Info("registration worker started")
	defer w.log.Info("registration worker stopped")

	for {
		req, ok := w.sub.Reg.ReceiveRequest(ctx, finish)
		if !ok {
			return nil
		}
		if req.IsSentinel() {
			return nil
		}
		w.handle(req)

		select {
		case <-finish:
			return nil
		default:
		}
	}
}

// handle implements §4.2 steps 1-4.
func (w *Worker) handle(req domain.TicketRequest) {
	w.sub.State.Lock()
	w.sub.State.DecQueueLocked(1)
	w.sub.State.Unlock()
	w.sub.Capacity.Release(1)

	if !w.sub.State.IsOpen() {
		w.sub.Reg.SendResponse(req.ClientID, substrate.RegistrationResponse{
			Ticket: &domain.TicketIssued{ClientID: req.ClientID, Reject: domain.RejectOfficeClosed},
		})
		return
	}

	dept := req.Department
	if int(dept) < 0 || int(dept) >= domain.NumDepartments {
		w.log.Warn("out-of-range department in request, coercing to SA", zap.Int64("client_id", req.ClientID))
		dept = domain.DeptSA
	}

	ticketNumber, rejected := w.sub.State.TryIssueTicket(int(dept))
	if rejected {
		w.sub.Reg.SendResponse(req.ClientID, substrate.RegistrationResponse{
			Ticket: &domain.TicketIssued{ClientID: req.ClientID, Department: dept, Reject: domain.RejectLimitReached},
		})
		return
	}

	w.sub.Reg.SendResponse(req.ClientID, substrate.RegistrationResponse{
		Ticket: &domain.TicketIssued{
			ClientID:     req.ClientID,
			TicketNumber: ticketNumber,
			Department:   dept,
			Reject:       domain.RejectNone,
			VIP:          req.VIP,
		},
	})
}
