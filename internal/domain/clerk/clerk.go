// Package clerk implements the per-department service desk of §4.3: it
// serves VIPs ahead of normals, SA additionally redirects a fraction of
// generic requests to the other four desks, and any desk may detour a
// client through the cashier before completing the visit.
package clerk

import (
	"context"
	"math/rand"
	"time"

	"github.com/kurtskinny/officesim/internal/domain"
	"github.com/kurtskinny/officesim/internal/infra/logger"
	"github.com/kurtskinny/officesim/internal/substrate"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	serviceDelayMinMinutes = 5
	serviceDelayMaxMinutes = 30

	// redirectRollMax is SA's 1-100 roll threshold: "on <= 40, pick a
	// target uniformly" (§4.3 step 3).
	redirectRollMax       = 100
	redirectRollThreshold = 40
)

// Worker is one clerk instance at department Dept. The supervisor starts
// two for SA and one each for SC/KM/ML/PD (§4.1).
type Worker struct {
	ID             int
	Dept           domain.Department
	sub            *substrate.Substrate
	report         *substrate.Report
	log            *zap.Logger
	rng            *rand.Rand
	redirectLim    *rate.Sometimes
	cashierEnabled bool
}

// New builds a clerk. cashierEnabled toggles the §4.3 step 5 extension;
// both paths must work per §9's "a conforming implementation must support
// both" open question.
func New(id int, dept domain.Department, sub *substrate.Substrate, report *substrate.Report, cashierEnabled bool) *Worker {
	return &Worker{
		ID:     id,
		Dept:   dept,
		sub:    sub,
		report: report,
		log:    logger.With("clerk-"+dept.String(), int64(id)),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)*7919)),
		// Caps how often the "redirect target quota exhausted" line is
		// logged under a redirect storm; the roll itself is unthrottled.
		redirectLim:    &rate.Sometimes{Interval: time.Second},
		cashierEnabled: cashierEnabled,
	}
}

// Run services tickets until ctx is done, a sentinel arrives, or finish is
// closed with the channel drained (§4.3).
func (w *Worker) Run(ctx context.Context, finish <-chan struct{}) error {
	w.log.Info("clerk started")
	defer w.log.Info("clerk stopped")

	ch := w.sub.Depts[w.Dept]
	servedAny := false

	for {
		ticket, ok := ch.Receive(ctx, finish)
		if !ok {
			w.drainOnFinish(ch, servedAny)
			return nil
		}
		if ticket.IsSentinel() {
			return nil
		}
		servedAny = true
		w.service(ctx, ticket)

		select {
		case <-finish:
			w.drainOnFinish(ch, true)
			return nil
		default:
		}
	}
}

// drainOnFinish implements the finish-after-current tail of §4.3: "drain
// the department channel non-blocking and emit 'unserved after signal'
// report lines for each remaining ticket. If nothing was drained, emit one
// synthetic marker line attributing the unserved slot to the supervisor."
func (w *Worker) drainOnFinish(ch *substrate.DepartmentChannel, _ bool) {
	remaining := ch.DrainNonBlocking()
	if len(remaining) == 0 {
		w.report.SyntheticMarker(w.Dept)
		return
	}
	for _, t := range remaining {
		w.report.UnservedAfterClose(t)
	}
}

// service implements steps 2-5 of §4.3 for a single ticket.
func (w *Worker) service(ctx context.Context, ticket domain.TicketIssued) {
	w.delay(ctx)

	if w.Dept == domain.DeptSA && w.sub.State.IsOpen() {
		if w.tryRedirect(ticket) {
			return
		}
	}

	w.finishOrCashier(ctx, ticket, w.Dept)
}

// tryRedirect implements §4.3 step 3. It returns true if the ticket was
// handled here (forwarded or dropped as unserved) and the clerk should not
// also report ServiceDone for it.
func (w *Worker) tryRedirect(ticket domain.TicketIssued) bool {
	roll := 1 + w.rng.Intn(redirectRollMax)
	if roll > redirectRollThreshold {
		return false
	}

	targets := domain.RedirectTargets()
	target := targets[w.rng.Intn(len(targets))]

	ticketNumber, rejected := w.sub.State.TryIssueTicket(int(target))
	if rejected {
		w.redirectLim.Do(func() {
			w.log.Info("redirect target quota exhausted", zap.Int64("client_id", ticket.ClientID), zap.String("target", target.String()))
		})
		w.report.UnservedRedirect(ticket.ClientID, target, w.Dept)
		return true
	}

	w.sub.Depts[target].Send(domain.TicketIssued{
		ClientID:         ticket.ClientID,
		TicketNumber:     ticketNumber,
		Department:       target,
		RedirectedFromSA: true,
		VIP:              ticket.VIP,
	}, ticket.VIP)
	return true
}

// finishOrCashier implements steps 4-5: complete the visit, or detour the
// client through the cashier and block on the return class before
// re-delaying and completing. The clerk does not free the client's
// capacity seat in either path — that happens when the client itself exits
// after receiving ServiceDone{Complete}.
func (w *Worker) finishOrCashier(ctx context.Context, ticket domain.TicketIssued, servedBy domain.Department) {
	sendCashier := w.cashierEnabled && w.shouldSendToCashier()

	if sendCashier {
		w.sub.Reg.SendResponse(ticket.ClientID, substrate.RegistrationResponse{
			Done: &domain.ServiceDone{ClientID: ticket.ClientID, Department: servedBy, Action: domain.ActionGoToCashier},
		})

		if _, ok := w.sub.Depts[servedBy].ReceiveReturn(ctx, ticket.ClientID); !ok {
			// Evacuation/shutdown while parked: the client itself will
			// log its own evacuation and release capacity; the clerk
			// simply abandons the parked session.
			return
		}

		w.delay(ctx)
	}

	w.sub.Reg.SendResponse(ticket.ClientID, substrate.RegistrationResponse{
		Done: &domain.ServiceDone{ClientID: ticket.ClientID, Department: servedBy, Action: domain.ActionComplete},
	})
}

// cashierDetourOdds is the denominator of the per-visit cashier-detour
// roll: "one in five visits needs payment", a plausible, undocumented
// constant since §9 leaves the trigger frequency to the implementer; only
// the round-trip's *mechanics* are specified.
const cashierDetourOdds = 5

// shouldSendToCashier rolls whether this visit, for clerks built with
// cashier support, needs a payment detour, using the same worker-local rng
// the redirect roll and service delay already draw from.
func (w *Worker) shouldSendToCashier() bool {
	return w.rng.Intn(cashierDetourOdds) == 0
}

func (w *Worker) delay(ctx context.Context) {
	d := w.sub.State.UniformDelay(w.rng, serviceDelayMinMinutes, serviceDelayMaxMinutes)
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
