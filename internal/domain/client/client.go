// Package client implements the visitor state machine of §4.4: ticket
// acquisition, service, an optional cashier detour and resume, and
// end-of-day/evacuation cancellation.
package client

import (
	"context"

	"github.com/kurtskinny/officesim/internal/domain"
	"github.com/kurtskinny/officesim/internal/infra/logger"
	"github.com/kurtskinny/officesim/internal/substrate"
	"go.uber.org/zap"
)

// Client is one visitor. ID is assigned by NextID before Run starts.
type Client struct {
	ID       int64
	Dept     domain.Department
	VIP      bool
	HasChild bool

	sub *substrate.Substrate
	log *zap.Logger

	// regReleased records whether registration has already processed our
	// TicketRequest. Per §4.2 step 1, registration unconditionally releases
	// one capacity unit and decrements queue length by one the instant it
	// dequeues a request — regardless of accept or reject — "freeing the
	// seat the client had reserved for the wait". exit must not release
	// that unit a second time; it only releases what registration left
	// untouched (the child's second seat, if any, or everything if
	// evacuation struck before registration ever saw the request).
	regReleased bool
}

func New(sub *substrate.Substrate, dept domain.Department, vip, hasChild bool) *Client {
	id := NextID()
	return &Client{
		ID:       id,
		Dept:     dept,
		VIP:      vip,
		HasChild: hasChild,
		sub:      sub,
		log:      logger.With("client", id),
	}
}

// seats returns how many capacity units this visit needs: one, or two if
// accompanied by a child (§4.4 ENTER).
func (c *Client) seats() int64 {
	if c.HasChild {
		return 2
	}
	return 1
}

// Run drives the full state machine. It returns nil on any expected
// cessation (reject, completion, or evacuation) per §7's propagation
// policy: clients never treat their own cancellation as an error.
func (c *Client) Run(ctx context.Context) error {
	childDone := make(chan struct{})
	if c.HasChild {
		go c.runChild(ctx, childDone)
		defer close(childDone)
	}

	// ENTER
	if err := c.sub.Capacity.Acquire(ctx, c.seats()); err != nil {
		c.log.Info("evacuated before entering")
		return nil
	}
	c.sub.State.Lock()
	c.sub.State.IncQueueLocked(c.seats())
	c.sub.State.Unlock()
	c.log.Debug("entered building", zap.Bool("vip", c.VIP), zap.Bool("child", c.HasChild))

	defer c.exit()

	if ctx.Err() != nil {
		c.log.Info("evacuated after entering")
		return nil
	}

	// QUEUE
	c.sub.Reg.SendRequest(domain.TicketRequest{
		ClientID:   c.ID,
		Department: c.Dept,
		VIP:        c.VIP,
		HasChild:   c.HasChild,
	})

	// WAIT_T
	resp, ok := c.sub.Reg.ReceiveResponse(ctx, c.ID)
	if !ok {
		c.log.Info("evacuated awaiting ticket")
		return nil
	}
	c.regReleased = true
	ticket := resp.Ticket
	if ticket == nil {
		c.log.Error("unexpected response shape awaiting ticket")
		return nil
	}
	if ticket.Reject != domain.RejectNone {
		c.log.Info("ticket rejected", zap.String("reason", ticket.Reject.String()))
		return nil
	}
	c.log.Info("ticket issued", zap.Int("ticket_number", ticket.TicketNumber), zap.String("dept", ticket.Department.String()))

	// SERVE
	c.sub.Depts[ticket.Department].Send(*ticket, ticket.VIP)

	// WAIT_S / PAY loop
	for {
		resp, ok := c.sub.Reg.ReceiveResponse(ctx, c.ID)
		if !ok {
			c.log.Info("evacuated awaiting service")
			return nil
		}
		done := resp.Done
		if done == nil {
			c.log.Error("unexpected response shape awaiting service")
			return nil
		}

		if done.Action == domain.ActionComplete {
			c.log.Info("service complete", zap.String("dept", done.Department.String()))
			return nil
		}

		// PAY
		c.sub.Cashier.Send(domain.CashierRequest{ClientID: c.ID, Department: done.Department})

		paidResp, ok := c.sub.Reg.ReceiveResponse(ctx, c.ID)
		if !ok {
			c.log.Info("evacuated awaiting payment confirmation")
			return nil
		}
		if paidResp.Done == nil || paidResp.Done.Action != domain.ActionComplete {
			c.log.Error("unexpected response shape awaiting payment confirmation")
			return nil
		}

		c.sub.Depts[done.Department].SendReturn(domain.CashierReturn{ClientID: c.ID, Department: done.Department})
		// loop back to WAIT_S for the clerk's post-payment completion
	}
}

// exit implements the EXIT transition: release whatever capacity
// registration didn't already free, decrement queue length under
// state_mutex by the same amount, and drop any leftover response queue.
func (c *Client) exit() {
	remaining := c.seats()
	if c.regReleased {
		remaining--
	}
	if remaining > 0 {
		c.sub.State.Lock()
		c.sub.State.DecQueueLocked(remaining)
		c.sub.State.Unlock()
		c.sub.Capacity.Release(remaining)
	}
	c.sub.Reg.ForgetClient(c.ID)
}

// runChild is the subordinate cooperative task of §4.4: it logs entry and
// exit and wakes on "done or evacuating", consuming no channel traffic of
// its own.
func (c *Client) runChild(ctx context.Context, done <-chan struct{}) {
	c.log.Debug("child entered with parent")
	select {
	case <-ctx.Done():
		c.log.Debug("child evacuating with parent")
	case <-done:
		c.log.Debug("child exiting with parent")
	}
}
