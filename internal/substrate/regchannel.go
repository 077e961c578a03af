package substrate

import (
	"context"
	"sync"

	"github.com/kurtskinny/officesim/internal/domain"
)

// RegistrationResponse is the union of message shapes Registration (or a
// clerk, or the cashier) may address to a client by id on the Registration
// Channel: "responses to clients (TicketIssued, ServiceDone) under class =
// client identifier" (§3). Exactly one field is set.
type RegistrationResponse struct {
	Ticket *domain.TicketIssued
	Done   *domain.ServiceDone
}

// RegistrationChannel realizes the Registration Channel: a FIFO class-1
// intake queue of TicketRequest, plus per-client response queues created on
// demand — the "map from client id to a single-reader response channel"
// alternative formulation sanctioned by §9.
type RegistrationChannel struct {
	mu        sync.Mutex
	cond      *sync.Cond
	requests  []domain.TicketRequest
	responses map[int64][]RegistrationResponse
}

func NewRegistrationChannel() *RegistrationChannel {
	c := &RegistrationChannel{responses: make(map[int64][]RegistrationResponse)}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// SendRequest enqueues a TicketRequest under class 1, FIFO.
func (c *RegistrationChannel) SendRequest(r domain.TicketRequest) {
	c.mu.Lock()
	c.requests = append(c.requests, r)
	c.mu.Unlock()
	c.cond.Broadcast()
}

// SendSentinel enqueues a hard-shutdown sentinel request, used by the
// supervisor to retire one registration worker during autoscale-down or
// final shutdown (§4.1 "send N sentinels on the registration channel").
func (c *RegistrationChannel) SendSentinel() {
	c.SendRequest(domain.TicketRequest{ClientID: domain.SentinelClientID})
}

func (c *RegistrationChannel) wake(ctx context.Context, finish <-chan struct{}) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.cond.Broadcast()
		case <-finish:
			c.cond.Broadcast()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// ReceiveRequest pops the oldest pending TicketRequest, consumed only by
// Registration workers (§3: "registration reads class 1 only").
func (c *RegistrationChannel) ReceiveRequest(ctx context.Context, finish <-chan struct{}) (domain.TicketRequest, bool) {
	stop := c.wake(ctx, finish)
	defer stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if len(c.requests) > 0 {
			r := c.requests[0]
			c.requests = c.requests[1:]
			return r, true
		}
		select {
		case <-ctx.Done():
			return domain.TicketRequest{}, false
		case <-finish:
			return domain.TicketRequest{}, false
		default:
		}
		c.cond.Wait()
	}
}

// SendResponse addresses a TicketIssued or ServiceDone to a specific
// client id (§3: "a client reads by its own identifier").
func (c *RegistrationChannel) SendResponse(clientID int64, resp RegistrationResponse) {
	c.mu.Lock()
	c.responses[clientID] = append(c.responses[clientID], resp)
	c.mu.Unlock()
	c.cond.Broadcast()
}

// ReceiveResponse blocks until a message addressed to clientID arrives or
// ctx is done (evacuation). Only the owning client ever calls this for its
// own id, so there is no contention on the per-client sub-queue.
func (c *RegistrationChannel) ReceiveResponse(ctx context.Context, clientID int64) (RegistrationResponse, bool) {
	stop := c.wake(ctx, neverChan)
	defer stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if q := c.responses[clientID]; len(q) > 0 {
			r := q[0]
			c.responses[clientID] = q[1:]
			return r, true
		}
		select {
		case <-ctx.Done():
			return RegistrationResponse{}, false
		default:
		}
		c.cond.Wait()
	}
}

// ForgetClient drops any leftover per-client response queue, preventing
// unbounded growth of the responses map across a long-running simulation.
func (c *RegistrationChannel) ForgetClient(clientID int64) {
	c.mu.Lock()
	delete(c.responses, clientID)
	c.mu.Unlock()
}

// DrainRequestsNonBlocking empties whatever TicketRequests are pending
// without waiting and returns them in FIFO order.
func (c *RegistrationChannel) DrainRequestsNonBlocking() []domain.TicketRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.requests
	c.requests = nil
	return out
}
