package substrate

import (
	"context"
	"sync"

	"github.com/kurtskinny/officesim/internal/domain"
)

// CashierChannel carries CashierRequest under class 1 only (§3): a single
// FIFO queue, the simplest of the four typed channels.
type CashierChannel struct {
	mu    sync.Mutex
	cond  *sync.Cond
	queue []domain.CashierRequest
}

func NewCashierChannel() *CashierChannel {
	c := &CashierChannel{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *CashierChannel) Send(r domain.CashierRequest) {
	c.mu.Lock()
	c.queue = append(c.queue, r)
	c.mu.Unlock()
	c.cond.Broadcast()
}

func (c *CashierChannel) SendSentinel() {
	c.Send(domain.CashierRequest{ClientID: domain.SentinelClientID})
}

func (c *CashierChannel) wake(ctx context.Context, finish <-chan struct{}) (stop func()) {
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

func (c *CashierChannel) Receive(ctx context.Context, finish <-chan struct{}) (domain.CashierRequest, bool) {
	stop := c.wake(ctx, finish)
	defer stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if len(c.queue) > 0 {
			r := c.queue[0]
			c.queue = c.queue[1:]
			return r, true
		}
		select {
		case <-ctx.Done():
			return domain.CashierRequest{}, false
		case <-finish:
			return domain.CashierRequest{}, false
		default:
		}
		c.cond.Wait()
	}
}
