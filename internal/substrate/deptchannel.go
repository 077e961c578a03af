package substrate

import (
	"context"
	"sync"

	"github.com/kurtskinny/officesim/internal/domain"
)

// DepartmentChannel is one of the five Department Channels (§3): it carries
// TicketIssued under class 1 (VIP) or class 2 (normal), and CashierReturn
// under class 3. A clerk drains "lowest class ≤ 2" — VIPs strictly
// precede normals — and separately waits on class 3 to resume a parked
// cashier session (§4.3 step 5).
//
// Implemented as condition-variable-guarded slices rather than Go channels:
// with two plain channels, a select between a ready vip and a ready normal
// case is resolved pseudo-randomly by the runtime, which cannot guarantee
// the strict VIP-first ordering §8 requires. A single mutex with ordered
// sub-queues makes the priority explicit and deterministic, following the
// "per-endpoint ordered sub-queues keyed by class" alternative of §9.
type DepartmentChannel struct {
	mu     sync.Mutex
	cond   *sync.Cond
	vip    []domain.TicketIssued
	normal []domain.TicketIssued
	ret    []domain.CashierReturn
}

func NewDepartmentChannel() *DepartmentChannel {
	c := &DepartmentChannel{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Send enqueues a TicketIssued under class 1 (VIP) or class 2 (normal).
func (c *DepartmentChannel) Send(t domain.TicketIssued, vip bool) {
	c.mu.Lock()
	if vip {
		c.vip = append(c.vip, t)
	} else {
		c.normal = append(c.normal, t)
	}
	c.mu.Unlock()
	c.cond.Broadcast()
}

// SendReturn enqueues a CashierReturn under class 3.
func (c *DepartmentChannel) SendReturn(r domain.CashierReturn) {
	c.mu.Lock()
	c.ret = append(c.ret, r)
	c.mu.Unlock()
	c.cond.Broadcast()
}

// SendSentinel enqueues the terminate-consumer sentinel. Queues here are
// unbounded slices, so this never actually blocks; it is still spelled as
// its own method (rather than reusing Send with a zero ticket) to keep the
// "non-blocking send during shutdown" requirement of §4.3/§5 visible at
// call sites.
func (c *DepartmentChannel) SendSentinel() {
	c.Send(domain.TicketIssued{ClientID: domain.SentinelClientID}, false)
}

// wake lets a goroutine that is only watching ctx/finish interrupt a
// blocked cond.Wait without itself holding the channel's mutex.
func (c *DepartmentChannel) wake(ctx context.Context, finish <-chan struct{}) (stop func()) {
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

// Receive blocks until a VIP or normal ticket is available, ctx is done
// (evacuation/shutdown), or finish is closed (finish-after-current with
// nothing pending). VIPs are always returned ahead of normals, regardless
// of arrival order, satisfying the strict-priority property of §8.
func (c *DepartmentChannel) Receive(ctx context.Context, finish <-chan struct{}) (domain.TicketIssued, bool) {
	stop := c.wake(ctx, finish)
	defer stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if len(c.vip) > 0 {
			t := c.vip[0]
			c.vip = c.vip[1:]
			return t, true
		}
		if len(c.normal) > 0 {
			t := c.normal[0]
			c.normal = c.normal[1:]
			return t, true
		}
		select {
		case <-ctx.Done():
			return domain.TicketIssued{}, false
		case <-finish:
			return domain.TicketIssued{}, false
		default:
		}
		c.cond.Wait()
	}
}

// ReceiveReturn blocks until a CashierReturn for clientID arrives for the
// clerk parked on a GoToCashier detour, or ctx is done. It is
// content-addressed by clientID (mirroring the Registration Channel's
// "class = client id" rendezvous, §9): a department like SA can run more
// than one clerk at once, and each must resume only its own parked
// client's return, never a sibling clerk's.
func (c *DepartmentChannel) ReceiveReturn(ctx context.Context, clientID int64) (domain.CashierReturn, bool) {
	stop := c.wake(ctx, neverChan)
	defer stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		for i, r := range c.ret {
			if r.ClientID == clientID {
				c.ret = append(c.ret[:i], c.ret[i+1:]...)
				return r, true
			}
		}
		select {
		case <-ctx.Done():
			return domain.CashierReturn{}, false
		default:
		}
		c.cond.Wait()
	}
}

// DrainNonBlocking empties whatever is currently queued (VIP and normal,
// in that order) without waiting, for the end-of-day unserved-case sweep
// of §4.1 "drain any still-pending TicketIssued messages on each
// department channel with non-blocking receives".
func (c *DepartmentChannel) DrainNonBlocking() []domain.TicketIssued {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.TicketIssued, 0, len(c.vip)+len(c.normal))
	out = append(out, c.vip...)
	out = append(out, c.normal...)
	c.vip = nil
	c.normal = nil
	return out
}

// neverChan never fires; it stands in for "finish-after-current" where a
// caller must ignore it (ReceiveReturn only honors hard evacuation/
// shutdown, never finish-after-current, because a clerk mid-GoToCashier
// must not abandon a parked client).
var neverChan = make(chan struct{})
