// Package cashier implements the payment station of §4.5: it processes
// payment requests and returns confirmations addressed to the paying
// client via the Registration Channel.
package cashier

import (
	"context"
	"math/rand"
	"time"

	"github.com/kurtskinny/officesim/internal/domain"
	"github.com/kurtskinny/officesim/internal/infra/logger"
	"github.com/kurtskinny/officesim/internal/substrate"
	"go.uber.org/zap"
)

const (
	paymentDelayMinMinutes = 5
	paymentDelayMaxMinutes = 30
)

type Worker struct {
	sub *substrate.Substrate
	log *zap.Logger
	rng *rand.Rand
}

func New(sub *substrate.Substrate) *Worker {
	return &Worker{
		sub: sub,
		log: logger.With("cashier", 0),
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run processes CashierRequests until ctx is done, a sentinel arrives, or
// finish is closed (§4.5): it then returns after the request in hand, or
// at once if none is pending, and leaves any other queued requests unread.
func (w *Worker) Run(ctx context.Context, finish <-chan struct{}) error {
	w.log.Info("cashier started")
	defer w.log.Info("cashier stopped")

	for {
		req, ok := w.sub.Cashier.Receive(ctx, finish)
		if !ok {
			return nil
		}
		if req.IsSentinel() {
			return nil
		}

		w.log.Debug("processing payment", zap.Int64("client_id", req.ClientID))
		d := w.sub.State.UniformDelay(w.rng, paymentDelayMinMinutes, paymentDelayMaxMinutes)
		t := time.NewTimer(d)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil
		}

		w.sub.Reg.SendResponse(req.ClientID, substrate.RegistrationResponse{
			Done: &domain.ServiceDone{ClientID: req.ClientID, Department: req.Department, Action: domain.ActionComplete},
		})

		select {
		case <-finish:
			return nil
		default:
		}
	}
}
