// Package concurrency holds small concurrency-safety helpers shared across
// the simulation's actor packages.
package concurrency

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kurtskinny/officesim/internal/infra/logger"
)

// StartTimeoutTimer launches a goroutine that calls cancelFunc after
// timeoutSec seconds of real (wall-clock) time, independent of the
// simulated clock. Used as a supervisor safety ceiling (--max-runtime-
// seconds) so a misconfigured run (e.g. Tk far past Tp with a low
// --time-mul) cannot wedge a CI job or an operator's terminal forever.
//
// A non-positive timeout or nil cancelFunc makes this a no-op: the
// function returns immediately without starting anything.
func StartTimeoutTimer(ctx context.Context, timeoutSec int, cancelFunc context.CancelFunc) {
	if timeoutSec <= 0 || cancelFunc == nil {
		return
	}

	duration := time.Duration(timeoutSec) * time.Second

	go func() {
		logger.Info("max-runtime watchdog started", zap.Duration("timeout", duration))

		timer := time.NewTimer(duration)
		defer timer.Stop()

		select {
		case <-timer.C:
			logger.Warn("max-runtime exceeded, forcing evacuation")
			cancelFunc()
		case <-ctx.Done():
			logger.Debug("max-runtime watchdog cancelled: run already finished")
		}
	}()
}
