// Package supervisor implements the top-level orchestrator of §4.1: it
// owns the coordination substrate's lifetime, spawns and reaps every
// worker role, drives the simulated clock, autoscales the registration
// tier, and runs the daily tear-down/respawn and shutdown sequences.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/kurtskinny/officesim/internal/domain/cashier"
	"github.com/kurtskinny/officesim/internal/domain/generator"
	"github.com/kurtskinny/officesim/internal/infra/anchor"
	"github.com/kurtskinny/officesim/internal/infra/config"
	"github.com/kurtskinny/officesim/internal/infra/logger"
	"github.com/kurtskinny/officesim/internal/substrate"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// rolloverPollInterval is the wall-clock cadence at which the main loop
// checks for day rollover and registration autoscale pressure (§4.1: "the
// main supervisor observes day-rollover by polling the day counter at
// ~200ms wall-clock intervals").
const rolloverPollInterval = 200 * time.Millisecond

// cashierIntegrationEnabled is always true: §9's open question on the
// cashier extension resolves to "a conforming implementation must support
// both paths" — every clerk carries the GoToCashier code path, and
// clerk.shouldSendToCashier decides per visit whether it is exercised.
const cashierIntegrationEnabled = true

// Supervisor is the single top-level actor of the simulation. One
// Supervisor.Run call drives the entire office for its whole lifetime.
type Supervisor struct {
	cfg    *config.Config
	anchor *anchor.Anchor
	sub    *substrate.Substrate
	log    *zap.Logger

	cashier   *cashier.Worker
	generator *generator.Generator

	regIDSeq atomic.Int64

	mu        sync.Mutex
	report    *substrate.Report
	dayEG     *errgroup.Group
	dayFinish chan struct{}
	cancelRun context.CancelFunc
}

// New builds a Supervisor over a freshly created substrate. Config
// validation has already happened in config.Load.
func New(cfg *config.Config, anc *anchor.Anchor) *Supervisor {
	sub := substrate.New(cfg.Capacity, cfg.Quotas, cfg.TimeMul)
	s := &Supervisor{
		cfg:    cfg,
		anchor: anc,
		sub:    sub,
		log:    logger.With("supervisor", 0),
	}
	s.cashier = cashier.New(sub)
	if cfg.GenFromDirector {
		s.generator = generator.New(sub, cfg.GenMinDelay, cfg.GenMaxDelay, cfg.GenMaxCount)
	}
	return s
}

// Substrate exposes the shared coordination fabric, for adapters (the
// console REPL, tests) that need read access to admission state.
func (s *Supervisor) Substrate() *substrate.Substrate { return s.sub }

// Evacuate triggers the hard "evacuate-now" shutdown from outside the Run
// call — e.g. from the console adapter's "evacuate" command. It is a
// no-op before Run has installed its cancel function or after shutdown has
// already begun.
func (s *Supervisor) Evacuate() {
	s.mu.Lock()
	cancel := s.cancelRun
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run initializes the substrate's first day, drives the clock and every
// worker role until ctx is cancelled (the outer evacuation signal) or, for
// --one-day runs, until the first day rollover completes, then performs
// the full shutdown sequence of §4.1 and returns.
func (s *Supervisor) Run(ctx context.Context) error {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	s.mu.Lock()
	s.cancelRun = cancelRun
	s.mu.Unlock()

	s.log.Info("supervisor starting",
		zap.Int("capacity", s.cfg.Capacity),
		zap.Int("open_hour", s.cfg.OpenHour),
		zap.Int("close_hour", s.cfg.CloseHour),
	)

	report, err := substrate.OpenReport(s.cfg.ReportDir, s.sub.State.Day.Load())
	if err != nil {
		return errors.Wrap(err, "open initial report")
	}
	s.report = report

	g, gctx := errgroup.WithContext(runCtx)

	clk := newClock(s.sub, s.cfg, logger.With("clock", 0))
	g.Go(func() error { return clk.run(gctx) })

	g.Go(func() error { return s.cashier.Run(gctx, neverClose) })

	if s.generator != nil {
		g.Go(func() error {
			return s.generator.Run(gctx, func(run func(context.Context) error) {
				g.Go(func() error { return run(gctx) })
			})
		})
	}

	s.dayEG, s.dayFinish = s.startDayWorkers(gctx)

	select {
	case clk.restart <- struct{}{}:
	case <-gctx.Done():
	}

	lastDay := s.sub.State.Day.Load()
	ticker := time.NewTicker(rolloverPollInterval)
	defer ticker.Stop()

runLoop:
	for {
		select {
		case <-gctx.Done():
			break runLoop
		case <-ticker.C:
			day := s.sub.State.Day.Load()
			if day != lastDay {
				if err := s.rolloverDay(gctx, lastDay, day); err != nil {
					s.log.Error("day rollover failed", zap.Error(err))
					cancelRun()
					break runLoop
				}
				lastDay = day
				if s.cfg.OneDay {
					s.log.Info("one-day run complete, shutting down")
					cancelRun()
					break runLoop
				}
				select {
				case clk.restart <- struct{}{}:
				case <-gctx.Done():
					break runLoop
				}
				continue
			}
			s.autoscaleRegistration(gctx)
		}
	}

	s.log.Info("shutting down")
	s.sendShutdownSentinels()
	waitErr := g.Wait()

	if s.dayFinish != nil {
		select {
		case <-s.dayFinish:
		default:
			close(s.dayFinish)
		}
	}

	// §4.1's shutdown sequence ends in four independent teardown steps
	// (summary, report, anchor release, anchor removal); one failing must
	// not hide another, so they are aggregated with multierr rather than
	// short-circuited.
	var cleanupErr error
	cleanupErr = multierr.Append(cleanupErr, substrate.WriteDaySummary(s.cfg.ReportDir, s.sub.State.Day.Load(), s.sub.State))
	cleanupErr = multierr.Append(cleanupErr, s.report.Close())
	cleanupErr = multierr.Append(cleanupErr, s.anchor.Release())
	cleanupErr = multierr.Append(cleanupErr, anchor.RemoveFile(s.cfg.AnchorPath))
	if cleanupErr != nil {
		s.log.Warn("shutdown cleanup had errors", zap.Error(cleanupErr))
	}

	s.log.Info("supervisor stopped")
	if waitErr != nil && waitErr != context.Canceled {
		return waitErr
	}
	return nil
}

// neverClose is the cashier's finish channel: the cashier is not part of
// the daily tear-down/respawn set (§4.1 lists only clerks and registration
// workers there), so it only ever stops on hard shutdown.
var neverClose = make(chan struct{})

// sendShutdownSentinels implements the literal shutdown ordering of §4.1:
// "send channel sentinels, then reap all children". Every queue here is an
// unbounded slice, so these sends never actually block. The sentinels go
// to the registration intake, the normal class of each department channel,
// and the cashier queue; a clerk parked on a class-3 Return wait does not
// read them and is released by ctx cancellation instead.
func (s *Supervisor) sendShutdownSentinels() {
	s.sub.Reg.SendSentinel()
	for _, ch := range s.sub.Depts {
		ch.SendSentinel()
	}
	s.sub.Cashier.SendSentinel()
}
