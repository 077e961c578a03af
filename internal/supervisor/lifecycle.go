package supervisor

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/kurtskinny/officesim/internal/domain"
	"github.com/kurtskinny/officesim/internal/domain/clerk"
	"github.com/kurtskinny/officesim/internal/domain/registration"
	"github.com/kurtskinny/officesim/internal/substrate"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// staticClerkCounts is the fixed per-day clerk roster of §4.1: "two SA,
// one each of SC/KM/ML/PD".
var staticClerkCounts = map[domain.Department]int{
	domain.DeptSA: 2,
	domain.DeptSC: 1,
	domain.DeptKM: 1,
	domain.DeptML: 1,
	domain.DeptPD: 1,
}

// startDayWorkers spawns the static clerk roster and the initial
// registration worker (count 1, §4.1) for one simulated day, returning the
// errgroup that reaps them and the finish-after-current channel that tears
// them down at the next rollover.
func (s *Supervisor) startDayWorkers(ctx context.Context) (*errgroup.Group, chan struct{}) {
	finish := make(chan struct{})
	eg := &errgroup.Group{}

	for _, dept := range []domain.Department{domain.DeptSA, domain.DeptSC, domain.DeptKM, domain.DeptML, domain.DeptPD} {
		for id := 1; id <= staticClerkCounts[dept]; id++ {
			w := clerk.New(id, dept, s.sub, s.report, cashierIntegrationEnabled)
			eg.Go(func() error { return w.Run(ctx, finish) })
		}
	}

	s.sub.State.ActiveRegWork.Store(0)
	s.spawnRegistrationWorker(ctx, finish, eg, s.nextRegID())

	return eg, finish
}

// spawnRegistrationWorker starts one registration worker tracked by the
// admission state's active-worker count, which autoscaling reads to decide
// whether to grow or shrink the tier.
func (s *Supervisor) spawnRegistrationWorker(ctx context.Context, finish <-chan struct{}, eg *errgroup.Group, id int) {
	s.sub.State.ActiveRegWork.Add(1)
	w := registration.New(id, s.sub)
	eg.Go(func() error {
		defer s.sub.State.ActiveRegWork.Add(-1)
		return w.Run(ctx, finish)
	})
}

func (s *Supervisor) nextRegID() int {
	return int(s.regIDSeq.Add(1))
}

// autoscaleRegistration implements §4.1's formula: k = max(1, floor(N/3));
// desired = 3 if queue_length > 2k, 2 if > k, else 1. Scale-up forks new
// workers directly into the current day's errgroup; scale-down sends one
// sentinel per worker to retire, consumed by whichever idle worker reads
// it first, which then exits and decrements the active count itself.
func (s *Supervisor) autoscaleRegistration(ctx context.Context) {
	k := int64(s.cfg.Capacity) / 3
	if k < 1 {
		k = 1
	}
	q := s.sub.State.QueueLength.Load()

	desired := int32(1)
	switch {
	case q > 2*k:
		desired = 3
	case q > k:
		desired = 2
	}

	current := s.sub.State.ActiveRegWork.Load()
	switch {
	case desired > current:
		for i := int32(0); i < desired-current; i++ {
			s.spawnRegistrationWorker(ctx, s.dayFinish, s.dayEG, s.nextRegID())
		}
		s.log.Debug("registration scaled up", zap.Int32("from", current), zap.Int32("to", desired))
	case desired < current:
		for i := int32(0); i < current-desired; i++ {
			s.sub.Reg.SendSentinel()
		}
		s.log.Debug("registration scaled down", zap.Int32("from", current), zap.Int32("to", desired))
	}
}

// rolloverDay implements §4.1's daily tear-down: signal finish-after-
// current to every clerk and registration worker, wait for them to drain
// (each clerk emits its own unserved-case report lines as it exits, per
// §4.3), reset per-day counters, open the next day's report, and respawn
// the static roster.
func (s *Supervisor) rolloverDay(ctx context.Context, oldDay, newDay int64) error {
	s.log.Info("tearing down day", zap.Int64("day", oldDay))
	close(s.dayFinish)
	if err := s.dayEG.Wait(); err != nil {
		s.log.Warn("day worker exited with error", zap.Error(err))
	}

	var cleanupErr error
	cleanupErr = multierr.Append(cleanupErr, substrate.WriteDaySummary(s.cfg.ReportDir, oldDay, s.sub.State))
	s.sub.State.ResetDay()
	cleanupErr = multierr.Append(cleanupErr, s.report.Close())
	if cleanupErr != nil {
		s.log.Warn("day teardown had errors", zap.Error(cleanupErr))
	}
	report, err := substrate.OpenReport(s.cfg.ReportDir, newDay)
	if err != nil {
		return errors.Wrapf(err, "open report for day %d", newDay)
	}
	s.report = report

	s.dayEG, s.dayFinish = s.startDayWorkers(ctx)
	s.log.Info("day respawned", zap.Int64("day", newDay))
	return nil
}
