// Command officesim is the single entry point for every role in the
// simulation's CLI surface (§6): --role supervisor runs the full office
// for its entire lifetime; the remaining role values exercise one worker
// in isolation against a throwaway substrate, for manual/diagnostic use,
// since this implementation's in-process architecture has no standalone
// substrate for a second process to attach to (see DESIGN.md).
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/kurtskinny/officesim/internal/adapters/console"
	"github.com/kurtskinny/officesim/internal/domain"
	"github.com/kurtskinny/officesim/internal/domain/cashier"
	"github.com/kurtskinny/officesim/internal/domain/client"
	"github.com/kurtskinny/officesim/internal/domain/clerk"
	"github.com/kurtskinny/officesim/internal/domain/generator"
	"github.com/kurtskinny/officesim/internal/domain/registration"
	"github.com/kurtskinny/officesim/internal/infra/anchor"
	"github.com/kurtskinny/officesim/internal/infra/concurrency"
	"github.com/kurtskinny/officesim/internal/infra/config"
	"github.com/kurtskinny/officesim/internal/infra/logger"
	"github.com/kurtskinny/officesim/internal/substrate"
	"github.com/kurtskinny/officesim/internal/supervisor"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(cfg.LogLevel)
	logger.EnableFile(filepath.Join(cfg.LogDir, "officesim.log"), 50)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runErr error
	if cfg.Role == domain.RoleSupervisor {
		runErr = runSupervisor(ctx, cfg)
	} else {
		runErr = runStandalone(ctx, cfg)
	}

	if runErr != nil {
		logger.Error("exiting with error", zap.Error(runErr))
		os.Exit(1)
	}
}

func runSupervisor(ctx context.Context, cfg *config.Config) error {
	anc, err := anchor.Acquire(cfg.AnchorPath)
	if err != nil {
		return err
	}

	sup := supervisor.New(cfg, anc)

	con := console.New(sup)
	con.Start(ctx)
	defer con.Stop()

	concurrency.StartTimeoutTimer(ctx, cfg.MaxRuntimeSec, sup.Evacuate)

	return sup.Run(ctx)
}

// runStandalone builds a throwaway substrate with the office already Open
// and runs exactly one worker of the requested role against it, for
// manual exercise of a single actor's behavior outside a full simulation.
func runStandalone(ctx context.Context, cfg *config.Config) error {
	sub := substrate.New(cfg.Capacity, cfg.Quotas, cfg.TimeMul)
	sub.State.SetOpen(true)

	finish := make(chan struct{})

	switch cfg.Role {
	case domain.RoleRegistration:
		return registration.New(1, sub).Run(ctx, finish)
	case domain.RoleClerk:
		report, err := substrate.OpenReport(cfg.ReportDir, 0)
		if err != nil {
			return err
		}
		defer report.Close()
		return clerk.New(1, cfg.Department, sub, report, true).Run(ctx, finish)
	case domain.RoleCashier:
		return cashier.New(sub).Run(ctx, finish)
	case domain.RoleClient:
		return client.New(sub, cfg.Department, cfg.VIP, cfg.Child).Run(ctx)
	case domain.RoleGenerator:
		gen := generator.New(sub, cfg.GenMinDelay, cfg.GenMaxDelay, cfg.GenMaxCount)
		var wg sync.WaitGroup
		err := gen.Run(ctx, func(run func(context.Context) error) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = run(ctx)
			}()
		})
		wg.Wait()
		return err
	default:
		log.Fatalf("--role %s is only meaningful when spawned by the supervisor", cfg.Role)
		return nil
	}
}
