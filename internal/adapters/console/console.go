// Package console is the interactive operator REPL for a running
// supervisor, adapted from the teacher project's CLI adapter: a
// chzyer/readline-driven command loop started as a background service
// with idempotent Start/Stop.
package console

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/kurtskinny/officesim/internal/infra/logger"
	"github.com/kurtskinny/officesim/internal/supervisor"
	"go.uber.org/zap"
)

type commandDescriptor struct {
	name        string
	description string
}

var commandDescriptors = []commandDescriptor{
	{name: "help", description: "show available commands"},
	{name: "status", description: "print day, sim time, office status, queue length"},
	{name: "evacuate", description: "trigger hard evacuation and shut down"},
	{name: "quit", description: "alias for evacuate"},
}

// Service is the operator console bound to one Supervisor.
type Service struct {
	sup *supervisor.Supervisor
	log *zap.Logger

	rl     *readline.Instance
	cancel context.CancelFunc
	wg     sync.WaitGroup

	onceStart sync.Once
	onceStop  sync.Once
}

func New(sup *supervisor.Supervisor) *Service {
	return &Service{sup: sup, log: logger.With("console", 0)}
}

// Start runs the command loop in a background goroutine. Repeated calls
// are no-ops.
func (s *Service) Start(ctx context.Context) {
	s.onceStart.Do(func() {
		rl, err := readline.New("officesim> ")
		if err != nil {
			s.log.Warn("console disabled: readline init failed", zap.Error(err))
			return
		}
		s.rl = rl

		runCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run(runCtx)
		}()
	})
}

// Stop interrupts the readline loop and waits for it to exit. Idempotent.
func (s *Service) Stop() {
	s.onceStop.Do(func() {
		if s.rl != nil {
			_ = s.rl.Close()
		}
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
	})
}

func (s *Service) run(ctx context.Context) {
	s.log.Info("console started")
	defer s.log.Info("console stopped")

	for {
		if ctx.Err() != nil {
			return
		}
		line, err := s.rl.Readline()
		if err != nil {
			return
		}
		if s.handle(strings.TrimSpace(line)) {
			return
		}
	}
}

// handle runs one command and reports whether the console should stop.
func (s *Service) handle(cmd string) bool {
	switch cmd {
	case "help":
		for _, d := range commandDescriptors {
			s.println(d.name + " - " + d.description)
		}
	case "status":
		s.printStatus()
	case "evacuate", "quit":
		s.println("evacuating...")
		s.sup.Evacuate()
		return true
	case "":
	default:
		s.println("unknown command: " + cmd)
	}
	return false
}

func (s *Service) printStatus() {
	st := s.sup.Substrate().State
	status := "Closed"
	if st.IsOpen() {
		status = "Open"
	}
	s.println("day=" + strconv.FormatInt(st.Day.Load(), 10) +
		" sim_time_s=" + strconv.FormatInt(st.SimTimeSec.Load(), 10) +
		" status=" + status +
		" queue_length=" + strconv.FormatInt(st.QueueLength.Load(), 10) +
		" active_registration=" + strconv.FormatInt(int64(st.ActiveRegWork.Load()), 10))
}

func (s *Service) println(line string) {
	if s.rl != nil {
		_, _ = s.rl.Write([]byte(line + "\n"))
		return
	}
	s.log.Info(line)
}
