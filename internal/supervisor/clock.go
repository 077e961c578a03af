package supervisor

import (
	"context"
	"time"

	"github.com/kurtskinny/officesim/internal/infra/config"
	"github.com/kurtskinny/officesim/internal/substrate"
	"go.uber.org/zap"
)

// graceSeconds is the additional simulated time the office stays ticking
// after closing, to let in-flight work drain (§4.1 step 3: "continue
// ticking for an additional 120 seconds of grace").
const graceSeconds = 120

// clock is the Supervisor's own cooperative clock task (§4.1 "Clock"). It
// owns simulated time and office status; the main supervisor loop only
// observes day rollover by polling AdmissionState.Day.
type clock struct {
	sub     *substrate.Substrate
	cfg     *config.Config
	log     *zap.Logger
	restart chan struct{} // signalled by the main loop: "begin the next day"
}

func newClock(sub *substrate.Substrate, cfg *config.Config, log *zap.Logger) *clock {
	return &clock{
		sub:     sub,
		cfg:     cfg,
		log:     log,
		restart: make(chan struct{}),
	}
}

// tickInterval converts the configured time multiplier into a real-time
// interval per simulated second, matching the scaling convention ported
// from the source's kasa.cpp/urzednik.cpp delay formula (minutes *
// 60000/time_mul milliseconds), applied here to a 1-second simulated tick.
func tickInterval(timeMul int64) time.Duration {
	if timeMul <= 0 {
		timeMul = 1
	}
	d := time.Second / time.Duration(timeMul)
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

// run drives the day loop of §4.1: wait for a restart signal, open the
// office, tick simulated time until closing plus the grace period, then
// increment the day and wait again. It never exits on its own; only ctx
// cancellation (evacuation/shutdown) stops it.
func (c *clock) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.restart:
		}
		if err := c.runOneDay(ctx); err != nil {
			return err
		}
	}
}

func (c *clock) runOneDay(ctx context.Context) error {
	day := c.sub.State.Day.Load()
	c.sub.State.SimTimeSec.Store(int64(c.cfg.OpenHour) * 3600)
	c.sub.State.SetOpen(true)
	c.log.Info("day open", zap.Int64("day", day), zap.Int("open_hour", c.cfg.OpenHour))

	interval := tickInterval(c.sub.State.TimeMul.Load())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	closed := false
	grace := graceSeconds
	closeAt := int64(c.cfg.CloseHour) * 3600

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t := c.sub.State.SimTimeSec.Add(1)
			if !closed && t >= closeAt {
				c.sub.State.SetOpen(false)
				closed = true
				c.log.Info("office closed", zap.Int64("day", day))
				continue
			}
			if !closed {
				continue
			}
			grace--
			if grace <= 0 {
				c.sub.State.Day.Add(1)
				c.log.Info("end of day", zap.Int64("day", day))
				return nil
			}
		}
	}
}
