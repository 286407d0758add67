package motorsim

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gurisko/fide/internal/logging"
)

// DefaultTick is the simulation step.
const DefaultTick = 100 * time.Millisecond

// Sink receives every sample after it is published to viewers.
type Sink interface {
	Record(ctx context.Context, t Telemetry) error
	Close() error
}

// Runner drives a Simulator at a fixed tick and fans its output out.
type Runner struct {
	sim    *Simulator
	hub    *Hub
	sinks  []Sink
	tick   time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func NewRunner(sim *Simulator, hub *Hub, tick time.Duration, logger *zap.Logger, sinks ...Sink) *Runner {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Runner{
		sim:    sim,
		hub:    hub,
		sinks:  sinks,
		tick:   tick,
		logger: logging.Ensure(logger),
		now:    time.Now,
	}
}

// Run steps the simulation every tick until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("motor simulation started",
		zap.Duration("tick", r.tick),
		zap.Int("sinks", len(r.sinks)))

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("motor simulation stopped")
			return nil
		case <-ticker.C:
			r.Step(ctx)
		}
	}
}

// Step advances the model by one tick and emits the resulting sample.
func (r *Runner) Step(ctx context.Context) Telemetry {
	now := r.now()
	r.sim.Update(r.tick.Seconds(), now)
	t := r.sim.Telemetry(now)

	r.logger.Debug("motor",
		zap.Float64("speed_rpm", t.Speed),
		zap.Float64("torque_nm", t.Torque),
		zap.Float64("temp_c", t.Temperature),
		zap.Float64("current_a", t.Current))

	dropped := 0
	for _, msg := range DLTRegisters(t) {
		dropped += r.hub.Publish(msg)
	}
	if dropped > 0 {
		r.logger.Warn("disconnected lagging viewers", zap.Int("count", dropped))
	}

	for _, s := range r.sinks {
		if err := s.Record(ctx, t); err != nil {
			r.logger.Warn("telemetry sink failed", zap.Error(err))
		}
	}
	return t
}
