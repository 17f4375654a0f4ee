package control

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/nvandessel/ternkit/internal/constants"
	"github.com/nvandessel/ternkit/internal/fusion"
	"github.com/nvandessel/ternkit/internal/kernel"
	"github.com/nvandessel/ternkit/internal/logging"
	"github.com/nvandessel/ternkit/internal/ternary"
)

// Stats is a read-only snapshot of one controller's counters.
type Stats struct {
	ID              string
	Tick            uint64
	Mode            Mode
	TimeInMode      float64
	Output          float64
	Confidence      float64
	AvgConfidence   float64
	MeanVariance    float64
	SaturationCount uint64
	RateLimitCount  uint64
	Transitions     uint64
}

// Controller runs the per-tick control loop: fuse the current readings,
// update the mode machine on the fused confidence, map confidence to an
// output through the active mode's curve, then rate-limit and clamp.
//
// A Controller is confined to one goroutine. Sharing a kernel context
// across controllers is safe; sharing a Controller is not.
type Controller struct {
	id            string
	dt            float64
	actuatorLimit float64

	fuser *fusion.Fuser
	modes *ModeController

	readings []fusion.Reading

	output        float64
	prevOutput    float64
	confidence    float64
	avgConfidence float64
	meanVariance  float64

	tick            uint64
	saturationCount uint64
	rateLimitCount  uint64

	logger *slog.Logger
	trace  *logging.TraceLogger

	kctx      *kernel.Context
	fusionCfg fusion.Config
}

// Option customizes a Controller at construction.
type Option func(*Controller)

// WithKernel shares an explicit kernel context instead of the process
// default.
func WithKernel(kctx *kernel.Context) Option {
	return func(c *Controller) { c.kctx = kctx }
}

// WithFusion overrides the fusion configuration.
func WithFusion(cfg fusion.Config) Option {
	return func(c *Controller) { c.fusionCfg = cfg }
}

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithTrace attaches a decision trace. Nil is fine; tracing is skipped.
func WithTrace(trace *logging.TraceLogger) Option {
	return func(c *Controller) { c.trace = trace }
}

// NewController builds a controller ticking every dt seconds with outputs
// clamped to [-actuatorLimit, +actuatorLimit].
func NewController(dt, actuatorLimit float64, modes ModeSet, opts ...Option) (*Controller, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("control: dt %.4f must be positive: %w", dt, ternary.ErrContract)
	}
	if actuatorLimit <= 0 {
		return nil, fmt.Errorf("control: actuator limit %.4f must be positive: %w", actuatorLimit, ternary.ErrContract)
	}
	mc, err := NewModeController(modes)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		id:            uuid.NewString(),
		dt:            dt,
		actuatorLimit: actuatorLimit,
		modes:         mc,
		confidence:    1,
		avgConfidence: 1,
		fusionCfg:     fusion.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.fuser = fusion.New(c.kctx, c.fusionCfg)
	return c, nil
}

// ID returns the controller's unique identifier.
func (c *Controller) ID() string {
	return c.id
}

// Kernel returns the kernel context the controller adapts.
func (c *Controller) Kernel() *kernel.Context {
	return c.fuser.Kernel()
}

// SetReadings installs the sensor array consumed by subsequent Ticks. The
// slice is copied; readings persist until replaced.
func (c *Controller) SetReadings(readings []fusion.Reading) {
	c.readings = append(c.readings[:0], readings...)
}

// Tick runs one control cycle and returns the actuator command. An empty
// reading set fuses to zero confidence, which drops the machine to
// Emergency and forces a zero command.
func (c *Controller) Tick() float64 {
	res := c.fuser.Fuse(c.readings)
	c.confidence = res.Confidence
	c.meanVariance = res.MeanVariance

	before := c.modes.Mode()
	pack := c.modes.Update(res.Confidence, c.dt)
	mode := c.modes.Mode()
	if mode != before {
		c.logger.Debug("mode transition",
			"controller", c.id,
			"tick", c.tick,
			"from", before.String(),
			"to", mode.String(),
			"confidence", res.Confidence)
		c.trace.Record("mode_transition", map[string]any{
			"controller": c.id,
			"tick":       c.tick,
			"from":       before.String(),
			"to":         mode.String(),
			"confidence": res.Confidence,
		})
	}

	raw := computeOutput(pack, res.Confidence)
	if saturated(raw, pack) {
		c.saturationCount++
	}

	limited := rateLimit(raw, c.output, pack.RateLimit)
	if math.Abs(limited-raw) > constants.SaturationEpsilon {
		c.rateLimitCount++
	}

	if mode == ModeEmergency {
		limited = 0
	}
	limited = clamp(limited, -c.actuatorLimit, c.actuatorLimit)

	c.avgConfidence = constants.MovingAverageAlpha*c.avgConfidence +
		(1-constants.MovingAverageAlpha)*res.Confidence
	c.prevOutput = c.output
	c.output = limited
	c.tick++
	return limited
}

// ForceMode moves the mode machine unconditionally. It is the only path
// out of Emergency.
func (c *Controller) ForceMode(m Mode) error {
	before := c.modes.Mode()
	if err := c.modes.Force(m); err != nil {
		return err
	}
	c.logger.Info("mode forced",
		"controller", c.id,
		"from", before.String(),
		"to", m.String())
	c.trace.Record("mode_forced", map[string]any{
		"controller": c.id,
		"tick":       c.tick,
		"from":       before.String(),
		"to":         m.String(),
	})
	return nil
}

// Mode returns the active mode.
func (c *Controller) Mode() Mode {
	return c.modes.Mode()
}

// ResetStatistics zeroes the outputs and counters and restores the initial
// optimistic confidence. The mode machine and any kernel adaptation are
// left alone.
func (c *Controller) ResetStatistics() {
	c.output = 0
	c.prevOutput = 0
	c.confidence = 1
	c.avgConfidence = 1
	c.meanVariance = 0
	c.tick = 0
	c.saturationCount = 0
	c.rateLimitCount = 0
}

// Snapshot returns the current counters.
func (c *Controller) Snapshot() Stats {
	return Stats{
		ID:              c.id,
		Tick:            c.tick,
		Mode:            c.modes.Mode(),
		TimeInMode:      c.modes.TimeInMode(),
		Output:          c.output,
		Confidence:      c.confidence,
		AvgConfidence:   c.avgConfidence,
		MeanVariance:    c.meanVariance,
		SaturationCount: c.saturationCount,
		RateLimitCount:  c.rateLimitCount,
		Transitions:     c.modes.Transitions(),
	}
}
