package simulation

import (
	"github.com/nvandessel/ternkit/internal/control"
	"github.com/nvandessel/ternkit/internal/fusion"
	"github.com/nvandessel/ternkit/internal/kernel"
)

// Scenario defines a complete simulation experiment.
type Scenario struct {
	Name          string
	DT            float64 // tick period in seconds; 0 means 0.01
	ActuatorLimit float64 // final command clamp; 0 means 10
	Phases        []Phase

	Modes  *control.ModeSet
	Kernel *kernel.Params
	Fusion *fusion.Config

	// Context, when non-nil, shares an existing kernel context instead of
	// building a fresh one from Kernel. Use this for scenarios that span
	// multiple runs against the same adaptive state.
	Context *kernel.Context

	// BeforeTick, when non-nil, is called with the global tick index and
	// the phase's readings before each tick; its return value replaces
	// that tick's readings. Use this for per-tick manipulation such as
	// failure injection or closed-loop sensing.
	BeforeTick func(tick int, readings []fusion.Reading) []fusion.Reading

	// AfterTick, when non-nil, is called after each tick with the sample
	// just taken. Use this to feed the command back into an external
	// plant between ticks.
	AfterTick func(tick int, sample TickSample)
}

// Phase is a run of ticks fed with the same reading set.
type Phase struct {
	// Label is an optional human-readable tag for debugging output.
	Label    string
	Ticks    int
	Readings []fusion.Reading
}

// TickSample captures the outcome of a single control tick.
type TickSample struct {
	Tick       int
	Phase      string
	Mode       control.Mode
	Output     float64
	Confidence float64
}

// RunResult captures all samples and the final controller state.
type RunResult struct {
	Samples    []TickSample
	Final      control.Stats
	Controller *control.Controller
}

// ModeAt returns the mode active after the given tick.
func (r RunResult) ModeAt(tick int) control.Mode {
	return r.Samples[tick].Mode
}
