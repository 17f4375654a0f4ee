package simulation

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/nvandessel/ternkit/internal/control"
	"github.com/nvandessel/ternkit/internal/fusion"
	"github.com/nvandessel/ternkit/internal/kernel"
)

// Runner orchestrates multi-tick simulation experiments against a real
// controller and kernel context.
type Runner struct {
	t *testing.T
}

// NewRunner creates a simulation runner.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{t: t}
}

// Run executes the scenario and returns the collected samples.
func (r *Runner) Run(scenario Scenario) RunResult {
	r.t.Helper()

	dt := scenario.DT
	if dt == 0 {
		dt = 0.01
	}
	limit := scenario.ActuatorLimit
	if limit == 0 {
		limit = 10
	}
	modes := control.DefaultModes()
	if scenario.Modes != nil {
		modes = *scenario.Modes
	}

	kctx := scenario.Context
	if kctx == nil {
		params := kernel.DefaultParams()
		if scenario.Kernel != nil {
			params = *scenario.Kernel
		}
		var err error
		kctx, err = kernel.NewContext(params)
		if err != nil {
			r.t.Fatalf("Run(%s): kernel context: %v", scenario.Name, err)
		}
	}

	fusionCfg := fusion.DefaultConfig()
	if scenario.Fusion != nil {
		fusionCfg = *scenario.Fusion
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl, err := control.NewController(dt, limit, modes,
		control.WithKernel(kctx),
		control.WithFusion(fusionCfg),
		control.WithLogger(quiet),
	)
	if err != nil {
		r.t.Fatalf("Run(%s): controller: %v", scenario.Name, err)
	}

	total := 0
	for _, p := range scenario.Phases {
		total += p.Ticks
	}

	samples := make([]TickSample, 0, total)
	tick := 0
	for _, phase := range scenario.Phases {
		for i := 0; i < phase.Ticks; i++ {
			readings := phase.Readings
			if scenario.BeforeTick != nil {
				readings = scenario.BeforeTick(tick, readings)
			}
			ctrl.SetReadings(readings)
			output := ctrl.Tick()

			sample := TickSample{
				Tick:       tick,
				Phase:      phase.Label,
				Mode:       ctrl.Mode(),
				Output:     output,
				Confidence: ctrl.Snapshot().Confidence,
			}
			samples = append(samples, sample)
			if scenario.AfterTick != nil {
				scenario.AfterTick(tick, sample)
			}
			tick++
		}
	}

	return RunResult{
		Samples:    samples,
		Final:      ctrl.Snapshot(),
		Controller: ctrl,
	}
}

// FormatTickDebug returns a debug string for a tick sample.
func FormatTickDebug(s TickSample) string {
	return fmt.Sprintf("tick %d [%s]: mode=%s output=%.4f confidence=%.4f",
		s.Tick, s.Phase, s.Mode, s.Output, s.Confidence)
}
