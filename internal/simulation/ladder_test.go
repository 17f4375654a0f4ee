package simulation_test

import (
	"testing"

	"github.com/nvandessel/ternkit/internal/control"
	"github.com/nvandessel/ternkit/internal/simulation"
)

// TestConfidenceLadderWalkdown validates the graceful degradation path.
// Sustained 0.3 confidence sits below the Degraded exit band (0.35) but
// above the emergency floor (0.05), so the machine should walk Nominal ->
// Degraded -> Safe, honoring each mode's dwell time, and then hold Safe.
//
// At dt=0.01 the Nominal dwell (0.5s) passes near tick 50 and the
// Degraded dwell (0.3s) near 30 ticks later. Dwell accrual is a float
// sum, so assertions leave a few ticks of slack around each boundary.
func TestConfidenceLadderWalkdown(t *testing.T) {
	r := simulation.NewRunner(t)

	result := r.Run(simulation.Scenario{
		Name: "ladder-walkdown",
		Phases: []simulation.Phase{
			simulation.SteadyPhase("healthy", 10, 1.0),
			simulation.SteadyPhase("doubtful", 300, 0.3),
		},
	})

	simulation.AssertModeAt(t, result, 9, control.ModeNominal)
	simulation.AssertModeAt(t, result, 45, control.ModeNominal) // dwell still holds
	simulation.AssertModeAt(t, result, 55, control.ModeDegraded)
	simulation.AssertModeAt(t, result, 75, control.ModeDegraded) // dwell still holds
	simulation.AssertModeFrom(t, result, 90, control.ModeSafe)
	simulation.AssertModeNever(t, result, control.ModeEmergency)
	simulation.AssertFinalMode(t, result, control.ModeSafe)
	simulation.AssertTransitions(t, result, 2)
	simulation.AssertOutputBounded(t, result, 10)
}

// TestConfidenceLadderRecovery validates the climb back up. Confidence
// restored to 0.9 clears both rejoin bands (0.45 from Safe, 0.75 from
// Degraded), so the machine should climb Safe -> Degraded -> Nominal,
// waiting out the Safe dwell (2s = 200 ticks) before the first step.
func TestConfidenceLadderRecovery(t *testing.T) {
	r := simulation.NewRunner(t)

	result := r.Run(simulation.Scenario{
		Name: "ladder-recovery",
		Phases: []simulation.Phase{
			simulation.SteadyPhase("doubtful", 100, 0.3), // walk down to Safe
			simulation.SteadyPhase("restored", 350, 0.9),
		},
	})

	// Safe is entered near tick 80, so its 2s dwell releases near tick 280.
	simulation.AssertModeAt(t, result, 99, control.ModeSafe)
	simulation.AssertModeAt(t, result, 260, control.ModeSafe) // Safe dwell holds
	simulation.AssertModeAt(t, result, 290, control.ModeDegraded)
	simulation.AssertModeFrom(t, result, 320, control.ModeNominal)
	simulation.AssertModeNever(t, result, control.ModeEmergency)
}
