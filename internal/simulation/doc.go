// Package simulation provides a multi-tick test harness for validating
// emergent dynamics of the control loop.
//
// The simulation exercises the real Fuser, kernel Context, and Controller
// with no mocks. Scenarios are Go builders that construct phased reading
// schedules and run configurable numbers of control ticks, capturing
// per-tick samples for property-based assertions.
//
// Usage:
//
//	func TestConfidenceLadder(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name: "ladder",
//	        Phases: []simulation.Phase{
//	            simulation.SteadyPhase("healthy", 10, 1.0),
//	            simulation.SteadyPhase("doubtful", 300, 0.3),
//	        },
//	    })
//	    simulation.AssertFinalMode(t, result, control.ModeSafe)
//	}
package simulation
