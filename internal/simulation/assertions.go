package simulation

import (
	"math"
	"testing"

	"github.com/nvandessel/ternkit/internal/control"
)

// AssertModeAt asserts the mode active after a specific tick.
func AssertModeAt(t *testing.T, result RunResult, tick int, want control.Mode) {
	t.Helper()
	if tick < 0 || tick >= len(result.Samples) {
		t.Fatalf("AssertModeAt: tick %d out of range (%d samples)", tick, len(result.Samples))
	}
	if got := result.Samples[tick].Mode; got != want {
		t.Errorf("AssertModeAt: tick %d: mode %s, want %s", tick, got, want)
	}
}

// AssertModeFrom asserts the machine holds a mode for every tick at or
// after fromTick.
func AssertModeFrom(t *testing.T, result RunResult, fromTick int, want control.Mode) {
	t.Helper()
	for i := fromTick; i < len(result.Samples); i++ {
		if got := result.Samples[i].Mode; got != want {
			t.Errorf("AssertModeFrom: tick %d [%s]: mode %s, want %s", i, result.Samples[i].Phase, got, want)
			return
		}
	}
}

// AssertModeNever asserts a mode is never entered in any sampled tick.
func AssertModeNever(t *testing.T, result RunResult, mode control.Mode) {
	t.Helper()
	for _, s := range result.Samples {
		if s.Mode == mode {
			t.Errorf("AssertModeNever: tick %d [%s] entered %s", s.Tick, s.Phase, mode)
			return
		}
	}
}

// AssertFinalMode asserts the mode after the last tick.
func AssertFinalMode(t *testing.T, result RunResult, want control.Mode) {
	t.Helper()
	if got := result.Final.Mode; got != want {
		t.Errorf("AssertFinalMode: mode %s, want %s", got, want)
	}
}

// AssertOutputBounded asserts that no command is NaN or exceeds the limit
// in magnitude in any sampled tick.
func AssertOutputBounded(t *testing.T, result RunResult, limit float64) {
	t.Helper()
	for _, s := range result.Samples {
		if math.IsNaN(s.Output) {
			t.Errorf("AssertOutputBounded: tick %d [%s] output is NaN", s.Tick, s.Phase)
			return
		}
		if math.Abs(s.Output) > limit {
			t.Errorf("AssertOutputBounded: tick %d [%s] output %.4f exceeds %.4f", s.Tick, s.Phase, s.Output, limit)
			return
		}
	}
}

// AssertTransitions asserts the total number of realized mode transitions,
// forced ones included.
func AssertTransitions(t *testing.T, result RunResult, want uint64) {
	t.Helper()
	if got := result.Final.Transitions; got != want {
		t.Errorf("AssertTransitions: %d transitions, want %d", got, want)
	}
}

// AssertZeroOutputFrom asserts the command is exactly zero for every tick
// at or after fromTick, the emergency posture.
func AssertZeroOutputFrom(t *testing.T, result RunResult, fromTick int) {
	t.Helper()
	for i := fromTick; i < len(result.Samples); i++ {
		if s := result.Samples[i]; s.Output != 0 {
			t.Errorf("AssertZeroOutputFrom: tick %d [%s] output %.6f, want 0", s.Tick, s.Phase, s.Output)
			return
		}
	}
}
