// Package control implements the confidence-driven control loop: a
// hysteresis mode machine over fused confidence, a piecewise-linear
// confidence-to-output map per mode, and a Controller that ties them to
// sensor fusion tick by tick.
package control

import (
	"fmt"

	"github.com/nvandessel/ternkit/internal/constants"
	"github.com/nvandessel/ternkit/internal/ternary"
)

// Mode is one of four operating regimes, ordered from most to least
// permissive.
type Mode int

const (
	ModeNominal Mode = iota
	ModeDegraded
	ModeSafe
	ModeEmergency
)

// NumModes is the number of operating regimes.
const NumModes = 4

func (m Mode) String() string {
	switch m {
	case ModeNominal:
		return "NOMINAL"
	case ModeDegraded:
		return "DEGRADED"
	case ModeSafe:
		return "SAFE"
	case ModeEmergency:
		return "EMERGENCY"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Valid reports whether m names a real mode.
func (m Mode) Valid() bool {
	return m >= ModeNominal && m < NumModes
}

// ModeParams bundle one mode's entry threshold, hysteresis band, minimum
// dwell time, and output map. Transition bounds are derived from these
// packs rather than hard-coded, so retuning a pack retunes the machine.
type ModeParams struct {
	// EntryThreshold is the confidence level associated with the mode.
	// Dropping below it (minus the hysteresis band) leaves the mode for
	// the next one down; climbing above it (plus the lower mode's band)
	// returns from below.
	EntryThreshold float64

	// Hysteresis half-width keeps the machine from chattering at the
	// threshold.
	Hysteresis float64

	// MinDwell is the minimum residence time in seconds before a
	// non-emergency transition out of this mode is realized.
	MinDwell float64

	// Output is the confidence-to-output map active in this mode.
	Output OutputParams
}

// ModeSet holds the parameter packs for all four modes, indexed by Mode.
type ModeSet [NumModes]ModeParams

// DefaultModes returns the standard mode packs. The values are defaults,
// not contracts; Validate is the only gate on alternatives.
func DefaultModes() ModeSet {
	return ModeSet{
		ModeNominal: {
			EntryThreshold: 0.70,
			Hysteresis:     0.05,
			MinDwell:       0.5,
			Output: OutputParams{
				CLow: 0.60, CHigh: 0.90,
				UMin: -10.0, UNominal: 0.0, UMax: 10.0,
				GainLow: 2.0, GainHigh: 1.0,
				RateLimit: 5.0,
			},
		},
		ModeDegraded: {
			EntryThreshold: 0.40,
			Hysteresis:     0.05,
			MinDwell:       0.3,
			Output: OutputParams{
				CLow: 0.30, CHigh: 0.80,
				UMin: -5.0, UNominal: 0.0, UMax: 5.0,
				GainLow: 1.5, GainHigh: 1.2,
				RateLimit: 2.0,
			},
		},
		ModeSafe: {
			EntryThreshold: 0.10,
			Hysteresis:     0.05,
			MinDwell:       2.0,
			Output: OutputParams{
				CLow: 0.05, CHigh: 0.50,
				UMin: -1.0, UNominal: 0.0, UMax: 1.0,
				GainLow: 1.0, GainHigh: 1.0,
				RateLimit: 0.5,
			},
		},
		ModeEmergency: {
			EntryThreshold: 0.0,
			Hysteresis:     0.0,
			MinDwell:       0.0,
			Output:         OutputParams{},
		},
	}
}

// Validate rejects mode sets the machine cannot run on. Entry thresholds
// must be monotone non-increasing from Nominal down so the derived bands
// nest properly.
func (s ModeSet) Validate() error {
	for m := ModeNominal; m < NumModes; m++ {
		p := s[m]
		if p.EntryThreshold < 0 || p.EntryThreshold > 1 {
			return fmt.Errorf("control: %s entry threshold %.3f outside [0, 1]: %w", m, p.EntryThreshold, ternary.ErrContract)
		}
		if p.Hysteresis < 0 {
			return fmt.Errorf("control: %s hysteresis %.3f must be non-negative: %w", m, p.Hysteresis, ternary.ErrContract)
		}
		if p.MinDwell < 0 {
			return fmt.Errorf("control: %s dwell %.3f must be non-negative: %w", m, p.MinDwell, ternary.ErrContract)
		}
		if err := p.Output.Validate(); err != nil {
			return fmt.Errorf("control: %s output: %w", m, err)
		}
	}
	for m := ModeNominal; m < ModeEmergency; m++ {
		if s[m].EntryThreshold < s[m+1].EntryThreshold {
			return fmt.Errorf("control: entry thresholds must not increase from %s to %s: %w", m, m+1, ternary.ErrContract)
		}
	}
	return nil
}

// ModeController realizes the hysteresis state machine over fused
// confidence. It is not safe for concurrent use; the owning Controller
// serializes access.
type ModeController struct {
	modes       ModeSet
	mode        Mode
	timeInMode  float64
	transitions uint64
	history     [constants.ConfidenceHistorySize]float64
	historyIdx  int
}

// NewModeController starts a machine in Nominal.
func NewModeController(modes ModeSet) (*ModeController, error) {
	if err := modes.Validate(); err != nil {
		return nil, err
	}
	return &ModeController{modes: modes}, nil
}

// Update advances the machine one tick: it accrues dt of residence,
// records the confidence sample, and realizes at most one transition.
// Non-emergency transitions wait out the current mode's MinDwell; the
// drop to Emergency is immediate. It returns the output map of the mode
// active after the update.
func (mc *ModeController) Update(confidence, dt float64) OutputParams {
	confidence = ternary.Clamp(confidence)
	mc.timeInMode += dt
	mc.history[mc.historyIdx] = confidence
	mc.historyIdx = (mc.historyIdx + 1) % len(mc.history)

	target := mc.target(confidence)
	if target != mc.mode {
		if target == ModeEmergency || mc.timeInMode >= mc.modes[mc.mode].MinDwell {
			mc.transition(target)
		}
	}
	return mc.modes[mc.mode].Output
}

// target derives the desired mode from the packs. With the default packs
// the bounds come out to: leave Nominal below 0.65, rejoin above 0.75,
// leave Degraded below 0.35, rejoin above 0.45, Emergency below 0.05.
// Emergency has no confidence-driven exit; recovery is by Force.
func (mc *ModeController) target(confidence float64) Mode {
	if confidence < mc.emergencyBound() {
		return ModeEmergency
	}
	switch mc.mode {
	case ModeNominal:
		if confidence < mc.modes[ModeNominal].EntryThreshold-mc.modes[ModeNominal].Hysteresis {
			return ModeDegraded
		}
	case ModeDegraded:
		if confidence > mc.modes[ModeNominal].EntryThreshold+mc.modes[ModeDegraded].Hysteresis {
			return ModeNominal
		}
		if confidence < mc.modes[ModeDegraded].EntryThreshold-mc.modes[ModeDegraded].Hysteresis {
			return ModeSafe
		}
	case ModeSafe:
		if confidence > mc.modes[ModeDegraded].EntryThreshold+mc.modes[ModeSafe].Hysteresis {
			return ModeDegraded
		}
	case ModeEmergency:
	}
	return mc.mode
}

// emergencyBound is the confidence floor below which any mode drops
// straight to Emergency, bypassing dwell.
func (mc *ModeController) emergencyBound() float64 {
	return mc.modes[ModeSafe].EntryThreshold - mc.modes[ModeSafe].Hysteresis
}

func (mc *ModeController) transition(target Mode) {
	mc.mode = target
	mc.timeInMode = 0
	mc.transitions++
}

// Force moves the machine to target unconditionally, resetting residence
// time. It is the only way out of Emergency.
func (mc *ModeController) Force(target Mode) error {
	if !target.Valid() {
		return fmt.Errorf("control: force to %s: %w", target, ternary.ErrContract)
	}
	mc.transition(target)
	return nil
}

// Mode returns the active mode.
func (mc *ModeController) Mode() Mode {
	return mc.mode
}

// Params returns the parameter pack of the active mode.
func (mc *ModeController) Params() ModeParams {
	return mc.modes[mc.mode]
}

// TimeInMode returns seconds of residence in the active mode.
func (mc *ModeController) TimeInMode() float64 {
	return mc.timeInMode
}

// Transitions returns how many transitions the machine has realized,
// forced ones included.
func (mc *ModeController) Transitions() uint64 {
	return mc.transitions
}

// History returns the recent confidence samples, oldest first. Slots not
// yet written read as zero.
func (mc *ModeController) History() []float64 {
	out := make([]float64, len(mc.history))
	for i := range mc.history {
		out[i] = mc.history[(mc.historyIdx+i)%len(mc.history)]
	}
	return out
}
