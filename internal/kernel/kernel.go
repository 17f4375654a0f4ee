// Package kernel holds the shared tunable state of the confidence kernel:
// the adaptive decision threshold with its Bayesian pseudo-counts, the
// logistic coercion table, and the variance weight table used by sensor
// fusion.
//
// State lives in an explicit Context rather than package globals. Callers
// that want shared adaptation pass the same Context (or use Default, which
// is created once per process); callers that need isolation construct one
// Context each. All methods are safe for concurrent use.
package kernel

import (
	"fmt"
	"sync"

	"github.com/nvandessel/ternkit/internal/constants"
	"github.com/nvandessel/ternkit/internal/ternary"
)

// Params configures a Context.
type Params struct {
	// Theta is the confidence floor below which coercion is considered.
	Theta float64

	// Alpha and Beta are the Bayesian pseudo-counts of correct and
	// incorrect decisions seeding threshold adaptation.
	Alpha float64
	Beta  float64

	// SigmoidSteepness and SigmoidOffset shape the logistic curve that
	// grades coercion strength for confidences below Theta.
	SigmoidSteepness float64
	SigmoidOffset    float64

	// VarianceThreshold is the mean sensor variance above which fusion
	// inflates the threshold to demand more agreement.
	VarianceThreshold float64

	// Enabled gates coercion. Observation and variance tracking continue
	// regardless so a re-enabled threshold resumes from adapted state.
	Enabled bool
}

// DefaultParams returns the standard kernel tuning.
func DefaultParams() Params {
	return Params{
		Theta:             constants.DefaultTheta,
		Alpha:             constants.DefaultAlpha,
		Beta:              constants.DefaultBeta,
		SigmoidSteepness:  constants.DefaultSigmoidSteepness,
		SigmoidOffset:     constants.DefaultSigmoidOffset,
		VarianceThreshold: constants.DefaultVarianceThreshold,
		Enabled:           true,
	}
}

// Validate rejects parameter sets the kernel cannot run on.
func (p Params) Validate() error {
	if p.Theta < 0 || p.Theta > 1 {
		return fmt.Errorf("kernel: theta %.3f outside [0, 1]: %w", p.Theta, ternary.ErrContract)
	}
	if p.Alpha <= 0 || p.Beta <= 0 {
		return fmt.Errorf("kernel: pseudo-counts alpha=%.3f beta=%.3f must be positive: %w", p.Alpha, p.Beta, ternary.ErrContract)
	}
	if p.SigmoidSteepness <= 0 {
		return fmt.Errorf("kernel: sigmoid steepness %.3f must be positive: %w", p.SigmoidSteepness, ternary.ErrContract)
	}
	if p.SigmoidOffset < 0 || p.SigmoidOffset > 1 {
		return fmt.Errorf("kernel: sigmoid offset %.3f outside [0, 1]: %w", p.SigmoidOffset, ternary.ErrContract)
	}
	if p.VarianceThreshold < 0 {
		return fmt.Errorf("kernel: variance threshold %.3f must be non-negative: %w", p.VarianceThreshold, ternary.ErrContract)
	}
	return nil
}

// Context is one instance of kernel state. The zero value is not usable;
// construct with NewContext or take Default.
type Context struct {
	mu        sync.Mutex
	params    Params
	sigmoid   [constants.LUTSize]float64
	varWeight [constants.LUTSize]float64
	observed  uint64
}

// NewContext builds a Context from validated parameters and precomputes
// both lookup tables.
func NewContext(p Params) (*Context, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	c := &Context{params: p}
	c.rebuildSigmoidLocked()
	for i := range c.varWeight {
		v := float64(i) / float64(len(c.varWeight)-1)
		c.varWeight[i] = 1.0 / (1.0 + v)
	}
	return c, nil
}

var (
	defaultOnce sync.Once
	defaultCtx  *Context
)

// Default returns the process-wide Context, created with DefaultParams on
// first use. Controllers that share it also share threshold adaptation.
func Default() *Context {
	defaultOnce.Do(func() {
		// DefaultParams always validates.
		defaultCtx, _ = NewContext(DefaultParams())
	})
	return defaultCtx
}

// Snapshot returns a copy of the current parameters, reflecting any
// adaptation since construction.
func (c *Context) Snapshot() Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// Theta returns the current decision threshold.
func (c *Context) Theta() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params.Theta
}

// Enabled reports whether coercion is active.
func (c *Context) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params.Enabled
}

// SetEnabled toggles coercion without disturbing adapted state.
func (c *Context) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params.Enabled = enabled
}

// Observations returns how many outcomes have been fed to Observe.
func (c *Context) Observations() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.observed
}
