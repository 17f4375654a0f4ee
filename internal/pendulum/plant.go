// Package pendulum models a torque-driven double pendulum and the sensor
// rig that reports on it. The plant integrates the full Lagrangian
// equations of motion with a fourth-order Runge-Kutta step, so the
// dynamics stay faithful well outside the small-angle region. The rig
// turns plant state into graded sensor readings for the fusion engine.
package pendulum

import (
	"fmt"
	"math"

	"github.com/nvandessel/ternkit/internal/ternary"
)

// Controllable region bounds. Inside them the small-angle approximation
// holds and proportional control has authority.
const (
	// MaxControllableAngle is the largest joint angle, in radians, at
	// which the plant still counts as controllable.
	MaxControllableAngle = 0.5

	// MaxControllableRate is the largest joint velocity, in radians per
	// second, at which the plant still counts as controllable.
	MaxControllableRate = 2.0
)

// Params holds the physical constants of the plant. Masses are in
// kilograms, lengths in meters, damping in newton-meter-seconds per
// radian, and torque in newton-meters.
type Params struct {
	M1, M2    float64 // joint masses
	L1, L2    float64 // arm lengths
	G         float64 // gravitational acceleration
	B1, B2    float64 // viscous damping per joint
	TorqueMax float64 // actuator limit, applied symmetrically
}

// DefaultParams returns a one-meter, one-kilogram plant with light
// damping under standard gravity.
func DefaultParams() Params {
	return Params{
		M1: 1.0, M2: 1.0,
		L1: 1.0, L2: 1.0,
		G:  9.81,
		B1: 0.1, B2: 0.1,
		TorqueMax: 10.0,
	}
}

// Validate reports whether the parameters describe a physical plant.
func (p Params) Validate() error {
	switch {
	case !(p.M1 > 0) || !(p.M2 > 0):
		return fmt.Errorf("pendulum: masses must be positive: %w", ternary.ErrContract)
	case !(p.L1 > 0) || !(p.L2 > 0):
		return fmt.Errorf("pendulum: arm lengths must be positive: %w", ternary.ErrContract)
	case !(p.G > 0):
		return fmt.Errorf("pendulum: gravity must be positive: %w", ternary.ErrContract)
	case p.B1 < 0 || p.B2 < 0 || math.IsNaN(p.B1) || math.IsNaN(p.B2):
		return fmt.Errorf("pendulum: damping must be non-negative: %w", ternary.ErrContract)
	case !(p.TorqueMax > 0):
		return fmt.Errorf("pendulum: torque limit must be positive: %w", ternary.ErrContract)
	}
	return nil
}

// State is the plant configuration. Angles are measured from the hanging
// position, in radians.
type State struct {
	Theta1, Omega1 float64
	Theta2, Omega2 float64
}

// Plant is a double pendulum with a torque actuator on the first joint.
// It is not safe for concurrent use.
type Plant struct {
	params Params
	state  State
}

// NewPlant builds a plant at the hanging rest position.
func NewPlant(params Params) (*Plant, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Plant{params: params}, nil
}

// Params returns the physical constants.
func (p *Plant) Params() Params { return p.params }

// State returns the current configuration.
func (p *Plant) State() State { return p.state }

// SetState replaces the plant configuration, normalizing both angles.
func (p *Plant) SetState(s State) {
	s.Theta1 = normalizeAngle(s.Theta1)
	s.Theta2 = normalizeAngle(s.Theta2)
	p.state = s
}

// Step advances the plant by dt seconds under the given torque. The
// torque saturates at the actuator limit before it reaches the dynamics,
// and both angles are normalized to [-pi, pi) after integration.
func (p *Plant) Step(torque, dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("pendulum: step size %v: %w", dt, ternary.ErrContract)
	}
	if math.IsNaN(torque) {
		return fmt.Errorf("pendulum: NaN torque: %w", ternary.ErrContract)
	}
	if torque > p.params.TorqueMax {
		torque = p.params.TorqueMax
	} else if torque < -p.params.TorqueMax {
		torque = -p.params.TorqueMax
	}

	s := p.state
	k1 := derivatives(s, p.params, torque)
	k2 := derivatives(shift(s, k1, dt/2), p.params, torque)
	k3 := derivatives(shift(s, k2, dt/2), p.params, torque)
	k4 := derivatives(shift(s, k3, dt), p.params, torque)

	h := dt / 6
	s.Theta1 += h * (k1.Theta1 + 2*k2.Theta1 + 2*k3.Theta1 + k4.Theta1)
	s.Omega1 += h * (k1.Omega1 + 2*k2.Omega1 + 2*k3.Omega1 + k4.Omega1)
	s.Theta2 += h * (k1.Theta2 + 2*k2.Theta2 + 2*k3.Theta2 + k4.Theta2)
	s.Omega2 += h * (k1.Omega2 + 2*k2.Omega2 + 2*k3.Omega2 + k4.Omega2)

	s.Theta1 = normalizeAngle(s.Theta1)
	s.Theta2 = normalizeAngle(s.Theta2)
	p.state = s
	return nil
}

// Energy returns the total mechanical energy in joules, with potential
// energy measured from the hanging position. The hanging rest state has
// energy -(m1+m2)*g*l1 - m2*g*l2.
func (p *Plant) Energy() float64 {
	s, pr := p.state, p.params

	kinetic := 0.5 * pr.M1 * pr.L1 * pr.L1 * s.Omega1 * s.Omega1
	cosDelta := math.Cos(s.Theta1 - s.Theta2)
	kinetic += 0.5 * pr.M2 * (pr.L1*pr.L1*s.Omega1*s.Omega1 +
		pr.L2*pr.L2*s.Omega2*s.Omega2 +
		2*pr.L1*pr.L2*s.Omega1*s.Omega2*cosDelta)

	potential := -(pr.M1 + pr.M2) * pr.G * pr.L1 * math.Cos(s.Theta1)
	potential -= pr.M2 * pr.G * pr.L2 * math.Cos(s.Theta2)

	return kinetic + potential
}

// Controllable reports whether both joints sit inside the region where
// linearized control has authority.
func (p *Plant) Controllable() bool {
	s := p.state
	return math.Abs(s.Theta1) < MaxControllableAngle &&
		math.Abs(s.Theta2) < MaxControllableAngle &&
		math.Abs(s.Omega1) < MaxControllableRate &&
		math.Abs(s.Omega2) < MaxControllableRate
}

// derivatives evaluates the coupled equations of motion. The returned
// State carries the time derivative of each field: Theta holds omega and
// Omega holds angular acceleration.
//
// With delta = theta1 - theta2 and denom = m1 + m2*sin^2(delta):
//
//	alpha1 = (-m2*l1*w1^2*sin(d)*cos(d) + m2*g*sin(t2)*cos(d)
//	          - m2*l2*w2^2*sin(d) - (m1+m2)*g*sin(t1) - b1*w1 + tau)
//	         / (l1 * denom)
//	alpha2 = ((m1+m2)*(l1*w1^2*sin(d) - g*sin(t2) + g*sin(t1)*cos(d))
//	          + m2*l2*w2^2*sin(d)*cos(d) - b2*w2 + tau*cos(d))
//	         / (l2 * denom)
func derivatives(s State, p Params, torque float64) State {
	delta := s.Theta1 - s.Theta2
	sinDelta, cosDelta := math.Sin(delta), math.Cos(delta)
	denom := p.M1 + p.M2*sinDelta*sinDelta

	num1 := -p.M2 * p.L1 * s.Omega1 * s.Omega1 * sinDelta * cosDelta
	num1 += p.M2 * p.G * math.Sin(s.Theta2) * cosDelta
	num1 -= p.M2 * p.L2 * s.Omega2 * s.Omega2 * sinDelta
	num1 -= (p.M1 + p.M2) * p.G * math.Sin(s.Theta1)
	num1 -= p.B1 * s.Omega1
	num1 += torque

	num2 := (p.M1 + p.M2) * (p.L1*s.Omega1*s.Omega1*sinDelta -
		p.G*math.Sin(s.Theta2) +
		p.G*math.Sin(s.Theta1)*cosDelta)
	num2 += p.M2 * p.L2 * s.Omega2 * s.Omega2 * sinDelta * cosDelta
	num2 -= p.B2 * s.Omega2
	num2 += torque * cosDelta

	return State{
		Theta1: s.Omega1,
		Omega1: num1 / (p.L1 * denom),
		Theta2: s.Omega2,
		Omega2: num2 / (p.L2 * denom),
	}
}

// shift returns s advanced by k scaled with h, the intermediate
// evaluation point of a Runge-Kutta stage.
func shift(s, k State, h float64) State {
	return State{
		Theta1: s.Theta1 + h*k.Theta1,
		Omega1: s.Omega1 + h*k.Omega1,
		Theta2: s.Theta2 + h*k.Theta2,
		Omega2: s.Omega2 + h*k.Omega2,
	}
}

// normalizeAngle wraps a into [-pi, pi).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
