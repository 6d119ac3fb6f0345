// Package integrators implements single-step ODE algorithms over a
// derivative function.
package integrators

import "github.com/san-kum/modsim/internal/dynamo"

// System is the derivative function being integrated.
type System interface {
	Derive(x dynamo.Vector, t float64) (dynamo.Vector, error)
}

// Stepper advances x from t to t+dt.
type Stepper interface {
	Step(sys System, x dynamo.Vector, t, dt float64) (dynamo.Vector, error)
}

// Tolerance bounds the local error estimate of an adaptive step. A step is
// accepted when every component's error is within AbsTol + RelTol*|x|.
type Tolerance struct {
	RelTol float64
	AbsTol float64
}

// StepResult is the outcome of one adaptive step attempt.
type StepResult struct {
	X        dynamo.Vector
	Accepted bool
	// Error is the largest component error relative to the tolerance.
	Error float64
	// Next is the suggested size of the next attempt.
	Next float64
}

// AdaptiveStepper attempts one step and proposes the next step size.
type AdaptiveStepper interface {
	Stepper
	StepAdaptive(sys System, x dynamo.Vector, t, dt float64, tol Tolerance) (StepResult, error)
}

// SystemFunc adapts a plain derivative function to System.
type SystemFunc func(x dynamo.Vector, t float64) (dynamo.Vector, error)

func (f SystemFunc) Derive(x dynamo.Vector, t float64) (dynamo.Vector, error) { return f(x, t) }
