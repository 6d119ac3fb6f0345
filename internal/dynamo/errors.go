package dynamo

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Composition errors, detected when a system is constructed.
var (
	ErrComposition = errors.New("dynamo: the supplied inputs cannot form a valid dynamical system")

	// ErrDuplicateQuantity indicates a quantity with more than one definition.
	ErrDuplicateQuantity = errors.New("dynamo: quantity defined more than once")

	// ErrUnresolvedInput indicates a module input that nothing defines.
	ErrUnresolvedInput = errors.New("dynamo: unresolved input quantity")

	// ErrNotState indicates a differential module output that is not part of the state.
	ErrNotState = errors.New("dynamo: differential output is not a state quantity")

	// ErrKindMismatch indicates a module supplied in the wrong module set.
	ErrKindMismatch = errors.New("dynamo: module kind does not match its module set")

	// ErrDriverLength indicates empty drivers or driver series of unequal length.
	ErrDriverLength = errors.New("dynamo: drivers must be non-empty and of equal length")

	// ErrModuleNotFound indicates an unknown module name.
	ErrModuleNotFound = errors.New("dynamo: module not found")

	// ErrUnknownQuantity indicates a lookup of a quantity that has no slot.
	ErrUnknownQuantity = errors.New("dynamo: unknown quantity")
)

// Evaluation and solver errors, detected while integrating.
var (
	ErrEvaluation = errors.New("dynamo: module evaluation failed")

	// ErrInvalidState indicates a state vector with invalid values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrNotConverged indicates an adaptive solver ran out of steps.
	ErrNotConverged = errors.New("dynamo: solver did not converge within the maximum step count")

	// ErrUnknownSolver indicates an unknown solver method name.
	ErrUnknownSolver = errors.New("dynamo: unknown solver method")

	// ErrSolverIncompatible indicates an adaptive solver applied to a system
	// that requires a fixed-step method.
	ErrSolverIncompatible = errors.New("dynamo: system requires a fixed-step solver")

	// ErrContextCanceled indicates the integration was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")
)

// ErrAlreadyRun is the usage error returned by a single-use simulator.
var ErrAlreadyRun = errors.New("dynamo: simulator can only be run once")

// CompositionError collects every problem found while validating a set of
// modules, quantities and drivers.
type CompositionError struct {
	// Duplicates lists quantities with more than one definition.
	Duplicates []string
	// Unresolved maps each undefined input to the modules that require it.
	Unresolved map[string][]string
	// NotState lists differential outputs that are not state quantities.
	NotState []string
	// KindMismatches lists modules supplied in the wrong module set.
	KindMismatches []string
	// DriverProblem describes a driver length problem, if any.
	DriverProblem string
}

// HasProblems reports whether any problem was recorded.
func (e *CompositionError) HasProblems() bool {
	return len(e.Duplicates) > 0 || len(e.Unresolved) > 0 || len(e.NotState) > 0 ||
		len(e.KindMismatches) > 0 || e.DriverProblem != ""
}

// UnresolvedNames returns the undefined inputs in sorted order.
func (e *CompositionError) UnresolvedNames() []string {
	names := make([]string, 0, len(e.Unresolved))
	for name := range e.Unresolved {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *CompositionError) Error() string {
	var b strings.Builder
	b.WriteString(ErrComposition.Error())

	if e.DriverProblem != "" {
		fmt.Fprintf(&b, "; %s", e.DriverProblem)
	}
	if len(e.Duplicates) > 0 {
		fmt.Fprintf(&b, "; the following quantities were defined more than once in the inputs: %s",
			strings.Join(e.Duplicates, ", "))
	}
	if len(e.Unresolved) > 0 {
		parts := make([]string, 0, len(e.Unresolved))
		for _, name := range e.UnresolvedNames() {
			parts = append(parts, fmt.Sprintf("%s (required by %s)", name, strings.Join(e.Unresolved[name], ", ")))
		}
		fmt.Fprintf(&b, "; the following module inputs were not defined: %s", strings.Join(parts, ", "))
	}
	if len(e.NotState) > 0 {
		fmt.Fprintf(&b, "; the following differential module outputs are not state quantities: %s",
			strings.Join(e.NotState, ", "))
	}
	if len(e.KindMismatches) > 0 {
		fmt.Fprintf(&b, "; the following modules were supplied in the wrong module set: %s",
			strings.Join(e.KindMismatches, ", "))
	}
	return b.String()
}

// Unwrap exposes the sentinel of every problem class present.
func (e *CompositionError) Unwrap() []error {
	errs := []error{ErrComposition}
	if e.DriverProblem != "" {
		errs = append(errs, ErrDriverLength)
	}
	if len(e.Duplicates) > 0 {
		errs = append(errs, ErrDuplicateQuantity)
	}
	if len(e.Unresolved) > 0 {
		errs = append(errs, ErrUnresolvedInput)
	}
	if len(e.NotState) > 0 {
		errs = append(errs, ErrNotState)
	}
	if len(e.KindMismatches) > 0 {
		errs = append(errs, ErrKindMismatch)
	}
	return errs
}

// EvaluationError wraps a failure raised by a module's Run.
type EvaluationError struct {
	Module string
	Time   float64
	Err    error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("dynamo: module %q failed at t=%.4f: %v", e.Module, e.Time, e.Err)
}

func (e *EvaluationError) Unwrap() []error {
	return []error{ErrEvaluation, e.Err}
}

// SimulationError wraps an error with integration context.
type SimulationError struct {
	Step    int
	Time    float64
	State   Vector
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
