// Package dynamo provides the shared vocabulary of the simulation engine.
//
// The package defines the named-quantity types that flow between the
// module libraries, the dynamical system and the solvers:
//
//   - [Quantities]: a named set of values (initial state, parameter set)
//   - [Drivers]: named, time-indexed exogenous values
//   - [Table]: durable quantity slots that modules bind to
//   - [Vector]: the ordered differential state handled by integrators
//   - [Result]: the column-oriented output of one integration
//
// It also defines the error taxonomy shared by every layer. Composition
// problems surface as a [*CompositionError], module failures as an
// [*EvaluationError], and solver failures wrap the package sentinels.
//
// # Example
//
//	initial := dynamo.Quantities{"position": 1, "velocity": 0}
//	drivers := dynamo.Drivers{"time": {0, 1, 2, 3}}
//	n, err := drivers.Len()
//
// # Thread Safety
//
// None of the types here are safe for concurrent mutation. A [Table] is
// owned by exactly one dynamical system.
package dynamo
