// Package module defines the contract every pluggable computation unit
// satisfies, and the libraries that make modules discoverable by name.
//
// A [Creator] describes a module: its name, its [Kind], the quantities it
// reads and the quantities it writes. Binding a creator to an input table
// and an output table with [Bind] yields an [Instance]. The instance owns
// the output merge policy:
//
//   - [SteadyState] outputs overwrite the bound output slots
//   - [Differential] outputs are added to the bound output slots
//
// Modules write into a private scratch table, so a module implementation
// never needs to know which policy applies to it.
//
// A [Library] is an explicit value holding a set of creators. Several
// libraries may coexist, and two libraries may each hold a module with the
// same name.
package module
