// Package system composes modules into a dynamical system of named
// quantities.
//
// Construction validates the whole composition up front: every problem is
// reported in a single *dynamo.CompositionError, and a system that was
// built successfully never fails for a composition reason later on.
package system

import (
	"sort"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/module"
)

// TimestepQuantity scales differential rates to one driver interval. It is
// required whenever a system has differential modules.
const TimestepQuantity = "timestep"

// Namespace is the validated quantity namespace of one system.
type Namespace struct {
	State      []string
	Parameters []string
	Drivers    []string
	// Outputs lists steady-state module outputs.
	Outputs []string
	NTimes  int
}

// Columns returns every quantity recorded in a result, sorted.
func (n *Namespace) Columns() []string {
	cols := make([]string, 0, len(n.State)+len(n.Drivers)+len(n.Outputs))
	cols = append(cols, n.State...)
	cols = append(cols, n.Drivers...)
	cols = append(cols, n.Outputs...)
	sort.Strings(cols)
	return cols
}

// Validate merges the declared quantities of a composition into one
// namespace.
func Validate(initial dynamo.State, params dynamo.Parameters, drivers dynamo.Drivers, direct, differential module.Set) (*Namespace, error) {
	problems := &dynamo.CompositionError{}

	ntimes, err := drivers.Len()
	if err != nil {
		problems.DriverProblem = err.Error()
	}

	definitions := make(map[string]int)
	for name := range initial {
		definitions[name]++
	}
	for name := range params {
		definitions[name]++
	}
	for name := range drivers {
		definitions[name]++
	}

	var outputs []string
	for _, c := range direct {
		if c.Kind != module.SteadyState {
			problems.KindMismatches = append(problems.KindMismatches, c.QualifiedName()+" (differential module in the direct set)")
		}
		for _, name := range c.Outputs {
			if definitions[name] == 0 {
				outputs = append(outputs, name)
			}
			definitions[name]++
		}
	}

	notState := make(map[string]bool)
	for _, c := range differential {
		if c.Kind != module.Differential {
			problems.KindMismatches = append(problems.KindMismatches, c.QualifiedName()+" (steady-state module in the differential set)")
		}
		for _, name := range c.Outputs {
			if _, ok := initial[name]; !ok {
				notState[name] = true
			}
		}
	}

	for name, count := range definitions {
		if count > 1 {
			problems.Duplicates = append(problems.Duplicates, name)
		}
	}
	sort.Strings(problems.Duplicates)

	for name := range notState {
		problems.NotState = append(problems.NotState, name)
	}
	sort.Strings(problems.NotState)

	unresolved := make(map[string][]string)
	require := func(name, by string) {
		if definitions[name] > 0 {
			return
		}
		for _, seen := range unresolved[name] {
			if seen == by {
				return
			}
		}
		unresolved[name] = append(unresolved[name], by)
	}
	for _, set := range []module.Set{direct, differential} {
		for _, c := range set {
			for _, name := range c.Inputs {
				require(name, c.QualifiedName())
			}
		}
	}
	for _, c := range differential {
		require(TimestepQuantity, c.QualifiedName())
	}
	if len(unresolved) > 0 {
		problems.Unresolved = unresolved
	}

	if problems.HasProblems() {
		return nil, problems
	}

	sort.Strings(outputs)
	return &Namespace{
		State:      initial.Names(),
		Parameters: params.Names(),
		Drivers:    drivers.Names(),
		Outputs:    outputs,
		NTimes:     ntimes,
	}, nil
}
