package module

import (
	"fmt"

	"github.com/san-kum/modsim/internal/dynamo"
)

// Kind selects how a module's outputs are merged into its bound outputs.
type Kind int

const (
	// SteadyState modules recompute their outputs from the current inputs;
	// each run overwrites the outputs.
	SteadyState Kind = iota
	// Differential modules compute rates of change; each run adds to the
	// outputs.
	Differential
)

func (k Kind) String() string {
	switch k {
	case SteadyState:
		return "steady_state"
	case Differential:
		return "differential"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Module is a computation bound to its quantities.
type Module interface {
	Run() error
}

// ModuleFunc adapts a function to the Module interface.
type ModuleFunc func() error

func (f ModuleFunc) Run() error { return f() }

// Factory binds a module to the table it reads from and the table it writes
// to. Implementations resolve their slots once, here, and keep the
// references for the module's lifetime.
type Factory func(in, out dynamo.Table) (Module, error)

// Creator describes one module.
type Creator struct {
	Name    string
	Library string
	Kind    Kind
	Inputs  []string
	Outputs []string
	// RequiresFixedStep marks modules whose rates are not smooth enough for
	// adaptive step-size control.
	RequiresFixedStep bool
	New               Factory
}

// QualifiedName returns "library:name", or the bare name when the creator
// does not belong to a library.
func (c *Creator) QualifiedName() string {
	if c.Library == "" {
		return c.Name
	}
	return c.Library + ":" + c.Name
}

// Set is an ordered list of creators supplied as one kind of module.
type Set []*Creator

// Names returns the qualified names in order.
func (s Set) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.QualifiedName()
	}
	return names
}

// Instance is a module bound to an input table and an output table.
type Instance struct {
	creator *Creator
	module  Module
	scratch dynamo.Table
	src     []*float64
	dst     []*float64
}

// Bind creates the module described by c. The module reads from in for its
// whole lifetime. Every declared output must already have a slot in out;
// callers using a differential module should zero those slots before the
// first run.
func Bind(c *Creator, in, out dynamo.Table) (*Instance, error) {
	if c.New == nil {
		return nil, fmt.Errorf("module %s has no factory", c.QualifiedName())
	}
	refs, err := in.Refs(c.Inputs...)
	if err != nil {
		return nil, fmt.Errorf("binding inputs of %s: %w", c.QualifiedName(), err)
	}
	// the factory sees only the declared inputs, sharing the caller's slots
	inputs := make(dynamo.Table, len(c.Inputs))
	for i, name := range c.Inputs {
		inputs[name] = refs[i]
	}
	dst, err := out.Refs(c.Outputs...)
	if err != nil {
		return nil, fmt.Errorf("binding outputs of %s: %w", c.QualifiedName(), err)
	}

	scratch := make(dynamo.Table, len(c.Outputs))
	src := make([]*float64, len(c.Outputs))
	for i, name := range c.Outputs {
		src[i] = scratch.Define(name, 0)
	}

	m, err := c.New(inputs, scratch)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", c.QualifiedName(), err)
	}

	return &Instance{
		creator: c,
		module:  m,
		scratch: scratch,
		src:     src,
		dst:     dst,
	}, nil
}

func (i *Instance) Creator() *Creator { return i.creator }

func (i *Instance) Kind() Kind { return i.creator.Kind }

// Run evaluates the module and merges its outputs according to its kind.
// Outputs are left untouched when the module fails.
func (i *Instance) Run() error {
	i.scratch.Zero()
	if err := i.module.Run(); err != nil {
		return err
	}

	switch i.creator.Kind {
	case Differential:
		for k, p := range i.src {
			*i.dst[k] += *p
		}
	default:
		for k, p := range i.src {
			*i.dst[k] = *p
		}
	}
	return nil
}
