package module

import (
	"fmt"
	"sort"

	"github.com/san-kum/modsim/internal/dynamo"
)

// Role tells whether a module reads or writes a quantity.
type Role string

const (
	RoleInput  Role = "input"
	RoleOutput Role = "output"
)

// QuantityInfo records one quantity declared by one module.
type QuantityInfo struct {
	Quantity string `json:"quantity_name" yaml:"quantity_name"`
	Module   string `json:"module_name" yaml:"module_name"`
	Role     Role   `json:"quantity_type" yaml:"quantity_type"`
}

// Library is a named collection of module creators.
type Library struct {
	name     string
	creators map[string]*Creator
}

// NewLibrary builds a library from creators. Each creator is copied and
// stamped with the library name. Registering two creators under the same
// name is a programming error and panics.
func NewLibrary(name string, creators ...*Creator) *Library {
	l := &Library{
		name:     name,
		creators: make(map[string]*Creator, len(creators)),
	}
	for _, c := range creators {
		if _, exists := l.creators[c.Name]; exists {
			panic(fmt.Sprintf("module %q already registered in library %q", c.Name, name))
		}
		cp := *c
		cp.Library = name
		cp.Inputs = append([]string(nil), c.Inputs...)
		cp.Outputs = append([]string(nil), c.Outputs...)
		l.creators[c.Name] = &cp
	}
	return l
}

func (l *Library) Name() string { return l.name }

// Retrieve returns the creator registered under name.
func (l *Library) Retrieve(name string) (*Creator, error) {
	c, ok := l.creators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q in library %q", dynamo.ErrModuleNotFound, name, l.name)
	}
	return c, nil
}

// MustRetrieve is like Retrieve but panics on unknown names.
func (l *Library) MustRetrieve(name string) *Creator {
	c, err := l.Retrieve(name)
	if err != nil {
		panic(err)
	}
	return c
}

// ModuleNames returns every module name in sorted order.
func (l *Library) ModuleNames() []string {
	names := make([]string, 0, len(l.creators))
	for name := range l.creators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Quantities lists every declared quantity, module by module, inputs first.
func (l *Library) Quantities() []QuantityInfo {
	var infos []QuantityInfo
	for _, name := range l.ModuleNames() {
		c := l.creators[name]
		for _, q := range c.Inputs {
			infos = append(infos, QuantityInfo{Quantity: q, Module: name, Role: RoleInput})
		}
		for _, q := range c.Outputs {
			infos = append(infos, QuantityInfo{Quantity: q, Module: name, Role: RoleOutput})
		}
	}
	return infos
}
