package experiment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/library/extra"
	"github.com/san-kum/modsim/internal/library/standard"
	"github.com/san-kum/modsim/internal/module"
)

// Registry holds the module libraries available to scenarios, in lookup
// order.
type Registry struct {
	libraries []*module.Library
	byName    map[string]*module.Library
}

func NewRegistry(libs ...*module.Library) (*Registry, error) {
	r := &Registry{byName: make(map[string]*module.Library)}
	for _, lib := range libs {
		if err := r.Add(lib); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry holds the standard library followed by the extra library.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(standard.Library(), extra.Library())
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Add(lib *module.Library) error {
	if _, exists := r.byName[lib.Name()]; exists {
		return fmt.Errorf("library %q already registered", lib.Name())
	}
	r.libraries = append(r.libraries, lib)
	r.byName[lib.Name()] = lib
	return nil
}

func (r *Registry) Libraries() []*module.Library {
	return append([]*module.Library(nil), r.libraries...)
}

func (r *Registry) Library(name string) (*module.Library, error) {
	lib, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: no library named %q", dynamo.ErrModuleNotFound, name)
	}
	return lib, nil
}

// Resolve looks up "library:name", or a bare name in every library in
// registration order.
func (r *Registry) Resolve(ref string) (*module.Creator, error) {
	if libName, name, ok := strings.Cut(ref, ":"); ok {
		lib, err := r.Library(libName)
		if err != nil {
			return nil, err
		}
		return lib.Retrieve(name)
	}
	for _, lib := range r.libraries {
		if c, err := lib.Retrieve(ref); err == nil {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q in any library", dynamo.ErrModuleNotFound, ref)
}

// ResolveAll resolves every reference and reports every unknown one.
func (r *Registry) ResolveAll(refs []string) (module.Set, error) {
	set := make(module.Set, 0, len(refs))
	var errs []error
	for _, ref := range refs {
		c, err := r.Resolve(ref)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		set = append(set, c)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return set, nil
}

// QuantityInfo is a module.QuantityInfo tagged with its library.
type QuantityInfo struct {
	Library string `json:"library"`
	module.QuantityInfo
}

// Quantities lists the quantities declared by every library.
func (r *Registry) Quantities() []QuantityInfo {
	var infos []QuantityInfo
	for _, lib := range r.libraries {
		for _, q := range lib.Quantities() {
			infos = append(infos, QuantityInfo{Library: lib.Name(), QuantityInfo: q})
		}
	}
	return infos
}
