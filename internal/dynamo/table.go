package dynamo

import (
	"fmt"
	"strings"
)

// Table holds named quantity slots. A slot's address is fixed when the slot
// is created, so a module holding a reference keeps reading and writing the
// same slot for as long as the module lives, even if the caller later drops
// or replaces its own Table value.
type Table map[string]*float64

// NewTable allocates one slot per quantity, initialised from q.
func NewTable(q Quantities) Table {
	t := make(Table, len(q))
	for name, v := range q {
		t.Define(name, v)
	}
	return t
}

// Define creates the slot for name if needed and stores v in it.
func (t Table) Define(name string, v float64) *float64 {
	if p, ok := t[name]; ok {
		*p = v
		return p
	}
	p := new(float64)
	*p = v
	t[name] = p
	return p
}

func (t Table) Has(name string) bool {
	_, ok := t[name]
	return ok
}

func (t Table) Get(name string) (float64, bool) {
	p, ok := t[name]
	if !ok {
		return 0, false
	}
	return *p, true
}

// Set stores v in an existing slot. It reports false when there is no slot.
func (t Table) Set(name string, v float64) bool {
	p, ok := t[name]
	if !ok {
		return false
	}
	*p = v
	return true
}

// Ref returns the slot for name.
func (t Table) Ref(name string) (*float64, error) {
	p, ok := t[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuantity, name)
	}
	return p, nil
}

// Refs returns the slots for names in order. Every missing name is listed in
// the returned error.
func (t Table) Refs(names ...string) ([]*float64, error) {
	refs := make([]*float64, len(names))
	var missing []string
	for i, name := range names {
		p, ok := t[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		refs[i] = p
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuantity, strings.Join(missing, ", "))
	}
	return refs, nil
}

// Snapshot copies the current values out of the table.
func (t Table) Snapshot() Quantities {
	q := make(Quantities, len(t))
	for name, p := range t {
		q[name] = *p
	}
	return q
}

func (t Table) Names() []string {
	return sortedKeys(t)
}

// Zero sets every slot to 0.
func (t Table) Zero() {
	for _, p := range t {
		*p = 0
	}
}
