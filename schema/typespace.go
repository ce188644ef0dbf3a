package schema

import (
	"slices"
	"sort"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// reservedSlot marks a name claimed by Reserve but not yet defined.
const reservedSlot = -1

// Typespace is an ordered table of type definitions with unique names.
// The zero value is an empty typespace ready to use.
type Typespace struct {
	types []Type
	index map[string]int
}

// NewTypespace returns a typespace holding the given definitions.
func NewTypespace(types ...Type) (*Typespace, error) {
	ts := &Typespace{}
	for _, t := range types {
		if err := ts.Insert(t); err != nil {
			return nil, err
		}
	}
	return ts, nil
}

func (ts *Typespace) ensureIndex() {
	if ts.index != nil {
		return
	}
	ts.index = make(map[string]int, len(ts.types))
	for i, t := range ts.types {
		ts.index[t.TypeName()] = i
	}
}

// Reserve claims name before its definition is built. It returns false if
// the name is already defined or reserved, which lets recursive builders
// stop descending into a type they are already processing.
func (ts *Typespace) Reserve(name string) bool {
	ts.ensureIndex()
	if _, ok := ts.index[name]; ok {
		return false
	}
	ts.index[name] = reservedSlot
	return true
}

// Has reports whether name is defined or reserved.
func (ts *Typespace) Has(name string) bool {
	ts.ensureIndex()
	_, ok := ts.index[name]
	return ok
}

// IsReserved reports whether name is reserved but not yet defined.
func (ts *Typespace) IsReserved(name string) bool {
	ts.ensureIndex()
	i, ok := ts.index[name]
	return ok && i == reservedSlot
}

// Reserved returns the names reserved but never defined, sorted.
func (ts *Typespace) Reserved() []string {
	ts.ensureIndex()
	var out []string
	for name, i := range ts.index {
		if i == reservedSlot {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Get returns the definition named name.
func (ts *Typespace) Get(name string) (Type, bool) {
	ts.ensureIndex()
	i, ok := ts.index[name]
	if !ok || i == reservedSlot {
		return nil, false
	}
	return ts.types[i], true
}

// Insert adds t. Inserting over a reservation completes it, and inserting
// a definition equal to the existing one is a no-op. Any other duplicate
// name is an ErrNameCollision.
func (ts *Typespace) Insert(t Type) error {
	ts.ensureIndex()
	name := t.TypeName()
	if name == "" {
		return errors.New("cannot insert a type without a name")
	}
	i, ok := ts.index[name]
	switch {
	case !ok || i == reservedSlot:
		ts.index[name] = len(ts.types)
		ts.types = append(ts.types, t)
		return nil
	case Equal(ts.types[i], t):
		return nil
	default:
		return errors.WithDetails(ErrNameCollision, "name", name)
	}
}

// Replace overwrites the definition stored under t's name, inserting it if
// absent.
func (ts *Typespace) Replace(t Type) {
	ts.ensureIndex()
	name := t.TypeName()
	if i, ok := ts.index[name]; ok && i != reservedSlot {
		ts.types[i] = t
		return
	}
	ts.index[name] = len(ts.types)
	ts.types = append(ts.types, t)
}

// Remove deletes the definition or reservation named name.
func (ts *Typespace) Remove(name string) (Type, bool) {
	ts.ensureIndex()
	i, ok := ts.index[name]
	if !ok {
		return nil, false
	}
	delete(ts.index, name)
	if i == reservedSlot {
		return nil, false
	}
	t := ts.types[i]
	ts.types = slices.Delete(ts.types, i, i+1)
	for j := i; j < len(ts.types); j++ {
		ts.index[ts.types[j].TypeName()] = j
	}
	return t, true
}

// Types returns the definitions in insertion (or sorted) order.
// The slice must not be modified.
func (ts *Typespace) Types() []Type { return ts.types }

// Names returns the defined names in storage order.
func (ts *Typespace) Names() []string {
	out := make([]string, len(ts.types))
	for i, t := range ts.types {
		out[i] = t.TypeName()
	}
	return out
}

// Len returns the number of definitions.
func (ts *Typespace) Len() int { return len(ts.types) }

// Sort orders the definitions by name. Reservations are kept.
func (ts *Typespace) Sort() {
	sort.SliceStable(ts.types, func(i, j int) bool {
		return ts.types[i].TypeName() < ts.types[j].TypeName()
	})
	ts.rebuildIndex()
}

func (ts *Typespace) rebuildIndex() {
	reserved := ts.Reserved()
	ts.index = nil
	ts.ensureIndex()
	for _, name := range reserved {
		if _, ok := ts.index[name]; !ok {
			ts.index[name] = reservedSlot
		}
	}
}

// Clone returns a deep copy.
func (ts *Typespace) Clone() *Typespace {
	out := &Typespace{types: make([]Type, len(ts.types))}
	for i, t := range ts.types {
		out.types[i] = Clone(t)
	}
	out.rebuildIndexFrom(ts)
	return out
}

func (ts *Typespace) rebuildIndexFrom(src *Typespace) {
	ts.index = nil
	ts.ensureIndex()
	for _, name := range src.Reserved() {
		ts.index[name] = reservedSlot
	}
}

// Resolve returns the definition ref points at, looking in the typespace
// first and then in the std table.
func (ts *Typespace) Resolve(ref TypeReference) (Type, error) {
	if t, ok := ts.Get(ref.Name); ok {
		return t, nil
	}
	if t, ok := StdType(ref.Name); ok {
		return t, nil
	}
	return nil, errors.WithDetails(ErrTypeNotFound, "name", ref.Name)
}

// Concrete resolves ref and instantiates the definition with its
// arguments. The result is a copy that declares no parameters.
func (ts *Typespace) Concrete(ref TypeReference) (Type, error) {
	t, err := ts.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return Instantiate(t, ref.Arguments)
}

// String lists the defined names.
func (ts *Typespace) String() string {
	return "Typespace[" + strings.Join(ts.Names(), ", ") + "]"
}

// reindex rebuilds the name index after in-place renames and reports
// the first duplicate name.
func (ts *Typespace) reindex() error {
	reserved := ts.Reserved()
	index := make(map[string]int, len(ts.types))
	for i, t := range ts.types {
		if _, dup := index[t.TypeName()]; dup {
			return errors.WithDetails(ErrNameCollision, "name", t.TypeName())
		}
		index[t.TypeName()] = i
	}
	for _, name := range reserved {
		if _, ok := index[name]; !ok {
			index[name] = reservedSlot
		}
	}
	ts.index = index
	return nil
}
