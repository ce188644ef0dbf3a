package schema

import (
	"strings"
)

// SymbolTable maps qualified type names to their identities.
type SymbolTable struct {
	byName map[string]SymbolID
}

// Lookup returns the identity of the type named name.
func (t *SymbolTable) Lookup(name string) (SymbolID, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// Names returns the known names, sorted.
func (t *SymbolTable) Names() []string { return sortedKeys(t.byName) }

// Len returns the number of entries.
func (t *SymbolTable) Len() int { return len(t.byName) }

// symbolAssigner hands out disambiguators. Distinct owners claiming the
// same kind and path get the lowest disambiguator not yet taken; the
// same owner always gets the same one.
type symbolAssigner struct {
	claims map[string]*claimSet
}

type claimSet struct {
	owners map[string]uint32
	used   map[uint32]bool
}

func (a *symbolAssigner) set(kind SymbolKind, path []string) *claimSet {
	key := kind.String() + ":" + strings.Join(path, Sep)
	cs, ok := a.claims[key]
	if !ok {
		cs = &claimSet{owners: make(map[string]uint32), used: make(map[uint32]bool)}
		a.claims[key] = cs
	}
	return cs
}

// reserve records an identity that is already assigned so that no other
// owner is given it.
func (a *symbolAssigner) reserve(id SymbolID, owner string) {
	if id.IsUnknown() {
		return
	}
	cs := a.set(id.Kind, id.Path)
	cs.used[id.Disambiguator] = true
	if _, ok := cs.owners[owner]; !ok {
		cs.owners[owner] = id.Disambiguator
	}
}

func (a *symbolAssigner) claim(kind SymbolKind, path []string, owner string) SymbolID {
	cs := a.set(kind, path)
	if d, ok := cs.owners[owner]; ok {
		return SymbolID{Kind: kind, Path: path, Disambiguator: d}
	}
	var d uint32
	for cs.used[d] {
		d++
	}
	cs.used[d] = true
	cs.owners[owner] = d
	return SymbolID{Kind: kind, Path: path, Disambiguator: d}
}

// AssignSymbols gives every schema entity without an identity one derived
// from its kind and qualified path, and returns the resulting table of
// type identities, including the std types. Types are visited in name
// order and functions in declaration order, so the result does not depend
// on typespace order. A type defined in both typespaces gets one identity.
// Existing identities are kept and never handed out again.
func AssignSymbols(s *Schema) *SymbolTable {
	a := &symbolAssigner{claims: make(map[string]*claimSet)}
	table := &SymbolTable{byName: make(map[string]SymbolID)}
	names := make(map[string]struct{})
	for _, d := range []Direction{Input, Output} {
		for _, n := range s.Types(d).Names() {
			names[n] = struct{}{}
		}
	}
	reserveSymbols(a, s, sortedKeys(names))

	for _, name := range StdNames() {
		t := stdTable[name]
		table.byName[name] = a.claim(symbolKindOf(t), SplitName(name), typeOwner(name))
	}

	if s.ID.IsUnknown() {
		s.ID = a.claim(SymbolSchema, []string{s.Name}, "schema")
	}

	for _, name := range sortedKeys(names) {
		for _, d := range []Direction{Input, Output} {
			t, ok := s.Types(d).Get(name)
			if !ok {
				continue
			}
			id := t.Symbol()
			if id.IsUnknown() {
				if prev, seen := table.byName[name]; seen {
					id = prev
				} else {
					id = a.claim(symbolKindOf(t), SplitName(name), typeOwner(name))
				}
				t.setSymbol(id)
			}
			if _, seen := table.byName[name]; !seen {
				table.byName[name] = id
			}
			assignMembers(a, t, name, false)
		}
	}

	for i := range s.Functions {
		fn := &s.Functions[i]
		if !fn.ID.IsUnknown() {
			continue
		}
		path := append(strings.FieldsFunc(fn.Path, func(r rune) bool { return r == '/' }), fn.Name)
		fn.ID = a.claim(SymbolEndpoint, path, functionOwner(i))
	}
	return table
}

func reserveSymbols(a *symbolAssigner, s *Schema, names []string) {
	a.reserve(s.ID, "schema")
	for _, name := range names {
		for _, d := range []Direction{Input, Output} {
			if t, ok := s.Types(d).Get(name); ok {
				a.reserve(t.Symbol(), typeOwner(name))
				assignMembers(a, t, name, true)
			}
		}
	}
	for i := range s.Functions {
		a.reserve(s.Functions[i].ID, functionOwner(i))
	}
}

// Owner keys name the member kind at each step so a struct field and an
// enum variant field with the same path stay distinct.
func typeOwner(name string) string { return "type " + name }

func functionOwner(i int) string { return "function " + itoa(i) }

// assignMembers claims identities for the fields and variants of t that
// lack one, or only reserves the existing ones.
func assignMembers(a *symbolAssigner, t Type, name string, reserveOnly bool) {
	parent := t.Symbol()
	fields := func(fs *Fields, base SymbolID, prefix string) {
		for i := range fs.List {
			f := &fs.List[i]
			owner := prefix + " field " + f.Name
			switch {
			case reserveOnly:
				a.reserve(f.ID, owner)
			case f.ID.IsUnknown():
				child := base.Child(SymbolField, f.Name)
				f.ID = a.claim(SymbolField, child.Path, owner)
			}
		}
	}
	switch v := t.(type) {
	case *Struct:
		fields(&v.Fields, parent, typeOwner(name))
	case *Enum:
		for i := range v.Variants {
			vr := &v.Variants[i]
			owner := typeOwner(name) + " variant " + vr.Name
			switch {
			case reserveOnly:
				a.reserve(vr.ID, owner)
			case vr.ID.IsUnknown():
				child := parent.Child(SymbolVariant, vr.Name)
				vr.ID = a.claim(SymbolVariant, child.Path, owner)
			}
			fields(&vr.Fields, vr.ID, owner)
		}
	}
}

func symbolKindOf(t Type) SymbolKind {
	switch v := t.(type) {
	case *Struct:
		if v.IsAlias() {
			return SymbolTypeAlias
		}
		return SymbolStruct
	case *Enum:
		return SymbolEnum
	default:
		return SymbolPrimitive
	}
}
