package schema

import (
	"bytes"
	"sort"

	"gitlab.com/tozd/go/errors"
)

// ConsolidateTypes merges structurally identical definitions that share a
// base name within each typespace. The lexically first name survives and
// references to the others are redirected to it. Merging repeats until
// nothing changes, so definitions that only differed in references to
// merged names are merged too. Descriptions are not compared. Input and
// output typespaces are never merged with each other. It returns the
// removed names, sorted.
func (s *Schema) ConsolidateTypes() []string {
	var removed []string
	for _, d := range []Direction{Input, Output} {
		ts := s.Types(d)
		for {
			redirect := duplicates(ts)
			if len(redirect) == 0 {
				break
			}
			for _, name := range sortedKeys(redirect) {
				ts.Remove(name)
				removed = append(removed, name)
			}
			WalkTypespace[int](newRenamer(redirect), ts)
			for i := range s.Functions {
				for _, r := range s.Functions[i].References(d) {
					WalkReference[int](newRenamer(redirect), r)
				}
			}
		}
	}
	sort.Strings(removed)
	return removed
}

// duplicates maps each redundant name to the canonical one.
func duplicates(ts *Typespace) map[string]string {
	type group struct {
		key   []byte
		names []string
	}
	byBase := make(map[string][]*group)
	names := ts.Names()
	sort.Strings(names)
	for _, name := range names {
		t, _ := ts.Get(name)
		key := shapeKey(t)
		base := BaseName(name)
		var g *group
		for _, cand := range byBase[base] {
			if bytes.Equal(cand.key, key) {
				g = cand
				break
			}
		}
		if g == nil {
			g = &group{key: key}
			byBase[base] = append(byBase[base], g)
		}
		g.names = append(g.names, name)
	}
	redirect := make(map[string]string)
	for _, groups := range byBase {
		for _, g := range groups {
			for _, dup := range g.names[1:] {
				redirect[dup] = g.names[0]
			}
		}
	}
	return redirect
}

// shapeKey encodes t without its name, identities and descriptions.
// References to itself are normalized so recursive duplicates compare
// equal.
func shapeKey(t Type) []byte {
	c := Clone(t)
	self := c.TypeName()
	WalkType[int](identityStripper{BaseVisitor: BaseVisitor[int]{Sum{}}, self: self}, c)
	c.setName("")
	c.setSymbol(SymbolID{})
	switch v := c.(type) {
	case *Struct:
		v.Description = ""
	case *Enum:
		v.Description = ""
	case *Primitive:
		v.Description = ""
	}
	return canonical(c)
}

type identityStripper struct {
	BaseVisitor[int]
	self string
}

func (s identityStripper) VisitTypeParameter(_ Type, p *TypeParameter) int {
	p.Description = ""
	return 0
}

func (s identityStripper) VisitField(_ Type, f *Field) int {
	f.ID = SymbolID{}
	f.Description = ""
	return 0
}

func (s identityStripper) VisitVariant(_ *Enum, v *Variant) int {
	v.ID = SymbolID{}
	v.Description = ""
	return 0
}

func (s identityStripper) VisitTypeReference(r *TypeReference) int {
	if r.Name == s.self {
		r.Name = ""
	}
	return 0
}

// SortTypes orders both typespaces by name.
func (s *Schema) SortTypes() {
	s.InputTypes.Sort()
	s.OutputTypes.Sort()
}

// Extend merges other into s. Functions of other are mounted under
// prefix. Definitions present in both with identical content are shared;
// differing definitions, or functions mounted at the same path, abort the
// merge with ErrNameCollision before s is modified.
func (s *Schema) Extend(other *Schema, prefix string) error {
	o := other.Clone()
	o.PrependPath(prefix)

	var collisions []string
	mounted := make(map[string]bool, len(s.Functions))
	for i := range s.Functions {
		mounted[s.Functions[i].MountPath()] = true
	}
	for i := range o.Functions {
		if p := o.Functions[i].MountPath(); mounted[p] {
			collisions = append(collisions, p)
		}
	}
	for _, d := range []Direction{Input, Output} {
		ts := s.Types(d)
		for _, t := range o.Types(d).Types() {
			if existing, ok := ts.Get(t.TypeName()); ok && !Equal(existing, t) {
				collisions = append(collisions, d.String()+" "+t.TypeName())
			}
		}
	}
	if len(collisions) > 0 {
		return errors.WithDetails(ErrNameCollision, "collisions", collisions)
	}

	for _, d := range []Direction{Input, Output} {
		ts := s.Types(d)
		for _, t := range o.Types(d).Types() {
			if err := ts.Insert(t); err != nil {
				return err
			}
		}
	}
	s.Functions = append(s.Functions, o.Functions...)
	return nil
}

// PruneUnreferenced removes definitions not reachable from any function.
// It returns the removed names, sorted.
func (s *Schema) PruneUnreferenced() []string {
	var removed []string
	for _, d := range []Direction{Input, Output} {
		ts := s.Types(d)
		reachable := make(map[string]bool)
		var queue []string
		for i := range s.Functions {
			for _, r := range s.Functions[i].References(d) {
				set := WalkReference[map[string]struct{}](refCollector{BaseVisitor[map[string]struct{}]{NameSet{}}}, r)
				queue = append(queue, sortedKeys(set)...)
			}
		}
		for len(queue) > 0 {
			name := queue[0]
			queue = queue[1:]
			if reachable[name] {
				continue
			}
			reachable[name] = true
			if t, ok := ts.Get(name); ok {
				queue = append(queue, ReferencedNames(t)...)
			}
		}
		for _, name := range ts.Names() {
			if !reachable[name] {
				ts.Remove(name)
				removed = append(removed, name)
			}
		}
	}
	sort.Strings(removed)
	return removed
}
