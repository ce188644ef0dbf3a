package schema

import (
	"gitlab.com/tozd/go/errors"
)

// RenameTypes renames every definition whose name matches pattern, in
// both typespaces, together with every reference to it. It returns the
// number of definitions renamed; zero matches is not an error here, see
// ErrRenameUnmatched. The schema is left unchanged if the renames would
// make two definitions share a name.
func (s *Schema) RenameTypes(pattern, to string) (int, error) {
	p, err := ParsePattern(pattern)
	if err != nil {
		return 0, err
	}
	var mappings [2]map[string]string
	for _, d := range []Direction{Input, Output} {
		m, err := planRename(s.Types(d), p, to)
		if err != nil {
			return 0, err
		}
		mappings[d] = m
	}
	n := 0
	for _, d := range []Direction{Input, Output} {
		m := mappings[d]
		if len(m) == 0 {
			continue
		}
		n += len(m)
		ts := s.Types(d)
		WalkTypespace[int](newRenamer(m), ts)
		for i := range s.Functions {
			for _, r := range s.Functions[i].References(d) {
				WalkReference[int](newRenamer(m), r)
			}
		}
		if err := ts.reindex(); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// planRename computes old→new names for ts and rejects collisions.
func planRename(ts *Typespace, p Pattern, to string) (map[string]string, error) {
	m := make(map[string]string)
	final := make(map[string]string, ts.Len())
	for _, name := range ts.Names() {
		next, ok := p.Apply(name, to)
		if ok && next != name {
			if next == "" {
				return nil, errors.WithDetails(ErrInvalidPattern, "pattern", p.String(), "name", name, "reason", "empty result")
			}
			m[name] = next
		}
		if prev, dup := final[next]; dup {
			return nil, errors.WithDetails(ErrNameCollision, "name", next, "from", []string{prev, name})
		}
		final[next] = name
	}
	return m, nil
}

// renamer rewrites definition names and references found in names.
// References to a parameter of the definition being walked are left
// alone even if a type of the same name is renamed.
type renamer struct {
	BaseVisitor[int]
	names  map[string]string
	shadow map[string]bool
}

func newRenamer(names map[string]string) *renamer {
	return &renamer{BaseVisitor: BaseVisitor[int]{Sum{}}, names: names}
}

func (r *renamer) VisitTypeParameter(_ Type, p *TypeParameter) int {
	if r.shadow == nil {
		r.shadow = make(map[string]bool)
	}
	r.shadow[p.Name] = true
	return 0
}

func (r *renamer) VisitTypeReference(ref *TypeReference) int {
	if r.shadow[ref.Name] {
		return 0
	}
	if next, ok := r.names[ref.Name]; ok {
		ref.Name = next
		return 1
	}
	return 0
}

func (r *renamer) VisitTypeName(_ Type, name *string) int {
	r.shadow = nil
	if next, ok := r.names[*name]; ok {
		*name = next
		return 1
	}
	return 0
}
