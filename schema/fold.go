package schema

import (
	"slices"

	"gitlab.com/tozd/go/errors"
)

// maxFoldDepth bounds how many transparent wrappers one reference may
// expand through.
const maxFoldDepth = 64

// FoldTransparentTypes replaces every reference to a transparent
// single-field struct with the type of that field, substituting generic
// arguments, and removes the folded structs. Function references are
// folded against the typespace of their direction. It returns the folded
// names, sorted. Nothing is modified when a transparency chain does not
// terminate.
func (s *Schema) FoldTransparentTypes() ([]string, error) {
	var folders [2]*folder
	for _, d := range []Direction{Input, Output} {
		f, err := newFolder(s.Types(d))
		if err != nil {
			return nil, errors.WithDetails(err, "direction", d.String())
		}
		folders[d] = f
	}

	folded := make(map[string]struct{})
	for _, d := range []Direction{Input, Output} {
		f := folders[d]
		if len(f.aliases) == 0 {
			continue
		}
		ts := s.Types(d)
		WalkTypespace[int](f, ts)
		for i := range s.Functions {
			for _, r := range s.Functions[i].References(d) {
				next, err := f.fold(*r, nil)
				if err != nil {
					f.err = err
					break
				}
				*r = next
			}
		}
		if f.err != nil {
			return nil, f.err
		}
		for name := range f.aliases {
			ts.Remove(name)
			folded[name] = struct{}{}
		}
	}
	return sortedKeys(folded), nil
}

type folder struct {
	BaseVisitor[int]
	aliases map[string]*Struct
	err     error
}

// newFolder collects the transparent structs of ts and checks that each
// of them folds.
func newFolder(ts *Typespace) (*folder, error) {
	f := &folder{BaseVisitor: BaseVisitor[int]{Sum{}}, aliases: make(map[string]*Struct)}
	for _, t := range ts.Types() {
		if st, ok := t.(*Struct); ok && st.IsAlias() {
			f.aliases[st.Name] = st
		}
	}
	for _, name := range sortedKeys(f.aliases) {
		st := f.aliases[name]
		args := make([]TypeReference, len(st.Parameters))
		for i, p := range st.Parameters {
			args[i] = p.Ref()
		}
		if _, err := f.fold(Ref(name, args...), nil); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *folder) VisitField(_ Type, fd *Field) int {
	if f.err != nil {
		return 0
	}
	next, err := f.fold(fd.Type, nil)
	if err != nil {
		f.err = err
		return 0
	}
	if next.Equal(fd.Type) {
		return 0
	}
	fd.Type = next
	return 1
}

// VisitTypeName folds the fallback of a primitive. Fallbacks are not
// fields, so VisitField never sees them.
func (f *folder) VisitTypeName(t Type, _ *string) int {
	p, ok := t.(*Primitive)
	if !ok || p.Fallback == nil || f.err != nil {
		return 0
	}
	next, err := f.fold(*p.Fallback, nil)
	if err != nil {
		f.err = err
		return 0
	}
	if next.Equal(*p.Fallback) {
		return 0
	}
	*p.Fallback = next
	return 1
}

// fold resolves ref through transparent wrappers. chain holds the
// wrappers being expanded on the current path.
func (f *folder) fold(ref TypeReference, chain []string) (TypeReference, error) {
	out := TypeReference{Name: ref.Name}
	if len(ref.Arguments) > 0 {
		out.Arguments = make([]TypeReference, len(ref.Arguments))
		for i, a := range ref.Arguments {
			fa, err := f.fold(a, chain)
			if err != nil {
				return TypeReference{}, err
			}
			out.Arguments[i] = fa
		}
	}
	alias, ok := f.aliases[ref.Name]
	if !ok {
		return out, nil
	}
	if slices.Contains(chain, ref.Name) || len(chain) >= maxFoldDepth {
		return TypeReference{}, errors.WithDetails(ErrTransparentCycle,
			"chain", append(slices.Clone(chain), ref.Name))
	}
	target, err := Substitute(alias.Fields.List[0].Type, alias.Parameters, out.Arguments)
	if err != nil {
		return TypeReference{}, err
	}
	return f.fold(target, append(slices.Clip(chain), ref.Name))
}
