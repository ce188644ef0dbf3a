package schema

import (
	"sort"

	"gitlab.com/tozd/go/errors"
)

// TransformName names a registered field reference transform.
type TransformName string

const (
	// TransformFallback replaces a primitive with its fallback, repeatedly.
	TransformFallback TransformName = "fallback"
	// TransformErase replaces the reference with std::json::Value.
	TransformErase TransformName = "erase"
	// TransformUnwrapOption strips one std::Option or std::Patch layer.
	TransformUnwrapOption TransformName = "unwrap_option"
)

// TransformFunc rewrites a field reference. owner is the type declaring
// the field and ts resolves the names it refers to.
type TransformFunc func(ref TypeReference, owner Type, ts *Typespace) (TypeReference, error)

var transforms = map[TransformName]TransformFunc{
	TransformFallback:     fallbackTransform,
	TransformErase:        eraseTransform,
	TransformUnwrapOption: unwrapOptionTransform,
}

// LookupTransform returns the transform registered under name.
func LookupTransform(name TransformName) (TransformFunc, bool) {
	fn, ok := transforms[name]
	return fn, ok
}

// Transforms returns the registered transform names, sorted.
func Transforms() []TransformName {
	out := make([]TransformName, 0, len(transforms))
	for name := range transforms {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func fallbackTransform(ref TypeReference, owner Type, ts *Typespace) (TypeReference, error) {
	for range maxFoldDepth {
		if isParameter(owner, ref.Name) {
			return ref, nil
		}
		t, err := ts.Resolve(ref)
		if err != nil {
			return TypeReference{}, err
		}
		p, ok := t.(*Primitive)
		if !ok || p.Fallback == nil {
			return ref, nil
		}
		next, err := Substitute(*p.Fallback, p.Parameters, ref.Arguments)
		if err != nil {
			return TypeReference{}, err
		}
		ref = next
	}
	return TypeReference{}, errors.WithDetails(ErrTransparentCycle, "reference", ref.String(), "reason", "fallback chain too long")
}

func eraseTransform(TypeReference, Type, *Typespace) (TypeReference, error) {
	return Ref(StdJSON), nil
}

func unwrapOptionTransform(ref TypeReference, _ Type, _ *Typespace) (TypeReference, error) {
	if (ref.Name == StdOption || ref.Name == StdPatch) && len(ref.Arguments) == 1 {
		return ref.Arguments[0].Clone(), nil
	}
	return ref, nil
}

func isParameter(owner Type, name string) bool {
	for _, p := range owner.TypeParameters() {
		if p.Name == name {
			return true
		}
	}
	return false
}

// ApplyTransforms runs the transform named by every field that has one
// and clears it. It returns the number of fields transformed.
func (s *Schema) ApplyTransforms() (int, error) {
	n := 0
	for _, d := range []Direction{Input, Output} {
		ts := s.Types(d)
		tr := &transformer{BaseVisitor: BaseVisitor[int]{Sum{}}, ts: ts}
		n += WalkTypespace[int](tr, ts)
		if tr.err != nil {
			return n, tr.err
		}
	}
	return n, nil
}

type transformer struct {
	BaseVisitor[int]
	ts  *Typespace
	err error
}

func (tr *transformer) Halt(int) bool { return tr.err != nil }

func (tr *transformer) VisitField(owner Type, f *Field) int {
	if f.Transform == "" {
		return 0
	}
	fn, ok := LookupTransform(f.Transform)
	if !ok {
		tr.err = errors.WithDetails(ErrUnknownTransform,
			"transform", string(f.Transform), "type", owner.TypeName(), "field", f.Name)
		return 0
	}
	next, err := fn(f.Type, owner, tr.ts)
	if err != nil {
		tr.err = errors.WithDetails(err, "type", owner.TypeName(), "field", f.Name)
		return 0
	}
	f.Type = next
	f.Transform = ""
	return 1
}
