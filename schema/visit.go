package schema

// Monoid combines visit results. Combine must be associative and Zero its
// identity, so results do not depend on how the walk groups them.
type Monoid[R any] interface {
	Zero() R
	Combine(a, b R) R
}

// Visitor receives every element of a type, typespace or schema.
//
// Walks are bottom-up: a reference's arguments are visited before the
// reference, a field's type before the field, and a definition's members
// before its name. Methods may modify what they are handed in place.
type Visitor[R any] interface {
	Monoid[R]
	VisitTypeName(t Type, name *string) R
	VisitTypeParameter(owner Type, p *TypeParameter) R
	VisitField(owner Type, f *Field) R
	VisitVariant(owner *Enum, v *Variant) R
	VisitTypeReference(r *TypeReference) R
	VisitFunction(fn *Function) R
}

// Halter is implemented by visitors that can stop a walk early. Halt is
// consulted after each step with the accumulated result.
type Halter[R any] interface {
	Halt(acc R) bool
}

// BaseVisitor implements every Visit method as a no-op returning Zero.
// Embed it and override the methods of interest.
type BaseVisitor[R any] struct {
	Monoid[R]
}

func (b BaseVisitor[R]) VisitTypeName(Type, *string) R { return b.Zero() }
func (b BaseVisitor[R]) VisitTypeParameter(Type, *TypeParameter) R { return b.Zero() }
func (b BaseVisitor[R]) VisitField(Type, *Field) R { return b.Zero() }
func (b BaseVisitor[R]) VisitVariant(*Enum, *Variant) R { return b.Zero() }
func (b BaseVisitor[R]) VisitTypeReference(*TypeReference) R { return b.Zero() }
func (b BaseVisitor[R]) VisitFunction(*Function) R { return b.Zero() }

// Sum counts.
type Sum struct{}

func (Sum) Zero() int { return 0 }
func (Sum) Combine(a, b int) int { return a + b }

// Any is true if any step returned true.
type Any struct{}

func (Any) Zero() bool { return false }
func (Any) Combine(a, b bool) bool { return a || b }

// Halt stops the walk at the first true result.
func (Any) Halt(acc bool) bool { return acc }

// NameSet collects distinct names.
type NameSet struct{}

func (NameSet) Zero() map[string]struct{} { return nil }

func (NameSet) Combine(a, b map[string]struct{}) map[string]struct{} {
	if len(a) == 0 {
		return b
	}
	for k := range b {
		a[k] = struct{}{}
	}
	return a
}

type walker[R any] struct {
	v       Visitor[R]
	halter  Halter[R]
	acc     R
	stopped bool
}

func newWalker[R any](v Visitor[R]) *walker[R] {
	w := &walker[R]{v: v, acc: v.Zero()}
	w.halter, _ = v.(Halter[R])
	return w
}

func (w *walker[R]) add(r R) {
	if w.stopped {
		return
	}
	w.acc = w.v.Combine(w.acc, r)
	if w.halter != nil && w.halter.Halt(w.acc) {
		w.stopped = true
	}
}

func (w *walker[R]) ref(r *TypeReference) {
	for i := range r.Arguments {
		if w.stopped {
			return
		}
		w.ref(&r.Arguments[i])
	}
	if !w.stopped {
		w.add(w.v.VisitTypeReference(r))
	}
}

func (w *walker[R]) fields(owner Type, f *Fields) {
	for i := range f.List {
		if w.stopped {
			return
		}
		w.ref(&f.List[i].Type)
		if !w.stopped {
			w.add(w.v.VisitField(owner, &f.List[i]))
		}
	}
}

func (w *walker[R]) params(owner Type, ps []TypeParameter) {
	for i := range ps {
		if w.stopped {
			return
		}
		w.add(w.v.VisitTypeParameter(owner, &ps[i]))
	}
}

func (w *walker[R]) typ(t Type) {
	switch v := t.(type) {
	case *Struct:
		w.params(v, v.Parameters)
		w.fields(v, &v.Fields)
		if !w.stopped {
			w.add(w.v.VisitTypeName(v, &v.Name))
		}
	case *Enum:
		w.params(v, v.Parameters)
		for i := range v.Variants {
			if w.stopped {
				return
			}
			w.fields(v, &v.Variants[i].Fields)
			if !w.stopped {
				w.add(w.v.VisitVariant(v, &v.Variants[i]))
			}
		}
		if !w.stopped {
			w.add(w.v.VisitTypeName(v, &v.Name))
		}
	case *Primitive:
		w.params(v, v.Parameters)
		if v.Fallback != nil && !w.stopped {
			w.ref(v.Fallback)
		}
		if !w.stopped {
			w.add(w.v.VisitTypeName(v, &v.Name))
		}
	}
}

func (w *walker[R]) function(fn *Function) {
	for _, r := range []*TypeReference{fn.InputType, fn.InputHeaders, fn.OutputType, fn.ErrorType} {
		if r != nil && !w.stopped {
			w.ref(r)
		}
	}
	if !w.stopped {
		w.add(w.v.VisitFunction(fn))
	}
}

// WalkReference visits r and its arguments.
func WalkReference[R any](v Visitor[R], r *TypeReference) R {
	w := newWalker(v)
	w.ref(r)
	return w.acc
}

// WalkType visits every member of t and then its name.
func WalkType[R any](v Visitor[R], t Type) R {
	w := newWalker(v)
	w.typ(t)
	return w.acc
}

// WalkTypespace visits every definition of ts in storage order. Renaming a
// definition through VisitTypeName leaves the typespace index stale;
// callers that rename must rebuild it.
func WalkTypespace[R any](v Visitor[R], ts *Typespace) R {
	w := newWalker(v)
	for _, t := range ts.types {
		if w.stopped {
			break
		}
		w.typ(t)
	}
	return w.acc
}

// WalkFunctions visits every function's references and then the function.
func WalkFunctions[R any](v Visitor[R], s *Schema) R {
	w := newWalker(v)
	for i := range s.Functions {
		if w.stopped {
			break
		}
		w.function(&s.Functions[i])
	}
	return w.acc
}

// WalkSchema visits the input typespace, the output typespace and then
// the functions.
func WalkSchema[R any](v Visitor[R], s *Schema) R {
	w := newWalker(v)
	for _, ts := range []*Typespace{&s.InputTypes, &s.OutputTypes} {
		for _, t := range ts.types {
			if w.stopped {
				return w.acc
			}
			w.typ(t)
		}
	}
	for i := range s.Functions {
		if w.stopped {
			break
		}
		w.function(&s.Functions[i])
	}
	return w.acc
}

// refCollector gathers the names referenced by whatever it walks.
type refCollector struct {
	BaseVisitor[map[string]struct{}]
}

func (refCollector) VisitTypeReference(r *TypeReference) map[string]struct{} {
	return map[string]struct{}{r.Name: {}}
}

// ReferencedNames returns every name referenced by t's members, sorted.
// Type parameters of t are excluded.
func ReferencedNames(t Type) []string {
	set := WalkType[map[string]struct{}](refCollector{BaseVisitor[map[string]struct{}]{NameSet{}}}, t)
	for _, p := range t.TypeParameters() {
		delete(set, p.Name)
	}
	return sortedKeys(set)
}

// referenceMatcher reports whether a walk meets a reference to name.
type referenceMatcher struct {
	BaseVisitor[bool]
	Any
	name string
}

func (m referenceMatcher) VisitTypeReference(r *TypeReference) bool {
	return r.Name == m.name
}

// References reports whether t refers to name anywhere in its members.
func References(t Type, name string) bool {
	return WalkType[bool](referenceMatcher{BaseVisitor: BaseVisitor[bool]{Any{}}, name: name}, t)
}
