package schema

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Finding is one validation problem, located by the identity of the
// offending entity and a readable pointer such as "api::User.name".
type Finding struct {
	Symbol  SymbolID
	Pointer string
	Message string
}

// Error implements error.
func (f Finding) Error() string {
	if f.Pointer == "" {
		return f.Message
	}
	return f.Pointer + ": " + f.Message
}

// Report accumulates findings.
type Report struct {
	findings []Finding
}

// Add records a finding.
func (r *Report) Add(id SymbolID, pointer, format string, args ...any) {
	r.findings = append(r.findings, Finding{Symbol: id, Pointer: pointer, Message: fmt.Sprintf(format, args...)})
}

// Findings returns the findings in the order they were added.
func (r *Report) Findings() []Finding { return r.findings }

// Len returns the number of findings.
func (r *Report) Len() int { return len(r.findings) }

// Err returns a *ValidationError holding every finding, or nil.
func (r *Report) Err() error {
	if len(r.findings) == 0 {
		return nil
	}
	var merr *multierror.Error
	for _, f := range r.findings {
		merr = multierror.Append(merr, f)
	}
	merr.ErrorFormat = formatFindings
	return &ValidationError{Findings: r.findings, err: merr}
}

func formatFindings(errs []error) string {
	lines := make([]string, len(errs))
	for i, err := range errs {
		lines[i] = "  - " + err.Error()
	}
	noun := "problems"
	if len(errs) == 1 {
		noun = "problem"
	}
	return fmt.Sprintf("schema has %d %s:\n%s", len(errs), noun, strings.Join(lines, "\n"))
}

// ValidationError is returned when a schema fails validation.
type ValidationError struct {
	Findings []Finding
	err      *multierror.Error
}

// Error lists every finding.
func (e *ValidationError) Error() string { return e.err.Error() }

// Unwrap exposes the findings to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error { return e.err.WrappedErrors() }

// Validator inspects a schema and records findings.
type Validator interface {
	Validate(s *Schema, r *Report)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(s *Schema, r *Report)

// Validate calls f.
func (f ValidatorFunc) Validate(s *Schema, r *Report) { f(s, r) }

// DefaultValidators are the checks Validate always runs.
var DefaultValidators = []Validator{
	ValidatorFunc(CheckReferences),
	ValidatorFunc(CheckTypes),
	ValidatorFunc(CheckFunctions),
}

// Validate runs the default checks and then extra, returning a
// *ValidationError if anything was found.
func Validate(s *Schema, extra ...Validator) error {
	r := &Report{}
	for _, v := range DefaultValidators {
		v.Validate(s, r)
	}
	for _, v := range extra {
		v.Validate(s, r)
	}
	return r.Err()
}

// CheckReferences reports references that resolve to nothing or pass the
// wrong number of arguments.
func CheckReferences(s *Schema, r *Report) {
	for _, d := range []Direction{Input, Output} {
		ts := s.Types(d)
		for _, t := range ts.Types() {
			params := make(map[string]bool)
			for _, p := range t.TypeParameters() {
				params[p.Name] = true
			}
			EachField(t, func(pointer string, f *Field) {
				checkReference(ts, f.ID, pointer, f.Type, params, r)
			})
			if p, ok := t.(*Primitive); ok && p.Fallback != nil {
				checkReference(ts, p.ID, p.Name, *p.Fallback, params, r)
			}
		}
		for i := range s.Functions {
			fn := &s.Functions[i]
			for _, ref := range fn.References(d) {
				checkReference(ts, fn.ID, fn.MountPath(), *ref, nil, r)
			}
		}
	}
}

func checkReference(ts *Typespace, id SymbolID, pointer string, ref TypeReference, params map[string]bool, r *Report) {
	for _, a := range ref.Arguments {
		checkReference(ts, id, pointer, a, params, r)
	}
	if params[ref.Name] {
		if len(ref.Arguments) > 0 {
			r.Add(id, pointer, "type parameter %s cannot take arguments", ref.Name)
		}
		return
	}
	t, err := ts.Resolve(ref)
	if err != nil {
		r.Add(id, pointer, "reference to undefined type %s", ref.Name)
		return
	}
	if want := len(t.TypeParameters()); want != len(ref.Arguments) {
		r.Add(id, pointer, "%s takes %d type arguments, got %d", ref.Name, want, len(ref.Arguments))
	}
}

// CheckTypes reports malformed definitions: transparent structs without
// exactly one field, duplicate wire names, duplicate variant names and
// names reserved but never defined.
func CheckTypes(s *Schema, r *Report) {
	for _, d := range []Direction{Input, Output} {
		ts := s.Types(d)
		for _, name := range ts.Reserved() {
			r.Add(SymbolID{}, name, "%s type was reserved but never defined", d)
		}
		for _, t := range ts.Types() {
			switch v := t.(type) {
			case *Struct:
				if v.Transparent && v.Fields.Len() != 1 {
					r.Add(v.ID, v.Name, "transparent struct must have exactly one field, has %d", v.Fields.Len())
				}
				checkWireNames(v.ID, v.Name, v.Fields, r)
			case *Enum:
				seen := make(map[string]bool, len(v.Variants))
				for i := range v.Variants {
					vr := &v.Variants[i]
					if seen[vr.WireName()] {
						r.Add(vr.ID, v.Name+"::"+vr.Name, "duplicate variant name %q", vr.WireName())
					}
					seen[vr.WireName()] = true
					checkWireNames(vr.ID, v.Name+"::"+vr.Name, vr.Fields, r)
				}
				if v.Representation.Kind == RepInternal || v.Representation.Kind == RepAdjacent {
					if v.Representation.Tag == "" {
						r.Add(v.ID, v.Name, "tagged enum needs a tag name")
					}
				}
				if v.Representation.Kind == RepAdjacent && v.Representation.Content == "" {
					r.Add(v.ID, v.Name, "adjacently tagged enum needs a content name")
				}
			}
		}
	}
}

func checkWireNames(id SymbolID, pointer string, fs Fields, r *Report) {
	if fs.Kind != FieldsNamed {
		return
	}
	seen := make(map[string]bool, fs.Len())
	for i := range fs.List {
		name := fs.List[i].WireName()
		if !fs.List[i].Flattened && seen[name] {
			r.Add(id, pointer, "duplicate field name %q", name)
		}
		seen[name] = true
	}
}

// CheckFunctions reports functions without a name and functions mounted
// at the same path.
func CheckFunctions(s *Schema, r *Report) {
	mounted := make(map[string]bool, len(s.Functions))
	for i := range s.Functions {
		fn := &s.Functions[i]
		if fn.Name == "" {
			r.Add(fn.ID, fn.MountPath(), "function has no name")
			continue
		}
		if mounted[fn.MountPath()] {
			r.Add(fn.ID, fn.MountPath(), "duplicate function path")
		}
		mounted[fn.MountPath()] = true
	}
}

// EachField calls fn for every struct field and variant field of t, with
// a pointer naming it such as "api::Pet.name" or "api::Shape::Circle.0".
func EachField(t Type, fn func(pointer string, f *Field)) {
	switch v := t.(type) {
	case *Struct:
		for i := range v.Fields.List {
			fn(v.Name+"."+v.Fields.List[i].Name, &v.Fields.List[i])
		}
	case *Enum:
		for i := range v.Variants {
			vr := &v.Variants[i]
			for j := range vr.Fields.List {
				fn(v.Name+"::"+vr.Name+"."+vr.Fields.List[j].Name, &vr.Fields.List[j])
			}
		}
	}
}
