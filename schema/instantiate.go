package schema

import "gitlab.com/tozd/go/errors"

// Instantiate returns a concrete copy of the generic definition t with
// every reference to its parameters replaced by the matching argument.
// The result declares no parameters. Instantiating a non-generic type
// with no arguments returns a copy.
func Instantiate(t Type, args []TypeReference) (Type, error) {
	params := t.TypeParameters()
	if len(params) != len(args) {
		return nil, errors.WithDetails(ErrArityMismatch,
			"type", t.TypeName(), "expected", len(params), "got", len(args))
	}
	out := Clone(t)
	if len(params) == 0 {
		return out, nil
	}
	subst := substitution(params, args)

	var err error
	apply := func(r *TypeReference) {
		if err != nil {
			return
		}
		var next TypeReference
		next, err = substitute(*r, subst)
		if err == nil {
			*r = next
		}
	}
	applyFields := func(f *Fields) {
		for i := range f.List {
			apply(&f.List[i].Type)
		}
	}

	switch v := out.(type) {
	case *Struct:
		v.Parameters = nil
		applyFields(&v.Fields)
	case *Enum:
		v.Parameters = nil
		for i := range v.Variants {
			applyFields(&v.Variants[i].Fields)
		}
	case *Primitive:
		v.Parameters = nil
		if v.Fallback != nil {
			apply(v.Fallback)
		}
	}
	if err != nil {
		return nil, errors.WithDetails(err, "type", t.TypeName())
	}
	return out, nil
}

// Substitute replaces references to params inside ref with the matching
// args.
func Substitute(ref TypeReference, params []TypeParameter, args []TypeReference) (TypeReference, error) {
	if len(params) != len(args) {
		return TypeReference{}, errors.WithDetails(ErrArityMismatch,
			"reference", ref.String(), "expected", len(params), "got", len(args))
	}
	return substitute(ref, substitution(params, args))
}

func substitution(params []TypeParameter, args []TypeReference) map[string]TypeReference {
	m := make(map[string]TypeReference, len(params))
	for i, p := range params {
		m[p.Name] = args[i]
	}
	return m
}

func substitute(ref TypeReference, subst map[string]TypeReference) (TypeReference, error) {
	if arg, ok := subst[ref.Name]; ok {
		if len(ref.Arguments) > 0 {
			return TypeReference{}, errors.WithDetails(ErrBoundParameterArguments, "parameter", ref.Name)
		}
		return arg.Clone(), nil
	}
	out := TypeReference{Name: ref.Name}
	if len(ref.Arguments) > 0 {
		out.Arguments = make([]TypeReference, len(ref.Arguments))
		for i, a := range ref.Arguments {
			s, err := substitute(a, subst)
			if err != nil {
				return TypeReference{}, err
			}
			out.Arguments[i] = s
		}
	}
	return out, nil
}
