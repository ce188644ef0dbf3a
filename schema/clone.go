package schema

import (
	"bytes"
	"slices"
)

// Clone returns a deep copy of t.
func Clone(t Type) Type {
	switch v := t.(type) {
	case *Struct:
		out := *v
		out.ID = v.ID.clone()
		out.Parameters = slices.Clone(v.Parameters)
		out.Fields = v.Fields.clone()
		return &out
	case *Enum:
		out := *v
		out.ID = v.ID.clone()
		out.Parameters = slices.Clone(v.Parameters)
		if v.Variants != nil {
			out.Variants = make([]Variant, len(v.Variants))
			for i := range v.Variants {
				out.Variants[i] = v.Variants[i].clone()
			}
		}
		return &out
	case *Primitive:
		out := *v
		out.ID = v.ID.clone()
		out.Parameters = slices.Clone(v.Parameters)
		if v.Fallback != nil {
			fb := v.Fallback.Clone()
			out.Fallback = &fb
		}
		return &out
	default:
		return t
	}
}

func (id SymbolID) clone() SymbolID {
	id.Path = slices.Clone(id.Path)
	return id
}

func (f Fields) clone() Fields {
	out := Fields{Kind: f.Kind}
	if f.List != nil {
		out.List = make([]Field, len(f.List))
		for i, fd := range f.List {
			fd.ID = fd.ID.clone()
			fd.Type = fd.Type.Clone()
			out.List[i] = fd
		}
	}
	return out
}

func (v Variant) clone() Variant {
	v.ID = v.ID.clone()
	v.Fields = v.Fields.clone()
	if v.Discriminant != nil {
		d := *v.Discriminant
		v.Discriminant = &d
	}
	return v
}

// Equal reports whether two definitions are structurally identical,
// including names and symbol identities.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	return bytes.Equal(canonical(a), canonical(b))
}

// canonical returns the JSON encoding of t. The encoding is deterministic
// for a given definition, so it doubles as a structural key.
func canonical(t Type) []byte {
	data, err := marshalType(t)
	if err != nil {
		// Only unsupported values fail to encode, and the model has none.
		panic(err)
	}
	return data
}
