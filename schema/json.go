package schema

import (
	"bytes"
	"io"

	"github.com/goccy/go-json"
	"gitlab.com/tozd/go/errors"
)

// Marshal encodes s in the interchange format: indented JSON with a
// trailing newline. Encoding a sorted schema is deterministic.
func Marshal(s *Schema) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, errors.Errorf("marshaling schema: %w", err)
	}
	return append(data, '\n'), nil
}

// Unmarshal decodes a schema. Duplicate type names within a typespace are
// rejected with ErrNameCollision.
func Unmarshal(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Errorf("unmarshaling schema: %w", err)
	}
	return &s, nil
}

// Load reads and decodes a schema from r.
func Load(r io.Reader) (*Schema, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return Unmarshal(data)
}

// typeJSON is the externally tagged envelope of a Type.
type typeJSON struct {
	Struct    *Struct    `json:"Struct,omitempty"`
	Enum      *Enum      `json:"Enum,omitempty"`
	Primitive *Primitive `json:"Primitive,omitempty"`
}

func wrapType(t Type) typeJSON {
	switch v := t.(type) {
	case *Struct:
		return typeJSON{Struct: v}
	case *Enum:
		return typeJSON{Enum: v}
	case *Primitive:
		return typeJSON{Primitive: v}
	}
	return typeJSON{}
}

func (e typeJSON) unwrap() (Type, error) {
	switch {
	case e.Struct != nil:
		return e.Struct, nil
	case e.Enum != nil:
		return e.Enum, nil
	case e.Primitive != nil:
		return e.Primitive, nil
	}
	return nil, errors.New("type must be one of Struct, Enum or Primitive")
}

func marshalType(t Type) ([]byte, error) {
	return json.Marshal(wrapType(t))
}

// MarshalType encodes a single definition in its tagged form.
func MarshalType(t Type) ([]byte, error) {
	data, err := marshalType(t)
	return data, errors.WithStack(err)
}

// UnmarshalType decodes a single tagged definition.
func UnmarshalType(data []byte) (Type, error) {
	var e typeJSON
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.WithStack(err)
	}
	return e.unwrap()
}

type typespaceJSON struct {
	Types []typeJSON `json:"types"`
}

// MarshalJSON encodes the definitions in storage order.
func (ts Typespace) MarshalJSON() ([]byte, error) {
	out := typespaceJSON{Types: make([]typeJSON, len(ts.types))}
	for i, t := range ts.types {
		out.Types[i] = wrapType(t)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes definitions, rejecting duplicate names.
func (ts *Typespace) UnmarshalJSON(data []byte) error {
	var in typespaceJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return errors.WithStack(err)
	}
	*ts = Typespace{}
	for _, e := range in.Types {
		t, err := e.unwrap()
		if err != nil {
			return err
		}
		normalize(t)
		if _, dup := ts.Get(t.TypeName()); dup {
			return errors.WithDetails(ErrNameCollision, "name", t.TypeName())
		}
		if err := ts.Insert(t); err != nil {
			return err
		}
	}
	return nil
}

// normalize turns decoded empty lists into nil so decoded definitions
// compare equal to constructed ones.
func normalize(t Type) {
	switch v := t.(type) {
	case *Struct:
		if len(v.Parameters) == 0 {
			v.Parameters = nil
		}
	case *Enum:
		if len(v.Parameters) == 0 {
			v.Parameters = nil
		}
		if len(v.Variants) == 0 {
			v.Variants = nil
		}
	case *Primitive:
		if len(v.Parameters) == 0 {
			v.Parameters = nil
		}
	}
}

var (
	jsonNone    = []byte(`"none"`)
	jsonExt     = []byte(`"external"`)
	jsonNullLit = []byte("null")
)

type fieldsJSON struct {
	Named   *[]Field `json:"named,omitempty"`
	Unnamed *[]Field `json:"unnamed,omitempty"`
}

// MarshalJSON encodes "none", {"named": [...]} or {"unnamed": [...]}.
func (f Fields) MarshalJSON() ([]byte, error) {
	list := f.List
	if list == nil {
		list = []Field{}
	}
	switch f.Kind {
	case FieldsNamed:
		return json.Marshal(fieldsJSON{Named: &list})
	case FieldsUnnamed:
		return json.Marshal(fieldsJSON{Unnamed: &list})
	default:
		return jsonNone, nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (f *Fields) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNone) || bytes.Equal(data, jsonNullLit) {
		*f = Fields{Kind: FieldsNone}
		return nil
	}
	var in fieldsJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return errors.WithStack(err)
	}
	switch {
	case in.Named != nil:
		*f = Fields{Kind: FieldsNamed, List: *in.Named}
	case in.Unnamed != nil:
		*f = Fields{Kind: FieldsUnnamed, List: *in.Unnamed}
	default:
		return errors.Errorf("fields must be \"none\", named or unnamed: %s", data)
	}
	if len(f.List) == 0 {
		f.List = nil
	}
	return nil
}

type tagJSON struct {
	Tag     string `json:"tag"`
	Content string `json:"content,omitempty"`
}

type representationJSON struct {
	Internal *tagJSON `json:"internal,omitempty"`
	Adjacent *tagJSON `json:"adjacent,omitempty"`
}

// MarshalJSON encodes "external", "none", {"internal": {"tag"}} or
// {"adjacent": {"tag", "content"}}.
func (r Representation) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case RepInternal:
		return json.Marshal(representationJSON{Internal: &tagJSON{Tag: r.Tag}})
	case RepAdjacent:
		return json.Marshal(representationJSON{Adjacent: &tagJSON{Tag: r.Tag, Content: r.Content}})
	case RepNone:
		return jsonNone, nil
	default:
		return jsonExt, nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *Representation) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, jsonExt):
		*r = External()
		return nil
	case bytes.Equal(data, jsonNone):
		*r = Untagged()
		return nil
	}
	var in representationJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return errors.WithStack(err)
	}
	switch {
	case in.Internal != nil:
		*r = Internal(in.Internal.Tag)
	case in.Adjacent != nil:
		*r = Adjacent(in.Adjacent.Tag, in.Adjacent.Content)
	default:
		return errors.Errorf("unknown enum representation: %s", data)
	}
	return nil
}
