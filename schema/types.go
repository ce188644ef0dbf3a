// Package schema defines the language-agnostic API schema model and the
// passes that keep it consistent: generic instantiation, reference
// rewriting, renaming, folding of transparent wrappers, consolidation and
// symbol identity assignment.
//
// Type definitions live in a [Typespace], a flat table indexed by
// fully-qualified name. References between types are [TypeReference]
// values, never pointers, so recursive and mutually-recursive definitions
// need no special representation.
package schema

// Kind identifies the category of a type definition.
type Kind int

const (
	KindPrimitive Kind = iota // Built-in or externally defined type
	KindStruct                // Record with named, unnamed or no fields
	KindEnum                  // Tagged union of variants
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "Primitive"
	case KindStruct:
		return "Struct"
	case KindEnum:
		return "Enum"
	default:
		return "Unknown"
	}
}

// Type is a named type definition stored in a Typespace.
// Only *Primitive, *Struct and *Enum implement it.
type Type interface {
	// Kind returns the definition kind for type switching.
	Kind() Kind

	// TypeName returns the fully-qualified name this type is stored under.
	TypeName() string

	// Doc returns the description of the type.
	Doc() string

	// TypeParameters returns the declared generic parameters.
	TypeParameters() []TypeParameter

	// Symbol returns the assigned symbol identity, or the unknown sentinel.
	Symbol() SymbolID

	setName(name string)
	setSymbol(id SymbolID)
	sealed()
}

// TypeParameter is a placeholder usable inside a generic definition.
type TypeParameter struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Ref returns a reference to the parameter.
func (p TypeParameter) Ref() TypeReference {
	return TypeReference{Name: p.Name}
}

// Field is a member of a struct or of a struct-like variant.
type Field struct {
	ID SymbolID `json:"id"`

	// Name is the declared member name. Unnamed fields use their position
	// ("0", "1", ...).
	Name string `json:"name"`

	// SerdeName is the wire name when it differs from Name.
	SerdeName string `json:"serde_name,omitempty"`

	Description string `json:"description,omitempty"`

	// Type is the referenced field type.
	Type TypeReference `json:"type"`

	// Required is false when the field may be entirely absent on the wire.
	// Nullability is carried by the referenced type (std::Option), not here.
	Required bool `json:"required,omitempty"`

	// Flattened fields contribute their own fields to the parent object.
	Flattened bool `json:"flattened,omitempty"`

	// Transform names a registered reference transform applied by
	// Schema.ApplyTransforms. Empty means none.
	Transform TransformName `json:"transform,omitempty"`
}

// WireName returns the serialized member name.
func (f *Field) WireName() string {
	if f.SerdeName != "" {
		return f.SerdeName
	}
	return f.Name
}

// FieldsKind selects the shape of a field list.
type FieldsKind int

const (
	FieldsNone    FieldsKind = iota // Unit struct or unit variant
	FieldsNamed                     // Object-like
	FieldsUnnamed                   // Tuple-like
)

// Fields is the member list of a struct or variant.
type Fields struct {
	Kind FieldsKind
	List []Field
}

// NamedFields returns an object-like field list.
func NamedFields(fields ...Field) Fields {
	return Fields{Kind: FieldsNamed, List: fields}
}

// UnnamedFields returns a tuple-like field list. Empty names are replaced
// with the field position.
func UnnamedFields(fields ...Field) Fields {
	for i := range fields {
		if fields[i].Name == "" {
			fields[i].Name = itoa(i)
		}
	}
	return Fields{Kind: FieldsUnnamed, List: fields}
}

// Len returns the number of fields.
func (f Fields) Len() int { return len(f.List) }

// Find returns the field with the given declared name.
func (f Fields) Find(name string) *Field {
	for i := range f.List {
		if f.List[i].Name == name {
			return &f.List[i]
		}
	}
	return nil
}

// Struct is a record type.
type Struct struct {
	ID          SymbolID        `json:"id"`
	Name        string          `json:"name"`
	SerdeName   string          `json:"serde_name,omitempty"`
	Description string          `json:"description,omitempty"`
	Parameters  []TypeParameter `json:"parameters,omitempty"`
	Fields      Fields          `json:"fields"`

	// Transparent marks a single-field wrapper that serializes as its
	// field. Such structs are eligible for Schema.FoldTransparentTypes.
	Transparent bool `json:"transparent,omitempty"`
}

// Kind returns KindStruct.
func (s *Struct) Kind() Kind { return KindStruct }

// TypeName returns the struct's name.
func (s *Struct) TypeName() string { return s.Name }

// Doc returns the struct's description.
func (s *Struct) Doc() string { return s.Description }

// TypeParameters returns the struct's generic parameters.
func (s *Struct) TypeParameters() []TypeParameter { return s.Parameters }

// Symbol returns the struct's identity.
func (s *Struct) Symbol() SymbolID { return s.ID }

// IsAlias reports whether the struct is a transparent one-field wrapper.
func (s *Struct) IsAlias() bool {
	return s.Transparent && s.Fields.Len() == 1
}

// IsTuple reports whether the struct has unnamed fields.
func (s *Struct) IsTuple() bool { return s.Fields.Kind == FieldsUnnamed }

// IsUnit reports whether the struct has no fields.
func (s *Struct) IsUnit() bool { return s.Fields.Kind == FieldsNone }

func (s *Struct) setName(name string)   { s.Name = name }
func (s *Struct) setSymbol(id SymbolID) { s.ID = id }
func (*Struct) sealed()                 {}

// RepresentationKind selects how a variant is distinguished on the wire.
type RepresentationKind int

const (
	RepExternal RepresentationKind = iota // {"Variant": body}
	RepInternal                           // {"tag": "Variant", ...body}
	RepAdjacent                           // {"tag": "Variant", "content": body}
	RepNone                               // body only, first match wins
)

// Representation is the wire encoding of an enum.
type Representation struct {
	Kind    RepresentationKind
	Tag     string
	Content string
}

// External returns the externally tagged representation.
func External() Representation { return Representation{Kind: RepExternal} }

// Internal returns an internally tagged representation.
func Internal(tag string) Representation {
	return Representation{Kind: RepInternal, Tag: tag}
}

// Adjacent returns an adjacently tagged representation.
func Adjacent(tag, content string) Representation {
	return Representation{Kind: RepAdjacent, Tag: tag, Content: content}
}

// Untagged returns the untagged representation.
func Untagged() Representation { return Representation{Kind: RepNone} }

// Variant is one alternative of an enum.
type Variant struct {
	ID          SymbolID `json:"id"`
	Name        string   `json:"name"`
	SerdeName   string   `json:"serde_name,omitempty"`
	Description string   `json:"description,omitempty"`
	Fields      Fields   `json:"fields"`

	// Discriminant is the explicit numeric value, if declared. It is kept
	// alongside the representation; generators decide precedence.
	Discriminant *int64 `json:"discriminant,omitempty"`

	// Untagged variants are matched by shape even in tagged enums.
	Untagged bool `json:"untagged,omitempty"`
}

// WireName returns the serialized variant name.
func (v *Variant) WireName() string {
	if v.SerdeName != "" {
		return v.SerdeName
	}
	return v.Name
}

// Enum is a tagged union.
type Enum struct {
	ID             SymbolID        `json:"id"`
	Name           string          `json:"name"`
	SerdeName      string          `json:"serde_name,omitempty"`
	Description    string          `json:"description,omitempty"`
	Parameters     []TypeParameter `json:"parameters,omitempty"`
	Representation Representation  `json:"representation"`
	Variants       []Variant       `json:"variants"`
}

// Kind returns KindEnum.
func (e *Enum) Kind() Kind { return KindEnum }

// TypeName returns the enum's name.
func (e *Enum) TypeName() string { return e.Name }

// Doc returns the enum's description.
func (e *Enum) Doc() string { return e.Description }

// TypeParameters returns the enum's generic parameters.
func (e *Enum) TypeParameters() []TypeParameter { return e.Parameters }

// Symbol returns the enum's identity.
func (e *Enum) Symbol() SymbolID { return e.ID }

// FindVariant returns the variant with the given declared name.
func (e *Enum) FindVariant(name string) *Variant {
	for i := range e.Variants {
		if e.Variants[i].Name == name {
			return &e.Variants[i]
		}
	}
	return nil
}

func (e *Enum) setName(name string)   { e.Name = name }
func (e *Enum) setSymbol(id SymbolID) { e.ID = id }
func (*Enum) sealed()                 {}

// Primitive is a built-in or externally defined type.
type Primitive struct {
	ID          SymbolID        `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  []TypeParameter `json:"parameters,omitempty"`

	// Fallback is a structurally equivalent type for generators without a
	// native representation. It may reference Parameters.
	Fallback *TypeReference `json:"fallback,omitempty"`
}

// Kind returns KindPrimitive.
func (p *Primitive) Kind() Kind { return KindPrimitive }

// TypeName returns the primitive's name.
func (p *Primitive) TypeName() string { return p.Name }

// Doc returns the primitive's description.
func (p *Primitive) Doc() string { return p.Description }

// TypeParameters returns the primitive's generic parameters.
func (p *Primitive) TypeParameters() []TypeParameter { return p.Parameters }

// Symbol returns the primitive's identity.
func (p *Primitive) Symbol() SymbolID { return p.ID }

func (p *Primitive) setName(name string)   { p.Name = name }
func (p *Primitive) setSymbol(id SymbolID) { p.ID = id }
func (*Primitive) sealed()                 {}
