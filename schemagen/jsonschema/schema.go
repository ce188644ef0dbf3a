// Package jsonschema emits a JSON Schema (draft 2020-12) document for a
// schema. Generic types have no JSON Schema equivalent, so every concrete
// instantiation reachable from the API gets its own definition.
package jsonschema

// Draft is the dialect written to "$schema".
const Draft = "https://json-schema.org/draft/2020-12/schema"

// Schema is the subset of JSON Schema the emitter produces.
type Schema struct {
	Dialect     string `json:"$schema,omitempty"`
	Ref         string `json:"$ref,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Deprecated  bool   `json:"deprecated,omitempty"`

	// Core
	Type            string `json:"type,omitempty"`
	Format          string `json:"format,omitempty"`
	ContentEncoding string `json:"contentEncoding,omitempty"`
	Const           any    `json:"const,omitempty"`
	Enum            []any  `json:"enum,omitempty"`
	Minimum         *int64 `json:"minimum,omitempty"`
	Maximum         *int64 `json:"maximum,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties any                `json:"additionalProperties,omitempty"`

	// Array
	Items       any       `json:"items,omitempty"`
	PrefixItems []*Schema `json:"prefixItems,omitempty"`
	MinItems    *int      `json:"minItems,omitempty"`
	MaxItems    *int      `json:"maxItems,omitempty"`
	UniqueItems bool      `json:"uniqueItems,omitempty"`

	// Composition
	OneOf []*Schema `json:"oneOf,omitempty"`
	AnyOf []*Schema `json:"anyOf,omitempty"`
	AllOf []*Schema `json:"allOf,omitempty"`

	Defs map[string]*Schema `json:"$defs,omitempty"`
}

// property adds a member to an object schema.
func (s *Schema) property(name string, v *Schema, required bool) {
	if s.Properties == nil {
		s.Properties = make(map[string]*Schema)
	}
	s.Properties[name] = v
	if required {
		s.Required = append(s.Required, name)
	}
}

func intPtr(n int) *int       { return &n }
func int64Ptr(n int64) *int64 { return &n }
