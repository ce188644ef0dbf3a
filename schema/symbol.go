package schema

import (
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"gitlab.com/tozd/go/errors"
)

// SymbolKind categorizes a schema entity for identity purposes.
type SymbolKind int

const (
	SymbolUnknown SymbolKind = iota
	SymbolStruct
	SymbolEnum
	SymbolTypeAlias
	SymbolEndpoint
	SymbolVariant
	SymbolField
	SymbolPrimitive
	SymbolSchema
)

var symbolKindNames = [...]string{
	SymbolUnknown:   "unknown",
	SymbolStruct:    "struct",
	SymbolEnum:      "enum",
	SymbolTypeAlias: "type_alias",
	SymbolEndpoint:  "endpoint",
	SymbolVariant:   "variant",
	SymbolField:     "field",
	SymbolPrimitive: "primitive",
	SymbolSchema:    "schema",
}

// String returns the snake_case name of the kind.
func (k SymbolKind) String() string {
	if k < 0 || int(k) >= len(symbolKindNames) {
		return "unknown"
	}
	return symbolKindNames[k]
}

// ParseSymbolKind is the inverse of SymbolKind.String.
func ParseSymbolKind(s string) (SymbolKind, error) {
	for i, n := range symbolKindNames {
		if n == s {
			return SymbolKind(i), nil
		}
	}
	return SymbolUnknown, errors.Errorf("unknown symbol kind %q", s)
}

// MarshalJSON encodes the kind as its name.
func (k SymbolKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind name.
func (k *SymbolKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.WithStack(err)
	}
	v, err := ParseSymbolKind(s)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// SymbolID is a stable identity for a schema entity. It survives renames
// and is shared by the input and output definitions of the same type.
//
// The zero value is the unknown sentinel.
type SymbolID struct {
	Kind SymbolKind
	Path []string

	// Disambiguator separates distinct entities that share kind and path.
	Disambiguator uint32
}

// NewSymbolID returns an identity with disambiguator zero.
func NewSymbolID(kind SymbolKind, path ...string) SymbolID {
	return SymbolID{Kind: kind, Path: path}
}

// IsUnknown reports whether the identity has not been assigned.
func (id SymbolID) IsUnknown() bool {
	return id.Kind == SymbolUnknown || len(id.Path) == 0
}

// Same reports whether two identities name the same kind and path,
// ignoring the disambiguator.
func (id SymbolID) Same(o SymbolID) bool {
	return id.Kind == o.Kind && slices.Equal(id.Path, o.Path)
}

// Equal reports full equality.
func (id SymbolID) Equal(o SymbolID) bool {
	return id.Same(o) && id.Disambiguator == o.Disambiguator
}

// Child returns the identity of a member of id.
func (id SymbolID) Child(kind SymbolKind, name string) SymbolID {
	path := make([]string, len(id.Path), len(id.Path)+1)
	copy(path, id.Path)
	return SymbolID{Kind: kind, Path: append(path, name)}
}

// String renders "kind:a::b" with a "#n" suffix for nonzero disambiguators.
func (id SymbolID) String() string {
	if id.IsUnknown() {
		return "unknown"
	}
	var b strings.Builder
	b.WriteString(id.Kind.String())
	b.WriteByte(':')
	b.WriteString(strings.Join(id.Path, Sep))
	if id.Disambiguator > 0 {
		b.WriteByte('#')
		b.WriteString(strconv.FormatUint(uint64(id.Disambiguator), 10))
	}
	return b.String()
}

type symbolJSON struct {
	Kind          SymbolKind `json:"kind"`
	Path          []string   `json:"path"`
	Disambiguator uint32     `json:"disambiguator,omitempty"`
}

// MarshalJSON encodes unknown identities as null.
func (id SymbolID) MarshalJSON() ([]byte, error) {
	if id.IsUnknown() {
		return []byte("null"), nil
	}
	return json.Marshal(symbolJSON{Kind: id.Kind, Path: id.Path, Disambiguator: id.Disambiguator})
}

// UnmarshalJSON decodes an identity; null yields the unknown sentinel.
func (id *SymbolID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = SymbolID{}
		return nil
	}
	var v symbolJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return errors.WithStack(err)
	}
	*id = SymbolID{Kind: v.Kind, Path: v.Path, Disambiguator: v.Disambiguator}
	return nil
}
