package schema

import "sort"

// Names of the built-in std types. Generators map them to native
// equivalents; anything else must be defined in a typespace.
const (
	StdBool    = "bool"
	StdI8      = "i8"
	StdI16     = "i16"
	StdI32     = "i32"
	StdI64     = "i64"
	StdU8      = "u8"
	StdU16     = "u16"
	StdU32     = "u32"
	StdU64     = "u64"
	StdF32     = "f32"
	StdF64     = "f64"
	StdString  = "string"
	StdBytes   = "std::Bytes"
	StdList    = "std::List"
	StdSet     = "std::Set"
	StdMap     = "std::Map"
	StdOption  = "std::Option"
	StdPatch   = "std::Patch"
	StdUnit    = "std::Unit"
	StdTime    = "std::time::Time"
	StdDur     = "std::time::Duration"
	StdUUID    = "std::uuid::Uuid"
	StdURL     = "std::url::Url"
	StdJSON    = "std::json::Value"
	stdParamT  = "T"
	stdParamK  = "K"
	stdParamV  = "V"
	stdSomeVar = "Some"
)

var stdTable = buildStdTable()

func buildStdTable() map[string]Type {
	prim := func(name, doc string, fallback *TypeReference, params ...string) *Primitive {
		p := &Primitive{Name: name, Description: doc, Fallback: fallback}
		for _, n := range params {
			p.Parameters = append(p.Parameters, TypeParameter{Name: n})
		}
		return p
	}
	ref := func(name string, args ...TypeReference) *TypeReference {
		r := Ref(name, args...)
		return &r
	}
	t := Ref(stdParamT)

	types := []Type{
		prim(StdBool, "Boolean", nil),
		prim(StdI8, "8-bit signed integer", nil),
		prim(StdI16, "16-bit signed integer", nil),
		prim(StdI32, "32-bit signed integer", nil),
		prim(StdI64, "64-bit signed integer", nil),
		prim(StdU8, "8-bit unsigned integer", nil),
		prim(StdU16, "16-bit unsigned integer", nil),
		prim(StdU32, "32-bit unsigned integer", nil),
		prim(StdU64, "64-bit unsigned integer", nil),
		prim(StdF32, "32-bit float", nil),
		prim(StdF64, "64-bit float", nil),
		prim(StdString, "UTF-8 string", nil),
		prim(StdBytes, "Byte string, base64 on JSON wires", ref(StdList, Ref(StdU8))),
		prim(StdList, "Ordered sequence", nil, stdParamT),
		prim(StdSet, "Unordered set of unique values", ref(StdList, t), stdParamT),
		prim(StdMap, "Key-value map", nil, stdParamK, stdParamV),
		prim(StdUnit, "Empty value", nil),
		prim(StdTime, "RFC 3339 timestamp", ref(StdString)),
		prim(StdDur, "Duration in nanoseconds", ref(StdI64)),
		prim(StdUUID, "UUID in canonical text form", ref(StdString)),
		prim(StdURL, "Absolute URL", ref(StdString)),
		prim(StdJSON, "Arbitrary JSON value", nil),
		&Enum{
			Name:           StdOption,
			Description:    "Nullable value",
			Parameters:     []TypeParameter{{Name: stdParamT}},
			Representation: Untagged(),
			Variants: []Variant{
				{Name: "None", Fields: Fields{Kind: FieldsNone}},
				{Name: stdSomeVar, Fields: UnnamedFields(Field{Type: t, Required: true})},
			},
		},
		&Enum{
			Name:           StdPatch,
			Description:    "Value that distinguishes absent, null and present",
			Parameters:     []TypeParameter{{Name: stdParamT}},
			Representation: Untagged(),
			Variants: []Variant{
				{Name: "Undefined", Fields: Fields{Kind: FieldsNone}},
				{Name: "None", Fields: Fields{Kind: FieldsNone}},
				{Name: stdSomeVar, Fields: UnnamedFields(Field{Type: t, Required: true})},
			},
		},
	}
	m := make(map[string]Type, len(types))
	for _, typ := range types {
		m[typ.TypeName()] = typ
	}
	return m
}

// StdType returns a copy of the built-in definition named name.
func StdType(name string) (Type, bool) {
	t, ok := stdTable[name]
	if !ok {
		return nil, false
	}
	return Clone(t), true
}

// IsStd reports whether name is a built-in type.
func IsStd(name string) bool {
	_, ok := stdTable[name]
	return ok
}

// StdNames returns the built-in type names, sorted.
func StdNames() []string {
	out := make([]string, 0, len(stdTable))
	for name := range stdTable {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Option returns a reference to std::Option<t>.
func Option(t TypeReference) TypeReference { return Ref(StdOption, t) }

// List returns a reference to std::List<t>.
func List(t TypeReference) TypeReference { return Ref(StdList, t) }

// Map returns a reference to std::Map<k, v>.
func Map(k, v TypeReference) TypeReference { return Ref(StdMap, k, v) }
