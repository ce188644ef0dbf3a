package schema_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/broady/apischema/schema"
)

func field(name string, ref schema.TypeReference) schema.Field {
	return schema.Field{Name: name, Type: ref, Required: true}
}

func params(names ...string) []schema.TypeParameter {
	out := make([]schema.TypeParameter, len(names))
	for i, n := range names {
		out[i] = schema.TypeParameter{Name: n}
	}
	return out
}

func newStruct(name string, fields ...schema.Field) *schema.Struct {
	return &schema.Struct{Name: name, Fields: schema.NamedFields(fields...)}
}

func wrapper(name string, target schema.TypeReference) *schema.Struct {
	return &schema.Struct{
		Name:        name,
		Transparent: true,
		Fields:      schema.UnnamedFields(schema.Field{Type: target, Required: true}),
	}
}

func insertAll(t *testing.T, ts *schema.Typespace, types ...schema.Type) {
	t.Helper()
	for _, typ := range types {
		require.NoError(t, ts.Insert(typ))
	}
}

func ptr(r schema.TypeReference) *schema.TypeReference { return &r }

func mustGet(t *testing.T, ts *schema.Typespace, name string) schema.Type {
	t.Helper()
	typ, ok := ts.Get(name)
	require.True(t, ok, "type %s not found in %s", name, ts)
	return typ
}

// sampleSchema has a cyclic pair, a generic type and two functions.
func sampleSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s := schema.New("petstore", "Pet store API")
	insertAll(t, &s.InputTypes,
		newStruct("api::CreatePet", field("pet", schema.Ref("api::Pet"))),
		newStruct("api::Pet",
			field("name", schema.Ref("string")),
			field("owner", schema.Option(schema.Ref("api::Owner"))),
		),
		newStruct("api::Owner", field("pets", schema.List(schema.Ref("api::Pet")))),
	)
	insertAll(t, &s.OutputTypes,
		newStruct("api::Pet",
			field("id", schema.Ref("u64")),
			field("name", schema.Ref("string")),
			field("owner", schema.Option(schema.Ref("api::Owner"))),
		),
		newStruct("api::Owner", field("pets", schema.List(schema.Ref("api::Pet")))),
		&schema.Struct{
			Name:       "api::Page",
			Parameters: params("T"),
			Fields:     schema.NamedFields(field("items", schema.List(schema.Ref("T"))), field("next", schema.Option(schema.Ref("string")))),
		},
		&schema.Enum{
			Name:           "api::Error",
			Representation: schema.Internal("type"),
			Variants: []schema.Variant{
				{Name: "NotFound", Fields: schema.NamedFields(field("id", schema.Ref("u64")))},
				{Name: "Unauthorized"},
			},
		},
	)
	s.AddFunction(schema.Function{
		Name:       "Create",
		Path:       "pets",
		InputType:  ptr(schema.Ref("api::CreatePet")),
		OutputType: ptr(schema.Ref("api::Pet")),
		ErrorType:  ptr(schema.Ref("api::Error")),
	})
	s.AddFunction(schema.Function{
		Name:       "List",
		Path:       "pets",
		OutputType: ptr(schema.Ref("api::Page", schema.Ref("api::Pet"))),
		ErrorType:  ptr(schema.Ref("api::Error")),
		Readonly:   true,
	})
	return s
}

func marshal(t *testing.T, s *schema.Schema) string {
	t.Helper()
	data, err := schema.Marshal(s)
	require.NoError(t, err)
	return string(data)
}
