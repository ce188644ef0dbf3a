package jsonschema

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/broady/apischema/schema"
	"github.com/broady/apischema/schemagen/sink"
)

func field(name string, typ schema.TypeReference, required bool) schema.Field {
	return schema.Field{Name: name, Type: typ, Required: required}
}

func unit(name string) schema.Variant {
	return schema.Variant{Name: name, Fields: schema.Fields{Kind: schema.FieldsNone}}
}

func petstore(t *testing.T) *schema.Schema {
	t.Helper()
	ref := schema.Ref
	s := schema.New("petstore", "Pets and owners.")

	require.NoError(t, s.InputTypes.Insert(&schema.Struct{
		Name: "api::CreatePet",
		Fields: schema.NamedFields(
			field("name", ref(schema.StdString), true),
			field("nickname", schema.Option(ref(schema.StdString)), false),
		),
	}))

	audit := field("Audit", ref("api::Audit"), true)
	audit.Flattened = true
	zero := int64(0)
	types := []schema.Type{
		&schema.Struct{Name: "api::Pet", Description: "A pet.", Fields: schema.NamedFields(
			field("id", ref(schema.StdI64), true),
			field("species", ref("api::Species"), true),
			field("parent", schema.Option(ref("api::Pet")), false),
		)},
		&schema.Struct{Name: "api::Audit", Fields: schema.NamedFields(field("created_at", ref(schema.StdTime), true))},
		&schema.Struct{Name: "api::Owned", Fields: schema.NamedFields(audit, field("owner", ref(schema.StdString), true))},
		&schema.Struct{
			Name:       "api::Page",
			Parameters: []schema.TypeParameter{{Name: "T"}},
			Fields: schema.NamedFields(
				field("items", schema.List(ref("T")), true),
				field("next", ref(schema.StdPatch, ref(schema.StdU32)), true),
			),
		},
		&schema.Enum{Name: "api::Species", Representation: schema.External(), Variants: []schema.Variant{unit("dog"), unit("cat")}},
		&schema.Enum{Name: "api::Level", Representation: schema.External(), Variants: []schema.Variant{
			{Name: "Low", Discriminant: &zero, Fields: schema.Fields{Kind: schema.FieldsNone}},
		}},
		&schema.Enum{Name: "api::Event", Representation: schema.Internal("type"), Variants: []schema.Variant{
			unit("Ping"),
			{Name: "Moved", Fields: schema.NamedFields(field("to", ref(schema.StdString), true))},
			{Name: "Raw", Fields: schema.UnnamedFields(field("", ref(schema.StdJSON), true))},
		}},
		&schema.Enum{Name: "api::Shape", Representation: schema.Adjacent("t", "c"), Variants: []schema.Variant{
			unit("Empty"),
			{Name: "Circle", Fields: schema.UnnamedFields(field("", ref(schema.StdF64), true))},
		}},
		&schema.Enum{Name: "api::Result", Representation: schema.External(), Variants: []schema.Variant{
			unit("Ok"),
			{Name: "Err", Fields: schema.UnnamedFields(field("", ref(schema.StdString), true), field("", ref(schema.StdU8), true))},
		}},
		&schema.Struct{Name: "api::PetID", Transparent: true, Fields: schema.UnnamedFields(field("", ref(schema.StdBytes), true))},
	}
	for _, typ := range types {
		require.NoError(t, s.OutputTypes.Insert(typ))
	}

	in, out := ref("api::CreatePet"), ref("api::Page", ref("api::Pet"))
	s.AddFunction(schema.Function{Name: "Create", Path: "pets", InputType: &in, OutputType: &out})
	return s
}

func TestBuild_Instantiations(t *testing.T) {
	doc, err := Build(context.Background(), petstore(t))
	require.NoError(t, err)
	assert.Equal(t, Draft, doc.Dialect)
	assert.Equal(t, "petstore", doc.Title)

	page := doc.Defs["output.api.Page_api.Pet"]
	require.NotNil(t, page, "concrete instantiation is defined")
	assert.Equal(t, "api::Page<api::Pet>", page.Title)
	assert.Equal(t, []string{"items", "next"}, page.Required)
	items := page.Properties["items"]
	assert.Equal(t, "array", items.Type)
	assert.Equal(t, &Schema{Ref: "#/$defs/output.api.Pet"}, items.Items)

	next := page.Properties["next"]
	require.Len(t, next.AnyOf, 2)
	assert.Equal(t, "uint32", next.AnyOf[0].Format)
	assert.Equal(t, "null", next.AnyOf[1].Type)

	_, generic := doc.Defs["output.api.Page"]
	assert.False(t, generic, "generic definitions are never emitted bare")
}

func TestBuild_Structs(t *testing.T) {
	doc, err := Build(context.Background(), petstore(t))
	require.NoError(t, err)

	create := doc.Defs["input.api.CreatePet"]
	require.NotNil(t, create)
	assert.Equal(t, []string{"name"}, create.Required)
	assert.Equal(t, "string", create.Properties["name"].Type)

	pet := doc.Defs["output.api.Pet"]
	require.NotNil(t, pet)
	assert.Equal(t, "A pet.", pet.Description)
	assert.Equal(t, "#/$defs/output.api.Pet", pet.Properties["parent"].AnyOf[0].Ref)
	assert.Equal(t, "int64", pet.Properties["id"].Format)

	owned := doc.Defs["output.api.Owned"]
	require.Len(t, owned.AllOf, 2)
	assert.Equal(t, []string{"owner"}, owned.AllOf[0].Required)
	assert.Equal(t, "#/$defs/output.api.Audit", owned.AllOf[1].Ref)

	id := doc.Defs["output.api.PetID"]
	assert.Equal(t, "string", id.Type)
	assert.Equal(t, "base64", id.ContentEncoding)

	_, crossed := doc.Defs["input.api.Pet"]
	assert.False(t, crossed)
}

func TestBuild_Enums(t *testing.T) {
	doc, err := Build(context.Background(), petstore(t))
	require.NoError(t, err)

	species := doc.Defs["output.api.Species"]
	assert.Equal(t, "string", species.Type)
	assert.Equal(t, []any{"dog", "cat"}, species.Enum)

	level := doc.Defs["output.api.Level"]
	assert.Equal(t, "integer", level.Type)
	assert.Equal(t, []any{int64(0)}, level.Enum)

	event := doc.Defs["output.api.Event"]
	require.Len(t, event.OneOf, 3)
	assert.Equal(t, "Ping", event.OneOf[0].Properties["type"].Const)
	moved := event.OneOf[1]
	assert.Equal(t, []string{"to", "type"}, moved.Required)
	assert.Equal(t, "Moved", moved.Properties["type"].Const)
	require.Len(t, event.OneOf[2].AllOf, 2)

	shape := doc.Defs["output.api.Shape"]
	require.Len(t, shape.OneOf, 2)
	assert.Equal(t, []string{"t"}, shape.OneOf[0].Required)
	assert.Equal(t, []string{"t", "c"}, shape.OneOf[1].Required)
	assert.Equal(t, "double", shape.OneOf[1].Properties["c"].Format)

	result := doc.Defs["output.api.Result"]
	assert.Equal(t, "Ok", result.OneOf[0].Const)
	errVariant := result.OneOf[1].Properties["Err"]
	assert.Len(t, errVariant.PrefixItems, 2)
	assert.Equal(t, 2, *errVariant.MinItems)
	assert.Equal(t, false, errVariant.Items)
	assert.Equal(t, int64(255), *errVariant.PrefixItems[1].Maximum)
}

func TestBuild_DanglingReference(t *testing.T) {
	s := schema.New("broken", "")
	require.NoError(t, s.OutputTypes.Insert(&schema.Struct{
		Name:   "api::Pet",
		Fields: schema.NamedFields(field("owner", schema.Ref("api::Owner"), true)),
	}))
	_, err := Build(context.Background(), s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrTypeNotFound))
}

func TestBuild_PolymorphicRecursion(t *testing.T) {
	ref := schema.Ref
	s := schema.New("nested", "")
	require.NoError(t, s.OutputTypes.Insert(&schema.Struct{
		Name:       "api::Nested",
		Parameters: []schema.TypeParameter{{Name: "T"}},
		Fields: schema.NamedFields(
			field("value", ref("T"), true),
			field("inner", schema.Option(ref("api::Nested", schema.List(ref("T")))), false),
		),
	}))
	out := ref("api::Nested", ref("u8"))
	s.AddFunction(schema.Function{Name: "Get", OutputType: &out})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := Build(ctx, s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrInstantiationDepth))
	assert.NoError(t, ctx.Err())
	assert.Equal(t, "output", errors.Details(err)["direction"])
}

func TestGenerate(t *testing.T) {
	out := sink.NewMemorySink()
	res, err := Generate(context.Background(), petstore(t), out, Config{})
	require.NoError(t, err)
	assert.Equal(t, []string{"schema.json"}, res.Files)

	data := out.Get("schema.json")
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, Draft, decoded["$schema"])
	defs := decoded["$defs"].(map[string]any)
	assert.Len(t, defs, res.Definitions)
	assert.Contains(t, string(data), `"items": false`)
	level := defs["output.api.Level"].(map[string]any)
	assert.Equal(t, []any{float64(0)}, level["enum"], "zero discriminants are kept")

	again := sink.NewMemorySink()
	_, err = Generate(context.Background(), petstore(t), again, Config{})
	require.NoError(t, err)
	assert.Equal(t, data, again.Get("schema.json"), "output is deterministic")
}

func TestDefName(t *testing.T) {
	ref := schema.Ref
	assert.Equal(t, "api.Pet", defName(ref("api::Pet")))
	assert.Equal(t, "api.Pair_string_std.List_i64", defName(ref("api::Pair", ref("string"), schema.List(ref("i64")))))
}
