package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/broady/apischema/schema"
)

func TestRemapPreservesTypeParameters(t *testing.T) {
	// S<T> { items: Container<T>, first: Container<u8>, self: S<T> }
	s := &schema.Struct{
		Name:       "api::S",
		Parameters: params("T"),
		Fields: schema.NamedFields(
			field("items", schema.Ref("Container", schema.Ref("T"))),
			field("first", schema.Ref("Container", schema.Ref("u8"))),
			field("value", schema.Ref("T")),
		),
	}

	table := schema.NewRemapTable()
	// Container<T> was first resolved where T happened to be string.
	table.Add(schema.Ref("Container", schema.Ref("T")), schema.Ref("api::Container", schema.Ref("string")))
	table.Add(schema.Ref("Container", schema.Ref("u8")), schema.Ref("api::Container", schema.Ref("u8")))
	table.Add(schema.Ref("T"), schema.Ref("string"))

	n := schema.RemapType(s, table)

	assert.Equal(t, 2, n)
	assert.Equal(t, "api::Container<T>", s.Fields.Find("items").Type.String())
	assert.Equal(t, "api::Container<u8>", s.Fields.Find("first").Type.String())
	assert.Equal(t, "T", s.Fields.Find("value").Type.String(), "bare parameters are never remapped")
}

func TestRemapNestedArguments(t *testing.T) {
	s := &schema.Struct{
		Name:       "api::Page",
		Parameters: params("K", "V"),
		Fields: schema.NamedFields(
			field("index", schema.Ref("Index", schema.Ref("K"), schema.Ref("Entry", schema.Ref("V")))),
		),
	}
	table := schema.NewRemapTable()
	table.Add(
		schema.Ref("Index", schema.Ref("K"), schema.Ref("Entry", schema.Ref("V"))),
		schema.Ref("std::Map", schema.Ref("i64"), schema.Ref("api::Entry", schema.Ref("bool"))),
	)

	schema.RemapType(s, table)

	assert.Equal(t, "std::Map<K, api::Entry<V>>", s.Fields.Find("index").Type.String())
}

func TestRemapArgumentCountChange(t *testing.T) {
	s := &schema.Struct{
		Name:       "api::Holder",
		Parameters: params("T"),
		Fields:     schema.NamedFields(field("v", schema.Ref("Boxed", schema.Ref("T")))),
	}
	table := schema.NewRemapTable()
	table.Add(schema.Ref("Boxed", schema.Ref("T")), schema.Ref("api::Boxed"))

	schema.RemapType(s, table)

	assert.Equal(t, "api::Boxed", s.Fields.Find("v").Type.String())
}

func TestTypespaceRemapCyclic(t *testing.T) {
	var ts schema.Typespace
	insertAll(t, &ts,
		newStruct("api::A", field("b", schema.Option(schema.Ref("B")))),
		newStruct("api::B", field("a", schema.Ref("A"))),
	)
	table := schema.NewRemapTable()
	table.Add(schema.Ref("std::Option", schema.Ref("B")), schema.Option(schema.Ref("api::B")))
	table.Add(schema.Ref("A"), schema.Ref("api::A"))

	assert.Equal(t, 2, ts.Remap(table))
	assert.Equal(t, "std::Option<api::B>", mustGet(t, &ts, "api::A").(*schema.Struct).Fields.Find("b").Type.String())
	assert.Equal(t, "api::A", mustGet(t, &ts, "api::B").(*schema.Struct).Fields.Find("a").Type.String())
}

func TestSchemaRemap(t *testing.T) {
	s := schema.New("test", "")
	insertAll(t, &s.OutputTypes,
		newStruct("api::Page_Pet", field("items", schema.List(schema.Ref("api::Pet")))),
		newStruct("api::Shelf", field("pages", schema.List(schema.Ref("api::Page_Pet")))),
		&schema.Primitive{Name: "api::Ext", Fallback: ptr(schema.Ref("api::Page_Pet"))},
	)
	s.AddFunction(schema.Function{Name: "List", OutputType: ptr(schema.Option(schema.Ref("api::Page_Pet")))})
	table := schema.NewRemapTable()
	table.Add(schema.Ref("api::Page_Pet"), schema.Ref("api::Page", schema.Ref("api::Pet")))

	assert.Equal(t, 3, s.Remap(schema.Output, table))
	shelf := mustGet(t, &s.OutputTypes, "api::Shelf").(*schema.Struct)
	assert.Equal(t, "std::List<api::Page<api::Pet>>", shelf.Fields.Find("pages").Type.String())
	assert.Equal(t, "api::Page<api::Pet>", mustGet(t, &s.OutputTypes, "api::Ext").(*schema.Primitive).Fallback.String())
	assert.Equal(t, "std::Option<api::Page<api::Pet>>", s.Functions[0].OutputType.String())
	assert.Zero(t, s.Remap(schema.Input, table))
}

func TestRemapTableEntries(t *testing.T) {
	table := schema.NewRemapTable()
	table.Add(schema.Ref("b::Page_Pet"), schema.Ref("b::Page", schema.Ref("b::Pet")))
	table.Add(schema.Ref("a::Box"), schema.Ref("a::Box2"))

	entries := table.Entries()
	assert.Len(t, entries, 2)
	assert.Equal(t, "a::Box", entries[0].From)
	assert.Equal(t, "b::Page<b::Pet>", entries[1].To.String())

	entries[1].To.Arguments[0].Name = "changed"
	to, _ := table.Lookup(schema.Ref("b::Page_Pet"))
	assert.Equal(t, "b::Pet", to.Arguments[0].Name, "entries are copies")
}
