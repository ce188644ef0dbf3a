package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/broady/apischema/schema"
)

func TestTypespaceReservation(t *testing.T) {
	var ts schema.Typespace

	require.True(t, ts.Reserve("api::Node"))
	assert.False(t, ts.Reserve("api::Node"), "second reservation must short-circuit")
	assert.True(t, ts.Has("api::Node"))
	assert.True(t, ts.IsReserved("api::Node"))
	_, ok := ts.Get("api::Node")
	assert.False(t, ok, "reserved names are not yet defined")
	assert.Equal(t, []string{"api::Node"}, ts.Reserved())

	node := newStruct("api::Node", field("next", schema.Option(schema.Ref("api::Node"))))
	require.NoError(t, ts.Insert(node))
	assert.False(t, ts.IsReserved("api::Node"))
	assert.Same(t, node, mustGet(t, &ts, "api::Node"))
	assert.Equal(t, 1, ts.Len())
	assert.Empty(t, ts.Reserved())
}

func TestTypespaceInsertDuplicate(t *testing.T) {
	var ts schema.Typespace
	insertAll(t, &ts, newStruct("api::User", field("id", schema.Ref("string"))))

	// An identical definition is a no-op.
	require.NoError(t, ts.Insert(newStruct("api::User", field("id", schema.Ref("string")))))
	assert.Equal(t, 1, ts.Len())

	err := ts.Insert(newStruct("api::User", field("id", schema.Ref("u64"))))
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrNameCollision))
	assert.Equal(t, "api::User", errors.Details(err)["name"])
	assert.Equal(t, 1, ts.Len())
}

func TestTypespaceMutualRecursion(t *testing.T) {
	var ts schema.Typespace

	// Builders reserve before descending into fields.
	var build func(name string) schema.TypeReference
	build = func(name string) schema.TypeReference {
		ref := schema.Ref(name)
		if !ts.Reserve(name) {
			return ref
		}
		other := "api::A"
		if name == "api::A" {
			other = "api::B"
		}
		s := newStruct(name, field("peer", schema.Option(build(other))))
		require.NoError(t, ts.Insert(s))
		return ref
	}
	build("api::A")

	assert.Equal(t, 2, ts.Len())
	assert.ElementsMatch(t, []string{"api::A", "api::B"}, ts.Names())
	assert.Empty(t, ts.Reserved())
}

func TestTypespaceSort(t *testing.T) {
	var ts schema.Typespace
	insertAll(t, &ts, newStruct("zeta::Foo"), newStruct("alpha::Bar"))
	ts.Sort()
	assert.Equal(t, []string{"alpha::Bar", "zeta::Foo"}, ts.Names())
	assert.Equal(t, "zeta::Foo", mustGet(t, &ts, "zeta::Foo").TypeName())
}

func TestTypespaceRemove(t *testing.T) {
	var ts schema.Typespace
	insertAll(t, &ts, newStruct("a"), newStruct("b"), newStruct("c"))
	removed, ok := ts.Remove("b")
	require.True(t, ok)
	assert.Equal(t, "b", removed.TypeName())
	assert.Equal(t, []string{"a", "c"}, ts.Names())
	assert.Equal(t, "c", mustGet(t, &ts, "c").TypeName())

	ts.Reserve("d")
	_, ok = ts.Remove("d")
	assert.False(t, ok)
	assert.False(t, ts.Has("d"))
}

func TestTypespaceResolve(t *testing.T) {
	var ts schema.Typespace
	insertAll(t, &ts, newStruct("api::User"))

	typ, err := ts.Resolve(schema.Ref("api::User"))
	require.NoError(t, err)
	assert.Equal(t, schema.KindStruct, typ.Kind())

	typ, err = ts.Resolve(schema.Option(schema.Ref("api::User")))
	require.NoError(t, err)
	assert.Equal(t, schema.KindEnum, typ.Kind())

	_, err = ts.Resolve(schema.Ref("api::Missing"))
	assert.True(t, errors.Is(err, schema.ErrTypeNotFound))
}

func TestTypespaceCloneIsDeep(t *testing.T) {
	var ts schema.Typespace
	insertAll(t, &ts, newStruct("api::User", field("id", schema.Ref("string"))))
	c := ts.Clone()
	mustGet(t, c, "api::User").(*schema.Struct).Fields.List[0].Type.Name = "u64"
	assert.Equal(t, "string", mustGet(t, &ts, "api::User").(*schema.Struct).Fields.List[0].Type.Name)
}
