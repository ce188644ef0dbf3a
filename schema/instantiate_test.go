package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/broady/apischema/schema"
)

func pairStruct() *schema.Struct {
	return &schema.Struct{
		Name:       "api::Pair",
		Parameters: params("A", "B"),
		Fields: schema.NamedFields(
			field("a", schema.Ref("A")),
			field("b", schema.Ref("B")),
		),
	}
}

func TestInstantiatePair(t *testing.T) {
	pair := pairStruct()

	got, err := schema.Instantiate(pair, []schema.TypeReference{schema.Ref(schema.StdU8), schema.Ref(schema.StdString)})
	require.NoError(t, err)

	st := got.(*schema.Struct)
	assert.Empty(t, st.Parameters)
	assert.Equal(t, "u8", st.Fields.Find("a").Type.String())
	assert.Equal(t, "string", st.Fields.Find("b").Type.String())

	// The generic definition is untouched.
	assert.Len(t, pair.Parameters, 2)
	assert.Equal(t, "A", pair.Fields.Find("a").Type.Name)
}

func TestInstantiateNested(t *testing.T) {
	e := &schema.Enum{
		Name:           "api::Result",
		Parameters:     params("T", "E"),
		Representation: schema.Adjacent("kind", "value"),
		Variants: []schema.Variant{
			{Name: "Ok", Fields: schema.UnnamedFields(field("", schema.Map(schema.Ref("string"), schema.List(schema.Ref("T")))))},
			{Name: "Err", Fields: schema.NamedFields(field("error", schema.Ref("E")), field("at", schema.Ref("std::time::Time")))},
		},
	}
	arg := schema.Ref("api::Pair", schema.Ref("u8"), schema.Ref("string"))

	got, err := schema.Instantiate(e, []schema.TypeReference{arg, schema.Ref("api::Problem")})
	require.NoError(t, err)

	out := got.(*schema.Enum)
	assert.Empty(t, out.Parameters)
	assert.Equal(t, schema.Adjacent("kind", "value"), out.Representation)
	assert.Equal(t, "std::Map<string, std::List<api::Pair<u8, string>>>", out.FindVariant("Ok").Fields.List[0].Type.String())
	assert.Equal(t, "api::Problem", out.FindVariant("Err").Fields.Find("error").Type.String())
	assert.Equal(t, "std::time::Time", out.FindVariant("Err").Fields.Find("at").Type.String())
	names := schema.ReferencedNames(out)
	assert.NotContains(t, names, "T")
	assert.NotContains(t, names, "E")
}

func TestInstantiateGroundTermIsUnchanged(t *testing.T) {
	user := newStruct("api::User", field("id", schema.Ref("std::uuid::Uuid")))
	got, err := schema.Instantiate(user, nil)
	require.NoError(t, err)
	assert.True(t, schema.Equal(user, got))
	assert.NotSame(t, user, got)
}

func TestInstantiateErrors(t *testing.T) {
	t.Run("arity", func(t *testing.T) {
		_, err := schema.Instantiate(pairStruct(), []schema.TypeReference{schema.Ref("u8")})
		require.Error(t, err)
		assert.True(t, errors.Is(err, schema.ErrArityMismatch))
		details := errors.Details(err)
		assert.Equal(t, 2, details["expected"])
		assert.Equal(t, 1, details["got"])
	})

	t.Run("bound parameter with arguments", func(t *testing.T) {
		s := &schema.Struct{
			Name:       "api::Bad",
			Parameters: params("T"),
			Fields:     schema.NamedFields(field("x", schema.Ref("T", schema.Ref("u8")))),
		}
		_, err := schema.Instantiate(s, []schema.TypeReference{schema.Ref("string")})
		assert.True(t, errors.Is(err, schema.ErrBoundParameterArguments))
	})
}

func TestInstantiatePrimitiveFallback(t *testing.T) {
	set, ok := schema.StdType(schema.StdSet)
	require.True(t, ok)
	got, err := schema.Instantiate(set, []schema.TypeReference{schema.Ref("string")})
	require.NoError(t, err)
	assert.Equal(t, "std::List<string>", got.(*schema.Primitive).Fallback.String())
}

func TestTypespaceConcrete(t *testing.T) {
	ts, err := schema.NewTypespace(pairStruct())
	require.NoError(t, err)

	got, err := ts.Concrete(schema.Ref("api::Pair", schema.Ref(schema.StdI32), schema.List(schema.Ref(schema.StdBool))))
	require.NoError(t, err)
	st := got.(*schema.Struct)
	assert.Equal(t, "std::List<bool>", st.Fields.Find("b").Type.String())

	opt, err := ts.Concrete(schema.Option(schema.Ref("api::Pair", schema.Ref("u8"), schema.Ref("u8"))))
	require.NoError(t, err)
	assert.Equal(t, schema.KindEnum, opt.Kind())

	_, err = ts.Concrete(schema.Ref("api::Pair"))
	assert.True(t, errors.Is(err, schema.ErrArityMismatch))
	_, err = ts.Concrete(schema.Ref("api::Missing"))
	assert.True(t, errors.Is(err, schema.ErrTypeNotFound))
}
