package provider

import (
	"context"
	"testing"

	"github.com/broady/apischema/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

const fixturesPkg = "github.com/broady/apischema/internal/testfixtures"

func loadFixtures(t *testing.T, roots ...string) (*SourceProvider, *schema.Typespace) {
	t.Helper()
	p := &SourceProvider{}
	ts, err := p.BuildTypespace(context.Background(), SourceInputOptions{
		Packages:  []string{fixturesPkg},
		RootTypes: roots,
	})
	require.NoError(t, err)
	assert.Empty(t, ts.Reserved())
	return p, ts
}

func TestSourceProvider_Struct(t *testing.T) {
	_, ts := loadFixtures(t, "Pet")

	pet := getStruct(t, ts, "testfixtures::Pet")
	assert.Equal(t, "Pet is an animal in the store.", pet.Description)

	id := pet.Fields.Find("ID")
	require.NotNil(t, id)
	assert.Equal(t, "ID is assigned by the store.", id.Description)
	assert.Equal(t, "id", id.WireName())
	assert.Equal(t, "testfixtures::PetID", id.Type.String())

	audit := pet.Fields.Find("Audit")
	require.NotNil(t, audit)
	assert.True(t, audit.Flattened)

	assert.Equal(t, "std::Option<testfixtures::Owner>", pet.Fields.Find("Owner").Type.String())
	assert.True(t, ts.Has("testfixtures::Owner"))

	alias := getStruct(t, ts, "testfixtures::PetID")
	assert.True(t, alias.IsAlias())
}

func TestSourceProvider_Enums(t *testing.T) {
	_, ts := loadFixtures(t, "Species", "Priority")

	typ, ok := ts.Get("testfixtures::Species")
	require.True(t, ok)
	species := typ.(*schema.Enum)
	require.Len(t, species.Variants, 2)
	assert.Equal(t, "SpeciesDog", species.Variants[0].Name)
	assert.Equal(t, "dog", species.Variants[0].WireName())
	assert.Equal(t, "SpeciesDog barks.", species.Variants[0].Description)
	assert.Equal(t, "Species classifies a pet.", species.Description)

	typ, ok = ts.Get("testfixtures::Priority")
	require.True(t, ok)
	priority := typ.(*schema.Enum)
	require.Len(t, priority.Variants, 2)
	assert.Equal(t, "PriorityHigh", priority.Variants[1].Name)
	assert.Equal(t, int64(1), *priority.Variants[1].Discriminant)
}

func TestSourceProvider_Generics(t *testing.T) {
	_, ts := loadFixtures(t, "Page", "Pair")

	page := getStruct(t, ts, "testfixtures::Page")
	require.Len(t, page.Parameters, 1)
	assert.Equal(t, "T", page.Parameters[0].Name)
	assert.Equal(t, "std::List<T>", page.Fields.Find("Items").Type.String())
	assert.Equal(t, "std::Option<i64>", page.Fields.Find("Next").Type.String())

	pair := getStruct(t, ts, "testfixtures::Pair")
	require.Len(t, pair.Parameters, 2)
	assert.Equal(t, "K", pair.Parameters[0].Name)
	assert.Equal(t, "V", pair.Parameters[1].Name)

	concrete, err := schema.Instantiate(page, []schema.TypeReference{schema.Ref("testfixtures::Pet")})
	require.NoError(t, err)
	assert.Equal(t, "std::List<testfixtures::Pet>", concrete.(*schema.Struct).Fields.Find("Items").Type.String())
}

func TestSourceProvider_CustomMarshaler(t *testing.T) {
	p, ts := loadFixtures(t, "Money")
	typ, ok := ts.Get("testfixtures::Money")
	require.True(t, ok)
	prim := typ.(*schema.Primitive)
	assert.Equal(t, "Money is encoded as a decimal string.", prim.Description)
	assert.Equal(t, schema.StdString, prim.Fallback.Name)
	require.NotEmpty(t, p.Warnings())
	assert.Equal(t, "CUSTOM_MARSHALER", p.Warnings()[0].Code)
}

func TestSourceProvider_AnonymousStruct(t *testing.T) {
	_, ts := loadFixtures(t, "Ticket")
	ticket := getStruct(t, ts, "testfixtures::Ticket")
	assert.Equal(t, "testfixtures::Ticket_Meta", ticket.Fields.Find("Meta").Type.String())
	assert.True(t, ts.Has("testfixtures::Ticket_Meta"))
}

func TestSourceProvider_AllExported(t *testing.T) {
	_, ts := loadFixtures(t)
	for _, name := range []string{"Pet", "Owner", "Node", "Headers", "CreatePetRequest", "ListPetsParams"} {
		assert.True(t, ts.Has("testfixtures::"+name), name)
	}

	req := getStruct(t, ts, "testfixtures::CreatePetRequest")
	assert.Equal(t, schema.StdString, req.Fields.Find("Age").Type.Name)
	assert.Equal(t, schema.TransformErase, req.Fields.Find("Extra").Transform)
}

func TestSourceProvider_Errors(t *testing.T) {
	p := &SourceProvider{}
	_, err := p.BuildTypespace(context.Background(), SourceInputOptions{})
	assert.True(t, errors.Is(err, ErrPackageLoad))

	_, err = p.BuildTypespace(context.Background(), SourceInputOptions{
		Packages:  []string{fixturesPkg},
		RootTypes: []string{"DoesNotExist"},
	})
	assert.True(t, errors.Is(err, schema.ErrTypeNotFound))
}
