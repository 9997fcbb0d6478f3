// ABOUTME: Tests for the field registry
// ABOUTME: Covers lookups, field resolution and schema loading

package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	schemas map[EntityType]map[string]*Schema
	err     error
}

func (f stubFetcher) FetchSchemas(ctx context.Context) (map[EntityType]map[string]*Schema, error) {
	return f.schemas, f.err
}

func testSchemas() map[EntityType]map[string]*Schema {
	return map[EntityType]map[string]*Schema{
		TypeDataset: {
			"2": {Name: "Sequencing Run", Parameters: map[string]*Parameter{
				"4": {ID: "4", FullName: "Library Prep", DataType: DataString},
				"5": {ID: "5", FullName: "Read Count", DataType: DataNumeric},
			}},
			"7": {Name: "Microscopy Capture", Parameters: map[string]*Parameter{
				"11": {ID: "11", FullName: "Magnification", DataType: DataNumeric},
			}},
		},
		TypeExperiment: {
			"9": {Name: "Ethics Approval", Parameters: map[string]*Parameter{
				"20": {ID: "20", FullName: "Approval Date", DataType: DataDatetime},
			}},
		},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := New(DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, reg.LoadSchemas(context.Background(), stubFetcher{schemas: testSchemas()}))
	return reg
}

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid default config",
			modify: func(c *Config) {},
		},
		{
			name: "unknown entity type",
			modify: func(c *Config) {
				c.Types["sample"] = []Attribute{{ID: "x", DataType: DataString}}
			},
			wantErr: true,
		},
		{
			name: "duplicate attribute id",
			modify: func(c *Config) {
				c.Types[TypeProject] = append(c.Types[TypeProject], c.Types[TypeProject][0])
			},
			wantErr: true,
		},
		{
			name: "empty attribute id",
			modify: func(c *Config) {
				c.Types[TypeProject] = append(c.Types[TypeProject], Attribute{DataType: DataString})
			},
			wantErr: true,
		},
		{
			name: "invalid data type",
			modify: func(c *Config) {
				c.Types[TypeProject] = append(c.Types[TypeProject], Attribute{ID: "x", DataType: "BLOB"})
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReservedSchemaAttribute(t *testing.T) {
	reg, err := New(DefaultConfig())
	require.NoError(t, err)

	for _, et := range TypeOrder {
		attr, err := reg.TypeAttribute(et, AttrSchema)
		require.NoError(t, err, "type %s", et)
		assert.Equal(t, DataCategorical, attr.DataType)
	}
}

func TestTypeAttributeLookup(t *testing.T) {
	reg := newTestRegistry(t)

	attr, err := reg.TypeAttribute(TypeExperiment, "createdDate")
	require.NoError(t, err)
	assert.Equal(t, DataDatetime, attr.DataType)

	_, err = reg.TypeAttribute(TypeExperiment, "nope")
	assert.ErrorIs(t, err, ErrUnknownAttribute)

	_, err = reg.TypeAttribute("sample", "createdDate")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestLoadSchemasPartitionsByType(t *testing.T) {
	reg := newTestRegistry(t)

	assert.Equal(t, []string{"2", "7"}, reg.TypeSchemas(TypeDataset))
	assert.Equal(t, []string{"9"}, reg.TypeSchemas(TypeExperiment))
	assert.Empty(t, reg.TypeSchemas(TypeProject))

	sch, err := reg.Schema("2")
	require.NoError(t, err)
	assert.Equal(t, "2", sch.ID)
	assert.Equal(t, TypeDataset, sch.Type)
	assert.Equal(t, "Sequencing Run", sch.Name)

	_, err = reg.Schema("99")
	assert.ErrorIs(t, err, ErrUnknownSchema)

	assert.False(t, reg.IsLoading())
	assert.Empty(t, reg.LoadError())
}

func TestLoadSchemasFailureKeepsPreviousLoad(t *testing.T) {
	reg := newTestRegistry(t)

	err := reg.LoadSchemas(context.Background(), stubFetcher{err: errors.New("boom")})
	require.Error(t, err)
	assert.Equal(t, "boom", reg.LoadError())

	// The earlier successful load survives.
	_, err = reg.Schema("2")
	assert.NoError(t, err)
}

func TestLoadSchemasReplacesWholesale(t *testing.T) {
	reg := newTestRegistry(t)

	next := map[EntityType]map[string]*Schema{
		TypeProject: {"50": {Name: "Grant", Parameters: map[string]*Parameter{}}},
	}
	require.NoError(t, reg.LoadSchemas(context.Background(), stubFetcher{schemas: next}))

	_, err := reg.Schema("2")
	assert.ErrorIs(t, err, ErrUnknownSchema)
	assert.Equal(t, []string{"50"}, reg.TypeSchemas(TypeProject))
	assert.Empty(t, reg.LoadError())
}

func TestResolveTypeAttribute(t *testing.T) {
	reg := newTestRegistry(t)

	def, err := reg.Resolve(FieldRef{Kind: KindTypeAttribute, Target: []string{"experiment", "createdDate"}})
	require.NoError(t, err)
	assert.Equal(t, TypeExperiment, def.Type)
	assert.Equal(t, DataDatetime, def.DataType)

	// Nested targets resolve through the same attribute slot.
	def, err = reg.Resolve(FieldRef{Kind: KindTypeAttribute, Target: []string{"project", "institution", "name"}})
	require.NoError(t, err)
	assert.Equal(t, DataCategorical, def.DataType)
}

func TestResolveSchemaParameter(t *testing.T) {
	reg := newTestRegistry(t)

	def, err := reg.Resolve(FieldRef{Kind: KindSchemaParameter, Target: []string{"2", "4"}})
	require.NoError(t, err)
	assert.Equal(t, TypeDataset, def.Type)
	assert.Equal(t, DataString, def.DataType)

	_, err = reg.Resolve(FieldRef{Kind: KindSchemaParameter, Target: []string{"2", "99"}})
	assert.ErrorIs(t, err, ErrUnknownParameter)
}

func TestResolveRejectsMalformedRefs(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.Resolve(FieldRef{Kind: KindTypeAttribute, Target: []string{"experiment"}})
	assert.ErrorIs(t, err, ErrBadFieldRef)

	_, err = reg.Resolve(FieldRef{Kind: FieldKind(42), Target: []string{"a", "b"}})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestAncestorChain(t *testing.T) {
	assert.Equal(t, []EntityType{TypeProject}, AncestorChain(TypeProject))
	assert.Equal(t,
		[]EntityType{TypeProject, TypeExperiment, TypeDataset, TypeDatafile},
		AncestorChain(TypeDatafile))
	assert.Nil(t, AncestorChain("sample"))
}

func TestFieldRefEquality(t *testing.T) {
	a := FieldRef{Kind: KindTypeAttribute, Target: []string{"experiment", "createdDate"}}
	b := FieldRef{Kind: KindTypeAttribute, Target: []string{"experiment", "createdDate"}}
	c := FieldRef{Kind: KindSchemaParameter, Target: []string{"experiment", "createdDate"}}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestFieldKindJSON(t *testing.T) {
	var k FieldKind
	require.NoError(t, k.UnmarshalJSON([]byte(`"schemaParameter"`)))
	assert.Equal(t, KindSchemaParameter, k)

	err := k.UnmarshalJSON([]byte(`"wildcard"`))
	assert.ErrorIs(t, err, ErrUnknownKind)

	data, err := KindTypeAttribute.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"typeAttribute"`, string(data))
}
