package bimtree

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bimtree/blobstore"
	"github.com/hupe1980/bimtree/component"
	"github.com/hupe1980/bimtree/resource"
	"github.com/hupe1980/bimtree/taxonomy"
)

func ifcTaxonomy() taxonomy.Source {
	return taxonomy.FileSource(filepath.Join("taxonomy", "testdata", "ifc4_subset.json"))
}

func openMemory(t *testing.T, opts ...Option) *DB {
	t.Helper()
	db, err := Open(context.Background(), Remote(blobstore.NewMemoryStore()), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func rec(guid, entity, entityType, componentType string) component.Component {
	return component.Component{
		ComponentGuid: guid,
		EntityGuid:    entity,
		EntityType:    entityType,
		ComponentType: componentType,
	}
}

func TestDB_M1Scenario(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, Local(t.TempDir()))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Ingest(ctx, "M1", []component.Component{
		rec("a", "e1", "Wall", "WallComponent"),
		rec("b", "e1", "Wall", "PropertySetComponent"),
	})
	require.NoError(t, err)

	m1 := Query{Models: []string{"M1"}}
	entities, err := db.EntityGuids(ctx, m1)
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, entities)

	comps, err := db.ComponentGuids(ctx, Query{Models: []string{"M1"}, EntityGuids: []string{"e1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, comps)

	types, err := db.ComponentTypes(ctx, []string{"M1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"PropertySet", "Wall"}, types)
}

func TestDB_DeleteScenario(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, Local(t.TempDir()))
	require.NoError(t, err)
	defer db.Close()

	for _, m := range []string{"M1", "M2"} {
		_, err := db.Ingest(ctx, m, []component.Component{component.New("WallComponent", "e-"+m, "Wall")})
		require.NoError(t, err)
	}
	require.Equal(t, []string{"M1", "M2"}, db.Models())

	deleted, err := db.DeleteModel(ctx, "M1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, []string{"M2"}, db.Models())

	_, err = db.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"M2"}, db.Models())

	deleted, err = db.DeleteModel(ctx, "M1")
	require.NoError(t, err)
	assert.False(t, deleted)

	stored, err := db.ListStoredModels(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "M2", stored[0].Name)
}

func TestDB_TypeExpansion(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t, WithTaxonomySource(ifcTaxonomy()))
	require.NotNil(t, db.Hierarchy())

	_, err := db.Ingest(ctx, "M1", []component.Component{
		component.New("IfcWallComponent", "w1", "IfcWall"),
		component.New("IfcWallStandardCaseComponent", "w2", "IfcWallStandardCase"),
		component.New("IfcDoorComponent", "d1", "IfcDoor"),
		component.New("IfcPropertySetComponent", "w1", "IfcWall"),
	})
	require.NoError(t, err)
	_, err = db.Ingest(ctx, "M2", []component.Component{
		component.New("IfcSpaceComponent", "s1", "IfcSpace"),
	})
	require.NoError(t, err)

	t.Run("abstract entity type", func(t *testing.T) {
		got, err := db.EntityGuidsByModel(ctx, Query{EntityTypes: []string{"IfcBuildingElement"}})
		require.NoError(t, err)
		// M2 has no building elements: omitted, not unfiltered.
		assert.Equal(t, map[string][]string{"M1": {"d1", "w1", "w2"}}, got)

		got, err = db.EntityGuidsByModel(ctx, Query{EntityTypes: []string{"IfcProduct"}})
		require.NoError(t, err)
		assert.Equal(t, map[string][]string{"M1": {"d1", "w1", "w2"}, "M2": {"s1"}}, got)
	})

	t.Run("literal", func(t *testing.T) {
		got, err := db.EntityGuids(ctx, Query{EntityTypes: []string{"IfcWall"}, Literal: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"w1"}, got)
	})

	t.Run("unknown type falls back to literal", func(t *testing.T) {
		got, err := db.EntityGuids(ctx, Query{EntityTypes: []string{"IfcWall", "NotAClass"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"w1"}, got)
	})

	t.Run("component type", func(t *testing.T) {
		got, err := db.ComponentGuids(ctx, Query{ComponentTypes: []string{"IfcWallComponent"}})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{
			component.Guid("IfcWallComponent", "w1"),
			component.Guid("IfcWallStandardCaseComponent", "w2"),
		}, got)
		assert.IsIncreasing(t, got)
	})

	t.Run("intersection of dimensions", func(t *testing.T) {
		got, err := db.ComponentGuids(ctx, Query{
			EntityTypes:    []string{"IfcBuildingElement"},
			ComponentTypes: []string{"IfcPropertySet"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{component.Guid("IfcPropertySetComponent", "w1")}, got)

		got, err = db.ComponentGuids(ctx, Query{
			EntityGuids:    []string{"d1"},
			ComponentGuids: []string{component.Guid("IfcWallComponent", "w1")},
		})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("components", func(t *testing.T) {
		comps, owner, err := db.Components(ctx, Query{EntityGuids: []string{"s1", "d1"}})
		require.NoError(t, err)
		require.Len(t, comps, 2)
		for _, c := range comps {
			want := "M1"
			if c.EntityGuid == "s1" {
				want = "M2"
			}
			assert.Equal(t, want, owner[c.ComponentGuid])
		}

		byModel, err := db.ComponentsByModel(ctx, Query{EntityTypes: []string{"IfcSpace"}})
		require.NoError(t, err)
		require.Len(t, byModel["M2"], 1)
		assert.NotContains(t, byModel, "M1")
	})
}

func TestDB_RoundTripAndIdempotence(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	comps := []component.Component{
		component.New("IfcWallComponent", "w1", "IfcWall"),
		component.New("IfcDoorComponent", "d1", "IfcDoor"),
		component.New("IfcShapeRepresentationComponent", "", ""),
	}
	require.NoError(t, comps[0].Set("height", 2.7))

	for i := 0; i < 2; i++ {
		res, err := db.Ingest(ctx, "M1", comps)
		require.NoError(t, err)
		assert.Equal(t, 3, res.Stored)
	}

	got, _, err := db.Components(ctx, Query{Models: []string{"M1"}})
	require.NoError(t, err)
	require.Len(t, got, 3)

	want := map[string]component.Component{}
	for _, c := range comps {
		want[c.ComponentGuid] = c
	}
	for _, c := range got {
		w, ok := want[c.ComponentGuid]
		require.True(t, ok)
		wb, _ := w.MarshalJSON()
		gb, _ := c.MarshalJSON()
		assert.JSONEq(t, string(wb), string(gb))
	}
}

func TestDB_TaxonomyUnavailable(t *testing.T) {
	var logs bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&logs, nil))

	broken := taxonomy.SourceFunc(func(context.Context) (taxonomy.Schema, error) {
		return taxonomy.Schema{}, errors.New("schema server down")
	})
	db := openMemory(t, WithTaxonomySource(broken), WithLogger(logger))
	assert.Nil(t, db.Hierarchy())
	assert.Contains(t, logs.String(), "taxonomy unavailable")

	ctx := context.Background()
	_, err := db.Ingest(ctx, "M1", []component.Component{component.New("IfcWallComponent", "w1", "IfcWall")})
	require.NoError(t, err)

	got, err := db.EntityGuids(ctx, Query{EntityTypes: []string{"IfcWall"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"w1"}, got)
}

func TestDB_WithoutAutoRefresh(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t, WithoutAutoRefresh())

	_, err := db.Ingest(ctx, "M1", []component.Component{component.New("WallComponent", "e1", "Wall")})
	require.NoError(t, err)
	assert.Empty(t, db.Models())

	stored, err := db.ListStoredModels(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	report, err := db.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Components)
	assert.Equal(t, []string{"M1"}, db.Models())
}

func TestDB_Options(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}
	db := openMemory(t,
		WithCompression(CompressionZSTD),
		WithRecordCache(1<<20),
		WithConcurrency(2),
		WithResourceConfig(resource.Config{MemoryLimitBytes: 64 << 20, IOLimitBytesPerSec: 64 << 20}),
		WithMetricsCollector(metrics),
	)

	_, err := db.Ingest(ctx, "M1", []component.Component{component.New("WallComponent", "e1", "Wall")})
	require.NoError(t, err)
	_, err = db.EntityGuids(ctx, Query{})
	require.NoError(t, err)
	_, err = db.DeleteModel(ctx, "M1")
	require.NoError(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.IngestCount)
	assert.Equal(t, int64(1), stats.IngestStored)
	assert.Equal(t, int64(2), stats.RefreshCount) // Open and Ingest
	assert.Equal(t, int64(1), stats.QueryCount)
	assert.Equal(t, int64(1), stats.DeleteCount)
}

func TestDB_ResourceExhausted(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t, WithResourceConfig(resource.Config{MemoryLimitBytes: 256}))

	var comps []component.Component
	for _, e := range []string{"e1", "e2", "e3", "e4", "e5", "e6"} {
		comps = append(comps, component.New("IfcWallComponent", e, "IfcWall"))
	}
	_, err := db.Ingest(ctx, "M1", comps)
	require.ErrorIs(t, err, ErrResourceExhausted)
	assert.Empty(t, db.Models())
}

func TestDB_Errors(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	_, err := db.Ingest(ctx, "../escape", nil)
	assert.ErrorIs(t, err, ErrInvalidModelName)

	_, err = db.IngestJSON(ctx, "bad.json", []byte("{"))
	assert.Error(t, err)

	require.NoError(t, db.Close())
	assert.ErrorIs(t, db.Close(), ErrClosed)
	_, err = db.EntityGuids(ctx, Query{})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = db.Refresh(ctx)
	assert.ErrorIs(t, err, ErrClosed)

	_, err = Open(ctx, Remote(nil))
	assert.Error(t, err)
}
