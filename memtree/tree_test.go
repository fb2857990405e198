package memtree

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bimtree/blobstore"
	"github.com/hupe1980/bimtree/component"
	"github.com/hupe1980/bimtree/resource"
	"github.com/hupe1980/bimtree/store"
)

type fakeSource struct {
	mu      sync.Mutex
	models  map[string][]component.Component
	fail    map[string]error
	listErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		models: make(map[string][]component.Component),
		fail:   make(map[string]error),
	}
}

func (s *fakeSource) set(model string, comps ...component.Component) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[model] = comps
}

func (s *fakeSource) ModelNames(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	names := make([]string, 0, len(s.models))
	for n := range s.models {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (s *fakeSource) Retrieve(ctx context.Context, model string) ([]component.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[model]; err != nil {
		return nil, err
	}
	return s.models[model], nil
}

func rec(guid, entity, entityType, componentType string) component.Component {
	return component.Component{
		ComponentGuid: guid,
		EntityGuid:    entity,
		EntityType:    entityType,
		ComponentType: componentType,
	}
}

func refreshed(t *testing.T, src Source, opts ...Option) *Tree {
	t.Helper()
	tree := New(src, opts...)
	_, err := tree.Refresh(context.Background())
	require.NoError(t, err)
	return tree
}

func TestTree_M1Scenario(t *testing.T) {
	src := newFakeSource()
	src.set("M1",
		rec("a", "e1", "Wall", "WallComponent"),
		rec("b", "e1", "Wall", "PropertySetComponent"),
	)
	tree := refreshed(t, src)

	m1 := []string{"M1"}
	assert.Equal(t, []string{"e1"}, tree.EntityGuids(m1, nil, nil))
	assert.Equal(t, []string{"a", "b"}, tree.ComponentGuids(m1, []string{"e1"}, nil))
	assert.Equal(t, []string{"PropertySet", "Wall"}, tree.ComponentTypes(m1))
	assert.Equal(t, []string{"Wall"}, tree.EntityTypes(m1))
	assert.Equal(t, []string{"M1"}, tree.Models())
}

func TestTree_Queries(t *testing.T) {
	src := newFakeSource()
	src.set("M1",
		rec("c3", "e2", "Door", "DoorComponent"),
		rec("c1", "e1", "Wall", "WallComponent"),
		rec("c2", "e1", "Wall", "PropertySetComponent"),
		rec("g1", "", "", "ShapeRepresentationComponent"),
		rec("u1", "e3", "", ""),
	)
	src.set("M2",
		rec("d1", "e9", "Wall", "WallComponent"),
		rec("c1", "e1", "Wall", "WallComponent"),
	)
	tree := refreshed(t, src)
	snap := tree.Snapshot()

	t.Run("entity guids", func(t *testing.T) {
		assert.Equal(t, []string{"e1", "e2", "e3", "e9"}, snap.EntityGuids(nil, nil, nil))
		assert.Equal(t, []string{"e1", "e9"}, snap.EntityGuids(nil, []string{"Wall"}, nil))
		assert.Equal(t, []string{"e2"}, snap.EntityGuids([]string{"M1"}, nil, []string{"c3", "g1"}))
		assert.Equal(t, []string{}, snap.EntityGuids([]string{"M1"}, []string{"Wall"}, []string{"c3"}))
		assert.Empty(t, snap.EntityGuids([]string{"nope"}, nil, nil))
	})

	t.Run("component guids", func(t *testing.T) {
		assert.Equal(t, []string{"c1", "c2", "c3", "g1", "u1"}, snap.ComponentGuids([]string{"M1"}, nil, nil))
		assert.Equal(t, []string{"c1", "c2", "d1"}, snap.ComponentGuids(nil, nil, []string{"Wall"}))
		// Entity filters intersect.
		assert.Equal(t, []string{}, snap.ComponentGuids([]string{"M1"}, []string{"e2"}, []string{"Wall"}))
		assert.Equal(t, []string{"c3"}, snap.ComponentGuids([]string{"M1"}, []string{"e2"}, []string{"Door"}))
	})

	t.Run("nil versus empty filter", func(t *testing.T) {
		assert.Len(t, snap.ComponentGuids([]string{"M1"}, nil, nil), 5)
		assert.Empty(t, snap.ComponentGuids([]string{"M1"}, nil, []string{}))
		assert.Empty(t, snap.EntityGuids([]string{"M1"}, []string{}, nil))
	})

	t.Run("by type", func(t *testing.T) {
		assert.Equal(t, []string{"c1", "d1"}, snap.ComponentGuidsByType([]string{"Wall"}, nil))
		assert.Equal(t, []string{"c1", "d1"}, snap.ComponentGuidsByType([]string{"WallComponent"}, nil))
		assert.Equal(t, []string{"u1"}, snap.ComponentGuidsByType([]string{component.UnknownType}, nil))
		assert.Empty(t, snap.ComponentGuidsByType([]string{"Roof"}, nil))
	})

	t.Run("components", func(t *testing.T) {
		comps, owner := snap.Components([]string{"d1", "c1", "missing", "c1"}, nil)
		require.Len(t, comps, 2)
		assert.Equal(t, "c1", comps[0].ComponentGuid)
		assert.Equal(t, "d1", comps[1].ComponentGuid)
		assert.Equal(t, map[string]string{"c1": "M1", "d1": "M2"}, owner)

		_, owner = snap.Components([]string{"c1"}, []string{"M2"})
		assert.Equal(t, map[string]string{"c1": "M2"}, owner)
	})

	t.Run("match", func(t *testing.T) {
		f := Filter{EntityTypes: []string{"Wall"}, ComponentTypes: []string{"PropertySet"}}
		assert.Equal(t, []string{"c2"}, snap.MatchComponents("M1", f))
		assert.Equal(t, []string{"e1"}, snap.MatchEntities("M1", f))
		assert.Equal(t, []string{}, snap.MatchComponents("M2", f))
		assert.Equal(t, []string{}, snap.MatchComponents("nope", Filter{}))
	})

	t.Run("types", func(t *testing.T) {
		assert.Equal(t, []string{"Door", "Wall"}, snap.EntityTypes(nil))
		assert.Equal(t, []string{"Door", "PropertySet", "ShapeRepresentation", "Unknown", "Wall"}, snap.ComponentTypes([]string{"M1"}))
	})
}

func TestTree_FilteringNeverExpands(t *testing.T) {
	src := newFakeSource()
	src.set("M1",
		rec("c1", "e1", "Wall", "WallComponent"),
		rec("c2", "e2", "Door", "DoorComponent"),
		rec("c3", "e3", "Slab", "SlabComponent"),
	)
	snap := refreshed(t, src).Snapshot()

	all := snap.ComponentGuids([]string{"M1"}, nil, nil)
	for _, typ := range []string{"Wall", "Door", "Slab", "Roof"} {
		sub := snap.ComponentGuids([]string{"M1"}, nil, []string{typ})
		assert.Subset(t, all, sub, typ)
	}
}

func TestTree_UnionLaw(t *testing.T) {
	src := newFakeSource()
	for m := 0; m < 4; m++ {
		var comps []component.Component
		for i := 0; i < 20; i++ {
			e := fmt.Sprintf("e%02d", (i*7+m*3)%25)
			comps = append(comps, component.New("WallComponent", e+fmt.Sprint(i), "Wall"))
			comps[len(comps)-1].EntityGuid = e
		}
		src.set(fmt.Sprintf("M%d", m), comps...)
	}
	snap := refreshed(t, src).Snapshot()

	m1 := []string{"M0", "M1"}
	m2 := []string{"M2", "M3"}
	want := append(snap.EntityGuids(m1, nil, nil), snap.EntityGuids(m2, nil, nil)...)
	sort.Strings(want)
	want = compact(want)
	assert.Equal(t, want, snap.EntityGuids(append(m1, m2...), nil, nil))
}

func compact(s []string) []string {
	out := s[:0]
	for i, v := range s {
		if i == 0 || v != s[i-1] {
			out = append(out, v)
		}
	}
	return out
}

func TestTree_EntityTypeConflict(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	src := newFakeSource()
	src.set("M1",
		rec("a", "e1", "Wall", "WallComponent"),
		rec("b", "e1", "Door", "DoorComponent"),
		rec("c", "e1", "Wall", "PropertySetComponent"),
	)
	tree := New(src, WithLogger(logger))
	report, err := tree.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(logs.String(), "entity type conflict"))
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, Conflict{
		Model:          "M1",
		EntityGuid:     "e1",
		EntityType:     "Wall",
		FirstComponent: "a",
		OtherType:      "Door",
		OtherComponent: "b",
	}, report.Conflicts[0])

	// First writer wins; the component still belongs to its entity.
	assert.Equal(t, []string{"Wall"}, tree.EntityTypes(nil))
	assert.Equal(t, []string{"a", "b", "c"}, tree.ComponentGuids(nil, nil, []string{"Wall"}))
	assert.Equal(t, 1, tree.Snapshot().Stats()[0].Conflicts)
}

func TestTree_MalformedAndDuplicates(t *testing.T) {
	var logs bytes.Buffer
	src := newFakeSource()
	src.set("M1",
		rec("", "e1", "Wall", "WallComponent"),
		rec("a", "e1", "Wall", "WallComponent"),
		rec("a", "e2", "Door", "DoorComponent"),
	)
	tree := New(src, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	report, err := tree.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 1, report.Components)
	assert.Equal(t, []string{"e1"}, tree.EntityGuids(nil, nil, nil))
	assert.Contains(t, logs.String(), "skipping malformed record")
}

func TestTree_PartitionFailure(t *testing.T) {
	src := newFakeSource()
	src.set("M1", rec("a", "e1", "Wall", "WallComponent"))
	src.set("M2", rec("b", "e2", "Door", "DoorComponent"))
	src.fail["M2"] = errors.New("disk on fire")

	tree := New(src)
	report, err := tree.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"M2"}, report.Failed)
	assert.Equal(t, []string{"M1", "M2"}, tree.Models())
	assert.Empty(t, tree.ComponentGuids([]string{"M2"}, nil, nil))
	assert.Equal(t, []string{"a"}, tree.ComponentGuids(nil, nil, nil))
}

func TestTree_ListFailureKeepsSnapshot(t *testing.T) {
	src := newFakeSource()
	src.set("M1", rec("a", "e1", "Wall", "WallComponent"))
	tree := refreshed(t, src)
	before := tree.Snapshot()

	src.listErr = errors.New("unreachable")
	_, err := tree.Refresh(context.Background())
	require.Error(t, err)
	assert.Same(t, before, tree.Snapshot())
	assert.Equal(t, []string{"M1"}, tree.Models())
}

func TestTree_CancelledRefreshKeepsSnapshot(t *testing.T) {
	src := newFakeSource()
	src.set("M1", rec("a", "e1", "Wall", "WallComponent"))
	tree := refreshed(t, src)
	before := tree.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tree.Refresh(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Same(t, before, tree.Snapshot())
}

func TestTree_MemoryLimit(t *testing.T) {
	src := newFakeSource()
	var comps []component.Component
	for i := 0; i < 100; i++ {
		comps = append(comps, component.New("WallComponent", fmt.Sprintf("e%03d", i), "Wall"))
	}
	src.set("M1", comps...)

	rc := resource.NewController(resource.Config{MemoryLimitBytes: 512})
	tree := New(src, WithResourceController(rc))
	_, err := tree.Refresh(context.Background())
	require.ErrorIs(t, err, ErrResourceExhausted)
	assert.ErrorIs(t, err, resource.ErrMemoryExhausted)
	assert.Zero(t, tree.Snapshot().Len())
	assert.Zero(t, rc.MemoryUsage())

	rc = resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
	tree = New(src, WithResourceController(rc))
	report, err := tree.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.SizeBytes, rc.MemoryUsage())

	// A second refresh replaces, it does not accumulate.
	_, err = tree.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.SizeBytes, rc.MemoryUsage())

	require.True(t, tree.Drop("M1"))
	assert.Zero(t, rc.MemoryUsage())
}

func TestTree_Drop(t *testing.T) {
	src := newFakeSource()
	src.set("M1", rec("a", "e1", "Wall", "WallComponent"))
	src.set("M2", rec("b", "e2", "Door", "DoorComponent"))
	tree := refreshed(t, src)
	held := tree.Snapshot()

	assert.True(t, tree.Drop("M1"))
	assert.False(t, tree.Drop("M1"))
	assert.Equal(t, []string{"M2"}, tree.Models())
	// Earlier snapshots are unaffected.
	assert.Equal(t, []string{"M1", "M2"}, held.Models())
}

func TestTree_ConcurrentReaders(t *testing.T) {
	src := newFakeSource()
	src.set("M1", rec("a", "e1", "Wall", "WallComponent"), rec("b", "e1", "Wall", "PropertySetComponent"))
	tree := refreshed(t, src, WithConcurrency(2))

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				snap := tree.Snapshot()
				// A snapshot is internally consistent: every guid resolves.
				guids := snap.ComponentGuids(nil, nil, nil)
				comps, _ := snap.Components(guids, nil)
				if !assert.Len(t, comps, len(guids)) {
					return
				}
			}
		}()
	}

	for i := 0; i < 20; i++ {
		src.set(fmt.Sprintf("M%d", i+2), rec(fmt.Sprintf("c%d", i), "e1", "Wall", "WallComponent"))
		_, err := tree.Refresh(context.Background())
		require.NoError(t, err)
	}
	cancel()
	wg.Wait()
	assert.Equal(t, 21, tree.Snapshot().Len())
}

func TestTree_StoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := store.New(blobstore.NewMemoryStore())
	require.NoError(t, err)

	comps := []component.Component{
		component.New("IfcWallComponent", "e1", "IfcWall"),
		component.New("PropertySetComponent", "e1", "IfcWall"),
		component.New("IfcDoorComponent", "e2", "IfcDoor"),
	}
	_, err = st.Store(ctx, "M1", comps)
	require.NoError(t, err)

	tree := refreshed(t, st)
	got, owner := tree.Components(tree.ComponentGuids([]string{"M1"}, nil, nil), nil)
	require.Len(t, got, len(comps))

	want := make([]string, len(comps))
	for i, c := range comps {
		want[i] = c.ComponentGuid
	}
	have := make([]string, len(got))
	for i, c := range got {
		have[i] = c.ComponentGuid
		assert.Equal(t, "M1", owner[c.ComponentGuid])
	}
	assert.ElementsMatch(t, want, have)
}
