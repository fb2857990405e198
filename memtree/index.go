package memtree

import (
	"io"
	"log/slog"
	"slices"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/bimtree/component"
)

// Conflict records an entity observed with two different entity types in one
// model. The first observed type is kept.
type Conflict struct {
	Model          string
	EntityGuid     string
	EntityType     string // kept
	FirstComponent string // component that established EntityType
	OtherType      string // rejected
	OtherComponent string
}

// ModelStats summarizes one ModelIndex.
type ModelStats struct {
	Name           string
	Components     int
	Entities       int
	EntityTypes    int
	ComponentTypes int
	Skipped        int // records without componentGuid
	Duplicates     int // repeated componentGuid, first kept
	Conflicts      int
	SizeBytes      int64
}

// ModelIndex holds the indexes of one model. It is immutable once built.
type ModelIndex struct {
	name string

	// byComponentGuid: sorted guids and their records, ordinal = position.
	compGuids []string
	comps     []component.Component
	// compEntity maps a component ordinal to its entity ordinal, -1 if none.
	compEntity []int32

	// Entity ordinals index entGuids, byEntity and entityTypeOf.
	entGuids     []string
	byEntity     []*roaring.Bitmap
	entityTypeOf []string

	byComponentType map[string]*roaring.Bitmap // component ordinals
	byEntityType    map[string]*roaring.Bitmap // entity ordinals

	conflicts  []Conflict
	skipped    int
	duplicates int
	size       int64
}

// Build indexes records of a model in one pass. Records are processed in the
// given order, which decides "first" for duplicates and type conflicts.
// Skipped records and conflicts are logged to logger.
func Build(model string, records []component.Component, logger *slog.Logger) *ModelIndex {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := &ModelIndex{
		name:            model,
		byComponentType: make(map[string]*roaring.Bitmap),
		byEntityType:    make(map[string]*roaring.Bitmap),
	}

	type owner struct {
		typ  string
		comp string
	}
	seen := make(map[string]struct{}, len(records))
	entityType := make(map[string]owner)
	kept := make([]component.Component, 0, len(records))

	for _, c := range records {
		if err := c.Validate(); err != nil {
			m.skipped++
			logger.Warn("skipping malformed record",
				"model", model, "entityGuid", c.EntityGuid, "error", err)
			continue
		}
		if _, dup := seen[c.ComponentGuid]; dup {
			m.duplicates++
			logger.Warn("skipping duplicate component",
				"model", model, "componentGuid", c.ComponentGuid)
			continue
		}
		seen[c.ComponentGuid] = struct{}{}
		kept = append(kept, c)

		if c.EntityGuid == "" || c.EntityType == "" {
			continue
		}
		prev, ok := entityType[c.EntityGuid]
		switch {
		case !ok:
			entityType[c.EntityGuid] = owner{typ: c.EntityType, comp: c.ComponentGuid}
		case prev.typ != c.EntityType:
			conflict := Conflict{
				Model:          model,
				EntityGuid:     c.EntityGuid,
				EntityType:     prev.typ,
				FirstComponent: prev.comp,
				OtherType:      c.EntityType,
				OtherComponent: c.ComponentGuid,
			}
			m.conflicts = append(m.conflicts, conflict)
			logger.Warn("entity type conflict",
				"model", model,
				"entityGuid", c.EntityGuid,
				"entityType", prev.typ,
				"component", prev.comp,
				"otherType", c.EntityType,
				"otherComponent", c.ComponentGuid)
		}
	}

	// Intern component and entity ids in sorted order.
	sort.Slice(kept, func(i, j int) bool { return kept[i].ComponentGuid < kept[j].ComponentGuid })
	m.comps = kept
	m.compGuids = make([]string, len(kept))
	for i, c := range kept {
		m.compGuids[i] = c.ComponentGuid
		if c.EntityGuid != "" {
			m.entGuids = append(m.entGuids, c.EntityGuid)
		}
	}
	slices.Sort(m.entGuids)
	m.entGuids = slices.Compact(m.entGuids)

	m.byEntity = make([]*roaring.Bitmap, len(m.entGuids))
	m.entityTypeOf = make([]string, len(m.entGuids))
	for i, e := range m.entGuids {
		m.byEntity[i] = roaring.New()
		if o, ok := entityType[e]; ok {
			m.entityTypeOf[i] = o.typ
			bitmapFor(m.byEntityType, o.typ).Add(uint32(i))
		}
	}

	m.compEntity = make([]int32, len(kept))
	for i, c := range kept {
		ord := uint32(i)
		m.compEntity[i] = -1
		if c.EntityGuid != "" {
			e, _ := slices.BinarySearch(m.entGuids, c.EntityGuid)
			m.compEntity[i] = int32(e)
			m.byEntity[e].Add(ord)
		}
		bitmapFor(m.byComponentType, component.TypeKey(c)).Add(ord)
	}

	m.size = m.estimateSize()
	return m
}

func bitmapFor(idx map[string]*roaring.Bitmap, key string) *roaring.Bitmap {
	b, ok := idx[key]
	if !ok {
		b = roaring.New()
		idx[key] = b
	}
	return b
}

func (m *ModelIndex) estimateSize() int64 {
	const recordOverhead = 64
	var n int64
	for _, c := range m.comps {
		n += recordOverhead + int64(len(c.ComponentGuid)+len(c.ComponentType)+len(c.EntityGuid)+len(c.EntityType))
		for k, v := range c.Extra {
			n += int64(len(k) + len(v))
		}
	}
	for i, e := range m.entGuids {
		n += int64(len(e)+len(m.entityTypeOf[i])) + int64(m.byEntity[i].GetSizeInBytes())
	}
	for k, b := range m.byComponentType {
		n += int64(len(k)) + int64(b.GetSizeInBytes())
	}
	for k, b := range m.byEntityType {
		n += int64(len(k)) + int64(b.GetSizeInBytes())
	}
	return n + int64(len(m.compEntity))*4
}

// Name returns the model name.
func (m *ModelIndex) Name() string { return m.name }

// Len returns the number of indexed components.
func (m *ModelIndex) Len() int { return len(m.comps) }

// SizeBytes returns the estimated memory held by the index.
func (m *ModelIndex) SizeBytes() int64 { return m.size }

// Conflicts returns the entity type conflicts found while building.
func (m *ModelIndex) Conflicts() []Conflict { return slices.Clone(m.conflicts) }

// Stats returns summary counts.
func (m *ModelIndex) Stats() ModelStats {
	return ModelStats{
		Name:           m.name,
		Components:     len(m.comps),
		Entities:       len(m.entGuids),
		EntityTypes:    len(m.byEntityType),
		ComponentTypes: len(m.byComponentType),
		Skipped:        m.skipped,
		Duplicates:     m.duplicates,
		Conflicts:      len(m.conflicts),
		SizeBytes:      m.size,
	}
}

// Component returns the record with the given guid.
func (m *ModelIndex) Component(guid string) (component.Component, bool) {
	i, ok := slices.BinarySearch(m.compGuids, guid)
	if !ok {
		return component.Component{}, false
	}
	return m.comps[i], true
}

// EntityType returns the entity type recorded for entityGuid.
func (m *ModelIndex) EntityType(entityGuid string) (string, bool) {
	i, ok := slices.BinarySearch(m.entGuids, entityGuid)
	if !ok || m.entityTypeOf[i] == "" {
		return "", false
	}
	return m.entityTypeOf[i], true
}

// EntityTypes returns the observed entity types, sorted.
func (m *ModelIndex) EntityTypes() []string { return sortedKeys(m.byEntityType) }

// ComponentTypes returns the observed component types (suffix stripped), sorted.
func (m *ModelIndex) ComponentTypes() []string { return sortedKeys(m.byComponentType) }

func sortedKeys(idx map[string]*roaring.Bitmap) []string {
	out := make([]string, 0, len(idx))
	for k := range idx {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
