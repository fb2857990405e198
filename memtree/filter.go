package memtree

import (
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/bimtree/component"
)

// Filter restricts a per-model match. A nil dimension is unconstrained; a
// non-nil empty dimension matches nothing. Supplied dimensions intersect.
type Filter struct {
	EntityTypes    []string
	EntityGuids    []string
	ComponentTypes []string // with or without the type suffix
	ComponentGuids []string
}

func (f Filter) hasEntityDims() bool {
	return f.EntityTypes != nil || f.EntityGuids != nil
}

// MatchEntities returns the sorted entity guids of m satisfying f.
func (m *ModelIndex) MatchEntities(f Filter) []string {
	return m.entityGuids(m.entitySet(f))
}

// MatchComponents returns the sorted component guids of m satisfying f.
func (m *ModelIndex) MatchComponents(f Filter) []string {
	return m.componentGuids(m.componentSet(f))
}

// entitySet evaluates every dimension of f on entity ordinals.
func (m *ModelIndex) entitySet(f Filter) *roaring.Bitmap {
	set := roaring.New()
	set.AddRange(0, uint64(len(m.entGuids)))

	if f.EntityTypes != nil {
		set.And(m.entitiesOfTypes(f.EntityTypes))
	}
	if f.EntityGuids != nil {
		set.And(m.entityOrdinals(f.EntityGuids))
	}
	if f.ComponentGuids != nil || f.ComponentTypes != nil {
		comps := m.componentSet(Filter{ComponentGuids: f.ComponentGuids, ComponentTypes: f.ComponentTypes})
		set.And(m.entitiesOf(comps))
	}
	return set
}

// componentSet evaluates every dimension of f on component ordinals.
func (m *ModelIndex) componentSet(f Filter) *roaring.Bitmap {
	set := roaring.New()
	set.AddRange(0, uint64(len(m.comps)))

	if f.ComponentGuids != nil {
		set.And(m.componentOrdinals(f.ComponentGuids))
	}
	if f.ComponentTypes != nil {
		set.And(m.componentsOfTypes(f.ComponentTypes))
	}
	if f.hasEntityDims() {
		ents := m.entitySet(Filter{EntityTypes: f.EntityTypes, EntityGuids: f.EntityGuids})
		set.And(m.componentsOf(ents))
	}
	return set
}

func (m *ModelIndex) entitiesOfTypes(types []string) *roaring.Bitmap {
	bms := make([]*roaring.Bitmap, 0, len(types))
	for _, t := range types {
		if b, ok := m.byEntityType[t]; ok {
			bms = append(bms, b)
		}
	}
	return union(bms)
}

// componentsOfTypes looks a type up as given, then with the suffix stripped.
func (m *ModelIndex) componentsOfTypes(types []string) *roaring.Bitmap {
	bms := make([]*roaring.Bitmap, 0, len(types))
	for _, t := range types {
		if b, ok := m.byComponentType[t]; ok {
			bms = append(bms, b)
		} else if b, ok := m.byComponentType[component.StripSuffix(t)]; ok {
			bms = append(bms, b)
		}
	}
	return union(bms)
}

func (m *ModelIndex) entityOrdinals(guids []string) *roaring.Bitmap {
	b := roaring.New()
	for _, g := range guids {
		if i, ok := slices.BinarySearch(m.entGuids, g); ok {
			b.Add(uint32(i))
		}
	}
	return b
}

func (m *ModelIndex) componentOrdinals(guids []string) *roaring.Bitmap {
	b := roaring.New()
	for _, g := range guids {
		if i, ok := slices.BinarySearch(m.compGuids, g); ok {
			b.Add(uint32(i))
		}
	}
	return b
}

// entitiesOf maps component ordinals to the ordinals of their entities.
func (m *ModelIndex) entitiesOf(comps *roaring.Bitmap) *roaring.Bitmap {
	b := roaring.New()
	it := comps.Iterator()
	for it.HasNext() {
		if e := m.compEntity[it.Next()]; e >= 0 {
			b.Add(uint32(e))
		}
	}
	return b
}

// componentsOf unions byEntity over entity ordinals.
func (m *ModelIndex) componentsOf(ents *roaring.Bitmap) *roaring.Bitmap {
	bms := make([]*roaring.Bitmap, 0, ents.GetCardinality())
	it := ents.Iterator()
	for it.HasNext() {
		bms = append(bms, m.byEntity[it.Next()])
	}
	return union(bms)
}

func (m *ModelIndex) entityGuids(set *roaring.Bitmap) []string {
	out := make([]string, 0, set.GetCardinality())
	it := set.Iterator()
	for it.HasNext() {
		out = append(out, m.entGuids[it.Next()])
	}
	return out
}

func (m *ModelIndex) componentGuids(set *roaring.Bitmap) []string {
	out := make([]string, 0, set.GetCardinality())
	it := set.Iterator()
	for it.HasNext() {
		out = append(out, m.compGuids[it.Next()])
	}
	return out
}

func union(bms []*roaring.Bitmap) *roaring.Bitmap {
	switch len(bms) {
	case 0:
		return roaring.New()
	case 1:
		return bms[0].Clone()
	default:
		return roaring.FastOr(bms...)
	}
}
