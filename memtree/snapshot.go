package memtree

import (
	"slices"
	"sort"

	"github.com/hupe1980/bimtree/component"
)

// Snapshot is an immutable set of model indexes. All queries are pure and
// return sorted, de-duplicated results. An empty models argument selects every
// model; unknown model names contribute nothing.
type Snapshot struct {
	models map[string]*ModelIndex
	names  []string
	size   int64
}

func newSnapshot(indexes []*ModelIndex) *Snapshot {
	s := &Snapshot{models: make(map[string]*ModelIndex, len(indexes))}
	for _, m := range indexes {
		if m == nil {
			continue
		}
		s.models[m.name] = m
		s.size += m.size
	}
	s.names = make([]string, 0, len(s.models))
	for name := range s.models {
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)
	return s
}

func emptySnapshot() *Snapshot { return newSnapshot(nil) }

// without returns a copy of s that omits model.
func (s *Snapshot) without(model string) *Snapshot {
	indexes := make([]*ModelIndex, 0, len(s.models))
	for _, name := range s.names {
		if name != model {
			indexes = append(indexes, s.models[name])
		}
	}
	return newSnapshot(indexes)
}

// SizeBytes returns the estimated memory of every index.
func (s *Snapshot) SizeBytes() int64 { return s.size }

// Len returns the number of models.
func (s *Snapshot) Len() int { return len(s.names) }

// Model returns the index of one model.
func (s *Snapshot) Model(name string) (*ModelIndex, bool) {
	m, ok := s.models[name]
	return m, ok
}

// Stats returns per-model statistics in name order.
func (s *Snapshot) Stats() []ModelStats {
	out := make([]ModelStats, len(s.names))
	for i, name := range s.names {
		out[i] = s.models[name].Stats()
	}
	return out
}

// Conflicts returns every entity type conflict, ordered by model.
func (s *Snapshot) Conflicts() []Conflict {
	var out []Conflict
	for _, name := range s.names {
		out = append(out, s.models[name].conflicts...)
	}
	return out
}

// Models returns the sorted model names.
func (s *Snapshot) Models() []string { return slices.Clone(s.names) }

// selected returns the indexes to search, in name order.
func (s *Snapshot) selected(models []string) []*ModelIndex {
	if len(models) == 0 {
		out := make([]*ModelIndex, len(s.names))
		for i, name := range s.names {
			out[i] = s.models[name]
		}
		return out
	}
	names := slices.Clone(models)
	slices.Sort(names)
	names = slices.Compact(names)

	out := make([]*ModelIndex, 0, len(names))
	for _, name := range names {
		if m, ok := s.models[name]; ok {
			out = append(out, m)
		}
	}
	return out
}

// collect unions per-model results.
func (s *Snapshot) collect(models []string, fn func(*ModelIndex) []string) []string {
	sel := s.selected(models)
	if len(sel) == 1 {
		return fn(sel[0])
	}
	out := []string{}
	for _, m := range sel {
		out = append(out, fn(m)...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// EntityGuids returns the entities of the selected models, optionally narrowed
// to entityTypes and to the entities owning componentGuids.
func (s *Snapshot) EntityGuids(models, entityTypes, componentGuids []string) []string {
	f := Filter{EntityTypes: entityTypes, ComponentGuids: componentGuids}
	return s.collect(models, func(m *ModelIndex) []string { return m.MatchEntities(f) })
}

// ComponentGuids returns the components of the selected models. When an
// entity filter is given, only components of entities matching both
// entityGuids and entityTypes are returned.
func (s *Snapshot) ComponentGuids(models, entityGuids, entityTypes []string) []string {
	f := Filter{EntityGuids: entityGuids, EntityTypes: entityTypes}
	return s.collect(models, func(m *ModelIndex) []string { return m.MatchComponents(f) })
}

// ComponentGuidsByType returns the components of the given types. Types may be
// passed with or without the type suffix; unknown types contribute nothing.
func (s *Snapshot) ComponentGuidsByType(componentTypes, models []string) []string {
	f := Filter{ComponentTypes: componentTypes}
	return s.collect(models, func(m *ModelIndex) []string { return m.MatchComponents(f) })
}

// Components fetches records by guid from the selected models. Guids not
// found are omitted. The returned map attributes each record to its model;
// when a guid occurs in several models the first in name order wins.
func (s *Snapshot) Components(componentGuids, models []string) ([]component.Component, map[string]string) {
	guids := slices.Clone(componentGuids)
	slices.Sort(guids)
	guids = slices.Compact(guids)

	sel := s.selected(models)
	out := make([]component.Component, 0, len(guids))
	owner := make(map[string]string, len(guids))
	for _, g := range guids {
		for _, m := range sel {
			if c, ok := m.Component(g); ok {
				out = append(out, c)
				owner[g] = m.name
				break
			}
		}
	}
	return out, owner
}

// EntityTypes returns the entity types observed in the selected models.
func (s *Snapshot) EntityTypes(models []string) []string {
	return s.collect(models, (*ModelIndex).EntityTypes)
}

// ComponentTypes returns the suffix-stripped component types observed in the
// selected models.
func (s *Snapshot) ComponentTypes(models []string) []string {
	return s.collect(models, (*ModelIndex).ComponentTypes)
}

// MatchEntities applies f to a single model.
func (s *Snapshot) MatchEntities(model string, f Filter) []string {
	m, ok := s.models[model]
	if !ok {
		return []string{}
	}
	return m.MatchEntities(f)
}

// MatchComponents applies f to a single model.
func (s *Snapshot) MatchComponents(model string, f Filter) []string {
	m, ok := s.models[model]
	if !ok {
		return []string{}
	}
	return m.MatchComponents(f)
}
