package bimtree

import (
	"context"
	"slices"
	"time"

	"github.com/hupe1980/bimtree/component"
	"github.com/hupe1980/bimtree/expand"
	"github.com/hupe1980/bimtree/memtree"
)

// Query selects entities or components.
//
// A nil field is unconstrained; a non-nil empty field matches nothing. All
// supplied fields intersect. Models empty selects every loaded model.
//
// EntityTypes and ComponentTypes may name abstract classes: each is expanded to
// the concrete types of the hierarchy that occur in each model. Set Literal to
// match type names exactly.
type Query struct {
	Models         []string
	EntityTypes    []string
	EntityGuids    []string
	ComponentTypes []string // with or without the "Component" suffix
	ComponentGuids []string
	Literal        bool
}

// plan is a query resolved against one snapshot.
type plan struct {
	snap    *memtree.Snapshot
	models  []string
	filters map[string]memtree.Filter
}

func (db *DB) plan(q Query) plan {
	snap := db.tree.Snapshot()

	models := snap.Models()
	if len(q.Models) > 0 {
		models = models[:0]
		want := slices.Clone(q.Models)
		slices.Sort(want)
		for _, m := range slices.Compact(want) {
			if _, ok := snap.Model(m); ok {
				models = append(models, m)
			}
		}
	}

	var entityTypes, componentTypes map[string][]string
	if q.Literal {
		entityTypes = literalPerModel(expand.Literal(q.EntityTypes), models)
		componentTypes = literalPerModel(expand.LiteralComponentTypes(q.ComponentTypes), models)
	} else {
		var h expand.Hierarchy
		if db.hierarchy != nil {
			h = db.hierarchy
		}
		x := expand.New(h, snap, expand.WithLogger(db.logger.Logger))
		if q.EntityTypes != nil {
			entityTypes = x.EntityTypesPerModel(q.EntityTypes, models)
		}
		if q.ComponentTypes != nil {
			componentTypes = x.ComponentTypesPerModel(q.ComponentTypes, models)
		}
	}

	p := plan{snap: snap, models: models, filters: make(map[string]memtree.Filter, len(models))}
	for _, m := range models {
		f := memtree.Filter{
			EntityGuids:    q.EntityGuids,
			ComponentGuids: q.ComponentGuids,
		}
		if entityTypes != nil {
			f.EntityTypes = entityTypes[m]
		}
		if componentTypes != nil {
			f.ComponentTypes = componentTypes[m]
		}
		p.filters[m] = f
	}
	return p
}

func literalPerModel(types, models []string) map[string][]string {
	if types == nil {
		return nil
	}
	out := make(map[string][]string, len(models))
	for _, m := range models {
		out[m] = types
	}
	return out
}

func (p plan) byModel(match func(snap *memtree.Snapshot, model string, f memtree.Filter) []string) map[string][]string {
	out := make(map[string][]string)
	for _, m := range p.models {
		if ids := match(p.snap, m, p.filters[m]); len(ids) > 0 {
			out[m] = ids
		}
	}
	return out
}

func union(byModel map[string][]string) []string {
	out := []string{}
	for _, ids := range byModel {
		out = append(out, ids...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (db *DB) observe(ctx context.Context, kind string, start time.Time, models, results int) {
	db.metrics.RecordQuery(kind, results, time.Since(start))
	db.logger.LogQuery(ctx, kind, models, results)
}

// EntityGuidsByModel returns the matching entity guids per model. Models
// without matches are omitted.
func (db *DB) EntityGuidsByModel(ctx context.Context, q Query) (map[string][]string, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	start := time.Now()
	p := db.plan(q)
	out := p.byModel((*memtree.Snapshot).MatchEntities)
	db.observe(ctx, "entityGuidsByModel", start, len(p.models), len(out))
	return out, nil
}

// EntityGuids returns the sorted union of matching entity guids.
func (db *DB) EntityGuids(ctx context.Context, q Query) ([]string, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	start := time.Now()
	p := db.plan(q)
	out := union(p.byModel((*memtree.Snapshot).MatchEntities))
	db.observe(ctx, "entityGuids", start, len(p.models), len(out))
	return out, nil
}

// ComponentGuidsByModel returns the matching component guids per model.
// Models without matches are omitted.
func (db *DB) ComponentGuidsByModel(ctx context.Context, q Query) (map[string][]string, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	start := time.Now()
	p := db.plan(q)
	out := p.byModel((*memtree.Snapshot).MatchComponents)
	db.observe(ctx, "componentGuidsByModel", start, len(p.models), len(out))
	return out, nil
}

// ComponentGuids returns the sorted union of matching component guids.
func (db *DB) ComponentGuids(ctx context.Context, q Query) ([]string, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	start := time.Now()
	p := db.plan(q)
	out := union(p.byModel((*memtree.Snapshot).MatchComponents))
	db.observe(ctx, "componentGuids", start, len(p.models), len(out))
	return out, nil
}

// ComponentsByModel returns the matching records per model, each sorted by
// component guid. Models without matches are omitted.
func (db *DB) ComponentsByModel(ctx context.Context, q Query) (map[string][]component.Component, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	start := time.Now()
	p := db.plan(q)

	out := make(map[string][]component.Component)
	total := 0
	for m, guids := range p.byModel((*memtree.Snapshot).MatchComponents) {
		comps, _ := p.snap.Components(guids, []string{m})
		out[m] = comps
		total += len(comps)
	}
	db.observe(ctx, "componentsByModel", start, len(p.models), total)
	return out, nil
}

// Components returns the matching records sorted by component guid, together
// with the model each record came from. A guid present in several models is
// attributed to the first in name order.
func (db *DB) Components(ctx context.Context, q Query) ([]component.Component, map[string]string, error) {
	if err := db.checkOpen(); err != nil {
		return nil, nil, err
	}
	start := time.Now()
	p := db.plan(q)

	byModel := p.byModel((*memtree.Snapshot).MatchComponents)
	owner := make(map[string]string)
	for _, m := range p.models {
		for _, g := range byModel[m] {
			if _, ok := owner[g]; !ok {
				owner[g] = m
			}
		}
	}

	guids := union(byModel)
	out := make([]component.Component, 0, len(guids))
	for _, g := range guids {
		idx, _ := p.snap.Model(owner[g])
		if c, ok := idx.Component(g); ok {
			out = append(out, c)
		}
	}
	db.observe(ctx, "components", start, len(p.models), len(out))
	return out, owner, nil
}

// EntityTypes returns the entity types observed in models (all if empty).
func (db *DB) EntityTypes(ctx context.Context, models []string) ([]string, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	start := time.Now()
	out := db.tree.EntityTypes(models)
	db.observe(ctx, "entityTypes", start, len(models), len(out))
	return out, nil
}

// ComponentTypes returns the suffix-stripped component types observed in
// models (all if empty).
func (db *DB) ComponentTypes(ctx context.Context, models []string) ([]string, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	start := time.Now()
	out := db.tree.ComponentTypes(models)
	db.observe(ctx, "componentTypes", start, len(models), len(out))
	return out, nil
}
