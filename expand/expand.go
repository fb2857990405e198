// Package expand translates possibly abstract type filters into the concrete
// types each model actually contains.
//
// Expansion runs in two stages: the requested types are expanded globally to
// their descendant closure in the class hierarchy, then intersected with the
// types observed in each model. If the hierarchy is unavailable or does not
// know a requested type, the request is used literally.
package expand

import (
	"io"
	"log/slog"
	"slices"

	"github.com/hupe1980/bimtree/component"
)

// Hierarchy is the class taxonomy. *taxonomy.Hierarchy satisfies it.
type Hierarchy interface {
	Descendants(class string) ([]string, error)
}

// Catalog reports the types observed per model. *memtree.Tree and
// *memtree.Snapshot satisfy it.
type Catalog interface {
	Models() []string
	EntityTypes(models []string) []string
	ComponentTypes(models []string) []string
}

// Option configures an Expander.
type Option func(*Expander)

// WithLogger sets the logger that receives literal-fallback notices.
// Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(e *Expander) {
		if l != nil {
			e.logger = l
		}
	}
}

// Expander expands type filters against a hierarchy and a catalog.
type Expander struct {
	h      Hierarchy
	c      Catalog
	logger *slog.Logger
}

// New creates an Expander. h may be nil, in which case every request is
// matched literally.
func New(h Hierarchy, c Catalog, opts ...Option) *Expander {
	e := &Expander{
		h:      h,
		c:      c,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EntityTypesPerModel returns, for each model, the observed entity types that
// are descendants of a requested type. An empty models argument selects every
// model in the catalog.
//
// A nil request returns a nil map, meaning "no filter". A model without any
// matching type maps to a non-nil empty slice, meaning "no matches".
func (e *Expander) EntityTypesPerModel(requested, models []string) map[string][]string {
	if requested == nil {
		return nil
	}
	global := e.expand(requested, "entity")
	return e.perModel(global, models, e.c.EntityTypes)
}

// ComponentTypesPerModel is EntityTypesPerModel for component types. The type
// suffix is stripped from each request before expansion.
func (e *Expander) ComponentTypesPerModel(requested, models []string) map[string][]string {
	if requested == nil {
		return nil
	}
	global := e.expand(stripAll(requested), "component")
	return e.perModel(global, models, e.c.ComponentTypes)
}

// Literal returns the de-duplicated, sorted request without expansion.
func Literal(requested []string) []string {
	if requested == nil {
		return nil
	}
	out := slices.Clone(requested)
	slices.Sort(out)
	return slices.Compact(out)
}

// LiteralComponentTypes is Literal with the type suffix stripped.
func LiteralComponentTypes(requested []string) []string {
	if requested == nil {
		return nil
	}
	return Literal(stripAll(requested))
}

// expand returns the union of the descendant closures of requested, or the
// literal request if any type cannot be expanded.
func (e *Expander) expand(requested []string, kind string) []string {
	if e.h == nil {
		e.logger.Info("type hierarchy unavailable, matching literally",
			"kind", kind, "types", requested)
		return Literal(requested)
	}

	var out []string
	for _, t := range requested {
		d, err := e.h.Descendants(t)
		if err != nil {
			e.logger.Info("type not expandable, matching literally",
				"kind", kind, "type", t, "error", err)
			return Literal(requested)
		}
		out = append(out, d...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (e *Expander) perModel(global, models []string, observed func([]string) []string) map[string][]string {
	if len(models) == 0 {
		models = e.c.Models()
	}
	out := make(map[string][]string, len(models))
	for _, m := range models {
		out[m] = intersect(global, observed([]string{m}))
	}
	return out
}

// intersect merges two sorted, de-duplicated slices.
func intersect(a, b []string) []string {
	out := []string{}
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

func stripAll(types []string) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = component.StripSuffix(t)
	}
	return out
}
