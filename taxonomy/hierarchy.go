package taxonomy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
)

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	logger *slog.Logger
}

// WithLogger sets the logger that receives skipped-entry warnings.
// Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *loadOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Stats summarizes a loaded hierarchy.
type Stats struct {
	Classes  int // declared classes
	Roots    int // classes without a resolvable parent
	MaxDepth int // longest root->leaf edge count
	Skipped  int // malformed or duplicate entries dropped at load
	Dangling int // parents referenced but never declared
}

// Hierarchy is an immutable class forest.
//
// A nil *Hierarchy is usable: queries that can fail report ErrUnavailable and
// the others behave as for an empty forest.
type Hierarchy struct {
	schema     string
	parent     map[string]string
	children   map[string][]string
	attributes map[string][]string
	classes    []string
	stats      Stats
}

// Load reads src and builds the hierarchy.
//
// Only a failing source is an error (wrapped in ErrUnavailable). Entries with an
// empty name or a name already declared are skipped; an entry naming itself as
// parent, or a parent that is never declared, is kept as a root. All of these
// are logged.
func Load(ctx context.Context, src Source, opts ...Option) (*Hierarchy, error) {
	o := loadOptions{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := src.Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return build(s, o.logger), nil
}

// New builds a hierarchy directly from entries.
func New(entries []Entry, opts ...Option) *Hierarchy {
	o := loadOptions{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	return build(Schema{Entries: entries}, o.logger)
}

func build(s Schema, logger *slog.Logger) *Hierarchy {
	h := &Hierarchy{
		schema:     s.Name,
		parent:     make(map[string]string, len(s.Entries)),
		children:   make(map[string][]string),
		attributes: make(map[string][]string),
	}

	declared := make(map[string]struct{}, len(s.Entries))
	kept := make([]Entry, 0, len(s.Entries))
	for i, e := range s.Entries {
		if e.Name == "" {
			logger.Warn("skipping taxonomy entry without name", "index", i)
			h.stats.Skipped++
			continue
		}
		if _, dup := declared[e.Name]; dup {
			logger.Warn("skipping duplicate taxonomy entry", "class", e.Name, "index", i)
			h.stats.Skipped++
			continue
		}
		declared[e.Name] = struct{}{}
		kept = append(kept, e)
	}

	for _, e := range kept {
		h.classes = append(h.classes, e.Name)
		if len(e.Attributes) > 0 {
			h.attributes[e.Name] = append([]string(nil), e.Attributes...)
		}

		switch {
		case e.Parent == "":
		case e.Parent == e.Name:
			logger.Warn("taxonomy class is its own parent, treating as root", "class", e.Name)
		default:
			if _, ok := declared[e.Parent]; !ok {
				logger.Warn("taxonomy parent not declared, treating as root", "class", e.Name, "parent", e.Parent)
				h.stats.Dangling++
				break
			}
			h.parent[e.Name] = e.Parent
			h.children[e.Parent] = append(h.children[e.Parent], e.Name)
		}
	}

	sort.Strings(h.classes)
	for _, c := range h.children {
		sort.Strings(c)
	}

	h.stats.Classes = len(h.classes)
	for _, c := range h.classes {
		if _, ok := h.parent[c]; !ok {
			h.stats.Roots++
		}
		if d := len(h.Ancestors(c)); d > h.stats.MaxDepth {
			h.stats.MaxDepth = d
		}
	}
	return h
}

// Schema returns the schema name declared by the source, if any.
func (h *Hierarchy) Schema() string {
	if h == nil {
		return ""
	}
	return h.schema
}

// Stats returns load statistics.
func (h *Hierarchy) Stats() Stats {
	if h == nil {
		return Stats{}
	}
	return h.stats
}

// Len returns the number of classes.
func (h *Hierarchy) Len() int {
	if h == nil {
		return 0
	}
	return len(h.classes)
}

// Contains reports whether class is declared. A nil Hierarchy contains nothing.
func (h *Hierarchy) Contains(class string) bool {
	if h == nil {
		return false
	}
	i := sort.SearchStrings(h.classes, class)
	return i < len(h.classes) && h.classes[i] == class
}

// Classes returns every declared class in ascending order.
func (h *Hierarchy) Classes() []string {
	if h == nil {
		return nil
	}
	return append([]string(nil), h.classes...)
}

// Roots returns the classes without a parent in ascending order.
func (h *Hierarchy) Roots() []string {
	if h == nil {
		return nil
	}
	var out []string
	for _, c := range h.classes {
		if _, ok := h.parent[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// Parent returns the direct parent of class. ok is false for roots and unknown
// classes.
func (h *Hierarchy) Parent(class string) (parent string, ok bool) {
	if h == nil {
		return "", false
	}
	parent, ok = h.parent[class]
	return parent, ok
}

// Children returns the direct children of class in ascending order.
func (h *Hierarchy) Children(class string) []string {
	if h == nil {
		return nil
	}
	return append([]string(nil), h.children[class]...)
}

// Attributes returns the attribute names declared for class, if the source
// carried them.
func (h *Hierarchy) Attributes(class string) []string {
	if h == nil {
		return nil
	}
	return append([]string(nil), h.attributes[class]...)
}

// Ancestors returns the ancestor chain of class from the root down to its
// direct parent. Unknown classes and roots yield nil.
func (h *Hierarchy) Ancestors(class string) []string {
	if h == nil {
		return nil
	}
	var chain []string
	seen := map[string]struct{}{class: {}}
	for cur := class; ; {
		p, ok := h.parent[cur]
		if !ok {
			break
		}
		if _, loop := seen[p]; loop {
			break
		}
		seen[p] = struct{}{}
		chain = append(chain, p)
		cur = p
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Path returns the root -> class chain including class itself.
func (h *Hierarchy) Path(class string) ([]string, error) {
	if h == nil {
		return nil, ErrUnavailable
	}
	if !h.Contains(class) {
		return nil, &ErrClassNotFound{Class: class}
	}
	return append(h.Ancestors(class), class), nil
}

// Depth returns the number of edges between class and its root.
func (h *Hierarchy) Depth(class string) (int, error) {
	if h == nil {
		return 0, ErrUnavailable
	}
	if !h.Contains(class) {
		return 0, &ErrClassNotFound{Class: class}
	}
	return len(h.Ancestors(class)), nil
}

// Descendants returns class and every class derived from it, sorted.
func (h *Hierarchy) Descendants(class string) ([]string, error) {
	if h == nil {
		return nil, ErrUnavailable
	}
	if !h.Contains(class) {
		return nil, &ErrClassNotFound{Class: class}
	}

	seen := map[string]struct{}{class: {}}
	out := []string{class}
	for queue := []string{class}; len(queue) > 0; {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range h.children[cur] {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
			queue = append(queue, c)
		}
	}

	sort.Strings(out)
	return out, nil
}

// Subclasses returns every class derived from class, excluding class, sorted.
func (h *Hierarchy) Subclasses(class string) ([]string, error) {
	d, err := h.Descendants(class)
	if err != nil {
		return nil, err
	}
	out := d[:0]
	for _, c := range d {
		if c != class {
			out = append(out, c)
		}
	}
	return out, nil
}

// IsSubclassOf reports whether a equals b or derives from it.
//
// If either class is unknown the result is false together with an
// ErrClassNotFound for the first unknown class.
func (h *Hierarchy) IsSubclassOf(a, b string) (bool, error) {
	if h == nil {
		return false, ErrUnavailable
	}
	for _, c := range [2]string{a, b} {
		if !h.Contains(c) {
			return false, &ErrClassNotFound{Class: c}
		}
	}
	if a == b {
		return true, nil
	}

	seen := map[string]struct{}{a: {}}
	for cur := a; ; {
		p, ok := h.parent[cur]
		if !ok {
			return false, nil
		}
		if p == b {
			return true, nil
		}
		if _, loop := seen[p]; loop {
			return false, nil
		}
		seen[p] = struct{}{}
		cur = p
	}
}
