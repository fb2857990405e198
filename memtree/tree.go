package memtree

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/bimtree/component"
)

// Source supplies partitions to Refresh. *store.Store satisfies it.
type Source interface {
	ModelNames(ctx context.Context) ([]string, error)
	Retrieve(ctx context.Context, model string) ([]component.Component, error)
}

// RefreshReport describes a completed Refresh.
type RefreshReport struct {
	Models     int
	Components int
	Skipped    int
	Duplicates int
	// Failed lists models whose partition could not be read; they are
	// indexed with zero components.
	Failed    []string
	Conflicts []Conflict
	SizeBytes int64
	Duration  time.Duration
}

// Tree publishes the current Snapshot. Reads are lock-free; Refresh and Drop
// are serialized.
type Tree struct {
	src  Source
	opts options

	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

// New creates an empty Tree reading from src.
func New(src Source, opts ...Option) *Tree {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	t := &Tree{src: src, opts: o}
	t.current.Store(emptySnapshot())
	return t
}

// Snapshot returns the current snapshot. It stays valid and unchanged after
// later refreshes.
func (t *Tree) Snapshot() *Snapshot { return t.current.Load() }

// Refresh rebuilds every model index from the source and publishes the result
// atomically.
//
// A partition that cannot be read is logged and indexed as empty. Failing to
// list models, cancellation of ctx, or exceeding the memory limit abandons the
// rebuild; the previous snapshot stays published.
func (t *Tree) Refresh(ctx context.Context) (RefreshReport, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := time.Now()
	var report RefreshReport

	names, err := t.src.ModelNames(ctx)
	if err != nil {
		return report, fmt.Errorf("memtree: list models: %w", err)
	}

	rc := t.opts.rc
	indexes := make([]*ModelIndex, len(names))
	failed := make([]bool, len(names))
	var reserved atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.opts.concurrency)
	for i, name := range names {
		g.Go(func() error {
			if err := rc.AcquireLoad(gctx); err != nil {
				return err
			}
			defer rc.ReleaseLoad()

			comps, err := t.src.Retrieve(gctx, name)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				t.opts.logger.Warn("failed to read partition", "model", name, "error", err)
				failed[i] = true
				comps = nil
			}

			idx := Build(name, comps, t.opts.logger)
			if err := rc.ReserveMemory(idx.size); err != nil {
				return fmt.Errorf("%w: model %s: %w", ErrResourceExhausted, name, err)
			}
			reserved.Add(idx.size)
			indexes[i] = idx
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		rc.ReleaseMemory(reserved.Load())
		return report, err
	}
	if err := ctx.Err(); err != nil {
		rc.ReleaseMemory(reserved.Load())
		return report, err
	}

	snap := newSnapshot(indexes)
	old := t.current.Swap(snap)
	rc.ReleaseMemory(old.size)

	for i, idx := range indexes {
		report.Components += len(idx.comps)
		report.Skipped += idx.skipped
		report.Duplicates += idx.duplicates
		report.Conflicts = append(report.Conflicts, idx.conflicts...)
		if failed[i] {
			report.Failed = append(report.Failed, names[i])
		}
	}
	report.Models = snap.Len()
	report.SizeBytes = snap.size
	report.Duration = time.Since(start)
	return report, nil
}

// Drop publishes a snapshot without model. It reports whether the model was
// present.
func (t *Tree) Drop(model string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	old := t.current.Load()
	m, ok := old.models[model]
	if !ok {
		return false
	}
	t.current.Store(old.without(model))
	t.opts.rc.ReleaseMemory(m.size)
	return true
}

// Models returns the sorted model names of the current snapshot.
func (t *Tree) Models() []string { return t.Snapshot().Models() }

// EntityGuids queries the current snapshot. See Snapshot.EntityGuids.
func (t *Tree) EntityGuids(models, entityTypes, componentGuids []string) []string {
	return t.Snapshot().EntityGuids(models, entityTypes, componentGuids)
}

// ComponentGuids queries the current snapshot. See Snapshot.ComponentGuids.
func (t *Tree) ComponentGuids(models, entityGuids, entityTypes []string) []string {
	return t.Snapshot().ComponentGuids(models, entityGuids, entityTypes)
}

// ComponentGuidsByType queries the current snapshot.
func (t *Tree) ComponentGuidsByType(componentTypes, models []string) []string {
	return t.Snapshot().ComponentGuidsByType(componentTypes, models)
}

// Components queries the current snapshot. See Snapshot.Components.
func (t *Tree) Components(componentGuids, models []string) ([]component.Component, map[string]string) {
	return t.Snapshot().Components(componentGuids, models)
}

// EntityTypes queries the current snapshot.
func (t *Tree) EntityTypes(models []string) []string { return t.Snapshot().EntityTypes(models) }

// ComponentTypes queries the current snapshot.
func (t *Tree) ComponentTypes(models []string) []string {
	return t.Snapshot().ComponentTypes(models)
}
