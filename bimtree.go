package bimtree

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/hupe1980/bimtree/blobstore"
	"github.com/hupe1980/bimtree/component"
	"github.com/hupe1980/bimtree/memtree"
	"github.com/hupe1980/bimtree/store"
	"github.com/hupe1980/bimtree/taxonomy"
)

// Backend selects where component records are persisted.
type Backend interface {
	open() (blobstore.BlobStore, error)
}

type localBackend struct{ dir string }

func (b localBackend) open() (blobstore.BlobStore, error) {
	if b.dir == "" {
		return nil, errors.New("bimtree: empty data directory")
	}
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return nil, err
	}
	return blobstore.NewLocalStore(b.dir), nil
}

type remoteBackend struct{ store blobstore.BlobStore }

func (b remoteBackend) open() (blobstore.BlobStore, error) {
	if b.store == nil {
		return nil, errors.New("bimtree: nil blob store")
	}
	return b.store, nil
}

// Local stores one directory per model under dir.
func Local(dir string) Backend { return localBackend{dir: dir} }

// Remote stores records in any BlobStore, for example s3.Store or minio.Store.
func Remote(s blobstore.BlobStore) Backend { return remoteBackend{store: s} }

// DB is an engine instance: a durable component store plus the memory tree
// built from it.
//
// DB is safe for concurrent use. Queries run against the snapshot published by
// the latest refresh and never block on ingestion or refresh.
type DB struct {
	store     *store.Store
	tree      *memtree.Tree
	hierarchy *taxonomy.Hierarchy

	autoRefresh bool
	metrics     MetricsCollector
	logger      *Logger
	closed      atomic.Bool
}

// Open opens the engine on backend and builds the initial memory tree.
func Open(ctx context.Context, backend Backend, optFns ...Option) (*DB, error) {
	o := applyOptions(optFns)

	blobs, err := backend.open()
	if err != nil {
		return nil, err
	}
	if o.recordCacheBytes > 0 {
		blobs = blobstore.NewCachingStore(blobs, o.recordCacheBytes, o.resources)
	}

	st, err := store.New(blobs,
		store.WithCodec(o.codec),
		store.WithCompression(o.compression),
		store.WithLogger(o.logger.Logger),
		store.WithResourceController(o.resources),
	)
	if err != nil {
		return nil, err
	}

	treeOpts := []memtree.Option{
		memtree.WithLogger(o.logger.Logger),
		memtree.WithResourceController(o.resources),
	}
	if o.concurrency > 0 {
		treeOpts = append(treeOpts, memtree.WithConcurrency(o.concurrency))
	}

	db := &DB{
		store:       st,
		tree:        memtree.New(st, treeOpts...),
		hierarchy:   o.hierarchy,
		autoRefresh: o.autoRefresh,
		metrics:     o.metricsCollector,
		logger:      o.logger,
	}

	if db.hierarchy == nil && o.taxonomySource != nil {
		h, err := taxonomy.Load(ctx, o.taxonomySource, taxonomy.WithLogger(o.logger.Logger))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			o.logger.WarnContext(ctx, "taxonomy unavailable, type filters match literally", "error", err)
		} else {
			db.hierarchy = h
		}
	}

	if _, err := db.Refresh(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// Close marks the DB closed. Later calls return ErrClosed.
func (db *DB) Close() error {
	if db.closed.Swap(true) {
		return ErrClosed
	}
	return nil
}

func (db *DB) checkOpen() error {
	if db.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Hierarchy returns the loaded class hierarchy, or nil if none is available.
func (db *DB) Hierarchy() *taxonomy.Hierarchy { return db.hierarchy }

// Store returns the durable component store.
func (db *DB) Store() *store.Store { return db.store }

// Snapshot returns the currently published memory tree snapshot.
func (db *DB) Snapshot() *memtree.Snapshot { return db.tree.Snapshot() }

// Ingest stores comps under model and, unless WithoutAutoRefresh was given,
// refreshes the memory tree. Records that fail to store are counted in
// Result.Failed and do not fail the call.
func (db *DB) Ingest(ctx context.Context, model string, comps []component.Component) (store.Result, error) {
	if err := db.checkOpen(); err != nil {
		return store.Result{}, err
	}

	start := time.Now()
	res, err := db.store.Store(ctx, model, comps)
	db.metrics.RecordIngest(res.Stored, res.Failed, time.Since(start), err)
	db.logger.LogIngest(ctx, model, res.Stored, res.Failed, err)
	if err != nil {
		return res, translateError(err)
	}

	if db.autoRefresh {
		if _, err := db.Refresh(ctx); err != nil {
			return res, err
		}
	}
	return res, nil
}

// IngestJSON decodes a JSON array of component records and ingests it under
// the model named after filename ("M1.json" -> "M1").
func (db *DB) IngestJSON(ctx context.Context, filename string, data []byte) (store.Result, error) {
	comps, err := component.DecodeList(data)
	if err != nil {
		return store.Result{}, fmt.Errorf("bimtree: decode %s: %w", filename, err)
	}
	return db.Ingest(ctx, store.ModelName(filename), comps)
}

// Refresh rebuilds the memory tree from the store and publishes it atomically.
// On error the previous snapshot stays published.
func (db *DB) Refresh(ctx context.Context) (memtree.RefreshReport, error) {
	if err := db.checkOpen(); err != nil {
		return memtree.RefreshReport{}, err
	}

	start := time.Now()
	report, err := db.tree.Refresh(ctx)
	db.metrics.RecordRefresh(report.Models, report.Components, time.Since(start), err)
	db.logger.LogRefresh(ctx, report, err)
	return report, translateError(err)
}

// DeleteModel removes a model from the store and from the published snapshot.
// It reports false if the model did not exist.
func (db *DB) DeleteModel(ctx context.Context, model string) (bool, error) {
	if err := db.checkOpen(); err != nil {
		return false, err
	}

	start := time.Now()
	deleted, err := db.store.DeleteModel(ctx, model)
	if err == nil {
		if db.tree.Drop(model) {
			deleted = true
		}
	}
	db.metrics.RecordDelete(time.Since(start), err)
	db.logger.LogDelete(ctx, model, deleted, err)
	return deleted, translateError(err)
}

// Models returns the sorted names of the models in the published snapshot.
func (db *DB) Models() []string { return db.tree.Models() }

// ListStoredModels returns the models in the store with their record counts.
// Unlike Models it reflects data not yet refreshed.
func (db *DB) ListStoredModels(ctx context.Context) ([]store.ModelInfo, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	infos, err := db.store.ListModels(ctx)
	return infos, translateError(err)
}

// ModelExists reports whether the store holds model.
func (db *DB) ModelExists(ctx context.Context, model string) (bool, error) {
	if err := db.checkOpen(); err != nil {
		return false, err
	}
	ok, err := db.store.ModelExists(ctx, model)
	return ok, translateError(err)
}

// Stats returns per-model statistics of the published snapshot.
func (db *DB) Stats() []memtree.ModelStats { return db.tree.Snapshot().Stats() }
