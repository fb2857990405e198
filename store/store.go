package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/hupe1980/bimtree/blobstore"
	"github.com/hupe1980/bimtree/component"
	"github.com/hupe1980/bimtree/internal/compress"
)

// Store is the durable component store.
//
// Every record is an independent blob, so a failed write never corrupts other
// records. Store is safe for concurrent use when the underlying BlobStore is.
type Store struct {
	blobs blobstore.BlobStore
	opts  options
}

// Result describes a Store call.
type Result struct {
	Model  string
	Stored int
	Failed int
	// Path is where the partition lives (directory or object URL).
	Path string
}

// ModelInfo describes a stored model.
type ModelInfo struct {
	Name           string
	ComponentCount int
}

// New creates a Store over blobs.
func New(blobs blobstore.BlobStore, opts ...Option) (*Store, error) {
	if blobs == nil {
		return nil, errors.New("store: nil blob store")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{blobs: blobs, opts: o}, nil
}

// Blobs returns the underlying blob store.
func (s *Store) Blobs() blobstore.BlobStore { return s.blobs }

// Store writes every component into model, overwriting records with the same
// name. Records that fail to encode or write are logged and counted in
// Result.Failed. Only an invalid model name or a cancelled context is an error.
func (s *Store) Store(ctx context.Context, model string, comps []component.Component) (Result, error) {
	res := Result{Model: model, Path: s.location(model)}
	if err := ValidateModelName(model); err != nil {
		return res, err
	}

	for _, c := range comps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		name := RecordName(model, c)
		if err := s.put(ctx, name, c); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			s.opts.logger.Warn("failed to store component",
				"model", model, "record", name, "error", err)
			res.Failed++
			continue
		}
		res.Stored++
	}
	return res, nil
}

func (s *Store) put(ctx context.Context, name string, c component.Component) error {
	data, err := s.opts.codec.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	data, err = compress.Encode(s.opts.compression, data)
	if err != nil {
		return err
	}
	return s.blobs.Put(ctx, name, data)
}

// Retrieve returns every readable record of model, ordered by record name.
// Unreadable records are logged and skipped. A model that does not exist
// yields an empty result.
func (s *Store) Retrieve(ctx context.Context, model string) ([]component.Component, error) {
	if err := ValidateModelName(model); err != nil {
		return nil, err
	}
	names, err := s.records(ctx, model)
	if err != nil {
		return nil, err
	}

	out := make([]component.Component, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := s.get(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.opts.logger.Warn("skipping unreadable record",
				"model", model, "record", name, "error", err)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) get(ctx context.Context, name string) (component.Component, error) {
	var c component.Component

	b, err := s.blobs.Open(ctx, name)
	if err != nil {
		return c, err
	}
	defer b.Close()

	if err := s.opts.rc.AcquireIO(ctx, int(b.Size())); err != nil {
		return c, err
	}
	data, err := blobstore.ReadAll(ctx, b)
	if err != nil {
		return c, err
	}
	data, err = compress.Decode(data)
	if err != nil {
		return c, err
	}
	if err := s.opts.codec.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("decode: %w", err)
	}
	return c, nil
}

func (s *Store) records(ctx context.Context, model string) ([]string, error) {
	prefix := model + "/"
	names, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := names[:0]
	for _, n := range names {
		if isRecord(prefix, n) {
			out = append(out, n)
		}
	}
	return out, nil
}

// ListModels returns every stored model with its record count, sorted by name.
func (s *Store) ListModels(ctx context.Context) ([]ModelInfo, error) {
	names, err := s.blobs.List(ctx, "")
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, n := range names {
		model, _, ok := strings.Cut(n, "/")
		if !ok || ValidateModelName(model) != nil || !isRecord(model+"/", n) {
			continue
		}
		counts[model]++
	}

	out := make([]ModelInfo, 0, len(counts))
	for m, n := range counts {
		out = append(out, ModelInfo{Name: m, ComponentCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ModelNames returns the sorted names of all stored models.
func (s *Store) ModelNames(ctx context.Context) ([]string, error) {
	infos, err := s.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(infos))
	for i, m := range infos {
		out[i] = m.Name
	}
	return out, nil
}

// ModelExists reports whether model holds at least one record.
func (s *Store) ModelExists(ctx context.Context, model string) (bool, error) {
	if ValidateModelName(model) != nil {
		return false, nil
	}
	names, err := s.records(ctx, model)
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// DeleteModel removes the model partition. It reports false when the model did
// not exist. On error nothing is guaranteed to be removed, and the partition
// stays readable as long as the backend deletes it in one step.
func (s *Store) DeleteModel(ctx context.Context, model string) (bool, error) {
	if err := ValidateModelName(model); err != nil {
		return false, err
	}
	ok, err := s.ModelExists(ctx, model)
	if err != nil || !ok {
		return false, err
	}
	if err := blobstore.DeletePrefix(ctx, s.blobs, model+"/"); err != nil {
		return false, fmt.Errorf("delete model %s: %w", model, err)
	}
	s.opts.logger.Info("deleted model", slog.String("model", model))
	return true, nil
}

func (s *Store) location(model string) string {
	if l, ok := s.blobs.(blobstore.Locator); ok {
		return l.Location(model)
	}
	return model
}
