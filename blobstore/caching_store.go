package blobstore

import (
	"context"

	"github.com/hupe1980/bimtree/internal/cache"
	"github.com/hupe1980/bimtree/resource"
)

// CachingStore wraps a BlobStore and keeps whole blobs of recent reads in a
// byte-bounded LRU.
//
// Writes and deletes through the CachingStore invalidate the affected entries,
// so the cache is exact as long as it is the only writer to the inner store.
type CachingStore struct {
	inner BlobStore
	cache *cache.LRU
}

// NewCachingStore creates a new CachingStore holding at most capacity bytes.
// Cached bytes are charged against rc when it is non-nil.
func NewCachingStore(inner BlobStore, capacity int64, rc *resource.Controller) *CachingStore {
	return &CachingStore{
		inner: inner,
		cache: cache.NewLRU(capacity, rc),
	}
}

// Open returns a cached blob or reads the blob fully from the inner store.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	if data, ok := s.cache.Get(name); ok {
		return &memoryBlob{data: data}, nil
	}

	data, err := Get(ctx, s.inner, name)
	if err != nil {
		return nil, err
	}
	s.cache.Set(name, data)
	return &memoryBlob{data: data}, nil
}

func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Invalidate(name)
	return s.inner.Put(ctx, name, data)
}

func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Invalidate(name)
	return s.inner.Delete(ctx, name)
}

// DeletePrefix invalidates and deletes every blob under prefix.
func (s *CachingStore) DeletePrefix(ctx context.Context, prefix string) error {
	s.cache.InvalidatePrefix(prefix)
	return DeletePrefix(ctx, s.inner, prefix)
}

func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Location delegates to the inner store when it is a Locator.
func (s *CachingStore) Location(name string) string {
	if l, ok := s.inner.(Locator); ok {
		return l.Location(name)
	}
	return name
}

// Stats returns cache hit and miss counts.
func (s *CachingStore) Stats() (hits, misses int64) {
	return s.cache.Stats()
}

// Unwrap returns the inner store.
func (s *CachingStore) Unwrap() BlobStore { return s.inner }
