// Package blobstore provides the storage abstraction behind the component store.
//
// A BlobStore holds named, immutable records. Names are slash-separated
// ("M1/e1_a.json"); the first segment is the model partition. Implementations
// must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, one file per record, atomic rename on write
//   - MemoryStore: in-process map, used in tests and for ephemeral trees
//   - CachingStore: read-through LRU in front of any other store
//   - s3.Store: Amazon S3 (and compatible) with ranged reads and multipart upload
//   - minio.Store: MinIO client backed store
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Stores that can drop a whole partition in one step should also implement
// PrefixDeleter. DeletePrefix falls back to List followed by Delete otherwise.
package blobstore
