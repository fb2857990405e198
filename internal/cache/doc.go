// Package cache provides a byte-bounded LRU for whole blobs.
//
// It backs blobstore.CachingStore, which keeps recently read component records
// of remote stores in memory so that repeated refreshes do not re-fetch
// unchanged objects.
package cache
