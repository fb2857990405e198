package bimtree

import (
	"errors"
	"fmt"

	"github.com/hupe1980/bimtree/blobstore"
	"github.com/hupe1980/bimtree/memtree"
	"github.com/hupe1980/bimtree/resource"
	"github.com/hupe1980/bimtree/store"
	"github.com/hupe1980/bimtree/taxonomy"
)

var (
	// ErrClosed is returned by operations on a closed DB.
	ErrClosed = errors.New("bimtree: closed")

	// ErrNotFound is returned when a taxonomy class or blob is not found.
	// Unknown models, types and ids in queries yield empty results instead.
	ErrNotFound = errors.New("not found")

	// ErrInvalidModelName is returned for model names that cannot be used as a
	// partition.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrResourceExhausted is returned when the memory limit rejects a refresh.
	// It is the only fatal error class; the previous snapshot stays published.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrUnavailable is returned when the taxonomy source cannot be read.
	ErrUnavailable = errors.New("unavailable")
)

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, memtree.ErrResourceExhausted), errors.Is(err, resource.ErrMemoryExhausted):
		return fmt.Errorf("%w: %w", ErrResourceExhausted, err)
	case errors.Is(err, store.ErrInvalidModelName), errors.Is(err, blobstore.ErrInvalidName):
		return fmt.Errorf("%w: %w", ErrInvalidModelName, err)
	case errors.Is(err, taxonomy.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	case errors.Is(err, taxonomy.ErrNotFound), errors.Is(err, blobstore.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	return err
}
