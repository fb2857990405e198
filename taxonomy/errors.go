package taxonomy

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every lookup of a class absent from the hierarchy.
	ErrNotFound = errors.New("taxonomy: class not found")
	// ErrUnavailable is returned by Load when the schema source cannot be read.
	ErrUnavailable = errors.New("taxonomy: schema unavailable")
	// ErrUnsupportedFormat is returned for schema files of an unknown format.
	ErrUnsupportedFormat = errors.New("taxonomy: unsupported schema format")
)

// ErrClassNotFound reports a lookup of an unknown class.
//
// It matches ErrNotFound with errors.Is.
type ErrClassNotFound struct {
	Class string
}

func (e *ErrClassNotFound) Error() string {
	return fmt.Sprintf("taxonomy: class %q not found", e.Class)
}

func (e *ErrClassNotFound) Is(target error) bool { return target == ErrNotFound }
