package memtree

import "errors"

// ErrResourceExhausted is returned by Refresh when the memory limit does not
// admit the rebuilt indexes. The previous snapshot stays published.
var ErrResourceExhausted = errors.New("memtree: resource exhausted")
