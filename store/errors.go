package store

import "errors"

var (
	// ErrInvalidModelName is returned for model names that are empty, contain a
	// path separator, or start with a dot.
	ErrInvalidModelName = errors.New("store: invalid model name")
)
