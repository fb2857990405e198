// Package codec centralizes record and schema encoding.
//
// Component records are written with the store's codec and read back with the
// same one; changing codecs on a populated store is only safe between codecs that
// share a wire format (JSON and GoJSON do).
package codec

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	case "yaml":
		return YAML{}, true
	default:
		return nil, false
	}
}

// ForFile returns the codec matching a file extension (.json, .yaml, .yml).
func ForFile(name string) (Codec, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return Default, true
	case ".yaml", ".yml":
		return YAML{}, true
	default:
		return nil, false
	}
}

// MustMarshal is a helper for internal tests.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
