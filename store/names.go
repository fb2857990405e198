package store

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/hupe1980/bimtree/component"
)

const (
	recordExt = ".json"
	unknownID = "unknown"
)

// ModelName derives a model name from a source file name by dropping the
// directory and extension ("site/M1.ifc" -> "M1").
func ModelName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// ValidateModelName reports whether name can be used as a partition.
func ValidateModelName(name string) error {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidModelName, name)
	}
	return nil
}

// RecordName returns the blob name of c inside model.
func RecordName(model string, c component.Component) string {
	return model + "/" + escapeID(c.EntityGuid) + "_" + escapeID(c.ComponentGuid) + recordExt
}

// idEscaper escapes the id separator and dots on top of path escaping, so
// distinct id pairs never share a record name and no name is "." or "..".
var idEscaper = strings.NewReplacer("_", "%5F", ".", "%2E")

func escapeID(id string) string {
	if id == "" {
		return unknownID
	}
	return idEscaper.Replace(url.PathEscape(id))
}

// isRecord reports whether name is a record directly under prefix.
func isRecord(prefix, name string) bool {
	rest := strings.TrimPrefix(name, prefix)
	return len(rest) < len(name) && !strings.Contains(rest, "/") && strings.HasSuffix(rest, recordExt)
}
