package taxonomy

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/hupe1980/bimtree/codec"
)

// Entry is one class declaration. An empty Parent marks a root.
type Entry struct {
	Name       string
	Parent     string
	Attributes []string
}

// Schema is the decoded content of a taxonomy source.
type Schema struct {
	Name    string
	Entries []Entry
}

// Source provides the class declarations of a taxonomy.
type Source interface {
	Schema(ctx context.Context) (Schema, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Schema, error)

// Schema implements Source.
func (f SourceFunc) Schema(ctx context.Context) (Schema, error) { return f(ctx) }

// StaticSource serves a fixed set of entries.
func StaticSource(name string, entries ...Entry) Source {
	return SourceFunc(func(context.Context) (Schema, error) {
		return Schema{Name: name, Entries: entries}, nil
	})
}

// MapSource serves a class -> parent mapping. Entries are produced in sorted
// class order so loads are deterministic.
func MapSource(parents map[string]string) Source {
	return SourceFunc(func(context.Context) (Schema, error) {
		names := make([]string, 0, len(parents))
		for n := range parents {
			names = append(names, n)
		}
		sort.Strings(names)

		entries := make([]Entry, 0, len(names))
		for _, n := range names {
			entries = append(entries, Entry{Name: n, Parent: parents[n]})
		}
		return Schema{Entries: entries}, nil
	})
}

// FileSource reads a schema document from disk. The format follows the file
// extension: .json or .yaml/.yml.
func FileSource(path string) Source {
	return SourceFunc(func(ctx context.Context) (Schema, error) {
		c, ok := codec.ForFile(path)
		if !ok {
			return Schema{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return Schema{}, err
		}
		return decodeSchema(c, data)
	})
}

// ReaderSource decodes a schema document from r using the named codec
// ("json", "go-json" or "yaml").
func ReaderSource(r io.Reader, format string) Source {
	return SourceFunc(func(ctx context.Context) (Schema, error) {
		c, ok := codec.ByName(format)
		if !ok {
			return Schema{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return Schema{}, err
		}
		return decodeSchema(c, data)
	})
}

// document mirrors the flat class export:
//
//	{"metadata": {"schema": "IFC4"}, "classes": [{"name": ..., "parent": ..., "attributes": [...]}]}
//
// classes may also be an object keyed by class name.
type document struct {
	Schema   string `json:"schema" yaml:"schema"`
	Metadata struct {
		Schema string `json:"schema" yaml:"schema"`
	} `json:"metadata" yaml:"metadata"`
	Classes any `json:"classes" yaml:"classes"`
}

func decodeSchema(c codec.Codec, data []byte) (Schema, error) {
	var doc document
	if err := c.Unmarshal(data, &doc); err != nil {
		return Schema{}, fmt.Errorf("decode schema: %w", err)
	}

	s := Schema{Name: doc.Schema}
	if s.Name == "" {
		s.Name = doc.Metadata.Schema
	}

	switch classes := doc.Classes.(type) {
	case []any:
		for _, item := range classes {
			m, _ := item.(map[string]any)
			name, _ := m["name"].(string)
			s.Entries = append(s.Entries, entryFrom(name, m))
		}
	case map[string]any:
		names := make([]string, 0, len(classes))
		for n := range classes {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			switch v := classes[n].(type) {
			case string:
				s.Entries = append(s.Entries, Entry{Name: n, Parent: v})
			case map[string]any:
				s.Entries = append(s.Entries, entryFrom(n, v))
			default:
				s.Entries = append(s.Entries, Entry{Name: n})
			}
		}
	case nil:
	default:
		return Schema{}, fmt.Errorf("decode schema: classes must be a list or an object, got %T", classes)
	}
	return s, nil
}

func entryFrom(name string, m map[string]any) Entry {
	e := Entry{Name: name}
	e.Parent, _ = m["parent"].(string)
	if attrs, ok := m["attributes"].([]any); ok {
		for _, a := range attrs {
			if s, ok := a.(string); ok {
				e.Attributes = append(e.Attributes, s)
			}
		}
	}
	return e
}
