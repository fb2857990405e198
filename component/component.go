package component

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Well-known record keys.
const (
	KeyComponentGuid = "componentGuid"
	KeyComponentType = "componentType"
	KeyEntityGuid    = "entityGuid"
	KeyEntityType    = "entityType"
)

// TypeSuffix is the naming convention appended to an entity type to form the
// matching component type ("Wall" -> "WallComponent").
const TypeSuffix = "Component"

// UnknownType is the index key for components that carry no componentType.
const UnknownType = "Unknown"

var (
	// ErrMissingGuid is returned by Validate for records without a componentGuid.
	ErrMissingGuid = errors.New("component: missing componentGuid")
	// ErrInvalidRecord is returned when a record is not a JSON object.
	ErrInvalidRecord = errors.New("component: invalid record")
)

// Component is a single persisted record.
//
// Extra holds every key other than the four well-known ones, plus any
// well-known key whose value is not a JSON string. Values are raw JSON and are
// written back unchanged.
type Component struct {
	ComponentGuid string
	ComponentType string
	EntityGuid    string
	EntityType    string
	Extra         map[string]json.RawMessage
}

// Guid derives the deterministic component id for (componentType, entityGuid).
//
// The id is the first 16 bytes of SHA-256("componentType:entityGuid") rendered
// as a canonical UUID string, so re-ingesting a source yields identical ids.
func Guid(componentType, entityGuid string) string {
	sum := sha256.Sum256([]byte(componentType + ":" + entityGuid))
	id, _ := uuid.FromBytes(sum[:16]) // length is always 16
	return id.String()
}

// New builds an entity-scoped component with its deterministic id assigned.
func New(componentType, entityGuid, entityType string) Component {
	return Component{
		ComponentGuid: Guid(componentType, entityGuid),
		ComponentType: componentType,
		EntityGuid:    entityGuid,
		EntityType:    entityType,
	}
}

// StripSuffix removes one trailing TypeSuffix when something remains.
func StripSuffix(componentType string) string {
	if t, ok := strings.CutSuffix(componentType, TypeSuffix); ok && t != "" {
		return t
	}
	return componentType
}

// TypeKey returns the index key of c's component type.
func TypeKey(c Component) string {
	if c.ComponentType == "" {
		return UnknownType
	}
	return StripSuffix(c.ComponentType)
}

// Validate reports whether c can be indexed.
func (c Component) Validate() error {
	if c.ComponentGuid == "" {
		return ErrMissingGuid
	}
	return nil
}

// HasEntity reports whether c is entity-scoped.
func (c Component) HasEntity() bool { return c.EntityGuid != "" }

// Set stores an opaque payload value under key. Well-known keys with string
// values are routed to their typed field.
func (c *Component) Set(key string, value any) error {
	if s, ok := value.(string); ok && c.setKnown(key, s) {
		return nil
	}
	raw, err := gojson.Marshal(value)
	if err != nil {
		return fmt.Errorf("component: encode %q: %w", key, err)
	}
	if c.Extra == nil {
		c.Extra = make(map[string]json.RawMessage)
	}
	c.Extra[key] = raw
	return nil
}

// Get decodes the payload value stored under key into v.
func (c Component) Get(key string, v any) (bool, error) {
	raw, ok := c.Extra[key]
	if !ok {
		return false, nil
	}
	if err := gojson.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("component: decode %q: %w", key, err)
	}
	return true, nil
}

func (c *Component) setKnown(key, value string) bool {
	switch key {
	case KeyComponentGuid:
		c.ComponentGuid = value
	case KeyComponentType:
		c.ComponentType = value
	case KeyEntityGuid:
		c.EntityGuid = value
	case KeyEntityType:
		c.EntityType = value
	default:
		return false
	}
	return true
}

func (c Component) known() [4][2]string {
	return [4][2]string{
		{KeyComponentGuid, c.ComponentGuid},
		{KeyComponentType, c.ComponentType},
		{KeyEntityGuid, c.EntityGuid},
		{KeyEntityType, c.EntityType},
	}
}

// MarshalJSON writes a flat object with keys in ascending order.
func (c Component) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(c.Extra)+4)
	for k, v := range c.Extra {
		fields[k] = v
	}
	for _, kv := range c.known() {
		if kv[1] == "" {
			continue
		}
		raw, err := gojson.Marshal(kv[1])
		if err != nil {
			return nil, err
		}
		fields[kv[0]] = raw
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := gojson.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(fields[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat object.
func (c *Component) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := gojson.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if fields == nil {
		return ErrInvalidRecord
	}

	*c = Component{}
	for k, raw := range fields {
		var s string
		if isString(raw) && gojson.Unmarshal(raw, &s) == nil && c.setKnown(k, s) {
			continue
		}
		if c.Extra == nil {
			c.Extra = make(map[string]json.RawMessage)
		}
		c.Extra[k] = append(json.RawMessage(nil), raw...)
	}
	return nil
}

func isString(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '"'
}

// FromMap converts a flat mapping handed over by an ingestion collaborator.
func FromMap(m map[string]any) (Component, error) {
	var c Component
	for k, v := range m {
		if err := c.Set(k, v); err != nil {
			return Component{}, err
		}
	}
	return c, nil
}

// Map returns c as a flat mapping. Payload values are decoded into their
// generic Go representation.
func (c Component) Map() (map[string]any, error) {
	m := make(map[string]any, len(c.Extra)+4)
	for k, raw := range c.Extra {
		var v any
		if err := gojson.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("component: decode %q: %w", k, err)
		}
		m[k] = v
	}
	for _, kv := range c.known() {
		if kv[1] != "" {
			m[kv[0]] = kv[1]
		}
	}
	return m, nil
}

// DecodeList decodes a JSON array of records.
func DecodeList(data []byte) ([]Component, error) {
	var out []Component
	if err := gojson.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return out, nil
}

// SortByGuid orders components by ascending componentGuid.
func SortByGuid(cs []Component) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].ComponentGuid < cs[j].ComponentGuid })
}
