package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// FieldMap is an insertion-ordered bag of scraped values keyed by label.
// Keys are not controlled by this service, so unknown keys must round-trip
// through JSON, SQL and merges without loss or reordering.
type FieldMap struct {
	keys   []string
	values map[string]any
}

// NewFieldMap builds a FieldMap from alternating key/value pairs.
func NewFieldMap(pairs ...any) FieldMap {
	var fm FieldMap
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		fm.Set(key, pairs[i+1])
	}
	return fm
}

// Set stores value under key, keeping the key's original position if it exists
func (fm *FieldMap) Set(key string, value any) {
	if fm.values == nil {
		fm.values = make(map[string]any)
	}
	if _, exists := fm.values[key]; !exists {
		fm.keys = append(fm.keys, key)
	}
	fm.values[key] = value
}

// Get returns the value stored under the exact key
func (fm FieldMap) Get(key string) (any, bool) {
	if fm.values == nil {
		return nil, false
	}
	value, exists := fm.values[key]
	return value, exists
}

// Lookup returns the value for key, falling back to a case-insensitive match
func (fm FieldMap) Lookup(key string) (any, bool) {
	if value, exists := fm.Get(key); exists {
		return value, true
	}
	for _, k := range fm.keys {
		if strings.EqualFold(strings.TrimSpace(k), key) {
			return fm.values[k], true
		}
	}
	return nil, false
}

// GetString returns the value for key rendered as trimmed text
func (fm FieldMap) GetString(key string) string {
	value, exists := fm.Lookup(key)
	if !exists || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

// Has reports whether key is present
func (fm FieldMap) Has(key string) bool {
	_, exists := fm.Get(key)
	return exists
}

// Keys returns the keys in insertion order
func (fm FieldMap) Keys() []string {
	out := make([]string, len(fm.keys))
	copy(out, fm.keys)
	return out
}

// Len returns the number of keys
func (fm FieldMap) Len() int {
	return len(fm.keys)
}

// Clone returns a deep copy. Nested maps and slices are copied too.
func (fm FieldMap) Clone() FieldMap {
	var out FieldMap
	for _, key := range fm.keys {
		out.Set(key, cloneValue(fm.values[key]))
	}
	return out
}

// ToMap returns an unordered copy, mostly useful for assertions and logging
func (fm FieldMap) ToMap() map[string]any {
	out := make(map[string]any, len(fm.keys))
	for _, key := range fm.keys {
		out[key] = cloneValue(fm.values[key])
	}
	return out
}

// MergeFieldMaps combines two maps where primary wins on key conflict.
// Primary keys keep their order, followed by keys only present in secondary.
func MergeFieldMaps(primary, secondary FieldMap) FieldMap {
	merged := primary.Clone()
	for _, key := range secondary.keys {
		if merged.Has(key) {
			continue
		}
		merged.Set(key, cloneValue(secondary.values[key]))
	}
	return merged
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, inner := range v {
			out[k] = cloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = cloneValue(inner)
		}
		return out
	case FieldMap:
		return v.Clone()
	default:
		return v
	}
}

// MarshalJSON writes the object with keys in insertion order
func (fm FieldMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range fm.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, fmt.Errorf("failed to encode field key %q: %w", key, err)
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')
		encodedValue, err := json.Marshal(fm.values[key])
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %q: %w", key, err)
		}
		buf.Write(encodedValue)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object preserving the document's key order.
// Numbers are kept as json.Number so they are written back unchanged.
func (fm *FieldMap) UnmarshalJSON(data []byte) error {
	*fm = FieldMap{}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	token, err := decoder.Token()
	if err != nil {
		return fmt.Errorf("failed to read field map: %w", err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("field map must be a JSON object, got %v", token)
	}

	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return fmt.Errorf("failed to read field key: %w", err)
		}
		key, ok := keyToken.(string)
		if !ok {
			return fmt.Errorf("unexpected field key %v", keyToken)
		}

		var value any
		if err := decoder.Decode(&value); err != nil {
			return fmt.Errorf("failed to read field %q: %w", key, err)
		}
		fm.Set(key, value)
	}

	if _, err := decoder.Token(); err != nil {
		return fmt.Errorf("failed to close field map: %w", err)
	}
	return nil
}

// Value implements driver.Valuer, storing the map as JSON text
func (fm FieldMap) Value() (driver.Value, error) {
	encoded, err := fm.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

// Scan implements sql.Scanner for JSON/JSONB and TEXT columns
func (fm *FieldMap) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*fm = FieldMap{}
		return nil
	case []byte:
		return fm.UnmarshalJSON(v)
	case string:
		return fm.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("cannot scan %T into FieldMap", src)
	}
}
