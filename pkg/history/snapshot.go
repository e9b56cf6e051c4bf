package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// Metadata field names every snapshot carries.
const (
	FieldID           = "id"
	FieldLastUpdate   = "lastUpdate"
	FieldLastUpdateBy = "lastUpdateBy"
)

var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
}

// Timestamps without an offset are wall-clock times of the reader's zone.
var wallClockLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp parses raw, reading offset-less values in loc.
func parseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range wallClockLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Field is one name/value pair of a snapshot.
type Field struct {
	Name  string
	Value any
}

// Snapshot is one versioned state of an entity. It keeps the field order of
// the JSON object it was parsed from.
type Snapshot struct {
	keys   []string
	values map[string]any
}

// NewSnapshot builds a snapshot from fields in the given order. A repeated
// name keeps its first position and its last value.
func NewSnapshot(fields ...Field) Snapshot {
	s := Snapshot{values: make(map[string]any, len(fields))}
	for _, f := range fields {
		s.set(f.Name, f.Value)
	}
	return s
}

// ParseSnapshot parses a JSON object into a snapshot.
func ParseSnapshot(data []byte) (Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return Snapshot{}, errors.New("history: invalid snapshot JSON")
	}
	parsed := gjson.ParseBytes(data)
	if !parsed.IsObject() {
		return Snapshot{}, fmt.Errorf("history: snapshot must be a JSON object, got %s", parsed.Type)
	}

	s := Snapshot{values: map[string]any{}}
	parsed.ForEach(func(key, value gjson.Result) bool {
		s.set(key.String(), value.Value())
		return true
	})
	return s, nil
}

func (s *Snapshot) set(name string, value any) {
	if s.values == nil {
		s.values = map[string]any{}
	}
	if _, ok := s.values[name]; !ok {
		s.keys = append(s.keys, name)
	}
	s.values[name] = value
}

// With returns a copy of s with name set to value.
func (s Snapshot) With(name string, value any) Snapshot {
	out := Snapshot{
		keys:   append([]string(nil), s.keys...),
		values: make(map[string]any, len(s.values)+1),
	}
	for k, v := range s.values {
		out.values[k] = v
	}
	out.set(name, value)
	return out
}

// Keys returns the field names in enumeration order.
func (s Snapshot) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Get returns the decoded value of a field.
func (s Snapshot) Get(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s Snapshot) Len() int { return len(s.keys) }

// ID returns the entity identifier in its display form.
func (s Snapshot) ID() string {
	v, ok := s.values[FieldID]
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// LastUpdateRaw returns the modification timestamp as sent by the backend.
func (s Snapshot) LastUpdateRaw() string {
	v, ok := s.values[FieldLastUpdate]
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// LastUpdate parses the modification timestamp. Values without an offset
// are read as local time. Missing or unparseable values give the zero time.
func (s Snapshot) LastUpdate() time.Time {
	t, _ := parseTimestamp(s.LastUpdateRaw(), time.Local)
	return t
}

func (s Snapshot) LastUpdateBy() string {
	v, ok := s.values[FieldLastUpdateBy]
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// MarshalJSON writes the fields in enumeration order.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(s.values[k])
		if err != nil {
			return nil, fmt.Errorf("history: encode field %q: %w", k, err)
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	parsed, err := ParseSnapshot(data)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
