package store

import (
	"encoding/json"
	"strings"

	"github.com/Jeffail/gabs"
)

// Doc is a free-form JSON object record.
type Doc map[string]any

// Get returns the value of field. Dotted names ("owner.name") reach into
// nested objects when no top-level key matches.
func (d Doc) Get(field string) any {
	if v, ok := d[field]; ok {
		return v
	}
	if !strings.Contains(field, ".") {
		return nil
	}
	c, err := gabs.Consume(map[string]interface{}(d))
	if err != nil {
		return nil
	}
	return c.Path(field).Data()
}

// Clone returns a deep copy of d. Nested objects and arrays are copied too.
func (d Doc) Clone() Doc {
	if d == nil {
		return nil
	}
	out := make(Doc, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return map[string]any(Doc(x).Clone())
	case Doc:
		return x.Clone()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}

// decodeDocument parses a persisted document: either a bare array of
// records, or an object holding the array under parent. A missing or null
// array yields an empty collection.
func decodeDocument[T any](data []byte, parent string) ([]T, error) {
	if parent == "" {
		var records []T
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, err
		}
		return records, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}
	raw, ok := wrapper[parent]
	if !ok {
		return nil, nil
	}
	var records []T
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func encodeDocument[T any](records []T, parent string) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	if parent == "" {
		return json.MarshalIndent(records, "", "  ")
	}
	return json.MarshalIndent(map[string]any{parent: records}, "", "  ")
}
