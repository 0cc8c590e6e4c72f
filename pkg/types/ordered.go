package types

import (
	"bytes"
	"encoding/json"
)

// OrderedObject is an object value that remembers key insertion order.
// Functions that must expose keys in first-seen order (group_by_expr,
// count_by, reduce bindings) return it instead of a plain map.
type OrderedObject struct {
	Keys   []string
	Values map[string]any
}

// NewOrderedObject returns an empty ordered object.
func NewOrderedObject() *OrderedObject {
	return &OrderedObject{Values: make(map[string]any)}
}

// Get retrieves a value by key.
func (o *OrderedObject) Get(key string) (any, bool) {
	value, ok := o.Values[key]
	return value, ok
}

// Set stores a value, appending the key when it is new.
func (o *OrderedObject) Set(key string, value any) {
	if _, ok := o.Values[key]; !ok {
		o.Keys = append(o.Keys, key)
	}
	o.Values[key] = value
}

// Len returns the number of keys.
func (o *OrderedObject) Len() int {
	return len(o.Keys)
}

// Map returns a plain map with the same entries. Key order is lost.
func (o *OrderedObject) Map() map[string]any {
	out := make(map[string]any, len(o.Values))
	for k, v := range o.Values {
		out[k] = v
	}
	return out
}

// MarshalJSON preserves key order during marshaling.
func (o *OrderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		valueBytes, err := json.Marshal(o.Values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(valueBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
