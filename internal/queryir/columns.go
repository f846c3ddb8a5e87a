package queryir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Columns is an insertion-ordered map from column name to value.
//
// Every place where the rendered SQL depends on key order (insert column
// lists, update set lists, filter maps, sort objects) uses Columns so the
// generated text and its bindings are deterministic. Plain Go maps are
// accepted at the edges and lifted in sorted key order.
//
// The zero value is not usable; call NewColumns. Read methods are safe on a
// nil *Columns and behave as if it were empty.
type Columns struct {
	names  []string
	values map[string]any
}

// NewColumns returns an empty ordered map.
func NewColumns() *Columns {
	return &Columns{values: map[string]any{}}
}

// ColumnsOf builds Columns from alternating name/value arguments.
//
// Panics if the argument count is odd or a name is not a string; it is meant
// for literals in code and tests.
func ColumnsOf(kv ...any) *Columns {
	if len(kv)%2 != 0 {
		panic("queryir: ColumnsOf requires name/value pairs")
	}
	c := NewColumns()
	for i := 0; i < len(kv); i += 2 {
		name, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("queryir: ColumnsOf name at %d is %T, not string", i, kv[i]))
		}
		c.Set(name, kv[i+1])
	}
	return c
}

// FromMap lifts a plain map into Columns with keys in sorted order.
func FromMap(m map[string]any) *Columns {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	c := NewColumns()
	for _, k := range keys {
		c.Set(k, m[k])
	}
	return c
}

// Set assigns a value. A name already present keeps its position.
func (c *Columns) Set(name string, value any) {
	if _, ok := c.values[name]; !ok {
		c.names = append(c.names, name)
	}
	c.values[name] = value
}

// Get returns the value stored under name.
func (c *Columns) Get(name string) (any, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.values[name]
	return v, ok
}

// Has reports whether name is present (a nil value counts as present).
func (c *Columns) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Delete removes name if present.
func (c *Columns) Delete(name string) {
	if c == nil {
		return
	}
	if _, ok := c.values[name]; !ok {
		return
	}
	delete(c.values, name)
	for i, n := range c.names {
		if n == name {
			c.names = append(c.names[:i:i], c.names[i+1:]...)
			break
		}
	}
}

// Names returns the column names in insertion order.
func (c *Columns) Names() []string {
	if c == nil {
		return []string{}
	}
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of columns.
func (c *Columns) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Clone returns a shallow copy.
func (c *Columns) Clone() *Columns {
	out := NewColumns()
	for _, n := range c.Names() {
		out.Set(n, c.values[n])
	}
	return out
}

// Filter returns a copy holding only the columns keep accepts.
func (c *Columns) Filter(keep func(name string, value any) bool) *Columns {
	out := NewColumns()
	for _, n := range c.Names() {
		if keep(n, c.values[n]) {
			out.Set(n, c.values[n])
		}
	}
	return out
}

// Each calls fn for every column in order, stopping at the first error.
func (c *Columns) Each(fn func(name string, value any) error) error {
	for _, n := range c.Names() {
		if err := fn(n, c.values[n]); err != nil {
			return err
		}
	}
	return nil
}

// Map returns a plain map copy. Nested values are not converted.
func (c *Columns) Map() map[string]any {
	out := make(map[string]any, c.Len())
	for _, n := range c.Names() {
		out[n] = c.values[n]
	}
	return out
}

// MarshalJSON encodes the columns as a JSON object in insertion order.
func (c *Columns) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range c.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(c.values[n])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", n, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving document key order.
//
// Nested objects decode to *Columns, arrays to []any, integral numbers to
// int64 and other numbers to float64.
func (c *Columns) UnmarshalJSON(data []byte) error {
	v, err := ParseJSONValue(data)
	if err != nil {
		return err
	}
	obj, ok := v.(*Columns)
	if !ok {
		return fmt.Errorf("expected JSON object, got %T", v)
	}
	*c = *obj
	return nil
}

// ParseColumns decodes a JSON object into Columns.
func ParseColumns(data []byte) (*Columns, error) {
	c := NewColumns()
	if err := c.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseJSONValue decodes any JSON document with the same rules as
// UnmarshalJSON, so ids and id lists can be parsed alongside filter maps.
// Anything but whitespace after the value is an error.
func ParseJSONValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected trailing data after JSON value")
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewColumns()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("expected object key, got %v", keyTok)
				}
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []any{}
			for dec.More() {
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", t)
		}
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", t, err)
		}
		return f, nil
	default:
		// string, bool, nil
		return t, nil
	}
}
