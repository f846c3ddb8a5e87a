package entity

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/roach88/mysqlstore/internal/queryir"
)

// Type tags written to the type column when the codec runs in tagged mode.
const (
	TagObject = "o"
	TagArray  = "a"
	TagDate   = "d"
)

// mysqlDatetime is the text layout MySQL uses for DATETIME/TIMESTAMP when the
// connection does not parse times.
const mysqlDatetime = "2006-01-02 15:04:05.999999"

// Codec converts between entities and table rows.
//
// Structured field values (maps, slices, arrays, structs, *queryir.Columns)
// are stored as canonical JSON text. Dates and scalars pass through.
//
// Reading JSON text back runs in exactly one of two modes:
//
// Inference (TypeColumn empty): a string column is decoded when it looks
// like a JSON object or array (first non-space byte is '{' or '[') and
// parses. Strings holding scalar JSON such as "123" stay strings. A string
// field whose text is itself a JSON object or array comes back structured.
//
// Tagged (TypeColumn set): ToRow also writes TypeColumn with a JSON map of
// field → tag (o, a, d) and FromRow decodes exactly the tagged fields. The
// table needs the extra column, and round trips are exact.
type Codec struct {
	TypeColumn string
}

// NewCodec returns a codec; an empty typeColumn selects inference mode.
func NewCodec(typeColumn string) Codec {
	return Codec{TypeColumn: typeColumn}
}

// Tagged reports whether the codec writes and reads a type column.
func (c Codec) Tagged() bool {
	return c.TypeColumn != ""
}

// ToRow converts an entity into the column map to write.
//
// Only fields the descriptor declares are written (all fields when it
// declares none). Absent fields are omitted; nil values are written as NULL.
func (c Codec) ToRow(e *Entity) (*queryir.Columns, error) {
	row := queryir.NewColumns()
	tags := map[string]any{}

	for _, name := range e.Fields() {
		if !e.desc.Declares(name) || (c.Tagged() && name == c.TypeColumn) {
			continue
		}
		value, _ := e.Get(name)

		encoded, tag, err := encodeValue(value)
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", name, err)
		}
		if tag != "" {
			tags[name] = tag
		}
		row.Set(name, encoded)
	}

	if c.Tagged() {
		text, err := MarshalCanonical(tags)
		if err != nil {
			return nil, fmt.Errorf("encode type column: %w", err)
		}
		row.Set(c.TypeColumn, string(text))
	}
	return row, nil
}

// encodeValue returns the column value and its type tag ("" for scalars).
func encodeValue(v any) (any, string, error) {
	switch val := v.(type) {
	case nil:
		return nil, "", nil
	case time.Time:
		return val, TagDate, nil
	case *time.Time:
		if val == nil {
			return nil, "", nil
		}
		return *val, TagDate, nil
	case []byte, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val, "", nil
	case *queryir.Columns:
		if val == nil {
			return nil, "", nil
		}
		return encodeStructured(val, TagObject)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, "", nil
		}
		return encodeValue(rv.Elem().Interface())
	case reflect.Map, reflect.Struct:
		return encodeStructured(v, TagObject)
	case reflect.Slice, reflect.Array:
		return encodeStructured(v, TagArray)
	}
	// Named scalar types (type Status string) pass through to the driver.
	return v, "", nil
}

func encodeStructured(v any, tag string) (any, string, error) {
	text, err := MarshalCanonical(v)
	if err != nil {
		return nil, "", err
	}
	return string(text), tag, nil
}

// FromRow converts a row into an entity of kind d. A nil row yields a nil
// entity and no error.
func (c Codec) FromRow(d *Descriptor, row *queryir.Columns) (*Entity, error) {
	if row == nil {
		return nil, nil
	}

	var tags map[string]any
	if c.Tagged() {
		parsed, err := c.readTags(row)
		if err != nil {
			return nil, err
		}
		tags = parsed
	}

	fields := queryir.NewColumns()
	err := row.Each(func(name string, value any) error {
		if c.Tagged() {
			if name == c.TypeColumn {
				return nil
			}
			decoded, err := decodeTagged(value, tags[name])
			if err != nil {
				return fmt.Errorf("decode field %q: %w", name, err)
			}
			fields.Set(name, decoded)
			return nil
		}
		fields.Set(name, inferValue(value))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d.Make(fields), nil
}

func (c Codec) readTags(row *queryir.Columns) (map[string]any, error) {
	raw, ok := row.Get(c.TypeColumn)
	if !ok || raw == nil {
		return map[string]any{}, nil
	}
	text, ok := asText(raw)
	if !ok {
		return nil, fmt.Errorf("type column %q holds %T, not text", c.TypeColumn, raw)
	}
	if strings.TrimSpace(text) == "" {
		return map[string]any{}, nil
	}
	decoded, err := DecodeCanonical([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("decode type column %q: %w", c.TypeColumn, err)
	}
	tags, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("type column %q is not a JSON object", c.TypeColumn)
	}
	return tags, nil
}

func decodeTagged(value any, tag any) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch tag {
	case TagObject, TagArray:
		text, ok := asText(value)
		if !ok {
			return value, nil
		}
		return DecodeCanonical([]byte(text))
	case TagDate:
		return decodeDate(value)
	}
	return value, nil
}

func decodeDate(value any) (any, error) {
	switch val := value.(type) {
	case time.Time:
		return val, nil
	}
	text, ok := asText(value)
	if !ok {
		return value, nil
	}
	for _, layout := range []string{time.RFC3339Nano, mysqlDatetime, "2006-01-02"} {
		if t, err := time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("cannot parse %q as a date", text)
}

// inferValue decodes JSON object/array text and returns everything else
// unchanged, binary column bytes included.
func inferValue(value any) any {
	text, ok := asText(value)
	if !ok {
		return value
	}
	trimmed := strings.TrimLeft(text, " \t\r\n")
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return value
	}
	decoded, err := DecodeCanonical([]byte(text))
	if err != nil {
		return value
	}
	switch decoded.(type) {
	case map[string]any, []any:
		return decoded
	}
	return value
}

func asText(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case []byte:
		return string(val), true
	}
	return "", false
}
