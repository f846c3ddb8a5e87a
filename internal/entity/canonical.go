package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"time"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/mysqlstore/internal/queryir"
)

// MarshalCanonical encodes a structured field value as the JSON text stored
// in its column.
//
// The encoding is deterministic:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are written as given
//  4. Integers stay integral; NaN and Inf are rejected
//  5. time.Time nested inside a structure becomes an RFC 3339 string
//
// Maps, slices, arrays, *queryir.Columns and plain structs are accepted.
// Structs go through encoding/json first, so their json tags apply.
func MarshalCanonical(v any) ([]byte, error) {
	return canonicalEncoder{}.marshal(v)
}

// MarshalNormalized is MarshalCanonical with every string NFC normalized,
// so text that differs only in Unicode composition encodes identically.
// Use it for comparisons and golden output, never for stored values.
func MarshalNormalized(v any) ([]byte, error) {
	return canonicalEncoder{nfc: true}.marshal(v)
}

type canonicalEncoder struct {
	nfc bool
}

func (c canonicalEncoder) marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.value(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c canonicalEncoder) value(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case string:
		return c.str(buf, val)
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int8:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int16:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case uint:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint8:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint16:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint32:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(val, 10))
	case float32:
		return marshalCanonicalFloat(buf, float64(val), 32)
	case float64:
		return marshalCanonicalFloat(buf, val, 64)
	case json.Number:
		buf.WriteString(val.String())
	case time.Time:
		return c.str(buf, val.Format(time.RFC3339Nano))
	case []any:
		return c.array(buf, val)
	case map[string]any:
		return c.object(buf, val)
	case *queryir.Columns:
		if val == nil {
			buf.WriteString("null")
			return nil
		}
		return c.object(buf, val.Map())
	default:
		return c.reflected(buf, v)
	}
	return nil
}

// reflected handles typed slices, typed maps, pointers and structs by
// converting them to the generic forms above.
func (c canonicalEncoder) reflected(buf *bytes.Buffer, v any) error {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return c.value(buf, rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			buf.WriteString("null")
			return nil
		}
		arr := make([]any, rv.Len())
		for i := range arr {
			arr[i] = rv.Index(i).Interface()
		}
		return c.array(buf, arr)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("unsupported map key type for canonical JSON: %s", rv.Type().Key())
		}
		obj := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			obj[iter.Key().String()] = iter.Value().Interface()
		}
		return c.object(buf, obj)
	case reflect.Struct:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %T: %w", v, err)
		}
		generic, err := DecodeCanonical(raw)
		if err != nil {
			return fmt.Errorf("encode %T: %w", v, err)
		}
		return c.value(buf, generic)
	case reflect.String:
		return c.str(buf, rv.String())
	case reflect.Bool:
		buf.WriteString(strconv.FormatBool(rv.Bool()))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buf.WriteString(strconv.FormatInt(rv.Int(), 10))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		buf.WriteString(strconv.FormatUint(rv.Uint(), 10))
		return nil
	case reflect.Float32, reflect.Float64:
		return marshalCanonicalFloat(buf, rv.Float(), 64)
	}
	return fmt.Errorf("unsupported type for canonical JSON: %T", v)
}

func marshalCanonicalFloat(buf *bytes.Buffer, f float64, bits int) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("non-finite number is not representable in JSON: %v", f)
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, bits))
	return nil
}

// str writes a JSON string without HTML escaping.
func (c canonicalEncoder) str(buf *bytes.Buffer, s string) error {
	if c.nfc {
		s = norm.NFC.String(s)
	}
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// json.Encoder adds a trailing newline.
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

func (c canonicalEncoder) array(buf *bytes.Buffer, arr []any) error {
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := c.value(buf, elem); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func (c canonicalEncoder) object(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return compareUTF16(keys[i], keys[j]) < 0
	})

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := c.str(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := c.value(buf, obj[k]); err != nil {
			return fmt.Errorf("object[%q]: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// compareUTF16 orders strings by UTF-16 code units, which differs from
// byte order for characters outside the BMP.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	for i := 0; i < len(a16) && i < len(b16); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	return len(a16) - len(b16)
}

// DecodeCanonical parses stored JSON text back into generic values:
// map[string]any, []any, string, bool, nil, int64 for integral numbers and
// float64 for the rest.
func DecodeCanonical(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected trailing data after JSON value")
	}
	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case []any:
		for i := range val {
			val[i] = normalizeNumbers(val[i])
		}
		return val
	case map[string]any:
		for k := range val {
			val[k] = normalizeNumbers(val[k])
		}
		return val
	default:
		return v
	}
}
