package snapshot

import (
	"bytes"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"time"

	"db-snapshot/internal/database"
)

// Value is an encoded column value. The set of implementations is closed:
// Null, Bool, Int, Float, Text, Binary, Sequence, Mapping and Raw.
type Value interface {
	json.Marshaler
	isValue()
}

// Null is SQL NULL.
type Null struct{}

type Bool bool

type Int int64

type Float float64

type Text string

// Binary is a raw byte payload. It is written as {"kind":"base64","data":"..."}.
type Binary []byte

type Sequence []Value

// Field is one key of a Mapping.
type Field struct {
	Key   string
	Value Value
}

// Mapping keeps its keys in insertion order.
type Mapping []Field

// Raw carries a value the encoder has no case for. It is written with
// encoding/json, or as its fmt representation when that fails.
type Raw struct {
	V interface{}
}

func (Null) isValue() {}
func (Bool) isValue() {}
func (Int) isValue() {}
func (Float) isValue() {}
func (Text) isValue() {}
func (Binary) isValue() {}
func (Sequence) isValue() {}
func (Mapping) isValue() {}
func (Raw) isValue() {}

// BinaryKind is the marker written in the kind field of an encoded Binary.
const BinaryKind = "base64"

type binaryMarker struct {
	Kind string `json:"kind"`
	Data string `json:"data"`
}

func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

func (b Bool) MarshalJSON() ([]byte, error) { return json.Marshal(bool(b)) }

func (i Int) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(i), 10)), nil
}

func (f Float) MarshalJSON() ([]byte, error) { return json.Marshal(float64(f)) }

func (t Text) MarshalJSON() ([]byte, error) { return json.Marshal(string(t)) }

func (b Binary) MarshalJSON() ([]byte, error) {
	return json.Marshal(binaryMarker{Kind: BinaryKind, Data: base64.StdEncoding.EncodeToString(b)})
}

func (s Sequence) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Value(s))
}

func (m Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		value := field.Value
		if value == nil {
			value = Null{}
		}
		encoded, err := value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(encoded)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r Raw) MarshalJSON() ([]byte, error) {
	if data, err := json.Marshal(r.V); err == nil {
		return data, nil
	}
	return json.Marshal(fmt.Sprint(r.V))
}

// Get returns the value stored under key.
func (m Mapping) Get(key string) (Value, bool) {
	for _, field := range m {
		if field.Key == key {
			return field.Value, true
		}
	}
	return nil, false
}

// Encode converts a driver value into a Value. It never fails: values with no
// dedicated case become Raw.
func Encode(v interface{}) Value {
	switch x := v.(type) {
	case nil:
		return Null{}
	case Value:
		return x
	case bool:
		return Bool(x)
	case int:
		return Int(x)
	case int8:
		return Int(x)
	case int16:
		return Int(x)
	case int32:
		return Int(x)
	case int64:
		return Int(x)
	case uint8:
		return Int(x)
	case uint16:
		return Int(x)
	case uint32:
		return Int(x)
	case uint:
		return encodeUint(uint64(x))
	case uint64:
		return encodeUint(x)
	case float32:
		return encodeFloat(float64(x))
	case float64:
		return encodeFloat(x)
	case string:
		return Text(x)
	case []byte:
		return copyBinary(x)
	case sql.RawBytes:
		return copyBinary(x)
	case time.Time:
		return Raw{V: x}
	case []interface{}:
		seq := make(Sequence, len(x))
		for i, item := range x {
			seq[i] = Encode(item)
		}
		return seq
	case map[string]interface{}:
		return encodeStringMap(reflect.ValueOf(x))
	case database.Row:
		return EncodeRow(x)
	}

	return encodeReflect(reflect.ValueOf(v))
}

// EncodeRow encodes a result row as a Mapping in column order.
func EncodeRow(row database.Row) Mapping {
	record := make(Mapping, 0, len(row.Columns))
	for i, column := range row.Columns {
		var value interface{}
		if i < len(row.Values) {
			value = row.Values[i]
		}
		record = append(record, Field{Key: column, Value: Encode(value)})
	}
	return record
}

func encodeReflect(rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return Null{}
		}
		return Encode(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			data := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(data), rv)
			return Binary(data)
		}
		seq := make(Sequence, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			seq[i] = Encode(rv.Index(i).Interface())
		}
		return seq
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return encodeStringMap(rv)
		}
	case reflect.String:
		return Text(rv.String())
	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return encodeUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return encodeFloat(rv.Float())
	}

	if !rv.IsValid() {
		return Null{}
	}
	return Raw{V: rv.Interface()}
}

// encodeStringMap sorts keys; Go maps have no insertion order to keep.
func encodeStringMap(rv reflect.Value) Mapping {
	keys := make([]string, 0, rv.Len())
	values := make(map[string]reflect.Value, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key := iter.Key().String()
		keys = append(keys, key)
		values[key] = iter.Value()
	}
	sort.Strings(keys)

	mapping := make(Mapping, 0, len(keys))
	for _, key := range keys {
		mapping = append(mapping, Field{Key: key, Value: Encode(values[key].Interface())})
	}
	return mapping
}

func encodeUint(u uint64) Value {
	if u > math.MaxInt64 {
		return Raw{V: u}
	}
	return Int(int64(u))
}

// encodeFloat keeps NaN and infinities as text since JSON has no literal for them.
func encodeFloat(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Text(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return Float(f)
}

func copyBinary(b []byte) Binary {
	data := make([]byte, len(b))
	copy(data, b)
	return Binary(data)
}
