package jsonvalue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

// Kind names of normalized values, using JSON Schema vocabulary.
const (
	KindNull    = "null"
	KindBoolean = "boolean"
	KindNumber  = "number"
	KindString  = "string"
	KindArray   = "array"
	KindObject  = "object"
)

// Normalize converts v into the normalized JSON data model.
//
// Integers and float32 become float64, typed slices and maps become []any and
// map[string]any, json.Number is parsed. Anything else (structs, pointers,
// custom types) goes through an encoding/json round trip.
func Normalize(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case bool, string, float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", string(val), err)
		}
		return f, nil
	case []any:
		arr := make([]any, len(val))
		for i, elem := range val {
			n, err := Normalize(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = n
		}
		return arr, nil
	case []string:
		arr := make([]any, len(val))
		for i, s := range val {
			arr[i] = s
		}
		return arr, nil
	case map[string]any:
		obj := make(map[string]any, len(val))
		for k, elem := range val {
			n, err := Normalize(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = n
		}
		return obj, nil
	case map[string]string:
		obj := make(map[string]any, len(val))
		for k, s := range val {
			obj[k] = s
		}
		return obj, nil
	case json.RawMessage:
		return Decode(val)
	default:
		return normalizeReflect(v)
	}
}

// MustNormalize is like Normalize but panics on error.
// Use only for values known to be JSON compatible (literals in declarations).
func MustNormalize(v any) any {
	n, err := Normalize(v)
	if err != nil {
		panic(err)
	}
	return n
}

func normalizeReflect(v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, nil
		}
		arr := make([]any, rv.Len())
		for i := range arr {
			n, err := Normalize(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = n
		}
		return arr, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		if rv.IsNil() {
			return nil, nil
		}
		obj := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			n, err := Normalize(iter.Value().Interface())
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", iter.Key().String(), err)
			}
			obj[iter.Key().String()] = n
		}
		return obj, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize %T: %w", v, err)
	}
	return Decode(data)
}

// Decode parses JSON bytes into a normalized value.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return Normalize(raw)
}

// DeepCopy clones a normalized value. Scalars are returned as is.
func DeepCopy(v any) any {
	switch val := v.(type) {
	case []any:
		arr := make([]any, len(val))
		for i, elem := range val {
			arr[i] = DeepCopy(elem)
		}
		return arr
	case map[string]any:
		obj := make(map[string]any, len(val))
		for k, elem := range val {
			obj[k] = DeepCopy(elem)
		}
		return obj
	default:
		return val
	}
}

// KindOf returns the JSON kind of a normalized value, or "" for values
// outside the model.
func KindOf(v any) string {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBoolean
	case float64:
		return KindNumber
	case string:
		return KindString
	case []any:
		return KindArray
	case map[string]any:
		return KindObject
	default:
		return ""
	}
}

// IsInteger reports whether v is a float64 without fractional part.
func IsInteger(v any) bool {
	f, ok := v.(float64)
	return ok && !math.IsInf(f, 0) && f == math.Trunc(f)
}

// Equal compares two normalized values structurally.
func Equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
