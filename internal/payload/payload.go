// Package payload decodes raw JSON request bodies into the normalized value
// model consumed by the evaluator.
package payload

import (
	"errors"
	"fmt"
	"io"

	"github.com/valyala/fastjson"
)

// DefaultMaxBytes bounds the body size accepted by ReadFrom.
const DefaultMaxBytes = 4 << 20

// ErrTooLarge is returned when a body exceeds the configured limit.
var ErrTooLarge = errors.New("payload too large")

// ReadFrom reads at most limit bytes from r and decodes them into nil, bool,
// float64, string, []any or map[string]any. A limit of zero or less uses
// DefaultMaxBytes.
func ReadFrom(r io.Reader, limit int64) (any, error) {
	data, err := readLimited(r, limit)
	if err != nil {
		return nil, err
	}
	v, err := fastjson.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}
	return convert(v)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

func convert(v *fastjson.Value) (any, error) {
	switch v.Type() {
	case fastjson.TypeObject:
		o, err := v.Object()
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, o.Len())
		var visitErr error
		o.Visit(func(key []byte, child *fastjson.Value) {
			if visitErr != nil {
				return
			}
			c, err := convert(child)
			if err != nil {
				visitErr = err
				return
			}
			// Later duplicates win, as with encoding/json.
			out[string(key)] = c
		})
		if visitErr != nil {
			return nil, visitErr
		}
		return out, nil
	case fastjson.TypeArray:
		vs, err := v.Array()
		if err != nil {
			return nil, err
		}
		out := make([]any, len(vs))
		for i, elem := range vs {
			c, err := convert(elem)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case fastjson.TypeString:
		b, err := v.StringBytes()
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case fastjson.TypeNumber:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %s: %w", v.String(), err)
		}
		return f, nil
	case fastjson.TypeTrue:
		return true, nil
	case fastjson.TypeFalse:
		return false, nil
	case fastjson.TypeNull:
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected JSON type %s", v.Type())
}
