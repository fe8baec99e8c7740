package api

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

// decode copies a loosely typed JSON value into out. Numbers may arrive as
// floats or strings and timestamps in several shapes.
func decode(in any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Squash:           true,
		Result:           out,
		DecodeHook:       timestampHook,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// decodeList accepts a bare array or an object wrapping it under key.
func decodeList[T any](raw any, key string) ([]T, error) {
	if obj, ok := raw.(map[string]any); ok {
		raw = obj[key]
	}

	out := []T{}
	if raw == nil {
		return out, nil
	}
	if err := decode(raw, &out); err != nil {
		return []T{}, fmt.Errorf("decoding %s: %w", key, err)
	}
	return out, nil
}

func timestampHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	return parseTimestamp(data)
}

func parseTimestamp(data any) (any, error) {
	switch v := data.(type) {
	case nil:
		return time.Time{}, nil
	case string:
		if v == "" {
			return time.Time{}, nil
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return epoch(n), nil
		}
		return nil, fmt.Errorf("unsupported timestamp %q", v)
	case float64:
		return epoch(v), nil
	case int:
		return epoch(float64(v)), nil
	case int64:
		return epoch(float64(v)), nil
	case map[string]any:
		// document store timestamps: {"_seconds": 1, "_nanoseconds": 2}
		for _, keys := range [][2]string{{"_seconds", "_nanoseconds"}, {"seconds", "nanos"}} {
			sec, ok := number(v[keys[0]])
			if !ok {
				continue
			}
			nsec, _ := number(v[keys[1]])
			return time.Unix(int64(sec), int64(nsec)).UTC(), nil
		}
		return nil, fmt.Errorf("unsupported timestamp object %v", v)
	default:
		return data, nil
	}
}

// epoch reads n as seconds, or as milliseconds when it is above 1e12.
func epoch(n float64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(int64(n)).UTC()
	}
	sec := int64(n)
	return time.Unix(sec, int64((n-float64(sec))*1e9)).UTC()
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
