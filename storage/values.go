package storage

import (
	"encoding/json"
	"fmt"
	"iter"
	"reflect"
	"sync/atomic"
)

var rawMessageType = reflect.TypeFor[json.RawMessage]()

// IsAbsent reports whether v encodes as null: nil itself, or a nil pointer,
// interface, map or slice, directly or behind pointers. Setting an absent
// value deletes the key.
func IsAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	for {
		switch rv.Kind() {
		case reflect.Pointer, reflect.Interface:
			if rv.IsNil() {
				return true
			}
			rv = rv.Elem()
		case reflect.Map, reflect.Slice:
			return rv.IsNil()
		default:
			return false
		}
	}
}

// CheckPlainValue reports whether v is a plain value: nil, a boolean, a
// number, a string, a slice or array, a map keyed by strings, a pointer to
// one of those, or a json.RawMessage. Structs (time.Time included), funcs,
// channels and complex numbers are rejected with ErrNotPlainValue.
//
// Only the top-level value is inspected. Nested values that cannot be encoded
// are left for the encoder to report.
func CheckPlainValue(v any) error {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Type() == rawMessageType {
		return nil
	}
	switch rv.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Slice, reflect.Array:
		return nil
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return nil
		}
	}
	return fmt.Errorf("%w: %T", ErrNotPlainValue, v)
}

// CollectKeys drains seq into a slice. It stops at the first error.
func CollectKeys(seq iter.Seq2[string, error]) ([]string, error) {
	var keys []string
	for key, err := range seq {
		if err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// SingleUse wraps seq so that only the first range over it produces
// elements. Later ranges yield nothing.
func SingleUse(seq iter.Seq2[string, error]) iter.Seq2[string, error] {
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if used.Swap(true) {
			return
		}
		seq(yield)
	}
}

// failed returns a sequence that yields err once.
func failed(err error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield("", err)
	}
}

// FailedKeys returns a single-use sequence that yields err once.
func FailedKeys(err error) iter.Seq2[string, error] {
	return SingleUse(failed(err))
}
