//go:build js && wasm

// Package js binds the platform APIs to the browser's localStorage and
// indexedDB globals through syscall/js.
//
// Values cross the boundary as JSON: Go values are marshaled and parsed
// into JavaScript objects on write, and stringified and unmarshaled on
// read.
package js

import (
	"encoding/json"
	"errors"
	"fmt"
	"syscall/js"

	"github.com/poiesic/localstore/platform/area"
	"github.com/poiesic/localstore/platform/idb"
)

// ErrUnavailable is returned when a global is missing.
var ErrUnavailable = errors.New("js: global unavailable")

// domError converts a DOMException into the matching sentinel.
func domError(v js.Value) error {
	if v.IsUndefined() || v.IsNull() {
		return errors.New("js: unknown error")
	}
	name := v.Get("name").String()
	message := v.Get("message").String()

	var sentinel error
	switch name {
	case "VersionError":
		sentinel = idb.ErrVersion
	case "NotFoundError":
		sentinel = idb.ErrNotFound
	case "ConstraintError":
		sentinel = idb.ErrConstraint
	case "ReadOnlyError":
		sentinel = idb.ErrReadOnly
	case "TransactionInactiveError":
		sentinel = idb.ErrTransactionInactive
	case "InvalidStateError":
		sentinel = idb.ErrInvalidState
	case "AbortError":
		sentinel = idb.ErrAbort
	case "QuotaExceededError":
		sentinel = idb.ErrQuotaExceeded
	case "DataError", "DataCloneError":
		sentinel = idb.ErrData
	default:
		return fmt.Errorf("js: %s: %s", name, message)
	}
	return fmt.Errorf("%w: %s", sentinel, message)
}

// catch turns a thrown JavaScript exception into *err. Other panics are
// re-raised.
func catch(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if jsErr, ok := r.(js.Error); ok {
		*err = domError(jsErr.Value)
		return
	}
	panic(r)
}

// toJS marshals v to JSON and parses it into a JavaScript value.
func toJS(v any) (result js.Value, err error) {
	defer catch(&err)
	data, err := json.Marshal(v)
	if err != nil {
		return js.Undefined(), fmt.Errorf("%w: %w", idb.ErrData, err)
	}
	return js.Global().Get("JSON").Call("parse", string(data)), nil
}

// fromJS stringifies v and unmarshals it. undefined and null become nil.
func fromJS(v js.Value) (result any, err error) {
	if v.IsUndefined() || v.IsNull() {
		return nil, nil
	}
	defer catch(&err)
	data := js.Global().Get("JSON").Call("stringify", v).String()
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("%w: %w", idb.ErrData, err)
	}
	return result, nil
}

// global returns the named global, or ErrUnavailable if it is missing or
// lacks method.
func global(name, method string) (js.Value, error) {
	v := js.Global().Get(name)
	if v.IsUndefined() || v.IsNull() || v.Get(method).Type() != js.TypeFunction {
		return js.Undefined(), fmt.Errorf("%w: %s", ErrUnavailable, name)
	}
	return v, nil
}

// quota maps a quota DOMException onto area.ErrQuotaExceeded.
func quota(err error) error {
	if errors.Is(err, idb.ErrQuotaExceeded) {
		return fmt.Errorf("%w: %w", area.ErrQuotaExceeded, err)
	}
	return err
}
