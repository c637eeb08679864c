//go:build js && wasm

package js

import (
	"syscall/js"

	"github.com/poiesic/localstore/platform/area"
)

// Area is the browser's localStorage.
type Area struct {
	v js.Value
}

var _ area.Area = (*Area)(nil)

// LocalStorage returns window.localStorage. Touching the global may throw
// when storage is blocked; that surfaces as a panic for the caller's probe
// to recover.
func LocalStorage() (*Area, error) {
	v, err := global("localStorage", "getItem")
	if err != nil {
		return nil, err
	}
	return &Area{v: v}, nil
}

func (a *Area) GetItem(key string) (value string, ok bool, err error) {
	defer catch(&err)
	v := a.v.Call("getItem", key)
	if v.IsNull() {
		return "", false, nil
	}
	return v.String(), true, nil
}

func (a *Area) SetItem(key, value string) (err error) {
	defer func() { err = quota(err) }()
	defer catch(&err)
	a.v.Call("setItem", key, value)
	return nil
}

func (a *Area) RemoveItem(key string) (err error) {
	defer catch(&err)
	a.v.Call("removeItem", key)
	return nil
}

func (a *Area) Clear() (err error) {
	defer catch(&err)
	a.v.Call("clear")
	return nil
}

func (a *Area) Key(index int) (key string, ok bool, err error) {
	defer catch(&err)
	v := a.v.Call("key", index)
	if v.IsNull() {
		return "", false, nil
	}
	return v.String(), true, nil
}

func (a *Area) Length() (n int, err error) {
	defer catch(&err)
	return a.v.Get("length").Int(), nil
}
