//go:build js && wasm

package localstore

import (
	"syscall/js"

	"github.com/poiesic/localstore/platform/area"
	"github.com/poiesic/localstore/platform/idb"
	jsplatform "github.com/poiesic/localstore/platform/js"
)

type browserEnvironment struct{}

// BrowserEnvironment probes the globals of the running browser.
func BrowserEnvironment() Environment {
	return browserEnvironment{}
}

// IsBrowser reports whether a window and document exist. Workers and
// server-side runtimes report false.
func (browserEnvironment) IsBrowser() bool {
	g := js.Global()
	return g.Get("window").Truthy() && g.Get("document").Truthy()
}

func (browserEnvironment) IndexedDB() idb.Factory {
	f, err := jsplatform.IndexedDB()
	if err != nil {
		return nil
	}
	return f
}

func (browserEnvironment) LocalStorage() area.Area {
	a, err := jsplatform.LocalStorage()
	if err != nil {
		return nil
	}
	return a
}
