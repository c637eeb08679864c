//go:build js && wasm

package js

import (
	"fmt"
	"syscall/js"

	"github.com/poiesic/localstore/platform/idb"
)

// Factory is the browser's indexedDB.
type Factory struct {
	v js.Value
}

var _ idb.Factory = (*Factory)(nil)

// IndexedDB returns window.indexedDB.
func IndexedDB() (*Factory, error) {
	v, err := global("indexedDB", "open")
	if err != nil {
		return nil, err
	}
	return &Factory{v: v}, nil
}

// Open calls indexedDB.open. An exception thrown by the call is returned
// synchronously. The upgrade runs from onupgradeneeded; an upgrade error
// aborts the version change transaction, which fails the open.
func (f *Factory) Open(name string, version uint64, upgrade idb.UpgradeFunc) (req *idb.Request[idb.Database], err error) {
	if version == 0 {
		return nil, idb.ErrInvalidVersion
	}
	defer catch(&err)
	openReq := f.v.Call("open", name, float64(version))

	req = idb.NewRequest[idb.Database]()
	var onUpgrade, onSuccess, onError js.Func
	release := func() {
		onUpgrade.Release()
		onSuccess.Release()
		onError.Release()
	}

	onUpgrade = js.FuncOf(func(this js.Value, args []js.Value) any {
		event := args[0]
		s := &schema{db: openReq.Get("result")}
		oldVersion := uint64(event.Get("oldVersion").Float())
		if upgrade == nil {
			return nil
		}
		if err := s.run(func() error { return upgrade(s, oldVersion, version) }); err != nil {
			req.Fail(fmt.Errorf("%w: upgrade: %w", idb.ErrAbort, err))
			abortVersionChange(openReq)
		}
		return nil
	})
	onSuccess = js.FuncOf(func(this js.Value, args []js.Value) any {
		release()
		req.Succeed(&database{v: openReq.Get("result")})
		return nil
	})
	onError = js.FuncOf(func(this js.Value, args []js.Value) any {
		release()
		req.Fail(domError(openReq.Get("error")))
		return nil
	})

	openReq.Set("onupgradeneeded", onUpgrade)
	openReq.Set("onsuccess", onSuccess)
	openReq.Set("onerror", onError)
	return req, nil
}

// abortVersionChange aborts the upgrade transaction of an open request. The
// abort throws if the transaction already finished, which is ignored.
func abortVersionChange(openReq js.Value) (err error) {
	defer catch(&err)
	openReq.Get("transaction").Call("abort")
	return nil
}

// schema wraps the database during onupgradeneeded.
type schema struct {
	db js.Value
}

var _ idb.Schema = (*schema)(nil)

func (s *schema) run(fn func() error) (err error) {
	defer catch(&err)
	return fn()
}

func (s *schema) ObjectStoreNames() []string {
	return stringList(s.db.Get("objectStoreNames"))
}

func (s *schema) HasObjectStore(name string) bool {
	return s.db.Get("objectStoreNames").Call("contains", name).Bool()
}

func (s *schema) CreateObjectStore(name string) (err error) {
	defer catch(&err)
	s.db.Call("createObjectStore", name)
	return nil
}

func (s *schema) DeleteObjectStore(name string) (err error) {
	defer catch(&err)
	s.db.Call("deleteObjectStore", name)
	return nil
}

// database wraps an IDBDatabase.
type database struct {
	v js.Value
}

var _ idb.Database = (*database)(nil)

func (d *database) Name() string {
	return d.v.Get("name").String()
}

func (d *database) Version() uint64 {
	return uint64(d.v.Get("version").Float())
}

func (d *database) ObjectStoreNames() []string {
	return stringList(d.v.Get("objectStoreNames"))
}

func (d *database) Transaction(store string, mode idb.Mode) (t idb.Transaction, err error) {
	defer catch(&err)
	return &transaction{v: d.v.Call("transaction", store, mode.String()), mode: mode}, nil
}

func (d *database) Close() (err error) {
	defer catch(&err)
	d.v.Call("close")
	return nil
}

// transaction wraps an IDBTransaction.
type transaction struct {
	v    js.Value
	mode idb.Mode
}

var _ idb.Transaction = (*transaction)(nil)

func (t *transaction) Mode() idb.Mode {
	return t.mode
}

func (t *transaction) ObjectStore(name string) (s idb.ObjectStore, err error) {
	defer catch(&err)
	v := t.v.Call("objectStore", name)
	if v.Get("openKeyCursor").Type() == js.TypeFunction {
		return &keyCursorStore{objectStore{v: v}}, nil
	}
	return &objectStore{v: v}, nil
}

// Abort aborts the transaction. Aborting a finished one throws, which is
// ignored.
func (t *transaction) Abort() {
	var err error
	defer catch(&err)
	t.v.Call("abort")
}

// objectStore wraps an IDBObjectStore.
type objectStore struct {
	v js.Value
}

var _ idb.ObjectStore = (*objectStore)(nil)

// issue calls method and settles a request from its success and error
// events.
func issue[T any](store js.Value, extract func(js.Value) (T, error), method string, args ...any) (req *idb.Request[T]) {
	var err error
	defer func() {
		if err != nil {
			req = idb.FailedRequest[T](err)
		}
	}()
	defer catch(&err)

	r := store.Call(method, args...)
	req = idb.NewRequest[T]()
	var onSuccess, onError js.Func
	onSuccess = js.FuncOf(func(this js.Value, _ []js.Value) any {
		onSuccess.Release()
		onError.Release()
		v, err := extract(r.Get("result"))
		if err != nil {
			req.Fail(err)
			return nil
		}
		req.Succeed(v)
		return nil
	})
	onError = js.FuncOf(func(this js.Value, _ []js.Value) any {
		onSuccess.Release()
		onError.Release()
		req.Fail(domError(r.Get("error")))
		return nil
	})
	r.Set("onsuccess", onSuccess)
	r.Set("onerror", onError)
	return req
}

func none(js.Value) (struct{}, error) {
	return struct{}{}, nil
}

func count(v js.Value) (int, error) {
	return v.Int(), nil
}

func (s *objectStore) Get(key string) *idb.Request[any] {
	return issue(s.v, fromJS, "get", key)
}

func (s *objectStore) Put(key string, value any) *idb.Request[struct{}] {
	v, err := toJS(value)
	if err != nil {
		return idb.FailedRequest[struct{}](err)
	}
	return issue(s.v, none, "put", v, key)
}

func (s *objectStore) Delete(key string) *idb.Request[struct{}] {
	return issue(s.v, none, "delete", key)
}

func (s *objectStore) Clear() *idb.Request[struct{}] {
	return issue(s.v, none, "clear")
}

func (s *objectStore) Count() *idb.Request[int] {
	return issue(s.v, count, "count")
}

func (s *objectStore) CountKey(key string) *idb.Request[int] {
	return issue(s.v, count, "count", key)
}

func (s *objectStore) OpenCursor() *idb.CursorRequest {
	return iterate(s.v, "openCursor", true)
}

// keyCursorStore is an objectStore on engines that support openKeyCursor.
type keyCursorStore struct {
	objectStore
}

var _ idb.KeyCursorOpener = (*keyCursorStore)(nil)

func (s *keyCursorStore) OpenKeyCursor() *idb.CursorRequest {
	return iterate(s.v, "openKeyCursor", false)
}

// iterate opens a cursor. Each success event delivers the next position,
// or nil when the result is null.
func iterate(store js.Value, method string, withValues bool) (req *idb.CursorRequest) {
	var err error
	defer func() {
		if err != nil {
			req = idb.FailedCursorRequest(err)
		}
	}()
	defer catch(&err)

	r := store.Call(method)
	req = idb.NewCursorRequest()
	var onSuccess, onError js.Func
	release := func() {
		onSuccess.Release()
		onError.Release()
	}
	onSuccess = js.FuncOf(func(this js.Value, _ []js.Value) any {
		c := r.Get("result")
		if c.IsNull() {
			release()
			go req.Deliver(nil)
			return nil
		}
		pos := &cursor{v: c, key: keyString(c.Get("key"))}
		if withValues {
			value, err := fromJS(c.Get("value"))
			if err != nil {
				release()
				req.Fail(err)
				return nil
			}
			pos.value = value
		}
		// deliver off the event loop: the consumer continues from its own
		// goroutine
		go req.Deliver(pos)
		return nil
	})
	onError = js.FuncOf(func(this js.Value, _ []js.Value) any {
		release()
		req.Fail(domError(r.Get("error")))
		return nil
	})
	r.Set("onsuccess", onSuccess)
	r.Set("onerror", onError)
	return req
}

// cursor wraps an IDBCursor position.
type cursor struct {
	v     js.Value
	key   string
	value any
}

var _ idb.Cursor = (*cursor)(nil)

func (c *cursor) Key() string {
	return c.key
}

func (c *cursor) Value() any {
	return c.value
}

func (c *cursor) Continue() {
	var err error
	defer catch(&err)
	c.v.Call("continue")
}

// keyString coerces a key the way String(key) does. Value.String renders
// non-string values as "<number: 1>".
func keyString(v js.Value) string {
	if v.Type() == js.TypeString {
		return v.String()
	}
	return js.Global().Get("String").Invoke(v).String()
}

// stringList converts a DOMStringList to a slice.
func stringList(v js.Value) []string {
	n := v.Get("length").Int()
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		names = append(names, v.Call("item", i).String())
	}
	return names
}
