package badger

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/localstore/platform/idb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 5 * time.Second

func await[T any](t *testing.T, r *idb.Request[T]) (T, error) {
	t.Helper()
	var zero T
	select {
	case v := <-r.Success():
		return v, nil
	case err := <-r.Failure():
		return zero, err
	case <-time.After(testTimeout):
		t.Fatal("request did not settle")
		return zero, nil
	}
}

func newFactory(t *testing.T) *Factory {
	t.Helper()
	f, err := OpenFactory("", true)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func createStore(name string) idb.UpgradeFunc {
	return func(s idb.Schema, _, _ uint64) error {
		if s.HasObjectStore(name) {
			return nil
		}
		return s.CreateObjectStore(name)
	}
}

func openDB(t *testing.T, f *Factory, name string, version uint64, upgrade idb.UpgradeFunc) idb.Database {
	t.Helper()
	req, err := f.Open(name, version, upgrade)
	require.NoError(t, err)
	db, err := await(t, req)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func storeOf(t *testing.T, db idb.Database, name string, mode idb.Mode) idb.ObjectStore {
	t.Helper()
	tx, err := db.Transaction(name, mode)
	require.NoError(t, err)
	s, err := tx.ObjectStore(name)
	require.NoError(t, err)
	return s
}

func TestOpenFactory_FileSystem(t *testing.T) {
	f, err := OpenFactory(t.TempDir(), false)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
}

func TestOpen_InvalidVersion(t *testing.T) {
	f := newFactory(t)
	req, err := f.Open("db", 0, nil)
	assert.ErrorIs(t, err, idb.ErrInvalidVersion)
	assert.Nil(t, req)
}

func TestOpen_ClosedFactoryFailsSynchronously(t *testing.T) {
	f, err := OpenFactory("", true)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = f.Open("db", 1, nil)
	assert.ErrorIs(t, err, idb.ErrInvalidState)
}

func TestOpen_UpgradeRunsOnlyForNewVersions(t *testing.T) {
	f := newFactory(t)
	calls := 0
	upgrade := func(s idb.Schema, oldVersion, newVersion uint64) error {
		calls++
		assert.Equal(t, uint64(0), oldVersion)
		assert.Equal(t, uint64(1), newVersion)
		return s.CreateObjectStore("store")
	}

	db := openDB(t, f, "db", 1, upgrade)
	assert.Equal(t, "db", db.Name())
	assert.Equal(t, uint64(1), db.Version())
	assert.Equal(t, []string{"store"}, db.ObjectStoreNames())

	openDB(t, f, "db", 1, upgrade)
	assert.Equal(t, 1, calls)
}

func TestOpen_LowerVersionFails(t *testing.T) {
	f := newFactory(t)
	openDB(t, f, "db", 3, createStore("store"))

	req, err := f.Open("db", 2, createStore("store"))
	require.NoError(t, err)
	_, err = await(t, req)
	assert.ErrorIs(t, err, idb.ErrVersion)
}

func TestOpen_FailedUpgradeAborts(t *testing.T) {
	f := newFactory(t)
	boom := errors.New("boom")

	req, err := f.Open("db", 1, func(s idb.Schema, _, _ uint64) error {
		assert.NoError(t, s.CreateObjectStore("store"))
		return boom
	})
	require.NoError(t, err)
	_, err = await(t, req)
	assert.ErrorIs(t, err, idb.ErrAbort)
	assert.ErrorIs(t, err, boom)

	// nothing from the failed upgrade was kept
	calls := 0
	db := openDB(t, f, "db", 1, func(s idb.Schema, oldVersion, _ uint64) error {
		calls++
		assert.Equal(t, uint64(0), oldVersion)
		assert.False(t, s.HasObjectStore("store"))
		return s.CreateObjectStore("store")
	})
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"store"}, db.ObjectStoreNames())
}

func TestSchema_CreateAndDelete(t *testing.T) {
	f := newFactory(t)
	openDB(t, f, "db", 1, func(s idb.Schema, _, _ uint64) error {
		require.NoError(t, s.CreateObjectStore("a"))
		require.NoError(t, s.CreateObjectStore("b"))
		assert.ErrorIs(t, s.CreateObjectStore("a"), idb.ErrConstraint)
		assert.ErrorIs(t, s.DeleteObjectStore("missing"), idb.ErrNotFound)
		require.NoError(t, s.DeleteObjectStore("b"))
		assert.Equal(t, []string{"a"}, s.ObjectStoreNames())
		return nil
	})
}

func TestObjectStore_PutGet(t *testing.T) {
	f := newFactory(t)
	db := openDB(t, f, "db", 1, createStore("store"))
	when := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{"object", map[string]any{"x": 1}, map[string]any{"x": int64(1)}},
		{"array", []int{1, 2, 3}, []any{int64(1), int64(2), int64(3)}},
		{"string", "hello", "hello"},
		{"time", when, when},
		{"bytes", []byte{1, 2}, []byte{1, 2}},
		{"negative", -5, int64(-5)},
		{"nested", map[string]any{"v": map[string]any{"ok": true}}, map[string]any{"v": map[string]any{"ok": true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := await(t, storeOf(t, db, "store", idb.ReadWrite).Put("k", tt.value))
			require.NoError(t, err)

			got, err := await(t, storeOf(t, db, "store", idb.ReadOnly).Get("k"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestObjectStore_GetMissing(t *testing.T) {
	f := newFactory(t)
	db := openDB(t, f, "db", 1, createStore("store"))

	got, err := await(t, storeOf(t, db, "store", idb.ReadOnly).Get("missing"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestObjectStore_PutUnsupportedValue(t *testing.T) {
	f := newFactory(t)
	db := openDB(t, f, "db", 1, createStore("store"))

	_, err := await(t, storeOf(t, db, "store", idb.ReadWrite).Put("k", make(chan int)))
	assert.ErrorIs(t, err, idb.ErrData)
}

func TestObjectStore_WriteInReadOnly(t *testing.T) {
	f := newFactory(t)
	db := openDB(t, f, "db", 1, createStore("store"))

	_, err := await(t, storeOf(t, db, "store", idb.ReadOnly).Put("k", 1))
	assert.ErrorIs(t, err, idb.ErrReadOnly)
}

func TestObjectStore_CountDeleteClear(t *testing.T) {
	f := newFactory(t)
	db := openDB(t, f, "db", 1, func(s idb.Schema, _, _ uint64) error {
		if err := s.CreateObjectStore("store"); err != nil {
			return err
		}
		return s.CreateObjectStore("other")
	})

	for _, k := range []string{"a", "b", "c"} {
		_, err := await(t, storeOf(t, db, "store", idb.ReadWrite).Put(k, k))
		require.NoError(t, err)
	}
	_, err := await(t, storeOf(t, db, "other", idb.ReadWrite).Put("a", 1))
	require.NoError(t, err)

	n, err := await(t, storeOf(t, db, "store", idb.ReadOnly).Count())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = await(t, storeOf(t, db, "store", idb.ReadOnly).CountKey("b"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = await(t, storeOf(t, db, "store", idb.ReadWrite).Delete("b"))
	require.NoError(t, err)
	_, err = await(t, storeOf(t, db, "store", idb.ReadWrite).Delete("b"))
	require.NoError(t, err)

	n, err = await(t, storeOf(t, db, "store", idb.ReadOnly).CountKey("b"))
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = await(t, storeOf(t, db, "store", idb.ReadWrite).Clear())
	require.NoError(t, err)

	n, err = await(t, storeOf(t, db, "store", idb.ReadOnly).Count())
	require.NoError(t, err)
	assert.Zero(t, n)

	// other stores are untouched
	n, err = await(t, storeOf(t, db, "other", idb.ReadOnly).Count())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestObjectStore_NamesSharingPrefix(t *testing.T) {
	f := newFactory(t)
	db := openDB(t, f, "db", 1, func(s idb.Schema, _, _ uint64) error {
		for _, name := range []string{"a", "a\x00b", "ab"} {
			if err := s.CreateObjectStore(name); err != nil {
				return err
			}
		}
		return nil
	})

	_, err := await(t, storeOf(t, db, "a\x00b", idb.ReadWrite).Put("k", 1))
	require.NoError(t, err)
	_, err = await(t, storeOf(t, db, "ab", idb.ReadWrite).Put("k", 2))
	require.NoError(t, err)

	n, err := await(t, storeOf(t, db, "a", idb.ReadOnly).Count())
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = await(t, storeOf(t, db, "a", idb.ReadWrite).Clear())
	require.NoError(t, err)

	n, err = await(t, storeOf(t, db, "a\x00b", idb.ReadOnly).Count())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMakeStorePrefix(t *testing.T) {
	names := []string{"", "a", "a\x00b", "ab", "b"}
	for _, x := range names {
		for _, y := range names {
			if x == y {
				continue
			}
			assert.False(t, bytes.HasPrefix(makeStorePrefix(y), makeStorePrefix(x)), "%q prefixes %q", x, y)
		}
	}
	assert.True(t, bytes.HasPrefix(makeRecordKey("a", "k"), makeStorePrefix("a")))
}

func TestTransaction_SingleRequest(t *testing.T) {
	f := newFactory(t)
	db := openDB(t, f, "db", 1, createStore("store"))

	s := storeOf(t, db, "store", idb.ReadWrite)
	_, err := await(t, s.Put("a", 1))
	require.NoError(t, err)

	_, err = await(t, s.Put("b", 2))
	assert.ErrorIs(t, err, idb.ErrTransactionInactive)
}

func TestTransaction_MissingStore(t *testing.T) {
	f := newFactory(t)
	db := openDB(t, f, "db", 1, createStore("store"))

	_, err := db.Transaction("missing", idb.ReadOnly)
	assert.ErrorIs(t, err, idb.ErrNotFound)

	tx, err := db.Transaction("store", idb.ReadOnly)
	require.NoError(t, err)
	_, err = tx.ObjectStore("missing")
	assert.ErrorIs(t, err, idb.ErrNotFound)
	assert.Equal(t, idb.ReadOnly, tx.Mode())
	tx.Abort()
}

func TestTransaction_StoreDeletedOutOfBand(t *testing.T) {
	f := newFactory(t)
	db := openDB(t, f, "db", 1, createStore("store"))

	openDB(t, f, "db", 2, func(s idb.Schema, _, _ uint64) error {
		return s.DeleteObjectStore("store")
	})

	_, err := db.Transaction("store", idb.ReadOnly)
	assert.ErrorIs(t, err, idb.ErrNotFound)
}

func TestTransaction_AbortFailsPendingRequests(t *testing.T) {
	f := newFactory(t)
	db := openDB(t, f, "db", 1, createStore("store"))

	tx, err := db.Transaction("store", idb.ReadWrite)
	require.NoError(t, err)
	s, err := tx.ObjectStore("store")
	require.NoError(t, err)
	tx.Abort()
	tx.Abort()

	_, err = await(t, s.Put("a", 1))
	assert.Error(t, err)

	n, err := await(t, storeOf(t, db, "store", idb.ReadOnly).Count())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDatabase_Closed(t *testing.T) {
	f := newFactory(t)
	db := openDB(t, f, "db", 1, createStore("store"))
	require.NoError(t, db.Close())

	_, err := db.Transaction("store", idb.ReadOnly)
	assert.ErrorIs(t, err, idb.ErrInvalidState)
}

func TestFactory_Persistence(t *testing.T) {
	root := t.TempDir()

	f, err := OpenFactory(root, false)
	require.NoError(t, err)
	req, err := f.Open("app db", 1, createStore("store"))
	require.NoError(t, err)
	db, err := await(t, req)
	require.NoError(t, err)
	_, err = await(t, storeOf(t, db, "store", idb.ReadWrite).Put("a", "persisted"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = OpenFactory(root, false)
	require.NoError(t, err)
	defer f.Close()
	db = openDB(t, f, "app db", 1, func(idb.Schema, uint64, uint64) error {
		t.Fatal("upgrade must not run for a known version")
		return nil
	})

	got, err := await(t, storeOf(t, db, "store", idb.ReadOnly).Get("a"))
	require.NoError(t, err)
	assert.Equal(t, "persisted", got)
}

func TestDirectoryName(t *testing.T) {
	a := directoryName("ngStorage")
	assert.Equal(t, a, directoryName("ngStorage"))
	assert.NotEqual(t, a, directoryName("ngstorage"))
	assert.Regexp(t, `^ngStorage-[0-9a-f]{32}$`, a)
	assert.Regexp(t, `^a_b_c-[0-9a-f]{32}$`, directoryName("a/b c"))
}
