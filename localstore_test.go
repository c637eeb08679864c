package localstore

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/localstore/platform/area"
	"github.com/poiesic/localstore/platform/idb"
	idbbadger "github.com/poiesic/localstore/platform/idb/badger"
	"github.com/poiesic/localstore/storage"
	"github.com/poiesic/localstore/storage/localstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEnv is a scripted Environment.
type fakeEnv struct {
	browser      bool
	factory      idb.Factory
	area         area.Area
	panicIndexed bool
	panicArea    bool
}

func (e *fakeEnv) IsBrowser() bool {
	return e.browser
}

func (e *fakeEnv) IndexedDB() idb.Factory {
	if e.panicIndexed {
		panic("SecurityError: the operation is insecure")
	}
	return e.factory
}

func (e *fakeEnv) LocalStorage() area.Area {
	if e.panicArea {
		panic("SecurityError: access is denied for this document")
	}
	return e.area
}

type openFunc func(name string, version uint64, upgrade idb.UpgradeFunc) (*idb.Request[idb.Database], error)

func (f openFunc) Open(name string, version uint64, upgrade idb.UpgradeFunc) (*idb.Request[idb.Database], error) {
	return f(name, version, upgrade)
}

func newFactory(t *testing.T) *idbbadger.Factory {
	t.Helper()
	f, err := idbbadger.OpenFactory("", true)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func selected(t *testing.T, env Environment, cfg *Config) storage.Store {
	t.Helper()
	s := Select(env, cfg)
	require.NotNil(t, s)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSelect(t *testing.T) {
	factory := newFactory(t)

	tests := []struct {
		name string
		env  Environment
		cfg  *Config
		want string
	}{
		{"nil environment", nil, nil, storage.BackendMemory},
		{"not a browser", &fakeEnv{factory: factory, area: area.NewMemoryArea(0)}, nil, storage.BackendMemory},
		{"indexed and area", &fakeEnv{browser: true, factory: factory, area: area.NewMemoryArea(0)}, nil, storage.BackendIndexedDB},
		{"area only", &fakeEnv{browser: true, area: area.NewMemoryArea(0)}, nil, storage.BackendLocalStorage},
		{"nothing", &fakeEnv{browser: true}, nil, storage.BackendMemory},
		{"indexed probe panics", &fakeEnv{browser: true, panicIndexed: true, area: area.NewMemoryArea(0)}, nil, storage.BackendMemory},
		{"area probe panics", &fakeEnv{browser: true, panicArea: true}, nil, storage.BackendMemory},
		{"indexed disabled", &fakeEnv{browser: true, factory: factory, area: area.NewMemoryArea(0)},
			NewConfig(func(c *Config) { c.DisableIndexedDB = true }), storage.BackendLocalStorage},
		{"open panics", &fakeEnv{browser: true, factory: (*idbbadger.Factory)(nil)}, nil, storage.BackendMemory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := selected(t, tt.env, tt.cfg)
			assert.Equal(t, tt.want, storage.BackendName(s))
		})
	}
}

func TestSelect_PrefersIndexedDB(t *testing.T) {
	env := &fakeEnv{browser: true, factory: newFactory(t), area: area.NewMemoryArea(0)}
	for i := 0; i < 10; i++ {
		assert.Equal(t, storage.BackendIndexedDB, storage.BackendName(selected(t, env, nil)))
	}
}

func TestSelect_ConfiguresBackends(t *testing.T) {
	ctx := context.Background()
	a := area.NewMemoryArea(0)
	env := &fakeEnv{browser: true, area: a}

	s := selected(t, env, NewConfig(WithKeyPrefix("app1_")))
	ls, ok := s.(*localstorage.Backend)
	require.True(t, ok)
	assert.Equal(t, "app1_", ls.Prefix())

	require.NoError(t, s.Set(ctx, "k", []int{1, 2, 3}))
	raw, found, err := a.GetItem("app1_k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "[1,2,3]", raw)
}

func TestSelect_BrokenIndexedDBIsNotReplaced(t *testing.T) {
	ctx := context.Background()
	blocked := errors.New("SecurityError: blocked")
	env := &fakeEnv{
		browser: true,
		factory: openFunc(func(string, uint64, idb.UpgradeFunc) (*idb.Request[idb.Database], error) {
			return nil, blocked
		}),
		area: area.NewMemoryArea(0),
	}

	s := selected(t, env, nil)
	assert.Equal(t, storage.BackendIndexedDB, storage.BackendName(s))

	_, err := s.Get(ctx, "anything")
	assert.ErrorIs(t, err, storage.ErrBackingStoreUnusable)
	assert.ErrorIs(t, err, blocked)
}

func TestSelect_UsesConfiguredNames(t *testing.T) {
	ctx := context.Background()
	var gotName string
	var gotVersion uint64
	factory := newFactory(t)
	env := &fakeEnv{
		browser: true,
		factory: openFunc(func(name string, version uint64, upgrade idb.UpgradeFunc) (*idb.Request[idb.Database], error) {
			gotName, gotVersion = name, version
			return factory.Open(name, version, upgrade)
		}),
	}

	s := selected(t, env, NewConfig(
		WithDatabaseName("testdb"),
		WithStoreName("teststore"),
		WithSchemaVersion(4),
	))
	require.NoError(t, s.Set(ctx, "a", "x"))
	assert.Equal(t, "testdb", gotName)
	assert.Equal(t, uint64(4), gotVersion)

	req, err := factory.Open("testdb", 4, nil)
	require.NoError(t, err)
	db := <-req.Success()
	defer db.Close()
	assert.Equal(t, []string{"teststore"}, db.ObjectStoreNames())
}
