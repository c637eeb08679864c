package leveldb

import (
	"path/filepath"
	"testing"

	"github.com/poiesic/localstore/platform/area"
	"github.com/poiesic/localstore/platform/area/areatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArea_Contract(t *testing.T) {
	areatest.Run(t, func(t *testing.T) area.Area {
		a, err := OpenMemory()
		require.NoError(t, err)
		t.Cleanup(func() { a.Close() })
		return a
	})
}

func TestArea_KeyOrder(t *testing.T) {
	a, err := OpenMemory()
	require.NoError(t, err)
	defer a.Close()

	for _, k := range []string{"c", "a", "b"} {
		require.NoError(t, a.SetItem(k, "v"))
	}

	var keys []string
	for i := 0; i < 3; i++ {
		k, ok, err := a.Key(i)
		require.NoError(t, err)
		require.True(t, ok)
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestArea_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "area.leveldb")

	a, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, a.SetItem("app1_k", "[1,2,3]"))
	require.NoError(t, a.Close())

	a, err = Open(path)
	require.NoError(t, err)
	defer a.Close()

	value, ok, err := a.GetItem("app1_k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[1,2,3]", value)
}

func TestArea_Closed(t *testing.T) {
	a, err := OpenMemory()
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	_, _, err = a.GetItem("k")
	assert.ErrorIs(t, err, area.ErrClosed)
	assert.ErrorIs(t, a.SetItem("k", "v"), area.ErrClosed)
	_, err = a.Length()
	assert.ErrorIs(t, err, area.ErrClosed)
}
