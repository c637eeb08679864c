package sqlite

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
		a, err := Open(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { a.Close() })
		return a
	})
}

func TestArea_InsertionOrderSurvivesOverwrite(t *testing.T) {
	a, err := Open(":memory:")
	require.NoError(t, err)
	defer a.Close()

	for _, k := range []string{"z", "a", "m"} {
		require.NoError(t, a.SetItem(k, "v"))
	}
	require.NoError(t, a.SetItem("z", "changed"))

	var keys []string
	for i := 0; i < 3; i++ {
		k, ok, err := a.Key(i)
		require.NoError(t, err)
		require.True(t, ok)
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"z", "a", "m"}, keys)
}

func TestArea_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "area.db")

	a, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, a.SetItem("k", `{"x":1}`))
	require.NoError(t, a.Close())

	a, err = Open(path)
	require.NoError(t, err)
	defer a.Close()

	value, ok, err := a.GetItem("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"x":1}`, value)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}
