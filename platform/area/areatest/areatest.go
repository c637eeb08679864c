// Package areatest provides a conformance suite for area.Area implementations.
package areatest

import (
	"testing"

	"github.com/poiesic/localstore/platform/area"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises the Area contract against areas produced by newArea. Each
// subtest gets a fresh, empty area.
func Run(t *testing.T, newArea func(t *testing.T) area.Area) {
	t.Run("get missing", func(t *testing.T) {
		a := newArea(t)
		value, ok, err := a.GetItem("missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, value)
	})

	t.Run("set and get", func(t *testing.T) {
		a := newArea(t)
		require.NoError(t, a.SetItem("k", `[1,2,3]`))

		value, ok, err := a.GetItem("k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `[1,2,3]`, value)
	})

	t.Run("overwrite keeps length", func(t *testing.T) {
		a := newArea(t)
		require.NoError(t, a.SetItem("k", "one"))
		require.NoError(t, a.SetItem("k", "two"))

		n, err := a.Length()
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		value, _, err := a.GetItem("k")
		require.NoError(t, err)
		assert.Equal(t, "two", value)
	})

	t.Run("remove", func(t *testing.T) {
		a := newArea(t)
		require.NoError(t, a.SetItem("k", "v"))
		require.NoError(t, a.RemoveItem("k"))
		require.NoError(t, a.RemoveItem("k"))

		_, ok, err := a.GetItem("k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("enumerate by index", func(t *testing.T) {
		a := newArea(t)
		want := map[string]bool{"a": true, "b": true, "c": true}
		for k := range want {
			require.NoError(t, a.SetItem(k, "v"))
		}

		n, err := a.Length()
		require.NoError(t, err)
		require.Equal(t, 3, n)

		got := map[string]bool{}
		for i := 0; i < n; i++ {
			key, ok, err := a.Key(i)
			require.NoError(t, err)
			require.True(t, ok)
			got[key] = true
		}
		assert.Equal(t, want, got)

		_, ok, err := a.Key(n)
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = a.Key(-1)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("clear", func(t *testing.T) {
		a := newArea(t)
		require.NoError(t, a.SetItem("a", "1"))
		require.NoError(t, a.SetItem("b", "2"))
		require.NoError(t, a.Clear())

		n, err := a.Length()
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("unicode", func(t *testing.T) {
		a := newArea(t)
		require.NoError(t, a.SetItem("clé", `"été ☀"`))

		value, ok, err := a.GetItem("clé")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `"été ☀"`, value)
	})
}
