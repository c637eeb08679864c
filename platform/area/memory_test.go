package area_test

import (
	"strings"
	"testing"

	"github.com/poiesic/localstore/platform/area"
	"github.com/poiesic/localstore/platform/area/areatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryArea_Contract(t *testing.T) {
	areatest.Run(t, func(t *testing.T) area.Area {
		return area.NewMemoryArea(area.DefaultQuota)
	})
}

func TestMemoryArea_InsertionOrder(t *testing.T) {
	a := area.NewMemoryArea(0)
	for _, k := range []string{"z", "a", "m"} {
		require.NoError(t, a.SetItem(k, "v"))
	}

	var keys []string
	for i := 0; i < 3; i++ {
		k, _, err := a.Key(i)
		require.NoError(t, err)
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"z", "a", "m"}, keys)
}

func TestMemoryArea_Quota(t *testing.T) {
	a := area.NewMemoryArea(10)

	require.NoError(t, a.SetItem("k", "12345"))
	assert.Equal(t, 6, a.Used())

	err := a.SetItem("other", "123456")
	assert.ErrorIs(t, err, area.ErrQuotaExceeded)

	// the failed write leaves the area untouched
	n, err := a.Length()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// replacing a value only counts the difference
	require.NoError(t, a.SetItem("k", "123456789"))
	assert.Equal(t, 10, a.Used())

	require.NoError(t, a.RemoveItem("k"))
	assert.Zero(t, a.Used())
}

func TestMemoryArea_QuotaCountsUTF16Units(t *testing.T) {
	a := area.NewMemoryArea(4)

	// U+1F600 takes two UTF-16 code units
	require.NoError(t, a.SetItem("k", "😀"))
	assert.Equal(t, 3, a.Used())

	err := a.SetItem("k", strings.Repeat("😀", 2))
	assert.ErrorIs(t, err, area.ErrQuotaExceeded)
}
