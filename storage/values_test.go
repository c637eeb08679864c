package storage

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPlainValue_Accepted(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"nil", nil},
		{"bool", true},
		{"int", 42},
		{"float", 3.5},
		{"string", "hello"},
		{"slice", []int{1, 2, 3}},
		{"array", [2]string{"a", "b"}},
		{"map", map[string]any{"x": 1}},
		{"pointer to map", &map[string]int{"x": 1}},
		{"nil pointer", (*map[string]any)(nil)},
		{"raw message", json.RawMessage(`{"a":1}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, CheckPlainValue(tt.value))
		})
	}
}

func TestCheckPlainValue_Rejected(t *testing.T) {
	type point struct{ X, Y int }

	tests := []struct {
		name  string
		value any
	}{
		{"time", time.Now()},
		{"struct", point{1, 2}},
		{"struct pointer", &point{1, 2}},
		{"func", func() {}},
		{"channel", make(chan int)},
		{"int keyed map", map[int]string{1: "a"}},
		{"complex", complex(1, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPlainValue(tt.value)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotPlainValue)
			assert.ErrorIs(t, err, ErrSerializationRejected)
			assert.NotErrorIs(t, err, ErrEncodeFailed)
		})
	}
}

func TestCollectKeys(t *testing.T) {
	seq := func(yield func(string, error) bool) {
		for _, k := range []string{"a", "b"} {
			if !yield(k, nil) {
				return
			}
		}
	}

	keys, err := CollectKeys(seq)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestCollectKeys_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	seq := func(yield func(string, error) bool) {
		if !yield("a", nil) {
			return
		}
		if !yield("", boom) {
			return
		}
		yield("never", nil)
	}

	keys, err := CollectKeys(seq)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a"}, keys)
}

func TestSingleUse(t *testing.T) {
	seq := SingleUse(func(yield func(string, error) bool) {
		yield("only", nil)
	})

	first, err := CollectKeys(seq)
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, first)

	second, err := CollectKeys(seq)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestFailedKeys(t *testing.T) {
	var got []error
	for _, err := range FailedKeys(ErrBackingStoreUnusable) {
		got = append(got, err)
	}
	require.Len(t, got, 1)
	assert.True(t, slices.ContainsFunc(got, func(err error) bool {
		return errors.Is(err, ErrBackingStoreUnusable)
	}))
}

func TestIsAbsent(t *testing.T) {
	var nilMap map[string]any
	tests := []struct {
		name   string
		value  any
		absent bool
	}{
		{"nil", nil, true},
		{"nil map pointer", (*map[string]any)(nil), true},
		{"nil map", nilMap, true},
		{"pointer to nil map", &nilMap, true},
		{"nil slice", []int(nil), true},
		{"nil raw message", json.RawMessage(nil), true},
		{"empty map", map[string]any{}, false},
		{"empty slice", []int{}, false},
		{"zero", 0, false},
		{"empty string", "", false},
		{"false", false, false},
		{"pointer to string", new(string), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.absent, IsAbsent(tt.value))
		})
	}
}
