//go:build js && wasm

package js

import (
	"syscall/js"
	"testing"

	"github.com/poiesic/localstore/platform/idb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyString(t *testing.T) {
	date := js.Global().Get("Date").New(0)
	tests := []struct {
		name  string
		value js.Value
		want  string
	}{
		{"string", js.ValueOf("key"), "key"},
		{"integer", js.ValueOf(1), "1"},
		{"float", js.ValueOf(1.5), "1.5"},
		{"date", date, js.Global().Get("String").Invoke(date).String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keyString(tt.value))
		})
	}
}

func TestAbortVersionChange(t *testing.T) {
	newOpenRequest := func(abort js.Value) js.Value {
		tx := js.Global().Get("Object").New()
		tx.Set("abort", abort)
		req := js.Global().Get("Object").New()
		req.Set("transaction", tx)
		return req
	}

	t.Run("aborts", func(t *testing.T) {
		called := false
		abort := js.FuncOf(func(js.Value, []js.Value) any {
			called = true
			return nil
		})
		defer abort.Release()

		assert.NoError(t, abortVersionChange(newOpenRequest(abort.Value)))
		assert.True(t, called)
	})

	t.Run("finished transaction throws", func(t *testing.T) {
		abort := js.Global().Get("Function").New(
			`throw new DOMException("transaction finished", "InvalidStateError")`)

		var err error
		require.NotPanics(t, func() { err = abortVersionChange(newOpenRequest(abort)) })
		assert.ErrorIs(t, err, idb.ErrInvalidState)
	})
}

func TestDomError(t *testing.T) {
	newError := func(name string) js.Value {
		e := js.Global().Get("Object").New()
		e.Set("name", name)
		e.Set("message", "m")
		return e
	}

	assert.ErrorIs(t, domError(newError("QuotaExceededError")), idb.ErrQuotaExceeded)
	assert.ErrorIs(t, domError(newError("DataCloneError")), idb.ErrData)
	assert.ErrorIs(t, domError(newError("VersionError")), idb.ErrVersion)
	assert.EqualError(t, domError(newError("UnknownError")), "js: UnknownError: m")
}
