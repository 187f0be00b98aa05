package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStaticReadsQueryString(t *testing.T) {
	window, err := NewStatic("https://accounts.example.com/signin?service=sync&campaign=fennec", "https://www.mozilla.org/")
	require.NoError(t, err)

	assert.Equal(t, "service=sync&campaign=fennec", window.Search())
	assert.Equal(t, "https://www.mozilla.org/", window.Referrer())
	assert.Equal(t, "https://accounts.example.com", window.Origin())
}

func TestOriginKeepsPort(t *testing.T) {
	window, err := NewStatic("http://127.0.0.1:3030/settings?uid=123", "")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:3030", window.Origin())

	relative, err := NewStatic("/signin?service=sync", "")
	require.NoError(t, err)
	assert.Empty(t, relative.Origin())
}

func TestNewStaticRejectsBadURL(t *testing.T) {
	_, err := NewStatic("://missing-scheme", "")
	assert.Error(t, err)
}

func TestUnloadHooks(t *testing.T) {
	window, err := NewStatic("https://accounts.example.com/", "")
	require.NoError(t, err)

	var calls []string
	removeFirst := window.OnUnload(func() { calls = append(calls, "first") })
	window.OnUnload(func() { calls = append(calls, "second") })
	assert.Equal(t, 2, window.Listeners())

	removeFirst()
	removeFirst()
	assert.Equal(t, 1, window.Listeners())

	window.Unload()
	assert.Equal(t, []string{"second"}, calls)
}

func TestRemovedHooksAreForgotten(t *testing.T) {
	window, err := NewStatic("https://accounts.example.com/", "")
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		remove := window.OnUnload(func() {})
		remove()
	}
	var calls []string
	window.OnUnload(func() { calls = append(calls, "kept") })

	assert.Equal(t, 1, window.Listeners())
	assert.Len(t, window.order, 1)

	window.Unload()
	assert.Equal(t, []string{"kept"}, calls)
}
