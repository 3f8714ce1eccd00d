package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetRemove(t *testing.T) {
	m := NewMemory()

	_, ok := m.Get("a")
	assert.False(t, ok)

	require.NoError(t, m.Set("a", "1"))
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	require.NoError(t, m.Remove("a"))
	_, ok = m.Get("a")
	assert.False(t, ok)
}

func TestMemory_SubscribeNotifiesOnSet(t *testing.T) {
	m := NewMemory()

	var keys []string
	unsub := m.Subscribe(func(key string) {
		keys = append(keys, key)
	})
	defer unsub()

	require.NoError(t, m.Set("cart_guest", "x"))
	require.NoError(t, m.Set("userId", "u42"))
	require.NoError(t, m.Remove("cart_guest"))

	assert.Equal(t, []string{"cart_guest", "userId", "cart_guest"}, keys)
}

func TestMemory_RemoveAbsentKeyDoesNotNotify(t *testing.T) {
	m := NewMemory()

	fired := false
	unsub := m.Subscribe(func(string) { fired = true })
	defer unsub()

	require.NoError(t, m.Remove("missing"))
	assert.False(t, fired)
}

func TestMemory_Unsubscribe(t *testing.T) {
	m := NewMemory()

	count := 0
	unsub := m.Subscribe(func(string) { count++ })

	require.NoError(t, m.Set("a", "1"))
	unsub()
	require.NoError(t, m.Set("a", "2"))

	assert.Equal(t, 1, count)
}
