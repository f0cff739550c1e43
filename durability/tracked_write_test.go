package durability

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrackedWrite_KeyEqual(t *testing.T) {
	t.Parallel()

	w := &TrackedWrite{Key: []byte("orders/42")}

	require.True(t, w.KeyEqual([]byte("orders/42")))
	require.False(t, w.KeyEqual([]byte("orders/43")))
	require.False(t, w.KeyEqual([]byte("orders/4")))
	require.False(t, w.KeyEqual(nil))
}

func TestTrackedWrite_KeyEqualEmptyKey(t *testing.T) {
	t.Parallel()

	w := &TrackedWrite{Key: []byte{}}
	require.True(t, w.KeyEqual([]byte{}))
	require.False(t, w.KeyEqual([]byte("x")))
}

func TestKeyHash_Deterministic(t *testing.T) {
	t.Parallel()

	h1 := KeyHash([]byte("orders/42"))
	h2 := KeyHash([]byte("orders/42"))
	h3 := KeyHash([]byte("orders/43"))

	require.Equal(t, h1, h2)
	require.NotEqual(t, h1, h3)
}
