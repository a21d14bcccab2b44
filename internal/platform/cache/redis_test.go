package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), Options{Addr: mr.Addr(), DB: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	mr.Select(2)
	v, err := mr.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", v)
}

func TestNewFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := New(context.Background(), Options{Addr: addr})
	require.ErrorContains(t, err, "platform/cache: ping")
}

func TestQueueOptSharesDatabase(t *testing.T) {
	opt := QueueOpt(Options{Addr: "redis:6379", DB: 3})
	require.Equal(t, "redis:6379", opt.Addr)
	require.Equal(t, 3, opt.DB)
}
