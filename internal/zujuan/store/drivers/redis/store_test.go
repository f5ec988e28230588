package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/zujuan/internal/zujuan/store"
	"github.com/aussiebroadwan/zujuan/internal/zujuan/store/storetest"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		_, client := newTestRedis(t)
		s := NewStore(client, "", store.Codec{})
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestRedisStoreKeys(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	s := NewStore(client, "test", store.Codec{})
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Sessions().PutSession(ctx, storetest.Session(t)))
	require.NoError(t, s.ScanFlags().SetScanFlag(ctx))

	require.True(t, mr.Exists("test:session"))
	require.True(t, mr.Exists("test:scanflag"))
	require.Equal(t, "1", mustGet(t, mr, "test:scanflag"))
}

func TestRedisStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	s := NewStore(client, "", store.Codec{})
	t.Cleanup(func() { _ = s.Close() })

	mr.Close()

	_, err := s.Sessions().GetSession(ctx)
	require.Error(t, err)
	require.NotErrorIs(t, err, store.ErrNotFound)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
