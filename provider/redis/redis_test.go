package redis

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	p, err := New(Config{Client: rdb, CloseClient: true, ScanCount: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p, mr
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNilClient)
}

func TestGetSetMiss(t *testing.T) {
	ctx := context.Background()
	p, mr := setupTestRedis(t)

	_, ok, err := p.Get(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, p.Set(ctx, "user:1", []byte("ada"), time.Minute))
	got, ok, err := p.Get(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("ada"), got)
	assert.Equal(t, time.Minute, mr.TTL("user:1"))

	mr.FastForward(2 * time.Minute)
	_, ok, err = p.Get(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetWithoutTTL(t *testing.T) {
	ctx := context.Background()
	p, mr := setupTestRedis(t)

	require.NoError(t, p.Set(ctx, "k", []byte("v"), 0))
	assert.Equal(t, time.Duration(0), mr.TTL("k"))
	require.NoError(t, p.Set(ctx, "k2", []byte("v"), -time.Second))
	assert.Equal(t, time.Duration(0), mr.TTL("k2"))
}

func TestSetNX(t *testing.T) {
	ctx := context.Background()
	p, mr := setupTestRedis(t)

	ok, err := p.SetNX(ctx, "k", []byte("first"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.SetNX(ctx, "k", []byte("second"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "first", v)
	assert.Equal(t, time.Minute, mr.TTL("k"))
}

func TestDelAndScan(t *testing.T) {
	ctx := context.Background()
	p, mr := setupTestRedis(t)

	for _, k := range []string{"app:user:1", "app:user:2", "app:user:3", "app:order:1", "app:users:9"} {
		require.NoError(t, mr.Set(k, "x"))
	}

	keys, err := p.Scan(ctx, "app:user:")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"app:user:1", "app:user:2", "app:user:3"}, keys)

	require.NoError(t, p.Del(ctx, keys...))
	keys, err = p.Scan(ctx, "app:user:")
	require.NoError(t, err)
	assert.Empty(t, keys)

	assert.True(t, mr.Exists("app:order:1"))
	assert.True(t, mr.Exists("app:users:9"))

	require.NoError(t, p.Del(ctx))
	require.NoError(t, p.Del(ctx, "app:order:1"))
	assert.False(t, mr.Exists("app:order:1"))
}

func TestScanEscapesGlobCharacters(t *testing.T) {
	ctx := context.Background()
	p, mr := setupTestRedis(t)

	require.NoError(t, mr.Set("odd*name:1", "x"))
	require.NoError(t, mr.Set("oddXname:1", "x"))

	keys, err := p.Scan(ctx, "odd*name:")
	require.NoError(t, err)
	assert.Equal(t, []string{"odd*name:1"}, keys)
}

func TestGlobEscape(t *testing.T) {
	assert.Equal(t, "plain:", globEscape("plain:"))
	assert.Equal(t, `a\*b\?c\[d\]e\\`, globEscape(`a*b?c[d]e\`))
}

func TestCloseOwnedClientIsIdempotent(t *testing.T) {
	p, _ := setupTestRedis(t)
	require.NoError(t, p.Close(context.Background()))
	require.NoError(t, p.Close(context.Background()))
}
