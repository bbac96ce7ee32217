package adapters

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pysetupinfo/internal/types"
)

func sampleInfo() types.SetupInfo {
	return types.SetupInfo{
		Name:          "demo",
		Version:       "1.0",
		BaseDir:       "/src/demo",
		BuildBackend:  types.DefaultBuildBackend,
		BuildRequires: types.DefaultBuildRequires(),
		Requires:      map[string]string{"requests": "requests>=2"},
		Extras:        map[string][]string{"docs": {}},
	}
}

func TestMemoryCacheAdapter(t *testing.T) {
	ctx := t.Context()
	cache := NewMemoryCacheAdapter(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	_, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "k", sampleInfo()))
	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	if diff := cmp.Diff(sampleInfo(), got); diff != "" {
		t.Fatalf("unexpected cached info (-want +got):\n%s", diff)
	}

	now = now.Add(2 * time.Minute)
	_, ok, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "k", sampleInfo()))
	require.NoError(t, cache.Delete(ctx, "k"))
	_, ok, _ = cache.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisCacheAdapter(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := t.Context()
	cache, err := NewRedisCacheAdapter("redis://"+mr.Addr(), time.Hour)
	require.NoError(t, err)
	defer cache.Close()
	require.NoError(t, cache.Ping(ctx))

	_, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "k", sampleInfo()))
	assert.True(t, mr.Exists(defaultRedisKeyPrefix+"k"))
	assert.Equal(t, time.Hour, mr.TTL(defaultRedisKeyPrefix+"k"))

	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	if diff := cmp.Diff(sampleInfo(), got); diff != "" {
		t.Fatalf("unexpected cached info (-want +got):\n%s", diff)
	}

	mr.FastForward(2 * time.Hour)
	_, ok, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "k", sampleInfo()))
	require.NoError(t, cache.Delete(ctx, "k"))
	assert.False(t, mr.Exists(defaultRedisKeyPrefix+"k"))
}

func TestRedisCacheAdapter_MalformedEntry(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	require.NoError(t, mr.Set(defaultRedisKeyPrefix+"bad", "not json"))

	cache, err := NewRedisCacheAdapter("redis://"+mr.Addr(), 0)
	require.NoError(t, err)
	defer cache.Close()
	_, _, err = cache.Get(t.Context(), "bad")
	require.Error(t, err)
}

func TestNewRedisCacheAdapter_InvalidURL(t *testing.T) {
	_, err := NewRedisCacheAdapter("", 0)
	require.Error(t, err)
	_, err = NewRedisCacheAdapter("ftp://nope", 0)
	require.Error(t, err)
}
