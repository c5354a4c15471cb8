package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedKey struct {
	QuestionID uint     `json:"question_id"`
	Lefts      []string `json:"lefts"`
}

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	_, client := newTestClient(t)
	c := NewRedisCache(client, nil)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", cachedKey{QuestionID: 7, Lefts: []string{"Apple"}}, time.Minute))

	var got cachedKey
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, uint(7), got.QuestionID)
	assert.Equal(t, []string{"Apple"}, got.Lefts)

	require.NoError(t, c.Delete(ctx, "k"))
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestRedisCache_UndecodableEntryIsMiss(t *testing.T) {
	mr, client := newTestClient(t)
	c := NewRedisCache(client, nil)

	require.NoError(t, mr.Set("broken", "{not json"))

	var got cachedKey
	assert.ErrorIs(t, c.Get(context.Background(), "broken", &got), ErrCacheMiss)
	assert.False(t, mr.Exists("broken"))
}

func TestRedisCache_DeletePattern(t *testing.T) {
	mr, client := newTestClient(t)
	c := NewRedisCache(client, nil)
	ctx := context.Background()

	for _, key := range []string{"a:1", "a:2", "b:1"} {
		require.NoError(t, c.Set(ctx, key, 1, time.Minute))
	}
	require.NoError(t, c.DeletePattern(ctx, "a:*"))

	assert.False(t, mr.Exists("a:1"))
	assert.False(t, mr.Exists("a:2"))
	assert.True(t, mr.Exists("b:1"))
}

func TestCacheManager_AnswerKeyLifecycle(t *testing.T) {
	mr, client := newTestClient(t)
	m := NewCacheManager(client, time.Minute, nil)
	ctx := context.Background()

	var got cachedKey
	assert.False(t, m.GetAnswerKey(ctx, 3, &got))

	m.SetAnswerKey(ctx, 3, cachedKey{QuestionID: 3})
	assert.True(t, mr.Exists(AnswerKeyKey(3)))
	assert.True(t, m.GetAnswerKey(ctx, 3, &got))
	assert.Equal(t, uint(3), got.QuestionID)

	m.InvalidateAnswerKey(ctx, 3)
	assert.False(t, m.GetAnswerKey(ctx, 3, &got))
}

func TestCacheManager_InvalidateAllKeepsForeignKeys(t *testing.T) {
	mr, client := newTestClient(t)
	m := NewCacheManager(client, time.Minute, nil)
	ctx := context.Background()

	m.SetAnswerKey(ctx, 1, cachedKey{QuestionID: 1})
	m.SetAnswerKey(ctx, 2, cachedKey{QuestionID: 2})
	require.NoError(t, mr.Set("other:key", "v"))

	require.NoError(t, m.InvalidateAll(ctx))
	assert.False(t, mr.Exists(AnswerKeyKey(1)))
	assert.False(t, mr.Exists(AnswerKeyKey(2)))
	assert.True(t, mr.Exists("other:key"))
}

func TestCacheManager_NilIsNoop(t *testing.T) {
	var m *CacheManager
	ctx := context.Background()

	var got cachedKey
	assert.False(t, m.GetAnswerKey(ctx, 1, &got))
	m.SetAnswerKey(ctx, 1, got)
	m.InvalidateAnswerKey(ctx, 1)
	assert.NoError(t, m.InvalidateAll(ctx))
	assert.Nil(t, NewCacheManager(nil, 0, nil))
}
