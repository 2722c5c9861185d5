package authclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_RoundTripIsolatesUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	u := &User{ID: "u1", Role: "TEACHER"}
	require.NoError(t, store.Save(ctx, Session{AccessToken: "a", RefreshToken: "r", User: u}))
	u.Role = "ADMIN"

	sess, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TEACHER", sess.User.Role)

	require.NoError(t, store.Clear(ctx))
	sess, err = store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, sess.Empty())
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "siapee:session:test", ttl), mr
}

func TestRedisStore_LoadEmpty(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)

	sess, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, sess.Empty())
}

func TestRedisStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Hour)

	want := Session{AccessToken: "a", RefreshToken: "r", User: &User{ID: "u1", Name: "Ana", Role: "SECRETARY"}}
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, time.Hour, mr.TTL("siapee:session:test"))

	require.NoError(t, store.Clear(ctx))
	assert.False(t, mr.Exists("siapee:session:test"))
}

func TestRedisStore_Expires(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Minute)

	require.NoError(t, store.Save(ctx, Session{AccessToken: "a", RefreshToken: "r"}))
	mr.FastForward(2 * time.Minute)

	sess, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, sess.Empty())
}

func TestRedisStore_CorruptValue(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	require.NoError(t, mr.Set("siapee:session:test", "not-json"))

	_, err := store.Load(context.Background())
	assert.ErrorContains(t, err, "decode session")
}

func TestClient_WithRedisStore(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)
	f := &fakeIdentity{}
	c, _ := newTestClient(t, f, store)

	_, err := c.Login(context.Background(), "ana", "secret")
	require.NoError(t, err)

	sess, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", sess.RefreshToken)
}
