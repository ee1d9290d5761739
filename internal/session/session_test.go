package session_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/student-portal/internal/cache"
	"github.com/magabrotheeeer/student-portal/internal/config"
	"github.com/magabrotheeeer/student-portal/internal/session"
)

func backends(t *testing.T) map[string]session.Backend {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rc, err := cache.InitServer(context.Background(), config.RedisConnection{AddressRedis: mr.Addr()}, "test:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	return map[string]session.Backend{
		"memory": session.NewMemoryBackend(),
		"redis":  rc,
	}
}

func TestStore_SetGetClear(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := session.NewStore(backend, "tab-1")

			sess, err := store.Get(ctx)
			require.NoError(t, err)
			assert.False(t, sess.Authenticated())

			require.NoError(t, store.Set(ctx, session.Session{AccessToken: "A", RefreshToken: "R"}))

			token, err := store.AccessToken(ctx)
			require.NoError(t, err)
			assert.Equal(t, "A", token)

			refresh, err := store.RefreshToken(ctx)
			require.NoError(t, err)
			assert.Equal(t, "R", refresh)

			require.NoError(t, store.Clear(ctx))

			sess, err = store.Get(ctx)
			require.NoError(t, err)
			assert.Equal(t, session.Session{}, sess)
		})
	}
}

func TestStore_SetRejectsEmptyAccessToken(t *testing.T) {
	store := session.NewStore(session.NewMemoryBackend(), "tab-1")

	err := store.Set(context.Background(), session.Session{RefreshToken: "R"})
	assert.ErrorIs(t, err, session.ErrEmptyAccessToken)

	err = store.Rotate(context.Background(), session.Session{})
	assert.ErrorIs(t, err, session.ErrEmptyAccessToken)
}

func TestStore_SetDropsPreviousIdentity(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := session.NewStore(backend, "tab-1")

			require.NoError(t, store.Set(ctx, session.Session{AccessToken: "A", RefreshToken: "R"}))
			require.NoError(t, store.SetIdentity(ctx, json.RawMessage(`{"user_id":"u1"}`)))

			raw, ok, err := store.Identity(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			assert.JSONEq(t, `{"user_id":"u1"}`, string(raw))

			require.NoError(t, store.Set(ctx, session.Session{AccessToken: "B", RefreshToken: "S"}))

			_, ok, err = store.Identity(ctx)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_RotateKeepsIdentity(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := session.NewStore(backend, "tab-1")

			require.NoError(t, store.Set(ctx, session.Session{AccessToken: "A", RefreshToken: "R"}))
			require.NoError(t, store.SetIdentity(ctx, json.RawMessage(`{"user_id":"u1"}`)))
			require.NoError(t, store.Rotate(ctx, session.Session{AccessToken: "A2"}))

			sess, err := store.Get(ctx)
			require.NoError(t, err)
			assert.Equal(t, session.Session{AccessToken: "A2", RefreshToken: "R"}, sess)

			_, ok, err := store.Identity(ctx)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestStore_ClearRemovesIdentity(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(session.NewMemoryBackend(), "tab-1")

	require.NoError(t, store.Set(ctx, session.Session{AccessToken: "A", RefreshToken: "R"}))
	require.NoError(t, store.SetIdentity(ctx, json.RawMessage(`{}`)))
	require.NoError(t, store.Clear(ctx))

	_, ok, err := store.Identity(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_SetIdentityForSkipsReplacedSession(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := session.NewStore(backend, "tab-1")

			require.NoError(t, store.Set(ctx, session.Session{AccessToken: "A", RefreshToken: "R"}))

			saved, err := store.SetIdentityFor(ctx, "A", json.RawMessage(`{"user_id":"u1"}`))
			require.NoError(t, err)
			assert.True(t, saved)

			require.NoError(t, store.Set(ctx, session.Session{AccessToken: "B", RefreshToken: "S"}))

			saved, err = store.SetIdentityFor(ctx, "A", json.RawMessage(`{"user_id":"u1"}`))
			require.NoError(t, err)
			assert.False(t, saved)

			_, ok, err := store.Identity(ctx)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_SetIdentityForWithoutSession(t *testing.T) {
	store := session.NewStore(session.NewMemoryBackend(), "tab-1")

	saved, err := store.SetIdentityFor(context.Background(), "A", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestStore_SetIdentityRejectsInvalidJSON(t *testing.T) {
	store := session.NewStore(session.NewMemoryBackend(), "tab-1")

	err := store.SetIdentity(context.Background(), json.RawMessage(`{"broken`))
	assert.Error(t, err)
}

func TestStore_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	backend := session.NewMemoryBackend()
	a := session.NewStore(backend, "tab-a")
	b := session.NewStore(backend, "tab-b")

	require.NoError(t, a.Set(ctx, session.Session{AccessToken: "A", RefreshToken: "R"}))

	token, err := b.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, b.Clear(ctx))
	token, err = a.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", token)
	assert.Equal(t, "tab-a", a.Namespace())
}
