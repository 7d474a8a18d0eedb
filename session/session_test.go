package session

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/andrebq/userauth/internal/testutil"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, store Store) {
	ctx := context.Background()
	_, err := store.Load(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	err = store.Save(ctx, "abc123", map[string]interface{}{"user": map[string]interface{}{"id": 1}, "_loginReferer": "/index"})
	require.NoError(t, err)
	data, err := store.Load(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"user": map[string]interface{}{"id": float64(1)}, "_loginReferer": "/index"}, data)

	err = store.Save(ctx, "abc123", map[string]interface{}{"_loginReferer": "/other"})
	require.NoError(t, err)
	data, err = store.Load(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{"_loginReferer": "/other"}, data)

	require.NoError(t, store.Delete(ctx, "abc123"))
	require.NoError(t, store.Delete(ctx, "abc123"))
	_, err = store.Load(ctx, "abc123")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	store, err := NewMemoryStore(time.Minute)
	require.NoError(t, err)
	defer store.Close()
	testStore(t, store)
}

func TestSQLStore(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "userauth-session")
	defer cleanup()
	store, err := OpenSQLStore(context.Background(), dir)
	require.NoError(t, err)
	defer store.Close()
	testStore(t, store)
}

func TestValues(t *testing.T) {
	v := newValues("id", nil, true)
	require.False(t, v.Dirty())
	v.Set("missing", nil)
	require.False(t, v.Dirty(), "removing an absent key is not a change")
	v.Set("user", "bob")
	require.True(t, v.Dirty())
	require.Equal(t, "bob", v.Get("user"))
	require.Equal(t, []string{"user"}, v.Keys())
	v.Delete("user")
	require.Nil(t, v.Get("user"))
	require.Empty(t, v.Keys())
}

func TestMiddleware(t *testing.T) {
	store, err := NewMemoryStore(time.Minute)
	require.NoError(t, err)
	defer store.Close()

	handler := Middleware(store, Config{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		values := FromRequest(r)
		if r.URL.Query().Get("set") != "" {
			values.Set("user", r.URL.Query().Get("set"))
		}
		fmt.Fprintf(w, "%v", values.Get("user"))
	}))

	apitest.Handler(handler).Get("/").Expect(t).
		Status(http.StatusOK).
		CookieNotPresent(DefaultCookieName).
		Body("<nil>").
		End()

	res := apitest.Handler(handler).Get("/").Query("set", "bob").Expect(t).
		Status(http.StatusOK).
		CookiePresent(DefaultCookieName).
		Body("bob").
		End()
	var sid string
	for _, c := range res.Response.Cookies() {
		if c.Name == DefaultCookieName {
			sid = c.Value
			require.True(t, c.HttpOnly)
			require.Equal(t, "/", c.Path)
		}
	}
	require.NotEmpty(t, sid)

	apitest.Handler(handler).Get("/").Cookie(DefaultCookieName, sid).Expect(t).
		Status(http.StatusOK).
		CookieNotPresent(DefaultCookieName).
		Body("bob").
		End()

	apitest.Handler(handler).Get("/").Cookie(DefaultCookieName, "unknown").Expect(t).
		Status(http.StatusOK).
		Body("<nil>").
		End()
}

func TestMiddlewareIgnoresCorruptedSessions(t *testing.T) {
	store, err := NewMemoryStore(time.Minute)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.cache.Set("broken", []byte("not json")))

	handler := Middleware(store, Config{CookieName: "sid"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		values := FromRequest(r)
		require.True(t, values.IsNew())
		require.NotEqual(t, "broken", values.ID())
		w.WriteHeader(http.StatusNoContent)
	}))
	apitest.Handler(handler).Get("/").Cookie("sid", "broken").Expect(t).
		Status(http.StatusNoContent).
		End()
}
