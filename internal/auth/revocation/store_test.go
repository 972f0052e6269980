package revocation_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/conychips/auth/internal/auth/revocation"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T) (*revocation.Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	s := revocation.New(context.Background(), revocation.Config{URL: "redis://" + mr.Addr()}, quietLogger())
	require.True(t, s.Available())
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

type sessionData struct {
	JTI      string `json:"jti"`
	DeviceID string `json:"dispositivo_id"`
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t)

	in := sessionData{JTI: "abc", DeviceID: "dev-1"}
	require.NoError(t, s.SaveSession(ctx, "user-1", "token-a", in, 0))

	var out sessionData
	ok, err := s.GetSession(ctx, "user-1", "token-a", &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, in, out)

	t.Run("default ttl", func(t *testing.T) {
		require.Equal(t, revocation.DefaultSessionTTL, mr.TTL(s.SessionKey("user-1", "token-a")))
	})

	t.Run("tokens with a shared prefix get distinct keys", func(t *testing.T) {
		a := s.SessionKey("user-1", "eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9.one")
		b := s.SessionKey("user-1", "eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9.two")
		require.NotEqual(t, a, b)
		require.Regexp(t, `^session:user-1:[0-9a-f]{20}$`, a)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteSession(ctx, "user-1", "token-a"))
		ok, err := s.GetSession(ctx, "user-1", "token-a", &out)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("expiry", func(t *testing.T) {
		require.NoError(t, s.SaveSession(ctx, "user-1", "token-b", in, time.Minute))
		mr.FastForward(2 * time.Minute)
		ok, err := s.GetSession(ctx, "user-1", "token-b", &out)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestDeleteAllSessions(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t)

	for _, tok := range []string{"t1", "t2", "t3"} {
		require.NoError(t, s.SaveSession(ctx, "user-1", tok, sessionData{JTI: tok}, 0))
	}
	require.NoError(t, s.SaveSession(ctx, "user-2", "t1", sessionData{JTI: "other"}, 0))

	n, err := s.DeleteAllSessions(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 3, n)

	require.True(t, mr.Exists(s.SessionKey("user-2", "t1")))

	n, err = s.DeleteAllSessions(ctx, "user-1")
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestBlacklist(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t)

	ok, err := s.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.AddToBlacklist(ctx, "jti-1", 30*time.Second))
	ok, err = s.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, ok)

	v, err := mr.Get("blacklist:jti-1")
	require.NoError(t, err)
	require.Equal(t, "1", v)

	t.Run("entry expires with the token", func(t *testing.T) {
		mr.FastForward(31 * time.Second)
		ok, err := s.IsBlacklisted(ctx, "jti-1")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("non-positive ttl writes nothing", func(t *testing.T) {
		require.NoError(t, s.AddToBlacklist(ctx, "jti-2", 0))
		require.NoError(t, s.AddToBlacklist(ctx, "jti-3", -time.Second))
		require.False(t, mr.Exists("blacklist:jti-2"))
		require.False(t, mr.Exists("blacklist:jti-3"))
	})
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t)

	require.NoError(t, s.CacheSet(ctx, "menu:today", "tacos", 0))
	v, ok, err := s.CacheGet(ctx, "menu:today")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tacos", v)
	require.Equal(t, revocation.DefaultCacheTTL, mr.TTL("cache:menu:today"))

	type device struct {
		Name string `json:"name"`
	}
	require.NoError(t, s.CacheSet(ctx, "device:abc", device{Name: "caja"}, time.Hour))

	var d device
	ok, err = s.CacheGetJSON(ctx, "device:abc", &d)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "caja", d.Name)

	_, ok, err = s.CacheGet(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.CacheSet(ctx, "menu:tomorrow", "pozole", 0))
	n, err := s.CacheInvalidate(ctx, "menu:*")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.True(t, mr.Exists("cache:device:abc"))
}

func TestCustomPrefixes(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	s := revocation.New(ctx, revocation.Config{
		URL:             "redis://" + mr.Addr(),
		BlacklistPrefix: "cc:bl:",
		CachePrefix:     "cc:cache:",
	}, quietLogger())
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.AddToBlacklist(ctx, "j", time.Minute))
	require.NoError(t, s.CacheSet(ctx, "k", "v", time.Minute))
	require.True(t, mr.Exists("cc:bl:j"))
	require.True(t, mr.Exists("cc:cache:k"))
}

func TestDegraded(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	for name, url := range map[string]string{
		"unreachable": "redis://" + addr,
		"bad url":     "not-a-url",
	} {
		t.Run(name, func(t *testing.T) {
			s := revocation.New(ctx, revocation.Config{URL: url}, quietLogger())
			require.False(t, s.Available())

			require.ErrorIs(t, s.Ping(ctx), revocation.ErrUnavailable)
			require.ErrorIs(t, s.AddToBlacklist(ctx, "j", time.Minute), revocation.ErrUnavailable)
			require.ErrorIs(t, s.SaveSession(ctx, "u", "t", map[string]string{}, 0), revocation.ErrUnavailable)
			require.ErrorIs(t, s.CacheSet(ctx, "k", "v", 0), revocation.ErrUnavailable)

			listed, err := s.IsBlacklisted(ctx, "j")
			require.ErrorIs(t, err, revocation.ErrUnavailable)
			require.False(t, listed)

			var out map[string]string
			ok, err := s.GetSession(ctx, "u", "t", &out)
			require.ErrorIs(t, err, revocation.ErrUnavailable)
			require.False(t, ok)

			n, err := s.DeleteAllSessions(ctx, "u")
			require.ErrorIs(t, err, revocation.ErrUnavailable)
			require.Zero(t, n)

			require.NoError(t, s.Close())
		})
	}
}

func TestRedisLostAfterConnect(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t)

	require.NoError(t, s.AddToBlacklist(ctx, "j", time.Minute))
	mr.Close()

	require.True(t, s.Available())
	require.ErrorIs(t, s.Ping(ctx), revocation.ErrUnavailable)
	require.ErrorIs(t, s.AddToBlacklist(ctx, "k", time.Minute), revocation.ErrUnavailable)

	listed, err := s.IsBlacklisted(ctx, "j")
	require.ErrorIs(t, err, revocation.ErrUnavailable)
	require.False(t, listed)
}
