package service_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/conychips/auth/internal/auth/domain"
	"github.com/conychips/auth/internal/auth/revocation"
	"github.com/conychips/auth/internal/auth/service"
	"github.com/conychips/auth/internal/auth/store/drivers/sqlite"
	"github.com/conychips/auth/pkg/cryptox"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testIssuer   = "cony-chips-auth"
	testAudience = "cony-chips-api"
	testPassword = "s3cret-pass"
)

var (
	keysOnce          sync.Once
	privPEM, pubPEM   []byte
	otherPriv, other  []byte
	keysErr, otherErr error
)

// testKeys generates the RSA pairs once per test binary.
func testKeys(t *testing.T) (priv, pub []byte) {
	t.Helper()
	keysOnce.Do(func() {
		privPEM, pubPEM, keysErr = cryptox.GenerateRSAKeyPair(2048)
		otherPriv, other, otherErr = cryptox.GenerateRSAKeyPair(2048)
	})
	require.NoError(t, keysErr)
	require.NoError(t, otherErr)
	return privPEM, pubPEM
}

func otherKeys(t *testing.T) (priv, pub []byte) {
	t.Helper()
	testKeys(t)
	return otherPriv, other
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock is a settable time source shared by the token service and the
// use cases.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentReset struct {
	UserID string
	Token  string
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []sentReset
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, user domain.User, token string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentReset{UserID: user.ID, Token: token})
	return nil
}

func (n *captureNotifier) last(t *testing.T) sentReset {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent, "no reset token was sent")
	return n.sent[len(n.sent)-1]
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type testEnv struct {
	Store    *sqlite.Store
	Redis    *miniredis.Miniredis
	Cache    *revocation.Store
	Tokens   *service.TokenService
	Auth     *service.AuthService
	Roles    *service.RolesService
	Users    *service.UserService
	Clock    *fakeClock
	Notifier *captureNotifier
}

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "auth.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTokenService(t *testing.T, blacklist service.Blacklist, clock *fakeClock) *service.TokenService {
	t.Helper()

	priv, pub := testKeys(t)
	ts, err := service.NewTokenService(service.TokenConfig{
		Issuer:   testIssuer,
		Audience: []string{testAudience},
	}, priv, pub, blacklist, quietLogger(), service.WithClock(clock.Now))
	require.NoError(t, err)
	return ts
}

// newEnv wires the services over a temp sqlite file and miniredis.
func newEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	cache := revocation.New(context.Background(), revocation.Config{URL: "redis://" + mr.Addr()}, quietLogger())
	require.True(t, cache.Available())
	t.Cleanup(func() { _ = cache.Close() })

	return buildEnv(t, cache, mr)
}

// newDegradedEnv wires the services against a Redis that is not there.
func newDegradedEnv(t *testing.T) *testEnv {
	t.Helper()

	cache := revocation.New(context.Background(), revocation.Config{URL: "redis://127.0.0.1:1/0"}, quietLogger())
	require.False(t, cache.Available())
	return buildEnv(t, cache, nil)
}

func buildEnv(t *testing.T, cache *revocation.Store, mr *miniredis.Miniredis) *testEnv {
	t.Helper()

	clock := newFakeClock()
	st := newStore(t)
	tokens := newTokenService(t, cache, clock)
	notifier := &captureNotifier{}

	return &testEnv{
		Store:  st,
		Redis:  mr,
		Cache:  cache,
		Tokens: tokens,
		Auth: &service.AuthService{
			Store:       st,
			Tokens:      tokens,
			Sessions:    cache,
			Notifier:    notifier,
			Logger:      quietLogger(),
			BcryptCost:  bcrypt.MinCost,
			Fingerprint: func() string { return "local-device" },
		},
		Roles:    &service.RolesService{Store: st, Logger: quietLogger()},
		Users:    &service.UserService{Store: st},
		Clock:    clock,
		Notifier: notifier,
	}
}

func (e *testEnv) register(t *testing.T, email, username string) service.UserView {
	t.Helper()

	u, err := e.Auth.RegisterUser(context.Background(), service.RegisterInput{
		Email:    email,
		Username: username,
		Password: testPassword,
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) login(t *testing.T, email string) *service.SessionResult {
	t.Helper()

	res, err := e.Auth.Login(context.Background(), service.LoginInput{Email: email, Password: testPassword})
	require.NoError(t, err)
	return res
}

// requireCode asserts err is a use case error with the given status code.
func requireCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, service.AsError(err).Code, "unexpected error: %v", err)
}
