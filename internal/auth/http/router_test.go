package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	authhttp "github.com/conychips/auth/internal/auth/http"
	"github.com/conychips/auth/internal/auth/domain"
	"github.com/conychips/auth/internal/auth/rbac"
	"github.com/conychips/auth/internal/auth/revocation"
	"github.com/conychips/auth/internal/auth/service"
	"github.com/conychips/auth/internal/auth/store/drivers/sqlite"
	"github.com/conychips/auth/pkg/cryptox"
	"github.com/conychips/auth/pkg/jwtx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "s3cret-pass"

var (
	keysOnce        sync.Once
	privPEM, pubPEM []byte
	keysErr         error
)

type resetOutbox struct {
	mu    sync.Mutex
	token string
}

func (o *resetOutbox) SendPasswordReset(_ context.Context, _ domain.User, token string, _ time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.token = token
	return nil
}

func (o *resetOutbox) last() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.token
}

type server struct {
	router *authhttp.Router
	redis  *miniredis.Miniredis
	roles  *service.RolesService
	outbox *resetOutbox
}

func newServer(t *testing.T) *server {
	t.Helper()

	keysOnce.Do(func() {
		privPEM, pubPEM, keysErr = cryptox.GenerateRSAKeyPair(2048)
	})
	require.NoError(t, keysErr)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "auth.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	mr := miniredis.RunT(t)
	cache := revocation.New(context.Background(), revocation.Config{URL: "redis://" + mr.Addr()}, logger)
	t.Cleanup(func() { _ = cache.Close() })

	tokens, err := service.NewTokenService(service.TokenConfig{
		Issuer:   "cony-chips-auth",
		Audience: []string{"cony-chips-api"},
	}, privPEM, pubPEM, cache, logger)
	require.NoError(t, err)

	outbox := &resetOutbox{}
	roles := &service.RolesService{Store: st, Logger: logger}

	r := authhttp.NewRouter(tokens, "test", st, cache, logger)
	r.AuthService = &service.AuthService{
		Store:       st,
		Tokens:      tokens,
		Sessions:    cache,
		Notifier:    outbox,
		Logger:      logger,
		BcryptCost:  bcrypt.MinCost,
		Fingerprint: func() string { return "local-device" },
	}
	r.UserService = &service.UserService{Store: st}
	r.RolesService = roles
	r.ApplyRoutes()

	return &server{router: r, redis: mr, roles: roles, outbox: outbox}
}

func (s *server) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *server) register(t *testing.T, email, username string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/auth/register", "", service.RegisterInput{
		Email: email, Username: username, Password: testPassword,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authhttp.RegisterResponse](t, rec).UserID
}

func (s *server) login(t *testing.T, email string) authhttp.SessionResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/auth/login", "", service.LoginInput{Email: email, Password: testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[authhttp.SessionResponse](t, rec)
}

func requireFailure(t *testing.T, rec *httptest.ResponseRecorder, code int) {
	t.Helper()
	require.Equal(t, code, rec.Code, rec.Body.String())
	body := decode[authhttp.ErrorResponse](t, rec)
	require.False(t, body.Success)
	require.Equal(t, code, body.Code)
	require.NotEmpty(t, body.Error)
}

func TestRegisterLoginMe(t *testing.T) {
	s := newServer(t)

	userID := s.register(t, "ana@conychips.test", "ana")

	rec := s.do(t, http.MethodPost, "/v1/auth/register", "", service.RegisterInput{
		Email: "ana@conychips.test", Username: "ana2", Password: testPassword,
	})
	requireFailure(t, rec, http.StatusConflict)

	sess := s.login(t, "ana@conychips.test")
	require.True(t, sess.Success)
	require.NotEmpty(t, sess.AccessToken)
	require.NotEmpty(t, sess.RefreshToken)
	require.Equal(t, "Bearer", sess.TokenType)
	require.Equal(t, []string{rbac.DefaultRole}, sess.Roles)
	require.Equal(t, "no-store", s.do(t, http.MethodPost, "/v1/auth/login", "", service.LoginInput{
		Email: "ana@conychips.test", Password: testPassword,
	}).Header().Get("Cache-Control"))

	rec = s.do(t, http.MethodGet, "/v1/me", sess.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decode[authhttp.MeResponse](t, rec)
	require.Equal(t, userID, me.User.ID)
	require.Equal(t, "ana", me.User.Username)
	require.NotNil(t, me.User.LastLoginAt)

	rec = s.do(t, http.MethodGet, "/v1/me", "", nil)
	requireFailure(t, rec, http.StatusUnauthorized)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")

	// A refresh token is not an access token.
	rec = s.do(t, http.MethodGet, "/v1/me", sess.RefreshToken, nil)
	requireFailure(t, rec, http.StatusUnauthorized)
}

func TestLoginFailures(t *testing.T) {
	s := newServer(t)
	s.register(t, "beto@conychips.test", "beto")

	unknown := s.do(t, http.MethodPost, "/v1/auth/login", "", service.LoginInput{Email: "nobody@conychips.test", Password: testPassword})
	wrong := s.do(t, http.MethodPost, "/v1/auth/login", "", service.LoginInput{Email: "beto@conychips.test", Password: "not-the-password"})
	requireFailure(t, unknown, http.StatusUnauthorized)
	requireFailure(t, wrong, http.StatusUnauthorized)
	require.JSONEq(t, unknown.Body.String(), wrong.Body.String())

	requireFailure(t, s.do(t, http.MethodPost, "/v1/auth/login", "", "{not json"), http.StatusBadRequest)
	requireFailure(t, s.do(t, http.MethodPost, "/v1/auth/login", "", `{"email":"a","password":"b","extra":1}`), http.StatusBadRequest)
	requireFailure(t, s.do(t, http.MethodPost, "/v1/auth/login", "", nil), http.StatusBadRequest)
}

func TestLoginRateLimit(t *testing.T) {
	s := newServer(t)
	s.register(t, "carla@conychips.test", "carla")

	attempt := service.LoginInput{Email: "carla@conychips.test", Password: "guess"}
	for range 5 {
		requireFailure(t, s.do(t, http.MethodPost, "/v1/auth/login", "", attempt), http.StatusUnauthorized)
	}

	rec := s.do(t, http.MethodPost, "/v1/auth/login", "", attempt)
	requireFailure(t, rec, http.StatusTooManyRequests)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Another account from the same address has its own budget.
	requireFailure(t, s.do(t, http.MethodPost, "/v1/auth/login", "",
		service.LoginInput{Email: "other@conychips.test", Password: "guess"}), http.StatusUnauthorized)
}

func TestRefreshRotation(t *testing.T) {
	s := newServer(t)
	s.register(t, "dani@conychips.test", "dani")
	first := s.login(t, "dani@conychips.test")

	rec := s.do(t, http.MethodPost, "/v1/auth/refresh", "", authhttp.RefreshRequest{RefreshToken: first.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode[authhttp.SessionResponse](t, rec)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.NotEqual(t, first.SessionID, second.SessionID)

	// The rotated refresh token is spent.
	rec = s.do(t, http.MethodPost, "/v1/auth/refresh", "", authhttp.RefreshRequest{RefreshToken: first.RefreshToken})
	requireFailure(t, rec, http.StatusUnauthorized)

	rec = s.do(t, http.MethodPost, "/v1/auth/refresh", "", authhttp.RefreshRequest{RefreshToken: second.AccessToken})
	requireFailure(t, rec, http.StatusUnauthorized)

	requireFailure(t, s.do(t, http.MethodPost, "/v1/auth/refresh", "", authhttp.RefreshRequest{}), http.StatusBadRequest)
}

func TestLogout(t *testing.T) {
	s := newServer(t)
	s.register(t, "eli@conychips.test", "eli")
	sess := s.login(t, "eli@conychips.test")

	requireFailure(t, s.do(t, http.MethodPost, "/v1/auth/logout", "", nil), http.StatusUnauthorized)

	rec := s.do(t, http.MethodPost, "/v1/auth/logout", sess.AccessToken, authhttp.LogoutRequest{RefreshToken: sess.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, decode[authhttp.MessageResponse](t, rec).Success)

	requireFailure(t, s.do(t, http.MethodGet, "/v1/me", sess.AccessToken, nil), http.StatusUnauthorized)
	requireFailure(t, s.do(t, http.MethodPost, "/v1/auth/refresh", "",
		authhttp.RefreshRequest{RefreshToken: sess.RefreshToken}), http.StatusUnauthorized)
}

func TestLogoutWithoutBody(t *testing.T) {
	s := newServer(t)
	s.register(t, "fer@conychips.test", "fer")
	sess := s.login(t, "fer@conychips.test")

	rec := s.do(t, http.MethodPost, "/v1/auth/logout", sess.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Only the access token went away.
	rec = s.do(t, http.MethodPost, "/v1/auth/refresh", "", authhttp.RefreshRequest{RefreshToken: sess.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestLogoutAll(t *testing.T) {
	s := newServer(t)
	s.register(t, "gabi@conychips.test", "gabi")
	phone := s.login(t, "gabi@conychips.test")
	till := s.login(t, "gabi@conychips.test")

	rec := s.do(t, http.MethodPost, "/v1/auth/logout-all", phone.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, 2, decode[authhttp.LogoutAllResponse](t, rec).SessionsClosed)

	requireFailure(t, s.do(t, http.MethodGet, "/v1/me", phone.AccessToken, nil), http.StatusUnauthorized)
	requireFailure(t, s.do(t, http.MethodGet, "/v1/me", till.AccessToken, nil), http.StatusUnauthorized)
	requireFailure(t, s.do(t, http.MethodPost, "/v1/auth/refresh", "",
		authhttp.RefreshRequest{RefreshToken: till.RefreshToken}), http.StatusUnauthorized)
}

func TestDevices(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/v1/devices", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dev := decode[authhttp.DeviceResponse](t, rec)
	require.Equal(t, "local-device", dev.DeviceID)
	require.NotEmpty(t, dev.AppToken)

	rec = s.do(t, http.MethodPost, "/v1/devices", "", service.RegisterDeviceInput{
		DeviceID: "caja-01",
		Metadata: map[string]any{"sucursal": "centro"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dev = decode[authhttp.DeviceResponse](t, rec)
	require.Equal(t, "caja-01", dev.DeviceID)

	const devKey = "cache:device:caja-01"
	require.True(t, s.redis.Exists(devKey))
	require.Equal(t, jwtx.DefaultAppTokenTTL, s.redis.TTL(devKey))
	raw, err := s.redis.Get(devKey)
	require.NoError(t, err)
	var cached domain.Device
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	require.Equal(t, "caja-01", cached.DeviceID)
	require.Equal(t, "centro", cached.Metadata["sucursal"])
	require.NotEmpty(t, cached.AppTokenID)

	// Logging in through the device binds the session to it.
	s.register(t, "hugo@conychips.test", "hugo")
	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", service.LoginInput{
		Email: "hugo@conychips.test", Password: testPassword, AppToken: dev.AppToken,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sess := decode[authhttp.SessionResponse](t, rec)

	rec = s.do(t, http.MethodPost, "/v1/tokens/verify", "", authhttp.TokenRequest{Token: sess.AccessToken})
	require.Equal(t, "caja-01", decode[authhttp.VerifyResponse](t, rec).DeviceID)
}

func TestRoleEndpoints(t *testing.T) {
	s := newServer(t)
	adminID := s.register(t, "ines@conychips.test", "ines")
	staffID := s.register(t, "juan@conychips.test", "juan")

	customer := s.login(t, "juan@conychips.test")
	requireFailure(t, s.do(t, http.MethodGet, "/v1/roles", customer.AccessToken, nil), http.StatusForbidden)
	rec := s.do(t, http.MethodPost, "/v1/users/"+adminID+"/roles/ADMIN", customer.AccessToken, nil)
	requireFailure(t, rec, http.StatusForbidden)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "insufficient_scope")

	require.NoError(t, s.roles.AssignRole(context.Background(), adminID, rbac.Admin))
	admin := s.login(t, "ines@conychips.test")
	require.Contains(t, admin.Roles, rbac.Admin)

	rec = s.do(t, http.MethodGet, "/v1/roles", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, decode[authhttp.RolesResponse](t, rec).Roles, len(rbac.Roles()))

	rec = s.do(t, http.MethodPost, "/v1/users/"+staffID+"/roles/cajero", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The new role reaches the staff member's tokens on refresh.
	rec = s.do(t, http.MethodPost, "/v1/auth/refresh", "", authhttp.RefreshRequest{RefreshToken: customer.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, decode[authhttp.SessionResponse](t, rec).Roles, rbac.Cashier)

	requireFailure(t, s.do(t, http.MethodPost, "/v1/users/"+staffID+"/roles/CHEF", admin.AccessToken, nil), http.StatusBadRequest)
	requireFailure(t, s.do(t, http.MethodPost, "/v1/users/missing/roles/CAJERO", admin.AccessToken, nil), http.StatusNotFound)

	rec = s.do(t, http.MethodDelete, "/v1/users/"+staffID+"/roles/CAJERO", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	requireFailure(t, s.do(t, http.MethodDelete, "/v1/users/"+staffID+"/roles/CAJERO", admin.AccessToken, nil), http.StatusNotFound)
}

func TestTokensVerifyAndRevoke(t *testing.T) {
	s := newServer(t)
	userID := s.register(t, "karen@conychips.test", "karen")
	sess := s.login(t, "karen@conychips.test")

	rec := s.do(t, http.MethodPost, "/v1/tokens/verify", "", authhttp.TokenRequest{Token: sess.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v := decode[authhttp.VerifyResponse](t, rec)
	require.True(t, v.Valid)
	require.Equal(t, "access", v.Kind)
	require.Equal(t, userID, v.UserID)
	require.NotNil(t, v.ExpiresAt)
	require.Positive(t, v.RemainingSeconds)

	rec = s.do(t, http.MethodPost, "/v1/tokens/revoke", "", authhttp.TokenRequest{Token: sess.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/v1/tokens/verify", "", authhttp.TokenRequest{Token: sess.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code)
	v = decode[authhttp.VerifyResponse](t, rec)
	require.False(t, v.Valid)
	require.Empty(t, v.JTI)

	// Garbage is answered like anything else.
	rec = s.do(t, http.MethodPost, "/v1/tokens/revoke", "", authhttp.TokenRequest{Token: "not.a.token"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, decode[authhttp.VerifyResponse](t,
		s.do(t, http.MethodPost, "/v1/tokens/verify", "", authhttp.TokenRequest{Token: "not.a.token"})).Valid)

	requireFailure(t, s.do(t, http.MethodPost, "/v1/tokens/verify", "", authhttp.TokenRequest{}), http.StatusBadRequest)
}

func TestRevokeWithoutRedis(t *testing.T) {
	s := newServer(t)
	s.register(t, "leo@conychips.test", "leo")
	sess := s.login(t, "leo@conychips.test")

	s.redis.Close()

	rec := s.do(t, http.MethodPost, "/v1/tokens/revoke", "", authhttp.TokenRequest{Token: sess.AccessToken})
	requireFailure(t, rec, http.StatusServiceUnavailable)
}

func TestPasswordReset(t *testing.T) {
	s := newServer(t)
	s.register(t, "mia@conychips.test", "mia")
	old := s.login(t, "mia@conychips.test")

	unknown := s.do(t, http.MethodPost, "/v1/auth/password/forgot", "", authhttp.PasswordForgotRequest{Email: "ghost@conychips.test"})
	known := s.do(t, http.MethodPost, "/v1/auth/password/forgot", "", authhttp.PasswordForgotRequest{Email: "mia@conychips.test"})
	require.Equal(t, http.StatusOK, unknown.Code)
	require.Equal(t, http.StatusOK, known.Code)
	require.JSONEq(t, unknown.Body.String(), known.Body.String())

	token := s.outbox.last()
	require.NotEmpty(t, token)

	rec := s.do(t, http.MethodPost, "/v1/auth/password/reset", "", authhttp.PasswordResetRequest{Token: token, NewPassword: "short"})
	requireFailure(t, rec, http.StatusBadRequest)

	rec = s.do(t, http.MethodPost, "/v1/auth/password/reset", "", authhttp.PasswordResetRequest{Token: token, NewPassword: "brand-new-pass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/v1/auth/password/reset", "", authhttp.PasswordResetRequest{Token: token, NewPassword: "another-pass"})
	requireFailure(t, rec, http.StatusBadRequest)

	// Sessions from before the reset are gone.
	requireFailure(t, s.do(t, http.MethodGet, "/v1/me", old.AccessToken, nil), http.StatusUnauthorized)

	requireFailure(t, s.do(t, http.MethodPost, "/v1/auth/login", "", service.LoginInput{
		Email: "mia@conychips.test", Password: testPassword,
	}), http.StatusUnauthorized)
	rec = s.do(t, http.MethodPost, "/v1/auth/login", "", service.LoginInput{
		Email: "mia@conychips.test", Password: "brand-new-pass",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHealthAndJWKS(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode[authhttp.HealthResponse](t, rec).Status)

	rec = s.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ready := decode[authhttp.HealthResponse](t, rec)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Redis)

	rec = s.do(t, http.MethodGet, "/.well-known/jwks.json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var jwks jwtx.JWKS
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jwks))
	require.Len(t, jwks.Keys, 1)

	pub, err := jwtx.ParseRSAPublicKeyPEM(pubPEM)
	require.NoError(t, err)
	key, ok := jwks.Lookup(jwtx.Thumbprint(pub))
	require.True(t, ok)
	require.Equal(t, "RS256", key.Alg)
	require.True(t, key.Matches(pub))

	s.redis.Close()

	rec = s.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ready = decode[authhttp.HealthResponse](t, rec)
	require.Equal(t, "degraded", ready.Status)
	require.Contains(t, ready.Checks.Redis, "error")
}
