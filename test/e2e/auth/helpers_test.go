package auth_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/conychips/auth/internal/auth/app"
	"github.com/conychips/auth/pkg/authsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * End-to-end tests run the service in process against a real Redis
 * started with testcontainers. They need Docker and are skipped with -short.
 */

const (
	redisImage   = "redis:7-alpine"
	testPassword = "Cony-Chips-123"
)

// setupRedisContainer starts Redis and returns its URL.
func setupRedisContainer(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("e2e: needs docker")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        redisImage,
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, mappedPort.Port())
}

// testConfig returns a config with a fresh key pair and database under a
// temp dir.
func testConfig(t *testing.T, redisURL string) app.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := app.Config{
		Issuer:               "cony-chips-auth",
		Audience:             []string{"cony-chips-api"},
		PrivateKeyPath:       filepath.Join(dir, "private.pem"),
		PublicKeyPath:        filepath.Join(dir, "public.pem"),
		RedisURL:             redisURL,
		DatabaseFile:         filepath.Join(dir, "auth.db"),
		BcryptCost:           4,
		PasswordResetTTL:     time.Hour,
		Env:                  "test",
		LogLevel:             "error",
		LogFormat:            "json",
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
	}
	require.NoError(t, app.WriteKeyPair(cfg, 2048))
	return cfg
}

// startServer runs the full application behind an httptest server and
// returns its base URL.
func startServer(t *testing.T, cfg app.Config) string {
	t.Helper()

	a, err := app.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

// setupAuthServer starts one instance against redisURL.
func setupAuthServer(t *testing.T, redisURL string) string {
	t.Helper()
	return startServer(t, testConfig(t, redisURL))
}

// newClient points the SDK at a test server.
func newClient(t *testing.T, baseURL string) *authsdk.SDKClient {
	t.Helper()
	return authsdk.NewSDKClient(baseURL)
}

// registerAndLogin creates an account and opens a session for it.
func registerAndLogin(t *testing.T, c *authsdk.SDKClient, email, username string) *authsdk.Session {
	t.Helper()

	reg, err := c.Register(t.Context(), authsdk.RegisterRequest{
		Email:    email,
		Username: username,
		Password: testPassword,
	})
	require.NoError(t, err)
	require.NotEmpty(t, reg.UserID)

	s, err := c.Login(t.Context(), email, testPassword)
	require.NoError(t, err)
	assertSession(t, s)
	return s
}

// assertSession verifies a session carries tokens and the default role.
func assertSession(t *testing.T, s *authsdk.Session) {
	t.Helper()
	require.NotEmpty(t, s.AccessToken(), "Access token should not be empty")
	require.NotEmpty(t, s.RefreshToken(), "Refresh token should not be empty")
	require.Contains(t, s.User().Roles, "CLIENTE")
	require.True(t, s.HasPermission("profile:read"))
}
