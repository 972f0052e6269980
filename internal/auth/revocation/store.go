// Package revocation is the Redis-backed store for cached session metadata,
// the revoked token blacklist and a general TTL cache.
//
// The store never fails to construct. When Redis cannot be reached it runs
// degraded: reads report nothing present and every call returns
// ErrUnavailable, which callers treat as "cache unavailable" rather than a
// hard failure.
package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned by every operation on a degraded store, and
// wraps the error of any command that failed to reach Redis.
var ErrUnavailable = errors.New("revocation: redis unavailable")

func unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

const (
	DefaultSessionPrefix   = "session:"
	DefaultBlacklistPrefix = "blacklist:"
	DefaultCachePrefix     = "cache:"

	DefaultSessionTTL = 900 * time.Second
	DefaultCacheTTL   = 300 * time.Second

	// tokenKeyLen is how much of the token fingerprint goes into a session key.
	tokenKeyLen = 20

	blacklistSentinel = "1"
	scanCount         = 100
	connectTimeout    = 3 * time.Second
)

// Config controls how the store connects and names its keys.
type Config struct {
	URL             string // redis://[:password@]host:port/db
	SessionPrefix   string
	BlacklistPrefix string
	CachePrefix     string
}

func (c *Config) defaults() {
	if c.SessionPrefix == "" {
		c.SessionPrefix = DefaultSessionPrefix
	}
	if c.BlacklistPrefix == "" {
		c.BlacklistPrefix = DefaultBlacklistPrefix
	}
	if c.CachePrefix == "" {
		c.CachePrefix = DefaultCachePrefix
	}
}

type Store struct {
	client *redis.Client
	cfg    Config
	logger *slog.Logger
}

// New connects to Redis and pings it. Any failure is logged and yields a
// degraded store.
func New(ctx context.Context, cfg Config, logger *slog.Logger) *Store {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{cfg: cfg, logger: logger}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		logger.Warn("redis url invalid, revocation store degraded", "error", err)
		return s
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		logger.Warn("redis ping failed, revocation store degraded", "addr", opts.Addr, "error", err)
		return s
	}

	logger.Info("redis connected", "addr", opts.Addr, "db", opts.DB)
	s.client = client
	return s
}

// Available reports whether the store holds a live connection.
func (s *Store) Available() bool { return s.client != nil }

// Ping checks the connection. Degraded stores return ErrUnavailable.
func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return ErrUnavailable
	}
	return unavailable(s.client.Ping(ctx).Err())
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

/* sessions */

// SessionKey returns the key under which the session for token is cached.
// The suffix is taken from the token's SHA-256 rather than the raw token:
// every RS256 JWT begins with the same encoded header.
func (s *Store) SessionKey(userID, token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.cfg.SessionPrefix + userID + ":" + hex.EncodeToString(sum[:])[:tokenKeyLen]
}

// SaveSession stores data as JSON under the session key. ttl <= 0 uses
// DefaultSessionTTL.
func (s *Store) SaveSession(ctx context.Context, userID, token string, data any, ttl time.Duration) error {
	if s.client == nil {
		return ErrUnavailable
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("revocation: encode session: %w", err)
	}
	return unavailable(s.client.Set(ctx, s.SessionKey(userID, token), raw, ttl).Err())
}

// GetSession decodes the cached session into out. It reports false when no
// session is cached.
func (s *Store) GetSession(ctx context.Context, userID, token string, out any) (bool, error) {
	if s.client == nil {
		return false, ErrUnavailable
	}

	raw, err := s.client.Get(ctx, s.SessionKey(userID, token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, unavailable(err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("revocation: decode session: %w", err)
	}
	return true, nil
}

func (s *Store) DeleteSession(ctx context.Context, userID, token string) error {
	if s.client == nil {
		return ErrUnavailable
	}
	return unavailable(s.client.Del(ctx, s.SessionKey(userID, token)).Err())
}

// DeleteAllSessions removes every cached session of userID and returns how
// many keys were deleted.
func (s *Store) DeleteAllSessions(ctx context.Context, userID string) (int, error) {
	return s.deleteMatching(ctx, s.cfg.SessionPrefix+userID+":*")
}

/* blacklist */

// AddToBlacklist marks jti as revoked for ttl. The caller passes the time
// left until the token's own expiry; ttl <= 0 means the token is already
// unusable and nothing is written.
func (s *Store) AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if s.client == nil {
		return ErrUnavailable
	}
	if ttl <= 0 {
		return nil
	}
	return unavailable(s.client.Set(ctx, s.cfg.BlacklistPrefix+jti, blacklistSentinel, ttl).Err())
}

func (s *Store) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	if s.client == nil {
		return false, ErrUnavailable
	}
	n, err := s.client.Exists(ctx, s.cfg.BlacklistPrefix+jti).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

/* cache */

// CacheSet stores value under key. Strings and byte slices are stored raw,
// anything else as JSON. ttl <= 0 uses DefaultCacheTTL.
func (s *Store) CacheSet(ctx context.Context, key string, value any, ttl time.Duration) error {
	if s.client == nil {
		return ErrUnavailable
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	var payload any
	switch v := value.(type) {
	case string:
		payload = v
	case []byte:
		payload = v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("revocation: encode cache value: %w", err)
		}
		payload = raw
	}
	return unavailable(s.client.Set(ctx, s.cfg.CachePrefix+key, payload, ttl).Err())
}

// CacheGet returns the raw cached value and whether it was present.
func (s *Store) CacheGet(ctx context.Context, key string) (string, bool, error) {
	if s.client == nil {
		return "", false, ErrUnavailable
	}
	v, err := s.client.Get(ctx, s.cfg.CachePrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable(err)
	}
	return v, true, nil
}

// CacheGetJSON decodes a cached JSON value into out.
func (s *Store) CacheGetJSON(ctx context.Context, key string, out any) (bool, error) {
	v, ok, err := s.CacheGet(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(v), out); err != nil {
		return false, fmt.Errorf("revocation: decode cache value: %w", err)
	}
	return true, nil
}

// CacheInvalidate deletes every cache key matching the glob pattern and
// returns how many were removed.
func (s *Store) CacheInvalidate(ctx context.Context, pattern string) (int, error) {
	return s.deleteMatching(ctx, s.cfg.CachePrefix+pattern)
}

func (s *Store) deleteMatching(ctx context.Context, pattern string) (int, error) {
	if s.client == nil {
		return 0, ErrUnavailable
	}

	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return deleted, unavailable(err)
		}
		if len(keys) > 0 {
			n, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, unavailable(err)
			}
			deleted += int(n)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	return deleted, nil
}
