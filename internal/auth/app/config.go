package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Issuer   string   // Issuer claim for tokens (default: cony-chips-auth)
	Audience []string // Accepted audiences, comma separated in env (default: cony-chips-api)

	AccessTTL  time.Duration // ACCESS_TOKEN_EXPIRE_MINUTES (default: 15)
	RefreshTTL time.Duration // REFRESH_TOKEN_EXPIRE_DAYS (default: 7)
	AppTTL     time.Duration // APP_TOKEN_EXPIRE_DAYS (default: 30)

	PrivateKeyPath   string // PEM file with the RS256 signing key (default: keys/private.pem)
	PublicKeyPath    string // PEM file with the matching public key (default: keys/public.pem)
	PrivateKeySecret string // Optional: the private key file is encrypted with this secret

	RedisURL        string // Revocation store (default: redis://localhost:6379/0)
	SessionPrefix   string
	BlacklistPrefix string
	CachePrefix     string

	DatabaseFile     string        // Path to SQLite database file (default: ./auth.db)
	BcryptCost       int           // Work factor for new password hashes (default: 12)
	PasswordResetTTL time.Duration // Lifetime of a password reset token (default: 1h)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

// LoadConfig reads the environment, after loading .env from the working
// directory when there is one. Variables already set win over the file.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		Issuer:   getEnvOrDefault("AUTH_ISSUER", "cony-chips-auth"),
		Audience: getEnvListOrDefault("AUTH_AUDIENCE", []string{"cony-chips-api"}),

		AccessTTL:  time.Duration(getEnvIntOrDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 15)) * time.Minute,
		RefreshTTL: time.Duration(getEnvIntOrDefault("REFRESH_TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour,
		AppTTL:     time.Duration(getEnvIntOrDefault("APP_TOKEN_EXPIRE_DAYS", 30)) * 24 * time.Hour,

		PrivateKeyPath:   getEnvOrDefault("JWT_PRIVATE_KEY_PATH", "keys/private.pem"),
		PublicKeyPath:    getEnvOrDefault("JWT_PUBLIC_KEY_PATH", "keys/public.pem"),
		PrivateKeySecret: os.Getenv("JWT_PRIVATE_KEY_SECRET"),

		RedisURL:        getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		SessionPrefix:   getEnvOrDefault("REDIS_SESSION_PREFIX", "session:"),
		BlacklistPrefix: getEnvOrDefault("REDIS_BLACKLIST_PREFIX", "blacklist:"),
		CachePrefix:     getEnvOrDefault("REDIS_CACHE_PREFIX", "cache:"),

		DatabaseFile:     getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		BcryptCost:       getEnvIntOrDefault("BCRYPT_COST", 12),
		PasswordResetTTL: getEnvDurationOrDefault("PASSWORD_RESET_TTL", time.Hour),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	var out []string
	for part := range strings.SplitSeq(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
