package config

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// APIConfig holds runtime configuration for the API service. It is built
// once at startup and shared read-only by every request.
type APIConfig struct {
	Environment        string
	Debug              bool
	Addr               string
	DatabaseURL        string
	MigrationsDir      string
	JWTSecret          string
	TokenTTL           time.Duration
	BcryptCost         int
	PasswordMinLength  int
	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
}

// LoadAPIConfig constructs an APIConfig from environment variables. The
// signing secret deliberately has no fallback; Validate rejects an empty
// value before the process serves anything.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:        GetString("APP_ENV", "development"),
		Debug:              GetBool("DEBUG", false),
		Addr:               GetString("API_ADDR", ":8080"),
		DatabaseURL:        GetString("DATABASE_URL", "postgres://wishlist:wishlist@db:5432/wishlist?sslmode=disable"),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		JWTSecret:          GetString("JWT_SECRET", ""),
		TokenTTL:           time.Duration(GetInt("TOKEN_TTL_HOURS", 12)) * time.Hour,
		BcryptCost:         GetInt("BCRYPT_COST", bcrypt.DefaultCost),
		PasswordMinLength:  GetInt("PASSWORD_MIN_LENGTH", 8),
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
	}
}

// LogLevel returns the slog level the configuration asks for.
func (c APIConfig) LogLevel() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Validate rejects configurations the process must not serve with.
func (c APIConfig) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("config: JWT_SECRET must be set and non-empty")
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("config: DATABASE_URL must be set")
	}
	if c.TokenTTL <= 0 {
		return errors.New("config: token ttl must be positive")
	}
	return nil
}
