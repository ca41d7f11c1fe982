package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Identity resolution strategies.
const (
	IdentityModeLocal  = "local"
	IdentityModeRemote = "remote"
)

// Cache backends.
const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Identity IdentityConfig
	Cache    CacheConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
	HealthCheckSec int32
	AppName        string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token verification parameters.
type AuthConfig struct {
	JWTSecret         string
	JWTSecretEncoding string
}

// IdentityConfig selects how callers are resolved from a verified token.
type IdentityConfig struct {
	Mode            string
	AuthorityURL    string
	TimeoutMillis   int
	CacheEnabled    bool
	CacheSize       int
	CacheTTLSeconds int
}

// CacheConfig controls the aggregate cache.
type CacheConfig struct {
	Backend    string
	TTLSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "user-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			HealthCheckSec: int32(getEnvAsInt("POSTGRES_HEALTH_CHECK_SECONDS", 30)),
			AppName:        getEnv("APP_NAME", "user-service"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("AUTH_JWT_SECRET", "dev-secret"),
			JWTSecretEncoding: getEnv("AUTH_JWT_SECRET_ENCODING", "raw"),
		},
		Identity: IdentityConfig{
			Mode:            strings.ToLower(getEnv("IDENTITY_MODE", IdentityModeLocal)),
			AuthorityURL:    os.Getenv("IDENTITY_AUTHORITY_URL"),
			TimeoutMillis:   getEnvAsInt("IDENTITY_TIMEOUT_MS", 3000),
			CacheEnabled:    getEnvAsBool("IDENTITY_CACHE_ENABLED", false),
			CacheSize:       getEnvAsInt("IDENTITY_CACHE_SIZE", 1024),
			CacheTTLSeconds: getEnvAsInt("IDENTITY_CACHE_TTL_SECONDS", 60),
		},
		Cache: CacheConfig{
			Backend:    strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendRedis)),
			TTLSeconds: getEnvAsInt("CACHE_TTL_SECONDS", 600),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Identity.Mode {
	case IdentityModeLocal:
	case IdentityModeRemote:
		if c.Identity.AuthorityURL == "" {
			return errors.New("IDENTITY_AUTHORITY_URL required when IDENTITY_MODE=remote")
		}
	default:
		return fmt.Errorf("unknown IDENTITY_MODE %q", c.Identity.Mode)
	}

	switch c.Cache.Backend {
	case CacheBackendRedis, CacheBackendMemory:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend)
	}

	if _, err := c.Auth.SigningKey(); err != nil {
		return err
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SigningKey decodes the configured secret into HMAC key bytes.
func (a AuthConfig) SigningKey() ([]byte, error) {
	if a.JWTSecret == "" {
		return nil, errors.New("AUTH_JWT_SECRET must not be empty")
	}
	switch strings.ToLower(a.JWTSecretEncoding) {
	case "", "raw":
		return []byte(a.JWTSecret), nil
	case "base64":
		key, err := base64.StdEncoding.DecodeString(a.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("decode AUTH_JWT_SECRET: %w", err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unknown AUTH_JWT_SECRET_ENCODING %q", a.JWTSecretEncoding)
	}
}

// Timeout returns the call budget for the remote identity authority.
func (i IdentityConfig) Timeout() time.Duration {
	if i.TimeoutMillis <= 0 {
		return 3 * time.Second
	}
	return time.Duration(i.TimeoutMillis) * time.Millisecond
}

// CacheTTL returns how long a resolved identity may be reused.
func (i IdentityConfig) CacheTTL() time.Duration {
	if i.CacheTTLSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(i.CacheTTLSeconds) * time.Second
}

// TTL returns the aggregate cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
