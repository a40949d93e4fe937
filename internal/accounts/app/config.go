package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	SessionsDatabase = "database"
	SessionsRedis    = "redis"
)

// defaultEnvFile is loaded if present. A file named by AUTH_ENV_FILE must
// exist.
const defaultEnvFile = ".env"

type Config struct {
	AccessTokenSecret  string        // Required: HS256 secret for access tokens, at least 32 bytes
	AccessTokenTTL     time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTokenSecret string        // Required: HS256 secret for refresh tokens, at least 32 bytes, different from the access secret
	RefreshTokenTTL    time.Duration // Optional: refresh token lifetime (default: 240h)
	Issuer             string        // Optional: iss claim (default: bartab-accounts)

	DatabaseDriver string // Optional: sqlite or postgres (default: sqlite)
	DatabaseFile   string // Optional: SQLite file (default: ./accounts.db)
	DatabaseURL    string // Required for postgres: connection string

	SessionBackend string // Optional: where refresh tokens are bound, database or redis (default: database)
	RedisAddr      string // Optional: redis address (default: localhost:6379)
	RedisPassword  string
	RedisDB        int

	PepperFile   string // Optional: path to file containing pepper for password hashing (default: ./pepper)
	CookieSecure bool   // Optional: Secure attribute on token cookies (default: true)
	CookieDomain string

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

// LoadConfig reads the configuration from the environment, after loading the
// dotenv file named by AUTH_ENV_FILE (default .env). Variables already set in
// the environment win over the file.
func LoadConfig() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AccessTokenSecret:  os.Getenv("AUTH_ACCESS_TOKEN_SECRET"),
		AccessTokenTTL:     getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTokenSecret: os.Getenv("AUTH_REFRESH_TOKEN_SECRET"),
		RefreshTokenTTL:    getEnvDurationOrDefault("AUTH_REFRESH_TOKEN_TTL", jwtx.DefaultRefreshTokenTTL),
		Issuer:             getEnvOrDefault("AUTH_ISSUER", "bartab-accounts"),

		DatabaseDriver: getEnvOrDefault("AUTH_DATABASE_DRIVER", DriverSQLite),
		DatabaseFile:   getEnvOrDefault("AUTH_DATABASE_FILE", "accounts.db"),
		DatabaseURL:    os.Getenv("AUTH_DATABASE_URL"),

		SessionBackend: getEnvOrDefault("AUTH_SESSION_BACKEND", SessionsDatabase),
		RedisAddr:      getEnvOrDefault("AUTH_REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("AUTH_REDIS_PASSWORD"),
		RedisDB:        getEnvIntOrDefault("AUTH_REDIS_DB", 0),

		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		CookieSecure: getEnvBoolOrDefault("AUTH_COOKIE_SECURE", true),
		CookieDomain: os.Getenv("AUTH_COOKIE_DOMAIN"),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	return cfg, nil
}

func loadEnvFile() error {
	path := os.Getenv("AUTH_ENV_FILE")
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}

// Validate reports the first configuration problem.
func (c Config) Validate() error {
	switch {
	case len(c.AccessTokenSecret) < jwtx.MinSecretLength:
		return fmt.Errorf("AUTH_ACCESS_TOKEN_SECRET must be at least %d bytes", jwtx.MinSecretLength)
	case len(c.RefreshTokenSecret) < jwtx.MinSecretLength:
		return fmt.Errorf("AUTH_REFRESH_TOKEN_SECRET must be at least %d bytes", jwtx.MinSecretLength)
	case c.AccessTokenSecret == c.RefreshTokenSecret:
		return errors.New("AUTH_ACCESS_TOKEN_SECRET and AUTH_REFRESH_TOKEN_SECRET must differ")
	case c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0:
		return errors.New("token TTLs must be positive")
	case c.AccessTokenTTL >= c.RefreshTokenTTL:
		return errors.New("AUTH_ACCESS_TOKEN_TTL must be shorter than AUTH_REFRESH_TOKEN_TTL")
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("AUTH_DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown AUTH_DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	switch c.SessionBackend {
	case SessionsDatabase, SessionsRedis:
	default:
		return fmt.Errorf("unknown AUTH_SESSION_BACKEND %q", c.SessionBackend)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	return nil
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

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
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

	// Try parsing as integer minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
