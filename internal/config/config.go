package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NewRelic  NewRelicConfig
	Email     EmailConfig
	RateLimit RateLimitConfig
	WebSocket WebSocketConfig
	Cache     CacheConfig
	Log       LogConfig
	CORS      CORSConfig
	Features  FeatureFlags
}

type ServerConfig struct {
	Port string
	Env  string
	Host string
	// TrustedProxies may set X-Forwarded-For; empty trusts none
	TrustedProxies []string
}

// IsProduction reports whether error details must be hidden from clients
func (s ServerConfig) IsProduction() bool {
	return s.Env == "production"
}

type DatabaseConfig struct {
	// Driver is postgres or sqlite; empty infers it from URL
	Driver         string
	URL            string
	SSLMode        string
	MaxConnections int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	BusyTimeout    time.Duration
}

type RedisConfig struct {
	// URL is optional; without it idempotency keys are ignored
	URL         string
	MaxRetries  int
	PoolSize    int
	MinIdleConn int
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

type NewRelicConfig struct {
	LicenseKey string
	AppName    string
	Enabled    bool
}

type EmailConfig struct {
	SMTPHost   string
	SMTPPort   int
	User       string
	Password   string
	FromName   string
	AdminEmail string
	Timeout    time.Duration
}

type RateLimitConfig struct {
	GeneralPerMinute int
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
}

type CacheConfig struct {
	TTLIdempotency time.Duration
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type FeatureFlags struct {
	StrictStatusTransitions bool
	EnableRealTimeUpdates   bool
}

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
}

// Load reads the environment (and .env when present) and validates it
func Load() (*Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", getEnv("PORT", "5000")),
			Env:  getEnv("SERVER_ENV", getEnv("NODE_ENV", "development")),
			Host: getEnv("SERVER_HOST", ""),

			TrustedProxies: getEnvAsList("TRUSTED_PROXIES", nil),
		},
		Database: DatabaseConfig{
			Driver:         getEnv("DB_DRIVER", ""),
			URL:            getEnv("DATABASE_URL", ""),
			SSLMode:        getEnv("DB_SSLMODE", "require"),
			MaxConnections: getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MaxIdleConns:   getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", 5),
			MaxLifetime:    time.Duration(getEnvAsInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			BusyTimeout:    getEnvAsDuration("DB_BUSY_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:         getEnv("REDIS_URL", ""),
			MaxRetries:  getEnvAsInt("REDIS_MAX_RETRIES", 3),
			PoolSize:    getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConn: 2,
			DialTimeout: 5 * time.Second,
			ReadTimeout: 3 * time.Second,
		},
		NewRelic: NewRelicConfig{
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			AppName:    getEnv("NEW_RELIC_APP_NAME", "Deliveries-API"),
			// without a license key the agent stays off regardless
			Enabled: getEnvAsBool("NEW_RELIC_ENABLED", true),
		},
		Email: EmailConfig{
			SMTPHost:   getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:   getEnvAsInt("SMTP_PORT", 587),
			User:       getEnv("EMAIL_USER", ""),
			Password:   getEnv("EMAIL_PASS", ""),
			FromName:   getEnv("EMAIL_FROM_NAME", "QuickDeliver"),
			AdminEmail: getEnv("ADMIN_EMAIL", ""),
			Timeout:    getEnvAsDuration("EMAIL_TIMEOUT", 30*time.Second),
		},
		RateLimit: RateLimitConfig{
			GeneralPerMinute: getEnvAsInt("RATE_LIMIT_GENERAL_PER_MINUTE", 100),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER_SIZE", 1024),
		},
		Cache: CacheConfig{
			TTLIdempotency: getEnvAsSeconds("CACHE_TTL_IDEMPOTENCY", 24*time.Hour),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ORIGINS", getEnvAsList("CORS_ORIGIN", defaultOrigins)),
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", "X-Request-ID"},
		},
		Features: FeatureFlags{
			StrictStatusTransitions: getEnvAsBool("STRICT_STATUS_TRANSITIONS", true),
			EnableRealTimeUpdates:   getEnvAsBool("ENABLE_REAL_TIME_UPDATES", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("SERVER_PORT must be a valid port, got %q", c.Server.Port)
	}
	switch strings.ToLower(c.Database.Driver) {
	case "", "postgres", "postgresql", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if isPostgres(c.Database.Driver) && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required for postgres")
	}
	if c.RateLimit.GeneralPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_GENERAL_PER_MINUTE cannot be negative")
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		return fmt.Errorf("CORS_ORIGINS must list at least one origin")
	}
	return nil
}

func isPostgres(driver string) bool {
	return strings.EqualFold(driver, "postgres") || strings.EqualFold(driver, "postgresql")
}

// getEnv returns the variable's value, or def when it is unset or empty
func getEnv(key, def string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return def
}

// getEnvAs parses the variable with parse, falling back to def when it is
// unset or does not parse.
func getEnvAs[T any](key string, def T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def
	}
	value, err := parse(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return value
}

func getEnvAsInt(key string, def int) int {
	return getEnvAs(key, def, strconv.Atoi)
}

func getEnvAsBool(key string, def bool) bool {
	return getEnvAs(key, def, strconv.ParseBool)
}

func getEnvAsDuration(key string, def time.Duration) time.Duration {
	return getEnvAs(key, def, time.ParseDuration)
}

// getEnvAsSeconds reads a whole number of seconds
func getEnvAsSeconds(key string, def time.Duration) time.Duration {
	return time.Duration(getEnvAsInt(key, int(def/time.Second))) * time.Second
}

// getEnvAsList splits a comma separated list, dropping blanks
func getEnvAsList(key string, def []string) []string {
	return getEnvAs(key, def, func(raw string) ([]string, error) {
		var out []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("%s lists no values", key)
		}
		return out, nil
	})
}
