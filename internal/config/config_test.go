package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "PORT", "DATABASE_URL", "DB_DRIVER", "CORS_ORIGINS", "CORS_ORIGIN", "STRICT_STATUS_TRANSITIONS", "REDIS_URL", "TRUSTED_PROXIES"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Redis.URL)
	assert.True(t, cfg.Features.StrictStatusTransitions)
	assert.Equal(t, defaultOrigins, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTLIdempotency)
	assert.Empty(t, cfg.Server.TrustedProxies)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("DATABASE_URL", "postgres://u:p@db.example.com/app")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("STRICT_STATUS_TRANSITIONS", "false")
	t.Setenv("DB_MAX_CONNECTIONS", "7")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8088", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 7, cfg.Database.MaxConnections)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.Features.StrictStatusTransitions)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.Server.TrustedProxies)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: "5000"},
			CORS:   CORSConfig{AllowedOrigins: defaultOrigins},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = "http" }, "SERVER_PORT"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "DB_DRIVER"},
		{"postgres without url", func(c *Config) { c.Database.Driver = "postgres" }, "DATABASE_URL"},
		{"postgresql without url", func(c *Config) { c.Database.Driver = "PostgreSQL" }, "DATABASE_URL"},
		{"no origins", func(c *Config) { c.CORS.AllowedOrigins = nil }, "CORS_ORIGINS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetEnvAs_FallsBackOnGarbage(t *testing.T) {
	t.Setenv("DB_MAX_CONNECTIONS", "lots")
	t.Setenv("EMAIL_TIMEOUT", "soon")
	t.Setenv("CACHE_TTL_IDEMPOTENCY", "60")
	t.Setenv("CORS_ORIGINS", " , ")

	assert.Equal(t, 25, getEnvAsInt("DB_MAX_CONNECTIONS", 25))
	assert.Equal(t, 30*time.Second, getEnvAsDuration("EMAIL_TIMEOUT", 30*time.Second))
	assert.Equal(t, time.Minute, getEnvAsSeconds("CACHE_TTL_IDEMPOTENCY", time.Hour))
	assert.Equal(t, defaultOrigins, getEnvAsList("CORS_ORIGINS", defaultOrigins))
}
