package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/accountsvc/internal/ratelimit"
)

const validConfig = `
app:
  port: 9090
database:
  dsn: "host=db"
redis:
  addr: "redis:6379"
jwt:
  secret: "0123456789abcdef0123456789abcdef"
  access_ttl: 10m
  refresh_ttl_days: 14
otp:
  ttl: 2m
rate_limit:
  backend: redis
  templates:
    default:
      capacity: 5
      refill_tokens: 5
      refill_period: 1m
    strict:
      capacity: 2
      refill_tokens: 1
      refill_period: 30s
  operations:
    signup: strict
cleanup:
  pending_max_age: 12h
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFrom(t *testing.T) {
	cfg, err := LoadFrom(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 10*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 14*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, 2*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 15*time.Minute, cfg.OTPSessionTTL, "unset durations fall back to defaults")
	assert.Equal(t, 12*time.Hour, cfg.CleanupPendingMaxAge)
	assert.Equal(t, 7*24*time.Hour, cfg.CleanupDisabledMaxAge)
	assert.Equal(t, "redis", cfg.RateLimitBackend)
	assert.Equal(t, ratelimit.BucketConfig{Capacity: 2, RefillTokens: 1, RefillPeriod: 30 * time.Second}, cfg.RateLimit.Templates["strict"])
	assert.Equal(t, "strict", cfg.RateLimit.Operations["signup"])
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "ffffffffffffffffffffffffffffffffffff")
	t.Setenv("DATABASE_DSN", "host=override")
	t.Setenv("PORT", "7000")

	cfg, err := LoadFrom(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "ffffffffffffffffffffffffffffffffffff", cfg.JWTSecret)
	assert.Equal(t, "host=override", cfg.DSN)
	assert.Equal(t, "7000", cfg.Port)
}

func TestLoadFrom_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "bad duration",
			body:    validConfig + "\npassword_reset:\n  ttl: soon\n",
			wantErr: "invalid password_reset.ttl",
		},
		{
			name:    "short secret",
			body:    "database:\n  dsn: x\nredis:\n  addr: y\njwt:\n  secret: short\n",
			wantErr: "at least 32 bytes",
		},
		{
			name:    "missing dsn",
			body:    "redis:\n  addr: y\njwt:\n  secret: 0123456789abcdef0123456789abcdef\n",
			wantErr: "database dsn is required",
		},
		{
			name:    "unknown backend",
			body:    "database:\n  dsn: x\nredis:\n  addr: y\njwt:\n  secret: 0123456789abcdef0123456789abcdef\nrate_limit:\n  backend: kafka\n",
			wantErr: "unknown rate limit backend",
		},
		{
			name:    "not yaml",
			body:    "app: [",
			wantErr: "could not parse config yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoadFrom_DefaultTemplate(t *testing.T) {
	cfg, err := LoadFrom(writeConfig(t, "database:\n  dsn: x\nredis:\n  addr: y\njwt:\n  secret: 0123456789abcdef0123456789abcdef\n"))
	require.NoError(t, err)

	_, ok := cfg.RateLimit.Templates[ratelimit.DefaultTemplate]
	assert.True(t, ok)
	assert.Equal(t, "memory", cfg.RateLimitBackend)
}
