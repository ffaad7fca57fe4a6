package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/you/accountsvc/internal/ratelimit"
)

type AppConfig struct {
	Port         int    `yaml:"port"`
	GinMode      string `yaml:"gin_mode"`
	CookieSecure bool   `yaml:"cookie_secure"`
}

type DatabaseConfig struct {
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret         string `yaml:"secret"`
	Issuer         string `yaml:"issuer"`
	AccessTTL      string `yaml:"access_ttl"`
	RefreshTTLDays int    `yaml:"refresh_ttl_days"`
}

type OTPConfig struct {
	TTL         string `yaml:"ttl"`
	SessionTTL  string `yaml:"session_ttl"`
	MaxAttempts int    `yaml:"max_attempts"`
}

type PasswordResetConfig struct {
	TTL        string `yaml:"ttl"`
	BcryptCost int    `yaml:"bcrypt_cost"`
}

type BucketFile struct {
	Capacity     int    `yaml:"capacity"`
	RefillTokens int    `yaml:"refill_tokens"`
	RefillPeriod string `yaml:"refill_period"`
}

type RateLimitConfig struct {
	Backend    string                `yaml:"backend"`
	IdleTTL    string                `yaml:"idle_ttl"`
	Templates  map[string]BucketFile `yaml:"templates"`
	Operations map[string]string     `yaml:"operations"`
}

type CleanupConfig struct {
	Interval       string `yaml:"interval"`
	PendingMaxAge  string `yaml:"pending_max_age"`
	DisabledMaxAge string `yaml:"disabled_max_age"`
	BatchSize      int    `yaml:"batch_size"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type CasbinConfig struct {
	ModelPath string `yaml:"model_path"`
}

type LogConfig struct {
	Dir        string `yaml:"dir"`
	Debug      bool   `yaml:"debug"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ConfigFile struct {
	App           AppConfig           `yaml:"app"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	JWT           JWTConfig           `yaml:"jwt"`
	OTP           OTPConfig           `yaml:"otp"`
	PasswordReset PasswordResetConfig `yaml:"password_reset"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Cleanup       CleanupConfig       `yaml:"cleanup"`
	Twilio        TwilioConfig        `yaml:"twilio"`
	Casbin        CasbinConfig        `yaml:"casbin"`
	Log           LogConfig           `yaml:"log"`
}

type Config struct {
	Port         string
	GinMode      string
	CookieSecure bool

	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret  string
	JWTIssuer  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	OTPTTL         time.Duration
	OTPSessionTTL  time.Duration
	OTPMaxAttempts int

	PasswordResetTTL time.Duration
	BcryptCost       int

	RateLimitBackend string
	RateLimitIdleTTL time.Duration
	RateLimit        ratelimit.Config

	CleanupInterval       time.Duration
	CleanupPendingMaxAge  time.Duration
	CleanupDisabledMaxAge time.Duration
	CleanupBatchSize      int

	TwilioSID   string
	TwilioToken string
	TwilioFrom  string

	CasbinModelPath string

	LogDir        string
	LogDebug      bool
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads .env when present, then the YAML file named by CONFIG_PATH
// (default config/config.yml), then applies environment overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFrom(env("CONFIG_PATH", "config/config.yml"))
}

// LoadFrom builds the configuration from the YAML file at path
func LoadFrom(path string) (*Config, error) {
	f, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	p := durationParser{}
	cfg := &Config{
		Port:         env("PORT", strconv.Itoa(orDefault(f.App.Port, 8080))),
		GinMode:      env("GIN_MODE", orDefaultString(f.App.GinMode, "release")),
		CookieSecure: f.App.CookieSecure,

		DSN:             env("DATABASE_DSN", f.Database.DSN),
		MaxOpenConns:    orDefault(f.Database.MaxOpenConns, 25),
		MaxIdleConns:    orDefault(f.Database.MaxIdleConns, 5),
		ConnMaxLifetime: p.parse("database.conn_max_lifetime", f.Database.ConnMaxLifetime, 30*time.Minute),

		RedisAddr:     env("REDIS_ADDR", f.Redis.Addr),
		RedisPassword: env("REDIS_PASSWORD", f.Redis.Password),
		RedisDB:       f.Redis.DB,

		JWTSecret:  env("JWT_SECRET", f.JWT.Secret),
		JWTIssuer:  orDefaultString(f.JWT.Issuer, "accountsvc"),
		AccessTTL:  p.parse("jwt.access_ttl", f.JWT.AccessTTL, 15*time.Minute),
		RefreshTTL: time.Duration(orDefault(f.JWT.RefreshTTLDays, 7)) * 24 * time.Hour,

		OTPTTL:         p.parse("otp.ttl", f.OTP.TTL, 5*time.Minute),
		OTPSessionTTL:  p.parse("otp.session_ttl", f.OTP.SessionTTL, 15*time.Minute),
		OTPMaxAttempts: orDefault(f.OTP.MaxAttempts, 5),

		PasswordResetTTL: p.parse("password_reset.ttl", f.PasswordReset.TTL, 10*time.Minute),
		BcryptCost:       f.PasswordReset.BcryptCost,

		RateLimitBackend: orDefaultString(f.RateLimit.Backend, "memory"),
		RateLimitIdleTTL: p.parse("rate_limit.idle_ttl", f.RateLimit.IdleTTL, 10*time.Minute),
		RateLimit: ratelimit.Config{
			Templates:  make(map[string]ratelimit.BucketConfig, len(f.RateLimit.Templates)),
			Operations: f.RateLimit.Operations,
		},

		CleanupInterval:       p.parse("cleanup.interval", f.Cleanup.Interval, time.Hour),
		CleanupPendingMaxAge:  p.parse("cleanup.pending_max_age", f.Cleanup.PendingMaxAge, 24*time.Hour),
		CleanupDisabledMaxAge: p.parse("cleanup.disabled_max_age", f.Cleanup.DisabledMaxAge, 7*24*time.Hour),
		CleanupBatchSize:      orDefault(f.Cleanup.BatchSize, 500),

		TwilioSID:   env("TWILIO_ACCOUNT_SID", f.Twilio.AccountSID),
		TwilioToken: env("TWILIO_AUTH_TOKEN", f.Twilio.AuthToken),
		TwilioFrom:  env("TWILIO_FROM_NUMBER", f.Twilio.FromNumber),

		CasbinModelPath: orDefaultString(f.Casbin.ModelPath, "config/rbac_model.conf"),

		LogDir:        env("LOG_DIR", f.Log.Dir),
		LogDebug:      f.Log.Debug,
		LogMaxSizeMB:  f.Log.MaxSizeMB,
		LogMaxBackups: f.Log.MaxBackups,
		LogMaxAgeDays: f.Log.MaxAgeDays,
	}

	for name, b := range f.RateLimit.Templates {
		cfg.RateLimit.Templates[name] = ratelimit.BucketConfig{
			Capacity:     b.Capacity,
			RefillTokens: b.RefillTokens,
			RefillPeriod: p.parse("rate_limit.templates."+name+".refill_period", b.RefillPeriod, time.Minute),
		}
	}
	if len(cfg.RateLimit.Templates) == 0 {
		cfg.RateLimit.Templates[ratelimit.DefaultTemplate] = ratelimit.BucketConfig{Capacity: 5, RefillTokens: 5, RefillPeriod: time.Minute}
	}

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt secret is required (jwt.secret or JWT_SECRET)")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("jwt secret must be at least 32 bytes")
	}
	if c.DSN == "" {
		return errors.New("database dsn is required (database.dsn or DATABASE_DSN)")
	}
	if c.RedisAddr == "" {
		return errors.New("redis address is required (redis.addr or REDIS_ADDR)")
	}
	if c.RateLimitBackend != "memory" && c.RateLimitBackend != "redis" {
		return fmt.Errorf("unknown rate limit backend %q", c.RateLimitBackend)
	}
	return nil
}

// durationParser keeps the first parse failure so Load can report it once
type durationParser struct {
	err error
}

func (p *durationParser) parse(field, raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("invalid %s: %w", field, err)
		}
		return def
	}
	return d
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDefaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
