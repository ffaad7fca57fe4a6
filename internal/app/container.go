package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/config"
	"github.com/you/accountsvc/internal/infrastructure/audit"
	"github.com/you/accountsvc/internal/infrastructure/auth"
	"github.com/you/accountsvc/internal/infrastructure/database"
	"github.com/you/accountsvc/internal/infrastructure/notifications"
	"github.com/you/accountsvc/internal/infrastructure/repositories"
	"github.com/you/accountsvc/internal/metrics"
	"github.com/you/accountsvc/internal/ratelimit"
	"github.com/you/accountsvc/internal/services"
)

// Container holds all dependencies
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	// Infrastructure
	DB          *gorm.DB
	RedisClient *redis.Client
	Enforcer    *casbin.Enforcer
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics

	// Repositories and stores
	UserRepo      domain.UserRepository
	TokenRepo     domain.RefreshTokenRepository
	Tx            domain.Transactor
	OtpStore      domain.OtpStore
	Sessions      domain.OtpSessionStore
	PendingPhones domain.PendingPhoneChangeStore
	ResetTokens   domain.PasswordResetStore

	// Services
	PasswordSvc     domain.PasswordService
	TokenSvc        domain.TokenService
	SMSSender       domain.SMSSender
	AuditLogger     domain.AuditLogger
	Limiter         domain.RateLimiter
	OTPSvc          domain.OTPService
	RefreshTokenSvc domain.RefreshTokenService
	AuthSvc         domain.AuthService
	CleanupSvc      domain.AccountCleanupService
	PolicySvc       domain.PolicyService
}

// NewContainer creates and initializes all dependencies. DB and Redis may be
// preset by the caller, in which case they are used as is.
func NewContainer(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...Option) (*Container, error) {
	c := &Container{Config: cfg, Logger: log}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.initDatabase(); err != nil {
		return nil, err
	}
	if err := c.initRedis(ctx); err != nil {
		c.Close()
		return nil, err
	}
	c.initMetrics()
	c.initRepositories()
	if err := c.initServices(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Option customizes container construction
type Option func(*Container)

// WithDB reuses an open database instead of dialing cfg.DSN
func WithDB(db *gorm.DB) Option {
	return func(c *Container) { c.DB = db }
}

// WithRedis reuses a connected client instead of dialing cfg.RedisAddr
func WithRedis(client *redis.Client) Option {
	return func(c *Container) { c.RedisClient = client }
}

func (c *Container) initDatabase() error {
	if c.DB == nil {
		level := logger.Warn
		if c.Config.LogDebug {
			level = logger.Info
		}
		db, err := database.Open(c.Config.DSN, database.PoolOptions{
			MaxOpenConns:    c.Config.MaxOpenConns,
			MaxIdleConns:    c.Config.MaxIdleConns,
			ConnMaxLifetime: c.Config.ConnMaxLifetime,
		}, level)
		if err != nil {
			return err
		}
		c.DB = db
	}

	if err := database.AutoMigrate(c.DB); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

func (c *Container) initRedis(ctx context.Context) error {
	if c.RedisClient != nil {
		return nil
	}
	client, err := database.NewRedis(ctx, c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB)
	if err != nil {
		return err
	}
	c.RedisClient = client
	return nil
}

func (c *Container) initMetrics() {
	c.Registry = prometheus.NewRegistry()
	metrics.RegisterRuntime(c.Registry)
	c.Metrics = metrics.NewMetrics(c.Registry)
}

func (c *Container) initRepositories() {
	c.UserRepo = repositories.NewUserRepository(c.DB)
	c.TokenRepo = repositories.NewRefreshTokenRepository(c.DB)
	c.Tx = repositories.NewTransactor(c.DB)
	c.OtpStore = repositories.NewRedisOtpStore(c.RedisClient, c.Config.OTPMaxAttempts)
	c.Sessions = repositories.NewRedisOtpSessionStore(c.RedisClient)
	c.PendingPhones = repositories.NewRedisPendingPhoneStore(c.RedisClient)
	c.ResetTokens = repositories.NewRedisPasswordResetStore(c.RedisClient)
}

func (c *Container) initServices() error {
	cfg := c.Config

	c.PasswordSvc = auth.NewPasswordService(cfg.BcryptCost)
	c.TokenSvc = auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL)
	c.SMSSender = notifications.NewTwilioService(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioFrom, c.Logger)
	c.AuditLogger = audit.NewZapAuditLogger(c.Logger)

	limiter, err := c.newRateLimiter()
	if err != nil {
		return err
	}
	c.Limiter = limiter

	enforcer, err := auth.NewCasbinEnforcer(c.DB, cfg.CasbinModelPath)
	if err != nil {
		return err
	}
	c.Enforcer = enforcer
	c.PolicySvc = services.NewPolicyService(enforcer)
	if err := c.PolicySvc.EnsurePolicies(services.DefaultAccountPolicies); err != nil {
		return fmt.Errorf("failed to seed policies: %w", err)
	}

	clock := domain.SystemClock{}
	c.OTPSvc = services.NewOTPService(c.OtpStore, services.OTPConfig{TTL: cfg.OTPTTL})
	c.RefreshTokenSvc = services.NewRefreshTokenService(c.TokenRepo, c.Tx, clock,
		services.RefreshTokenConfig{TTL: cfg.RefreshTTL}, c.Metrics)

	c.AuthSvc = services.NewAuthService(services.AuthDeps{
		Users:         c.UserRepo,
		Tx:            c.Tx,
		Passwords:     c.PasswordSvc,
		Tokens:        c.TokenSvc,
		OTP:           c.OTPSvc,
		RefreshTokens: c.RefreshTokenSvc,
		Sessions:      c.Sessions,
		PendingPhones: c.PendingPhones,
		ResetTokens:   c.ResetTokens,
		Notifier:      services.NewSMSVerificationNotifier(c.OTPSvc, c.SMSSender, cfg.OTPTTL),
		Limiter:       c.Limiter,
		Audit:         c.AuditLogger,
		Clock:         clock,
		Logger:        c.Logger,
		Metrics:       c.Metrics,
	}, services.AuthConfig{
		OtpSessionTTL:    cfg.OTPSessionTTL,
		PendingPhoneTTL:  cfg.OTPTTL,
		PasswordResetTTL: cfg.PasswordResetTTL,
	})

	c.CleanupSvc = services.NewAccountCleanupService(c.UserRepo, c.TokenRepo, c.Tx, c.AuditLogger,
		clock, c.Logger, c.Metrics, services.CleanupConfig{
			PendingMaxAge:  cfg.CleanupPendingMaxAge,
			DisabledMaxAge: cfg.CleanupDisabledMaxAge,
			BatchSize:      cfg.CleanupBatchSize,
		})

	return nil
}

func (c *Container) newRateLimiter() (*ratelimit.Registry, error) {
	var backend ratelimit.Backend
	switch c.Config.RateLimitBackend {
	case "redis":
		backend = ratelimit.NewRedisBackend(c.RedisClient, "")
	default:
		backend = ratelimit.NewMemoryBackend(c.Config.RateLimitIdleTTL)
	}
	registry, err := ratelimit.NewRegistry(backend, c.Config.RateLimit, c.Logger, c.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to build rate limiter: %w", err)
	}
	return registry, nil
}

// Close closes all connections
func (c *Container) Close() error {
	var errs []error
	if c.RedisClient != nil {
		errs = append(errs, c.RedisClient.Close())
	}
	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
