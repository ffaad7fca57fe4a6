package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/accountsvc/internal/config"
	httpx "github.com/you/accountsvc/internal/http"
	"github.com/you/accountsvc/internal/http/handlers"
	"github.com/you/accountsvc/internal/http/middleware"
	"github.com/you/accountsvc/internal/jobs"
	"github.com/you/accountsvc/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

// Router builds the HTTP engine over the container's services
func (c *Container) Router() (*gin.Engine, error) {
	return httpx.BuildRouter(httpx.Routes{
		Auth: handlers.NewAuthHandlers(c.AuthSvc, handlers.CookieConfig{
			Secure: c.Config.CookieSecure,
		}, c.Logger),
		Account:  handlers.NewAccountHandlers(c.AuthSvc, c.Logger),
		Policies: handlers.NewPolicyHandlers(c.PolicySvc),
		JWT:      middleware.NewAuthMW(c.TokenSvc),
		Casbin:   middleware.NewCasbinMW(c.PolicySvc, c.Logger),
		Metrics:  metrics.Handler(c.Registry),
		Logger:   c.Logger,
	})
}

// Run serves the API until ctx is cancelled, then drains in-flight requests
// and stops the cleanup sweeps.
func Run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	c, err := NewContainer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Warn("failed to close connections", zap.Error(err))
		}
	}()

	r, err := c.Router()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	cleanup := jobs.NewCleanupRunner(c.CleanupSvc, cfg.CleanupInterval, log)
	cleanup.Start(runCtx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		cancel()
		cleanup.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	err = srv.Shutdown(shutdownCtx)
	cancel()
	cleanup.Wait()
	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
