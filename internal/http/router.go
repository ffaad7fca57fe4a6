package httpx

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/you/accountsvc/internal/http/handlers"
	"github.com/you/accountsvc/internal/http/middleware"
)

// Routes groups what BuildRouter mounts
type Routes struct {
	Auth     *handlers.AuthHandlers
	Account  *handlers.AccountHandlers
	Policies *handlers.PolicyHandlers
	JWT      *middleware.AuthMW
	Casbin   *middleware.CasbinMW
	Metrics  http.Handler
	Logger   *zap.Logger
}

func BuildRouter(rt Routes) (*gin.Engine, error) {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := handlers.RegisterValidators(v); err != nil {
			return nil, fmt.Errorf("failed to register validators: %w", err)
		}
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Recovery(rt.Logger), middleware.Logger(rt.Logger))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	if rt.Metrics != nil {
		r.GET("/metrics", gin.WrapH(rt.Metrics))
	}

	auth := r.Group("/auth")
	auth.POST("/signup", rt.Auth.Signup)
	auth.POST("/signup/resend", rt.Auth.ResendCode)
	auth.POST("/verify", rt.Auth.Verify)
	auth.POST("/login", rt.Auth.Login)
	auth.POST("/logout", rt.Auth.Logout)
	auth.POST("/refresh", rt.Auth.Refresh)
	auth.POST("/password/forgot", rt.Auth.ForgotPassword)
	auth.POST("/password/verify-otp", rt.Auth.VerifyResetOtp)
	auth.POST("/password/reset", rt.Auth.ResetPassword)

	account := r.Group("/account").Use(rt.JWT.WithJWT(), rt.Casbin.Enforce())
	account.GET("/me", rt.Account.Me)
	account.PUT("/password", rt.Account.ChangePassword)
	account.POST("/phone", rt.Account.InitiatePhoneChange)
	account.POST("/phone/confirm", rt.Account.CompletePhoneChange)

	adm := r.Group("/admin").Use(rt.JWT.WithJWT(), rt.Casbin.Enforce())
	adm.GET("/policies", rt.Policies.List)

	return r, nil
}
