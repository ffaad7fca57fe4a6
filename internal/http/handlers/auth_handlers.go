package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/http/middleware"
)

// CookieConfig controls the refresh token cookie
type CookieConfig struct {
	Name   string
	Path   string
	Secure bool
}

func (c CookieConfig) withDefaults() CookieConfig {
	if c.Name == "" {
		c.Name = "refresh_token"
	}
	if c.Path == "" {
		c.Path = "/auth"
	}
	return c
}

// AuthHandlers serves the unauthenticated /auth routes
type AuthHandlers struct {
	authSvc domain.AuthService
	cookie  CookieConfig
	log     *zap.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authSvc domain.AuthService, cookie CookieConfig, log *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		authSvc: authSvc,
		cookie:  cookie.withDefaults(),
		log:     log,
	}
}

// SignupRequest represents signup request
type SignupRequest struct {
	Username string `json:"username" binding:"required,username"`
	FullName string `json:"full_name" binding:"max=100"`
	Phone    string `json:"phone" binding:"required,e164"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// SessionRequest references an otp session
type SessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// VerifyRequest carries a code for an otp session
type VerifyRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Code      string `json:"code" binding:"required,otp"`
}

// LoginRequest represents login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest lets clients without cookies send the refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ForgotPasswordRequest represents forgot password request
type ForgotPasswordRequest struct {
	Phone string `json:"phone" binding:"required,e164"`
}

// ResetPasswordRequest represents reset password request
type ResetPasswordRequest struct {
	ResetToken  string `json:"reset_token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// Signup handles account creation
func (h *AuthHandlers) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.authSvc.Signup(c.Request.Context(), middleware.ClientContext(c), req.Username, req.FullName, req.Phone, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"message":    "Account created. Enter the code sent to your phone.",
			"user_id":    result.UserID,
			"session_id": result.SessionID,
		},
	})
}

// ResendCode answers the same way whether or not the session exists
func (h *AuthHandlers) ResendCode(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.authSvc.ResendCode(c.Request.Context(), middleware.ClientContext(c), req.SessionID); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"data": gin.H{"message": "If the session is valid a new code has been sent."},
	})
}

// Verify confirms a pending account and signs it in
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.authSvc.VerifyAccount(c.Request.Context(), middleware.ClientContext(c), req.SessionID, req.Code)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.respondSession(c, result)
}

// Login handles user login
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), middleware.ClientContext(c), req.Username, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.respondSession(c, result)
}

// Refresh rotates the refresh token from the cookie or body
func (h *AuthHandlers) Refresh(c *gin.Context) {
	result, err := h.authSvc.Refresh(c.Request.Context(), middleware.ClientContext(c), h.refreshToken(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.respondSession(c, result)
}

// Logout revokes the presented refresh token and clears the cookie
func (h *AuthHandlers) Logout(c *gin.Context) {
	if err := h.authSvc.Logout(c.Request.Context(), middleware.ClientContext(c), h.refreshToken(c)); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, "", -1, h.cookie.Path, "", h.cookie.Secure, true)
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"message": "Logged out successfully"},
	})
}

// ForgotPassword answers the same way whether or not the phone is known
func (h *AuthHandlers) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sessionID, err := h.authSvc.ForgotPassword(c.Request.Context(), middleware.ClientContext(c), req.Phone)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"data": gin.H{
			"message":    "If the phone belongs to an account a code has been sent.",
			"session_id": sessionID,
		},
	})
}

// VerifyResetOtp exchanges a code for a password reset token
func (h *AuthHandlers) VerifyResetOtp(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resetToken, err := h.authSvc.ValidatePasswordResetOtp(c.Request.Context(), middleware.ClientContext(c), req.SessionID, req.Code)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"reset_token": resetToken},
	})
}

// ResetPassword sets a new password using a reset token
func (h *AuthHandlers) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.authSvc.ResetPassword(c.Request.Context(), middleware.ClientContext(c), req.ResetToken, req.NewPassword); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"message": "Password has been reset. Please log in again."},
	})
}

// refreshToken prefers the cookie and falls back to a JSON body
func (h *AuthHandlers) refreshToken(c *gin.Context) string {
	if v, err := c.Cookie(h.cookie.Name); err == nil && v != "" {
		return v
	}
	var req RefreshRequest
	_ = c.ShouldBindJSON(&req)
	return req.RefreshToken
}

func (h *AuthHandlers) respondSession(c *gin.Context, result *domain.AuthResult) {
	maxAge := int(time.Until(result.RefreshExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, result.RefreshToken, maxAge, h.cookie.Path, "", h.cookie.Secure, true)

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"access_token": result.AccessToken,
			"token_type":   "Bearer",
			"expires_in":   int(time.Until(result.AccessExpiresAt).Seconds()),
			"user":         userView(result.User),
		},
	})
}

func userView(user *domain.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"full_name":  user.FullName,
		"phone":      user.Phone,
		"role":       user.Role,
		"status":     user.Status,
		"created_at": user.CreatedAt,
		"updated_at": user.UpdatedAt,
	}
}
