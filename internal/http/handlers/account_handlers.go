package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/http/middleware"
)

// AccountHandlers serves the authenticated /account routes
type AccountHandlers struct {
	authSvc domain.AuthService
	log     *zap.Logger
}

// NewAccountHandlers creates new account handlers
func NewAccountHandlers(authSvc domain.AuthService, log *zap.Logger) *AccountHandlers {
	return &AccountHandlers{authSvc: authSvc, log: log}
}

// ChangePasswordRequest represents change password request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

// PhoneChangeRequest represents phone change request
type PhoneChangeRequest struct {
	Phone string `json:"phone" binding:"required,e164"`
}

// PhoneConfirmRequest represents phone change confirmation
type PhoneConfirmRequest struct {
	Code string `json:"code" binding:"required,otp"`
}

// Me returns the caller's profile
func (h *AccountHandlers) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return
	}

	user, err := h.authSvc.GetUserProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": userView(user)})
}

// ChangePassword handles authenticated password change
func (h *AccountHandlers) ChangePassword(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.authSvc.ChangePassword(c.Request.Context(), middleware.ClientContext(c), userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Password changed"}})
}

// InitiatePhoneChange sends a code to the requested phone
func (h *AccountHandlers) InitiatePhoneChange(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return
	}
	var req PhoneChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.authSvc.InitiatePhoneChange(c.Request.Context(), middleware.ClientContext(c), userID, req.Phone); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"data": gin.H{"message": "A code has been sent to the new phone."}})
}

// CompletePhoneChange applies the pending phone once the code matches
func (h *AccountHandlers) CompletePhoneChange(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return
	}
	var req PhoneConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.authSvc.CompletePhoneChange(c.Request.Context(), middleware.ClientContext(c), userID, req.Code); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Phone number updated"}})
}
