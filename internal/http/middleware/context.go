package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/ratelimit"
)

// Keys set on the gin context by AuthMiddleware
const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
)

// UserID returns the authenticated caller, if any
func UserID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString(ContextUserID)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// ClientContext describes the caller for rate limiting and auditing
func ClientContext(c *gin.Context) domain.ClientContext {
	principal := c.GetString(ContextUserID)
	if principal == "" {
		principal = ratelimit.AnonymousPrincipal
	}
	return domain.ClientContext{
		IdentityKey: ratelimit.ResolveIdentity(principal, c.GetHeader("X-Forwarded-For"), c.Request.RemoteAddr),
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
	}
}
