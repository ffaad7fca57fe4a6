package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/accountsvc/domain"
)

// PolicyHandlers exposes the route policy table to admins
type PolicyHandlers struct {
	policies domain.PolicyService
}

func NewPolicyHandlers(policies domain.PolicyService) *PolicyHandlers {
	return &PolicyHandlers{policies: policies}
}

func (h *PolicyHandlers) List(c *gin.Context) {
	rules := h.policies.GetPolicies()
	out := make([]gin.H, 0, len(rules))
	for _, r := range rules {
		if len(r) < 3 {
			continue
		}
		out = append(out, gin.H{"role": r[0], "resource": r[1], "action": r[2]})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}
