package services

import (
	"fmt"

	"github.com/you/accountsvc/domain"
)

// AdminRole may read the policy table
const AdminRole = "ROLE_ADMIN"

// DefaultAccountPolicies lets every account use its own /account routes
var DefaultAccountPolicies = []domain.PolicyRule{
	{Role: domain.DefaultRole, Resource: "/account/me", Action: "GET"},
	{Role: domain.DefaultRole, Resource: "/account/password", Action: "PUT"},
	{Role: domain.DefaultRole, Resource: "/account/phone", Action: "POST"},
	{Role: domain.DefaultRole, Resource: "/account/phone/confirm", Action: "POST"},
	{Role: AdminRole, Resource: "/admin/policies", Action: "GET"},
}

// PolicyServiceImpl implements domain.PolicyService using Casbin
type PolicyServiceImpl struct {
	enforcer domain.CasbinEnforcer
}

// NewPolicyService creates a new policy service. *casbin.Enforcer satisfies
// domain.CasbinEnforcer directly.
func NewPolicyService(enforcer domain.CasbinEnforcer) domain.PolicyService {
	return &PolicyServiceImpl{
		enforcer: enforcer,
	}
}

// EnsurePolicies implements domain.PolicyService. Rules that already exist
// are left as they are; storage is only written when something was added.
func (p *PolicyServiceImpl) EnsurePolicies(rules []domain.PolicyRule) error {
	added := false
	for _, r := range rules {
		ok, err := p.enforcer.AddPolicy(r.Role, r.Resource, r.Action)
		if err != nil {
			return fmt.Errorf("failed to add policy %s %s %s: %w", r.Role, r.Resource, r.Action, err)
		}
		added = added || ok
	}
	if !added {
		return nil
	}
	return p.enforcer.SavePolicy()
}

// CheckPermission implements domain.PolicyService
func (p *PolicyServiceImpl) CheckPermission(role, resource, action string) (bool, error) {
	return p.enforcer.Enforce(role, resource, action)
}

// GetPolicies implements domain.PolicyService
func (p *PolicyServiceImpl) GetPolicies() [][]string {
	policies, _ := p.enforcer.GetPolicy()
	return policies
}
