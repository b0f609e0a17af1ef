package authz

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/guardian/pkg/security/audit"
)

// accessHistorySize bounds the per-subject rolling access window.
const accessHistorySize = 100

// AccessRecord is one entry in a subject's rolling access history.
type AccessRecord struct {
	Resource   string    `json:"resource"`
	Action     string    `json:"action"`
	Authorized bool      `json:"authorized"`
	Timestamp  time.Time `json:"timestamp"`
}

// AccessStatistics aggregates a subject's recent access history.
type AccessStatistics struct {
	Subject    string         `json:"subject"`
	Total      int            `json:"total"`
	Granted    int            `json:"granted"`
	Denied     int            `json:"denied"`
	ByResource map[string]int `json:"by_resource"`
}

// Manager owns the role graph, assignment table, resource policies and
// per-subject access history. All methods are safe for concurrent use.
type Manager struct {
	audit *audit.Log

	mu          sync.RWMutex
	roles       map[string]*Role
	assignments map[string]map[string]*Assignment
	policies    map[string]*ResourcePolicy
	history     map[string][]AccessRecord
}

// NewManager creates an authorization manager.
func NewManager(auditLog *audit.Log) *Manager {
	if auditLog == nil {
		auditLog = audit.New(audit.WithEnabled(false))
	}

	return &Manager{
		audit:       auditLog,
		roles:       make(map[string]*Role),
		assignments: make(map[string]map[string]*Assignment),
		policies:    make(map[string]*ResourcePolicy),
		history:     make(map[string][]AccessRecord),
	}
}

// DefineRolePermissions creates or replaces the permission set of a
// role. Idempotent upsert.
func (m *Manager) DefineRolePermissions(roleName string, permissions []string) {
	if roleName == "" {
		return
	}

	m.mu.Lock()
	role, ok := m.roles[roleName]
	if !ok {
		role = &Role{Name: roleName, Parents: make(map[string]struct{})}
		m.roles[roleName] = role
	}
	role.Permissions = toSet(permissions)
	m.mu.Unlock()

	m.audit.Record("ROLE_PERMISSIONS_DEFINED", "Role permissions defined", map[string]string{
		"role":        roleName,
		"permissions": strings.Join(permissions, ","),
		"success":     "true",
	})
}

// DefineRoleHierarchy sets the parent roles of childRole. Idempotent
// upsert; cycles are tolerated at evaluation time.
func (m *Manager) DefineRoleHierarchy(childRole string, parentRoles []string) {
	if childRole == "" {
		return
	}

	m.mu.Lock()
	role, ok := m.roles[childRole]
	if !ok {
		role = &Role{Name: childRole, Permissions: make(map[string]struct{})}
		m.roles[childRole] = role
	}
	role.Parents = toSet(parentRoles)
	m.mu.Unlock()

	m.audit.Record("ROLE_HIERARCHY_DEFINED", "Role hierarchy defined", map[string]string{
		"role":    childRole,
		"parents": strings.Join(parentRoles, ","),
		"success": "true",
	})
}

// AssignRole grants roleName to the subject. Idempotent upsert.
func (m *Manager) AssignRole(subject, roleName, grantedBy string) {
	if subject == "" || roleName == "" {
		return
	}

	m.mu.Lock()
	byRole, ok := m.assignments[subject]
	if !ok {
		byRole = make(map[string]*Assignment)
		m.assignments[subject] = byRole
	}
	byRole[roleName] = &Assignment{Role: roleName, GrantedBy: grantedBy, GrantedAt: time.Now()}
	m.mu.Unlock()

	m.audit.Record("ROLE_ASSIGNED", "Role assigned to user", map[string]string{
		"subject":    subject,
		"role":       roleName,
		"granted_by": grantedBy,
		"success":    "true",
	})
	logger.Infow("role assigned", "subject", subject, "role", roleName, "granted_by", grantedBy)
}

// RevokeRole removes the assignment. No-op when absent. Cached
// decisions are not touched; invalidation is the caller's step.
func (m *Manager) RevokeRole(subject, roleName, revokedBy string) {
	m.mu.Lock()
	byRole, ok := m.assignments[subject]
	if ok {
		_, ok = byRole[roleName]
		if ok {
			delete(byRole, roleName)
			if len(byRole) == 0 {
				delete(m.assignments, subject)
			}
		}
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	m.audit.Record("ROLE_REVOKED", "Role revoked from user", map[string]string{
		"subject":    subject,
		"role":       roleName,
		"revoked_by": revokedBy,
		"success":    "true",
	})
	logger.Infow("role revoked", "subject", subject, "role", roleName, "revoked_by", revokedBy)
}

// DefineResourcePolicy installs the authoritative policy for a
// resource, replacing any previous one.
func (m *Manager) DefineResourcePolicy(policy ResourcePolicy) {
	if policy.Resource == "" {
		return
	}

	m.mu.Lock()
	m.policies[policy.Resource] = &policy
	m.mu.Unlock()

	m.audit.Record("RESOURCE_POLICY_DEFINED", "Resource access policy defined", map[string]string{
		"resource": policy.Resource,
		"success":  "true",
	})
}

// GetUserRoles returns the subject's directly assigned role names.
func (m *Manager) GetUserRoles(subject string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.assignments[subject]))
	for role := range m.assignments[subject] {
		out = append(out, role)
	}
	sort.Strings(out)
	return out
}

// GetUserRolesWithHierarchy returns the subject's assigned roles
// unioned with every transitive parent. A visited set guarantees
// termination on cyclic hierarchies.
func (m *Manager) GetUserRolesWithHierarchy(subject string) map[string]struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.effectiveRolesLocked(subject)
}

func (m *Manager) effectiveRolesLocked(subject string) map[string]struct{} {
	visited := make(map[string]struct{})

	var stack []string
	for role := range m.assignments[subject] {
		stack = append(stack, role)
	}

	for len(stack) > 0 {
		role := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := visited[role]; seen {
			continue
		}
		visited[role] = struct{}{}

		if def, ok := m.roles[role]; ok {
			for parent := range def.Parents {
				stack = append(stack, parent)
			}
		}
	}

	return visited
}

// CheckAuthorization decides whether subject may perform action on
// resource. reqContext supplies values for policy conditions.
//
// Evaluation order: no roles denies first; a resource policy, when
// present, is the authoritative gate; otherwise held permissions are
// matched against "resource:action" including wildcards.
func (m *Manager) CheckAuthorization(subject, resource, action string, reqContext map[string]string) *Result {
	result := m.decide(subject, resource, action, reqContext)

	m.recordAccess(subject, resource, action, result.Authorized)

	eventType := "AUTHORIZATION_GRANTED"
	if !result.Authorized {
		eventType = "AUTHORIZATION_DENIED"
	}
	m.audit.RecordAuthorization(eventType, result.Message, subject, resource, action, result.Authorized, map[string]string{
		"granted_by": result.GrantedBy,
	})

	return result
}

func (m *Manager) decide(subject, resource, action string, reqContext map[string]string) *Result {
	m.mu.RLock()
	defer m.mu.RUnlock()

	effective := m.effectiveRolesLocked(subject)
	if len(effective) == 0 {
		return &Result{Message: "Access denied: user has no assigned roles"}
	}

	if policy, ok := m.policies[resource]; ok {
		return m.applyPolicyLocked(subject, policy, effective, action, reqContext)
	}

	// Plain permission matching across the hierarchy-expanded role set.
	roles := setToSlice(effective)
	sort.Strings(roles)
	for _, roleName := range roles {
		def, ok := m.roles[roleName]
		if !ok {
			continue
		}
		for perm := range def.Permissions {
			if Match(perm, resource, action) {
				return &Result{
					Authorized:         true,
					GrantedBy:          roleName,
					MatchedPermissions: []string{perm},
					Message:            "Access granted",
				}
			}
		}
	}

	return &Result{Message: fmt.Sprintf("Access denied: no matching permissions for %s:%s", resource, action)}
}

// applyPolicyLocked evaluates the resource policy gate. Caller holds at
// least the read lock.
func (m *Manager) applyPolicyLocked(subject string, policy *ResourcePolicy, effective map[string]struct{}, action string, reqContext map[string]string) *Result {
	roleSet := effective
	if !policy.AllowInheritedRoles {
		roleSet = make(map[string]struct{})
		for role := range m.assignments[subject] {
			roleSet[role] = struct{}{}
		}
	}

	grantedBy := "policy:" + policy.Resource
	if len(policy.RequiredRoles) > 0 {
		matched := ""
		for role := range policy.RequiredRoles {
			if _, ok := roleSet[role]; ok {
				matched = role
				break
			}
		}
		if matched == "" {
			return &Result{Message: "Access denied: required roles not held"}
		}
		grantedBy = matched
	}

	var matchedPerms []string
	if len(policy.RequiredPermissions) > 0 {
		for required := range policy.RequiredPermissions {
			reqRes, reqAct, ok := strings.Cut(required, ":")
			if !ok {
				reqRes, reqAct = required, action
			}
			for roleName := range effective {
				def, defined := m.roles[roleName]
				if !defined {
					continue
				}
				for perm := range def.Permissions {
					if Match(perm, reqRes, reqAct) {
						matchedPerms = append(matchedPerms, perm)
					}
				}
			}
		}
		if len(matchedPerms) == 0 {
			return &Result{Message: "Access denied: required permissions not held"}
		}
	}

	for key, expected := range policy.Conditions {
		if reqContext[key] != expected {
			return &Result{Message: fmt.Sprintf("Access denied: condition not met for %s", key)}
		}
	}

	return &Result{
		Authorized:         true,
		GrantedBy:          grantedBy,
		MatchedPermissions: matchedPerms,
		Message:            "Access granted by resource policy",
	}
}

// recordAccess appends to the subject's rolling access window.
func (m *Manager) recordAccess(subject, resource, action string, authorized bool) {
	if subject == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	window := append(m.history[subject], AccessRecord{
		Resource:   resource,
		Action:     action,
		Authorized: authorized,
		Timestamp:  time.Now(),
	})
	if overflow := len(window) - accessHistorySize; overflow > 0 {
		window = append(window[:0:0], window[overflow:]...)
	}
	m.history[subject] = window
}

// AccessHistory returns the subject's recent access records, oldest
// first.
func (m *Manager) AccessHistory(subject string) []AccessRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]AccessRecord, len(m.history[subject]))
	copy(out, m.history[subject])
	return out
}

// GetAccessStatistics aggregates the subject's recent access window.
func (m *Manager) GetAccessStatistics(subject string) AccessStatistics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := AccessStatistics{Subject: subject, ByResource: make(map[string]int)}
	for _, rec := range m.history[subject] {
		stats.Total++
		if rec.Authorized {
			stats.Granted++
		} else {
			stats.Denied++
		}
		stats.ByResource[rec.Resource]++
	}
	return stats
}
