// Package authz implements role-based authorization with role
// hierarchy, wildcard permissions and per-resource access policies.
//
// Permissions are "RESOURCE:ACTION" strings. A role's effective
// permission set is the union of its own permissions and those of every
// transitive parent role.
package authz

import (
	"strings"
	"time"
)

// Role is a named set of permissions plus optional parent roles.
type Role struct {
	Name        string
	Permissions map[string]struct{}
	Parents     map[string]struct{}
}

// Assignment records who granted a role to a subject, and when.
type Assignment struct {
	Role      string
	GrantedBy string
	GrantedAt time.Time
}

// ResourcePolicy is the authoritative gate for one resource. When a
// policy exists it supersedes plain permission matching.
type ResourcePolicy struct {
	// Resource the policy applies to. At most one policy per resource.
	Resource string

	// RequiredRoles the subject must intersect with, when non-empty.
	RequiredRoles map[string]struct{}

	// RequiredPermissions the subject must satisfy at least one of,
	// when non-empty. Wildcard matching applies.
	RequiredPermissions map[string]struct{}

	// Conditions are key/value pairs that must equal the values the
	// caller supplies in the request context.
	Conditions map[string]string

	// AllowInheritedRoles controls whether hierarchy-expanded roles
	// satisfy RequiredRoles, or only direct assignments do.
	AllowInheritedRoles bool
}

// Result is an authorization decision.
type Result struct {
	Authorized         bool
	GrantedBy          string
	MatchedPermissions []string
	Message            string
}

// Match reports whether the held permission string p grants the
// requested (resource, action) pair. Matching is case-sensitive and
// covers exact equality, action wildcards ("USER:*"), resource
// wildcards ("*:READ"), the global grant ("*:*") and resource-prefix
// wildcards ("admin.*" matching "admin.user").
func Match(p, resource, action string) bool {
	if p == resource+":"+action || p == "*:*" {
		return true
	}

	pRes, pAct, ok := strings.Cut(p, ":")
	if !ok {
		return false
	}

	actionOK := pAct == "*" || pAct == action
	if !actionOK {
		if pRes != "*" {
			return false
		}
	}

	switch {
	case pRes == resource:
		return actionOK
	case pRes == "*":
		return pAct == action || pAct == "*"
	case strings.HasSuffix(pRes, ".*"):
		// Prefix wildcard: "admin.*" grants "admin.user" but not "user".
		return actionOK && strings.HasPrefix(resource, pRes[:len(pRes)-1])
	default:
		return false
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}
