package authz

import (
	"strings"
	"testing"

	"github.com/kart-io/guardian/pkg/security/audit"
)

func TestMatchPermission(t *testing.T) {
	tests := []struct {
		perm     string
		resource string
		action   string
		want     bool
	}{
		{"USER:READ", "USER", "READ", true},
		{"USER:READ", "USER", "WRITE", false},
		{"USER:READ", "ROLE", "READ", false},
		{"USER:*", "USER", "DELETE", true},
		{"USER:*", "ROLE", "READ", false},
		{"*:READ", "ANYTHING", "READ", true},
		{"*:READ", "ANYTHING", "WRITE", false},
		{"*:*", "ANYTHING", "ANYACTION", true},
		{"admin.*:*", "admin.user", "READ", true},
		{"admin.*:*", "admin.role", "DELETE", true},
		{"admin.*:*", "user", "READ", false},
		{"admin.*:*", "admin", "READ", false},
		{"admin.*:READ", "admin.user", "READ", true},
		{"admin.*:READ", "admin.user", "WRITE", false},
		{"user:read", "USER", "READ", false}, // case-sensitive
		{"malformed", "malformed", "READ", false},
	}

	for _, tt := range tests {
		if got := Match(tt.perm, tt.resource, tt.action); got != tt.want {
			t.Errorf("Match(%q, %q, %q) = %v, want %v", tt.perm, tt.resource, tt.action, got, tt.want)
		}
	}
}

func newTestManager() (*Manager, *audit.Log) {
	log := audit.New()
	return NewManager(log), log
}

func TestAssignAndRevokeRole(t *testing.T) {
	m, _ := newTestManager()

	m.DefineRolePermissions("editor", []string{"DOC:WRITE"})
	m.AssignRole("alice", "editor", "admin")

	if got := m.GetUserRoles("alice"); len(got) != 1 || got[0] != "editor" {
		t.Fatalf("roles = %v, want [editor]", got)
	}

	res := m.CheckAuthorization("alice", "DOC", "WRITE", nil)
	if !res.Authorized {
		t.Fatalf("denied: %s", res.Message)
	}
	if res.GrantedBy != "editor" {
		t.Errorf("grantedBy = %s, want editor", res.GrantedBy)
	}
	if len(res.MatchedPermissions) != 1 || res.MatchedPermissions[0] != "DOC:WRITE" {
		t.Errorf("matched = %v, want [DOC:WRITE]", res.MatchedPermissions)
	}

	m.RevokeRole("alice", "editor", "admin")
	res = m.CheckAuthorization("alice", "DOC", "WRITE", nil)
	if res.Authorized {
		t.Fatal("authorized after revocation")
	}
	if !strings.Contains(res.Message, "roles") {
		t.Errorf("message %q does not mention roles", res.Message)
	}

	// Revoking an absent assignment is a no-op.
	m.RevokeRole("alice", "editor", "admin")
	m.RevokeRole("nobody", "editor", "admin")
}

func TestNoRolesDenied(t *testing.T) {
	m, _ := newTestManager()

	res := m.CheckAuthorization("stranger", "DOC", "READ", nil)
	if res.Authorized {
		t.Fatal("subject without roles authorized")
	}
	if !strings.Contains(res.Message, "roles") {
		t.Errorf("message %q does not mention roles", res.Message)
	}
}

func TestNoMatchingPermissionDenied(t *testing.T) {
	m, _ := newTestManager()

	m.DefineRolePermissions("viewer", []string{"DOC:READ"})
	m.AssignRole("alice", "viewer", "admin")

	res := m.CheckAuthorization("alice", "DOC", "DELETE", nil)
	if res.Authorized {
		t.Fatal("unexpected grant")
	}
	if !strings.Contains(res.Message, "permissions") {
		t.Errorf("message %q does not mention permissions", res.Message)
	}
}

func TestHierarchyInheritance(t *testing.T) {
	m, _ := newTestManager()

	m.DefineRolePermissions("reader", []string{"DOC:READ"})
	m.DefineRolePermissions("writer", []string{"DOC:WRITE"})
	m.DefineRolePermissions("admin", []string{"SYSTEM:MANAGE"})
	m.DefineRoleHierarchy("writer", []string{"reader"})
	m.DefineRoleHierarchy("admin", []string{"writer"})

	m.AssignRole("alice", "admin", "root")

	effective := m.GetUserRolesWithHierarchy("alice")
	for _, role := range []string{"admin", "writer", "reader"} {
		if _, ok := effective[role]; !ok {
			t.Errorf("effective roles missing %s: %v", role, effective)
		}
	}

	// Permission inherited through two hops.
	if res := m.CheckAuthorization("alice", "DOC", "READ", nil); !res.Authorized {
		t.Errorf("inherited permission denied: %s", res.Message)
	}
}

func TestHierarchyCycleTerminates(t *testing.T) {
	m, _ := newTestManager()

	m.DefineRolePermissions("a", []string{"X:READ"})
	m.DefineRoleHierarchy("a", []string{"b"})
	m.DefineRoleHierarchy("b", []string{"a"})

	m.AssignRole("alice", "a", "admin")

	effective := m.GetUserRolesWithHierarchy("alice")
	if len(effective) != 2 {
		t.Fatalf("effective roles = %v, want a and b", effective)
	}
	if res := m.CheckAuthorization("alice", "X", "READ", nil); !res.Authorized {
		t.Errorf("denied on cyclic hierarchy: %s", res.Message)
	}
}

func TestPolicyRequiredRolesSupersedePermissions(t *testing.T) {
	m, _ := newTestManager()

	m.DefineRolePermissions("r1", []string{"SECRET:READ"})
	m.AssignRole("alice", "r1", "admin")

	m.DefineResourcePolicy(ResourcePolicy{
		Resource:            "SECRET",
		RequiredRoles:       map[string]struct{}{"r2": {}},
		AllowInheritedRoles: true,
	})

	// Holding the exact permission string is not enough once a policy
	// requires a role the subject lacks.
	res := m.CheckAuthorization("alice", "SECRET", "READ", nil)
	if res.Authorized {
		t.Fatal("policy bypassed by permission match")
	}
	if !strings.Contains(res.Message, "required roles") {
		t.Errorf("message %q does not mention required roles", res.Message)
	}

	m.AssignRole("bob", "r2", "admin")
	res = m.CheckAuthorization("bob", "SECRET", "READ", nil)
	if !res.Authorized {
		t.Fatalf("required role holder denied: %s", res.Message)
	}
	if res.GrantedBy != "r2" {
		t.Errorf("grantedBy = %s, want r2", res.GrantedBy)
	}
}

func TestPolicyInheritedRolesFlag(t *testing.T) {
	m, _ := newTestManager()

	m.DefineRolePermissions("child", nil)
	m.DefineRoleHierarchy("child", []string{"parent"})
	m.AssignRole("alice", "child", "admin")

	policy := ResourcePolicy{
		Resource:      "VAULT",
		RequiredRoles: map[string]struct{}{"parent": {}},
	}

	policy.AllowInheritedRoles = false
	m.DefineResourcePolicy(policy)
	if res := m.CheckAuthorization("alice", "VAULT", "OPEN", nil); res.Authorized {
		t.Fatal("inherited role satisfied a direct-only policy")
	}

	policy.AllowInheritedRoles = true
	m.DefineResourcePolicy(policy)
	if res := m.CheckAuthorization("alice", "VAULT", "OPEN", nil); !res.Authorized {
		t.Fatalf("inherited role rejected: %s", res.Message)
	}
}

func TestPolicyConditions(t *testing.T) {
	m, _ := newTestManager()

	m.DefineRolePermissions("ops", []string{"DEPLOY:RUN"})
	m.AssignRole("alice", "ops", "admin")
	m.DefineResourcePolicy(ResourcePolicy{
		Resource:            "DEPLOY",
		RequiredRoles:       map[string]struct{}{"ops": {}},
		Conditions:          map[string]string{"environment": "staging"},
		AllowInheritedRoles: true,
	})

	res := m.CheckAuthorization("alice", "DEPLOY", "RUN", map[string]string{"environment": "production"})
	if res.Authorized {
		t.Fatal("condition mismatch authorized")
	}
	if !strings.Contains(res.Message, "condition not met") {
		t.Errorf("message %q does not mention condition", res.Message)
	}

	res = m.CheckAuthorization("alice", "DEPLOY", "RUN", map[string]string{"environment": "staging"})
	if !res.Authorized {
		t.Fatalf("matching condition denied: %s", res.Message)
	}

	// Missing context value also fails the condition.
	if res := m.CheckAuthorization("alice", "DEPLOY", "RUN", nil); res.Authorized {
		t.Fatal("missing condition value authorized")
	}
}

func TestPolicyRequiredPermissions(t *testing.T) {
	m, _ := newTestManager()

	m.DefineRolePermissions("viewer", []string{"REPORT:READ"})
	m.AssignRole("alice", "viewer", "admin")
	m.DefineResourcePolicy(ResourcePolicy{
		Resource:            "REPORT",
		RequiredPermissions: map[string]struct{}{"REPORT:EXPORT": {}},
		AllowInheritedRoles: true,
	})

	if res := m.CheckAuthorization("alice", "REPORT", "READ", nil); res.Authorized {
		t.Fatal("authorized without required permission")
	}

	m.DefineRolePermissions("exporter", []string{"REPORT:*"})
	m.AssignRole("bob", "exporter", "admin")
	if res := m.CheckAuthorization("bob", "REPORT", "READ", nil); !res.Authorized {
		t.Fatalf("wildcard holder denied: %s", res.Message)
	}
}

func TestEmptyPolicyGrants(t *testing.T) {
	m, _ := newTestManager()

	m.DefineRolePermissions("any", nil)
	m.AssignRole("alice", "any", "admin")
	m.DefineResourcePolicy(ResourcePolicy{Resource: "OPEN", AllowInheritedRoles: true})

	if res := m.CheckAuthorization("alice", "OPEN", "ENTER", nil); !res.Authorized {
		t.Fatalf("empty policy denied: %s", res.Message)
	}
}

func TestDecisionAuditing(t *testing.T) {
	m, log := newTestManager()

	m.DefineRolePermissions("viewer", []string{"DOC:READ"})
	m.AssignRole("alice", "viewer", "admin")

	m.CheckAuthorization("alice", "DOC", "READ", nil)
	m.CheckAuthorization("alice", "DOC", "DELETE", nil)

	if got := log.Search(audit.Filter{EventType: "AUTHORIZATION_GRANTED"}); len(got) != 1 {
		t.Errorf("granted events = %d, want 1", len(got))
	}
	if got := log.Search(audit.Filter{EventType: "AUTHORIZATION_DENIED"}); len(got) != 1 {
		t.Errorf("denied events = %d, want 1", len(got))
	}
	// The denial counts as a security violation.
	if got := log.Metrics().SecurityViolations; got != 1 {
		t.Errorf("security violations = %d, want 1", got)
	}
}

func TestAccessStatistics(t *testing.T) {
	m, _ := newTestManager()

	m.DefineRolePermissions("viewer", []string{"DOC:READ"})
	m.AssignRole("alice", "viewer", "admin")

	m.CheckAuthorization("alice", "DOC", "READ", nil)
	m.CheckAuthorization("alice", "DOC", "READ", nil)
	m.CheckAuthorization("alice", "DOC", "DELETE", nil)

	stats := m.GetAccessStatistics("alice")
	if stats.Total != 3 || stats.Granted != 2 || stats.Denied != 1 {
		t.Errorf("stats = %+v, want total 3 granted 2 denied 1", stats)
	}
	if stats.ByResource["DOC"] != 3 {
		t.Errorf("ByResource[DOC] = %d, want 3", stats.ByResource["DOC"])
	}

	history := m.AccessHistory("alice")
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	if !history[0].Authorized || history[2].Authorized {
		t.Error("history order not oldest first")
	}
}
