package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	guarderrors "github.com/kart-io/guardian/pkg/utils/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, "alice", "Str0ng!Pass")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.NotEqual(t, "Str0ng!Pass", created.Password, "password must be stored hashed")

	got, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = s.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, guarderrors.ErrUserNotFound)
}

func TestCreateUserValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "", "x")
	assert.Error(t, err)

	_, err = s.CreateUser(ctx, "alice", "")
	assert.Error(t, err)

	_, err = s.CreateUser(ctx, "alice", "Str0ng!Pass")
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "alice", "Other!Pass1")
	assert.Error(t, err, "duplicate username must be rejected")
}

func TestVerifyCredential(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "alice", "Str0ng!Pass")
	require.NoError(t, err)

	ok, err := s.Verify(ctx, "alice", "Str0ng!Pass")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Verify(ctx, "alice", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	// Unknown subject is a mismatch, not an error.
	ok, err = s.Verify(ctx, "nobody", "whatever")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdatePassword(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "alice", "Str0ng!Pass")
	require.NoError(t, err)

	require.NoError(t, s.UpdatePassword(ctx, "alice", "N3w!Password"))

	ok, err := s.Verify(ctx, "alice", "Str0ng!Pass")
	require.NoError(t, err)
	assert.False(t, ok, "old password must stop working")

	ok, err = s.Verify(ctx, "alice", "N3w!Password")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, s.UpdatePassword(ctx, "nobody", "x"), guarderrors.ErrUserNotFound)
}

func TestRoleAndPermissionBindings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "alice", "Str0ng!Pass")
	require.NoError(t, err)

	require.NoError(t, s.GrantRole(ctx, "alice", "editor", "admin"))
	require.NoError(t, s.GrantPermission(ctx, "editor", "DOC:WRITE"))

	ok, err := s.HasRole(ctx, "alice", "editor")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HasRole(ctx, "alice", "admin")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.HasPermission(ctx, "alice", "DOC:WRITE")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HasPermission(ctx, "alice", "DOC:DELETE")
	require.NoError(t, err)
	assert.False(t, ok)

	roles, err := s.SubjectRoles(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"editor"}, roles)

	// Grants are idempotent.
	require.NoError(t, s.GrantRole(ctx, "alice", "editor", "admin"))
	require.NoError(t, s.GrantPermission(ctx, "editor", "DOC:WRITE"))
	roles, err = s.SubjectRoles(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, roles, 1)
}

func TestHasPermissionWildcards(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "alice", "Str0ng!Pass")
	require.NoError(t, err)
	require.NoError(t, s.GrantRole(ctx, "alice", "editor", "admin"))
	require.NoError(t, s.GrantPermission(ctx, "editor", "DOC:*"))

	// An action wildcard held in the store grants any action on the
	// resource, matching the in-memory decision path.
	ok, err := s.HasPermission(ctx, "alice", "DOC:WRITE")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HasPermission(ctx, "alice", "DOC:READ")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HasPermission(ctx, "alice", "ROLE:READ")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.CreateUser(ctx, "root", "Str0ng!Pass")
	require.NoError(t, err)
	require.NoError(t, s.GrantRole(ctx, "root", "superuser", "admin"))
	require.NoError(t, s.GrantPermission(ctx, "superuser", "*:*"))

	ok, err = s.HasPermission(ctx, "root", "ANYTHING:DELETE")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.CreateUser(ctx, "carol", "Str0ng!Pass")
	require.NoError(t, err)
	require.NoError(t, s.GrantRole(ctx, "carol", "ops", "admin"))
	require.NoError(t, s.GrantPermission(ctx, "ops", "admin.*:*"))

	ok, err = s.HasPermission(ctx, "carol", "admin.user:READ")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.HasPermission(ctx, "carol", "user:READ")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGrantRoleUnknownUser(t *testing.T) {
	s := newTestStore(t)
	err := s.GrantRole(context.Background(), "nobody", "editor", "admin")
	assert.ErrorIs(t, err, guarderrors.ErrUserNotFound)
}
