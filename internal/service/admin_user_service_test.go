package service

import (
	"context"
	"strings"
	"testing"

	"github.com/modulrent/site-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminUserFixture(t *testing.T) (*AdminUserService, *authFixture) {
	t.Helper()
	f := newAuthFixture(t)
	return NewAdminUserService(f.admins, f.auth, zerolog.Nop()), f
}

func TestSetupOnlyWhileNoAdminExists(t *testing.T) {
	svc, f := newAdminUserFixture(t)
	ctx := context.Background()

	_, err := svc.Setup(ctx, "root@b.com", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	admin, err := svc.Setup(ctx, "Root@B.com", "long-enough-password")
	require.NoError(t, err)
	assert.Equal(t, "root@b.com", admin.Email)
	assert.Equal(t, model.RoleSuperAdmin, admin.Role)
	assert.True(t, admin.IsActive)
	assert.NotEqual(t, "long-enough-password", admin.PasswordHash)

	_, err = svc.Setup(ctx, "second@b.com", "long-enough-password")
	assert.ErrorIs(t, err, ErrSetupClosed)

	res, err := f.auth.Login(ctx, "root@b.com", "long-enough-password", SessionMeta{})
	require.NoError(t, err)
	assert.Equal(t, model.RoleSuperAdmin, res.User.Role)
}

func TestCreateRespectsRoleCeiling(t *testing.T) {
	svc, f := newAdminUserFixture(t)
	ctx := context.Background()
	admin := f.addAdmin(t, "admin@b.com", "password123", model.RoleAdmin, true)
	editor := f.addAdmin(t, "editor@b.com", "password123", model.RoleEditor, true)

	_, err := svc.Create(ctx, admin.Principal(), "boss@b.com", "password123", model.RoleSuperAdmin)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Create(ctx, editor.Principal(), "viewer@b.com", "password123", model.RoleViewer)
	assert.ErrorIs(t, err, ErrForbidden)

	created, err := svc.Create(ctx, admin.Principal(), "New@B.com", "password123", model.RoleEditor)
	require.NoError(t, err)
	assert.Equal(t, "new@b.com", created.Email)
	assert.Equal(t, model.RoleEditor, created.Role)

	_, err = svc.Create(ctx, admin.Principal(), "new@b.com", "password123", model.RoleEditor)
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Create(ctx, admin.Principal(), "x@b.com", "password123", model.Role("owner"))
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.Create(ctx, admin.Principal(), "y@b.com", "short", model.RoleViewer)
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestChangeRole(t *testing.T) {
	svc, f := newAdminUserFixture(t)
	ctx := context.Background()
	root := f.addAdmin(t, "root@b.com", "password123", model.RoleSuperAdmin, true)
	admin := f.addAdmin(t, "admin@b.com", "password123", model.RoleAdmin, true)
	viewer := f.addAdmin(t, "viewer@b.com", "password123", model.RoleViewer, true)

	_, err := svc.ChangeRole(ctx, admin.Principal(), admin.ID, model.RoleSuperAdmin)
	assert.ErrorIs(t, err, ErrSelfAdminChange)

	_, err = svc.ChangeRole(ctx, admin.Principal(), root.ID, model.RoleViewer)
	assert.ErrorIs(t, err, ErrForbidden, "an admin cannot demote a super admin")

	_, err = svc.ChangeRole(ctx, admin.Principal(), viewer.ID, model.RoleSuperAdmin)
	assert.ErrorIs(t, err, ErrForbidden, "an admin cannot promote above themselves")

	updated, err := svc.ChangeRole(ctx, admin.Principal(), viewer.ID, model.RoleEditor)
	require.NoError(t, err)
	assert.Equal(t, model.RoleEditor, updated.Role)

	_, err = svc.ChangeRole(ctx, root.Principal(), "not-a-uuid", model.RoleEditor)
	assert.ErrorIs(t, err, ErrAdminNotFound)
}

func TestSetActiveCutsOffSessions(t *testing.T) {
	svc, f := newAdminUserFixture(t)
	ctx := context.Background()
	root := f.addAdmin(t, "root@b.com", "password123", model.RoleSuperAdmin, true)
	f.addAdmin(t, "editor@b.com", "password123", model.RoleEditor, true)

	res, err := f.auth.Login(ctx, "editor@b.com", "password123", SessionMeta{})
	require.NoError(t, err)

	_, err = svc.SetActive(ctx, root.Principal(), root.ID, false)
	assert.ErrorIs(t, err, ErrSelfAdminChange)

	updated, err := svc.SetActive(ctx, root.Principal(), res.User.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	_, err = f.auth.Verify(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.auth.Login(ctx, "editor@b.com", "password123", SessionMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SetActive(ctx, root.Principal(), res.User.ID, true)
	require.NoError(t, err)
	_, err = f.auth.Login(ctx, "editor@b.com", "password123", SessionMeta{})
	assert.NoError(t, err)
}

func TestRevokeSessions(t *testing.T) {
	svc, f := newAdminUserFixture(t)
	ctx := context.Background()
	root := f.addAdmin(t, "root@b.com", "password123", model.RoleSuperAdmin, true)
	editor := f.addAdmin(t, "editor@b.com", "password123", model.RoleEditor, true)

	for i := 0; i < 3; i++ {
		_, err := f.auth.Login(ctx, "editor@b.com", "password123", SessionMeta{})
		require.NoError(t, err)
	}
	own, err := f.auth.Login(ctx, "root@b.com", "password123", SessionMeta{})
	require.NoError(t, err)

	n, err := svc.RevokeSessions(ctx, root.Principal(), editor.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	_, err = f.auth.Verify(ctx, own.Token)
	assert.NoError(t, err, "revoking another admin leaves the actor's session alone")

	n, err = svc.RevokeSessions(ctx, root.Principal(), root.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	svc, f := newAdminUserFixture(t)
	ctx := context.Background()
	f.addAdmin(t, "a@b.com", "password123", model.RoleAdmin, true)

	res, err := f.auth.Login(ctx, "a@b.com", "password123", SessionMeta{})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, res.User, "wrong-password", "new-password-1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = svc.ChangePassword(ctx, res.User, "password123", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	require.NoError(t, svc.ChangePassword(ctx, res.User, "password123", "new-password-1"))

	_, err = f.auth.Verify(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.auth.Login(ctx, "a@b.com", "password123", SessionMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, "a@b.com", "new-password-1", SessionMeta{})
	assert.NoError(t, err)
}

func TestPasswordLongerThanBcryptLimit(t *testing.T) {
	svc, f := newAdminUserFixture(t)
	ctx := context.Background()
	admin := f.addAdmin(t, "a@b.com", "password123", model.RoleAdmin, true)
	tooLong := strings.Repeat("x", MaxPasswordLength+1)

	_, err := svc.Setup(ctx, "root@b.com", tooLong)
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = svc.Create(ctx, admin.Principal(), "new@b.com", tooLong, model.RoleViewer)
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	// 40 two-byte runes: within the rune count, over the byte limit.
	err = svc.ChangePassword(ctx, admin.Principal(), "password123", strings.Repeat("é", 40))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	atLimit := strings.Repeat("x", MaxPasswordLength)
	require.NoError(t, svc.ChangePassword(ctx, admin.Principal(), "password123", atLimit))
	_, err = f.auth.Login(ctx, "a@b.com", atLimit, SessionMeta{})
	assert.NoError(t, err)
}

func TestOperatorActionsByEmail(t *testing.T) {
	svc, f := newAdminUserFixture(t)
	ctx := context.Background()
	f.addAdmin(t, "a@b.com", "password123", model.RoleSuperAdmin, true)

	res, err := f.auth.Login(ctx, "a@b.com", "password123", SessionMeta{})
	require.NoError(t, err)

	n, err := svc.RevokeSessionsByEmail(ctx, " A@b.com ")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = f.auth.Verify(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	admin, err := svc.SetActiveByEmail(ctx, "a@b.com", false)
	require.NoError(t, err)
	assert.False(t, admin.IsActive)
	_, err = f.auth.Login(ctx, "a@b.com", "password123", SessionMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SetActiveByEmail(ctx, "a@b.com", true)
	require.NoError(t, err)
	_, err = f.auth.Login(ctx, "a@b.com", "password123", SessionMeta{})
	assert.NoError(t, err)

	_, err = svc.SetActiveByEmail(ctx, "nobody@b.com", true)
	assert.ErrorIs(t, err, ErrAdminNotFound)
}
