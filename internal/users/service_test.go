package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uconnect/api/internal/apperr"
	"uconnect/api/internal/memstore"
	"uconnect/api/internal/model"
)

func newService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return NewService(store), store
}

func mustCreate(t *testing.T, svc *Service, registration string, role model.Role) model.User {
	t.Helper()
	admin := model.User{ID: "bootstrap", Role: model.RoleAdmin}
	user, err := svc.Create(context.Background(), CreateInput{
		Registration: registration,
		Name:         "User " + registration,
		Email:        registration + "@campus.test",
		Password:     "secret-" + registration,
		Role:         role,
	}, &admin)
	require.NoError(t, err)
	return user
}

func TestCreateValidatesAndHashes(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateInput{
		Registration: " 2024001 ",
		Name:         "Ana",
		Email:        "ANA@Campus.test",
		Password:     "pw",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "2024001", user.Registration)
	assert.Equal(t, "ana@campus.test", user.Email)
	assert.Equal(t, model.RoleStudent, user.Role)
	assert.Equal(t, model.StatusActive, user.AccessStatus)
	assert.NotEqual(t, "pw", user.PasswordHash)

	_, err = svc.Create(ctx, CreateInput{Registration: "2024001", Name: "B", Email: "b@campus.test", Password: "pw"}, nil)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	_, err = svc.Create(ctx, CreateInput{Registration: "2024002", Name: "B", Email: "ana@campus.test", Password: "pw"}, nil)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	_, err = svc.Create(ctx, CreateInput{Registration: "2024003", Name: "B", Email: "not-an-email", Password: "pw"}, nil)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	_, err = svc.Create(ctx, CreateInput{Registration: "2024004", Name: "C", Email: "c@campus.test", Password: " pw "}, nil)
	assert.Equal(t, "invalid_password", apperr.From(err).Code)
}

func TestPublicRegistrationCannotClaimElevatedRoles(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Create(context.Background(), CreateInput{
		Registration: "x1", Name: "X", Email: "x1@campus.test", Password: "pw", Role: model.RoleAdmin,
	}, nil)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestRoleUpdateRejectsSelfAlteration(t *testing.T) {
	svc, _ := newService(t)
	for _, role := range []model.Role{model.RoleStudent, model.RoleTeacher, model.RoleCoordinator, model.RoleAdmin} {
		user := mustCreate(t, svc, "self-"+string(role), role)
		_, err := svc.UpdateRole(context.Background(), user, user.ID, model.RoleStudent)
		assert.True(t, apperr.Is(err, apperr.KindForbidden), "role %s", role)
	}
}

func TestCoordinatorCannotTouchAdminRole(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	coordinator := mustCreate(t, svc, "c1", model.RoleCoordinator)
	admin := mustCreate(t, svc, "a1", model.RoleAdmin)
	student := mustCreate(t, svc, "s1", model.RoleStudent)

	_, err := svc.UpdateRole(ctx, coordinator, admin.ID, model.RoleCoordinator)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = svc.UpdateRole(ctx, coordinator, student.ID, model.RoleCoordinator)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	updated, err := svc.UpdateRole(ctx, coordinator, student.ID, model.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, model.RoleTeacher, updated.Role)

	updated, err = svc.UpdateRole(ctx, admin, coordinator.ID, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, updated.Role)
}

func TestUpdateStatus(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	admin := mustCreate(t, svc, "a1", model.RoleAdmin)
	student := mustCreate(t, svc, "s1", model.RoleStudent)

	_, err := svc.UpdateStatus(ctx, admin, admin.ID, model.StatusInactive)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = svc.UpdateStatus(ctx, admin, student.ID, model.AccessStatus("gone"))
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	_, err = svc.UpdateStatus(ctx, admin, "missing", model.StatusInactive)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	updated, err := svc.UpdateStatus(ctx, admin, student.ID, model.StatusSuspended)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuspended, updated.AccessStatus)

	coordinator := mustCreate(t, svc, "c1", model.RoleCoordinator)
	peer := mustCreate(t, svc, "c2", model.RoleCoordinator)
	_, err = svc.UpdateStatus(ctx, coordinator, peer.ID, model.StatusInactive)
	assert.Equal(t, "insufficient_rank", apperr.From(err).Code)
	_, err = svc.UpdateStatus(ctx, coordinator, admin.ID, model.StatusInactive)
	assert.Equal(t, "insufficient_rank", apperr.From(err).Code)
	updated, err = svc.UpdateStatus(ctx, coordinator, student.ID, model.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, updated.AccessStatus)
}

func TestUpdateProfileKeepsUniqueness(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	first := mustCreate(t, svc, "u1", model.RoleStudent)
	second := mustCreate(t, svc, "u2", model.RoleStudent)

	taken := second.Email
	_, err := svc.UpdateProfile(ctx, first, ProfileInput{Email: &taken})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	own := first.Email
	name := "Renamed"
	updated, err := svc.UpdateProfile(ctx, first, ProfileInput{Name: &name, Email: &own})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, model.RoleStudent, updated.Role)
}

func TestChangePassword(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	user := mustCreate(t, svc, "p1", model.RoleStudent)

	err := svc.ChangePassword(ctx, user, "wrong", "next")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	err = svc.ChangePassword(ctx, user, "secret-p1", " next ")
	assert.Equal(t, "invalid_password", apperr.From(err).Code)

	require.NoError(t, svc.ChangePassword(ctx, user, "secret-p1", "next"))
	reloaded, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, user.PasswordHash, reloaded.PasswordHash)
}

func TestDeleteMissingUser(t *testing.T) {
	svc, _ := newService(t)
	err := svc.Delete(context.Background(), "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
