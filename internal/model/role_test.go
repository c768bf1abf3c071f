package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoleOrdering(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleCoordinator))
	assert.True(t, RoleCoordinator.AtLeast(RoleCoordinator))
	assert.False(t, RoleTeacher.AtLeast(RoleCoordinator))
	assert.False(t, Role("janitor").AtLeast(RoleStudent))
	assert.Less(t, RoleStudent.Rank(), RoleTeacher.Rank())
}

func TestRoleInIsExplicit(t *testing.T) {
	assert.False(t, RoleAdmin.In(RoleCoordinator))
	assert.True(t, RoleAdmin.In(RoleCoordinator, RoleAdmin))
}

func TestParseRoleAndStatus(t *testing.T) {
	role, ok := ParseRole(" Teacher ")
	assert.True(t, ok)
	assert.Equal(t, RoleTeacher, role)

	_, ok = ParseRole("root")
	assert.False(t, ok)

	status, ok := ParseAccessStatus("SUSPENDED")
	assert.True(t, ok)
	assert.Equal(t, StatusSuspended, status)
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	session := Session{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, session.Expired(now))
	assert.True(t, session.Expired(now.Add(2*time.Minute)))
}
