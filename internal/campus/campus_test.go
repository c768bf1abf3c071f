package campus

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uconnect/api/internal/apperr"
	"uconnect/api/internal/memstore"
	"uconnect/api/internal/model"
)

func seedUser(t *testing.T, store *memstore.Store, name string, role model.Role) model.User {
	t.Helper()
	user := model.User{
		ID:           uuid.NewString(),
		Registration: name,
		Name:         name,
		Email:        name + "@campus.test",
		Role:         role,
		AccessStatus: model.StatusActive,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func ptr[T any](v T) *T { return &v }

func TestGroupLifecycle(t *testing.T) {
	store := memstore.New()
	groups := NewGroups(store)
	ctx := context.Background()
	student := seedUser(t, store, "ana", model.RoleStudent)

	_, err := groups.Create(ctx, GroupInput{Course: "CS", ClassGroup: " "})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	group, err := groups.Create(ctx, GroupInput{Course: "CS", ClassGroup: "CS-1A", Subject: "Algorithms"})
	require.NoError(t, err)

	_, err = groups.Create(ctx, GroupInput{Course: "EE", ClassGroup: "CS-1A"})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	withMember, err := groups.AddMember(ctx, group.ID, student.ID)
	require.NoError(t, err)
	require.Len(t, withMember.Members, 1)
	assert.Equal(t, student.ID, withMember.Members[0].ID)

	again, err := groups.AddMember(ctx, group.ID, student.ID)
	require.NoError(t, err)
	assert.Len(t, again.Members, 1)

	_, err = groups.AddMember(ctx, group.ID, uuid.NewString())
	assert.Equal(t, "user_not_found", apperr.From(err).Code)
	_, err = groups.AddMember(ctx, uuid.NewString(), student.ID)
	assert.Equal(t, "group_not_found", apperr.From(err).Code)

	require.NoError(t, groups.RemoveMember(ctx, group.ID, student.ID))
	require.NoError(t, groups.RemoveMember(ctx, group.ID, student.ID))
	err = groups.RemoveMember(ctx, uuid.NewString(), student.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	updated, err := groups.Update(ctx, group.ID, GroupPatchInput{Subject: ptr("Data Structures")})
	require.NoError(t, err)
	assert.Equal(t, "Data Structures", updated.Subject)
	assert.Equal(t, "CS-1A", updated.ClassGroup)

	_, err = groups.Update(ctx, group.ID, GroupPatchInput{Course: ptr("")})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	require.NoError(t, groups.Delete(ctx, group.ID))
	_, err = groups.Get(ctx, group.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestPublicationsPermissions(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	posts := NewPublications(store, model.KindPost)
	announcements := NewPublications(store, model.KindAnnouncement)
	author := seedUser(t, store, "teacher", model.RoleTeacher)
	other := seedUser(t, store, "other", model.RoleTeacher)
	coordinator := seedUser(t, store, "coord", model.RoleCoordinator)

	_, err := posts.Create(ctx, author, "Hi", "long enough")
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	post, err := posts.Create(ctx, author, "Exam dates", "Finals start in June")
	require.NoError(t, err)
	assert.Equal(t, model.KindPost, post.Kind)

	_, err = announcements.Get(ctx, post.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = posts.Update(ctx, other, post.ID, ptr("Changed"), nil)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	changed, err := posts.Update(ctx, coordinator, post.ID, ptr("Changed"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Changed", changed.Title)
	assert.Equal(t, "Finals start in June", changed.Content)

	_, err = posts.Update(ctx, author, post.ID, nil, ptr("no"))
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	total, err := posts.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	assert.True(t, apperr.Is(posts.Delete(ctx, other, post.ID), apperr.KindForbidden))
	require.NoError(t, posts.Delete(ctx, author, post.ID))
	assert.True(t, apperr.Is(posts.Delete(ctx, author, post.ID), apperr.KindNotFound))
}

func TestPublicationsListNewestFirst(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	posts := NewPublications(store, model.KindPost)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	posts.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	author := seedUser(t, store, "teacher", model.RoleTeacher)

	for _, title := range []string{"first", "second", "third"} {
		_, err := posts.Create(ctx, author, title, "content")
		require.NoError(t, err)
	}

	list, err := posts.List(ctx, model.Page{Skip: 0, Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "third", list[0].Title)
	assert.Equal(t, "second", list[1].Title)

	rest, err := posts.List(ctx, model.Page{Skip: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "first", rest[0].Title)
}

func TestEvents(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	events := NewEvents(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	today := time.Date(2025, 5, 10, 15, 0, 0, 0, time.UTC)
	events.now = func() time.Time { return today }

	creator := seedUser(t, store, "teacher", model.RoleTeacher)
	other := seedUser(t, store, "other", model.RoleCoordinator)
	admin := seedUser(t, store, "admin", model.RoleAdmin)

	_, err := events.Create(ctx, creator, EventInput{Title: "Fair", EventDate: today})
	assert.Equal(t, "invalid_date", apperr.From(err).Code)
	_, err = events.Create(ctx, creator, EventInput{Title: "  ", EventDate: today.AddDate(0, 0, 1)})
	assert.Equal(t, "invalid_title", apperr.From(err).Code)
	_, err = events.Create(ctx, creator, EventInput{Title: "Fair", EventDate: today.AddDate(0, 0, 1), StartTime: ptr("25:00")})
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	soon, err := events.Create(ctx, creator, EventInput{
		Title:           "Science fair",
		EventDate:       today.AddDate(0, 0, 2),
		StartTime:       ptr("09:30:00"),
		AcademicGroupID: ptr(uuid.NewString()),
	})
	require.NoError(t, err)
	assert.Nil(t, soon.AcademicGroupID)
	require.NotNil(t, soon.StartTime)
	assert.Equal(t, "09:30", *soon.StartTime)

	later, err := events.Create(ctx, creator, EventInput{Title: "Graduation", EventDate: today.AddDate(0, 1, 0)})
	require.NoError(t, err)

	upcoming, err := events.Upcoming(ctx, 7, model.Page{})
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, soon.ID, upcoming[0].ID)

	all, err := events.List(ctx, model.Page{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, later.ID, all[1].ID)

	_, err = events.Update(ctx, other, soon.ID, EventPatchInput{Title: ptr("Mine now")})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	renamed, err := events.Update(ctx, admin, soon.ID, EventPatchInput{Title: ptr("Open science fair")})
	require.NoError(t, err)
	assert.Equal(t, "Open science fair", renamed.Title)

	require.NoError(t, events.Delete(ctx, creator, later.ID))
	_, err = events.Get(ctx, later.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestEventKeepsExistingGroup(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	events := NewEvents(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	creator := seedUser(t, store, "teacher", model.RoleTeacher)
	group, err := NewGroups(store).Create(ctx, GroupInput{Course: "CS", ClassGroup: "CS-2B"})
	require.NoError(t, err)

	event, err := events.Create(ctx, creator, EventInput{
		Title:           "Lab day",
		EventDate:       time.Now().AddDate(0, 0, 3),
		AcademicGroupID: &group.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, event.AcademicGroupID)
	assert.Equal(t, group.ID, *event.AcademicGroupID)
}

func TestAccessGrants(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	access := NewAccess(store)
	user := seedUser(t, store, "ana", model.RoleStudent)

	_, err := access.Grant(ctx, uuid.NewString(), "library")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = access.Grant(ctx, user.ID, " ")
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))

	grant, err := access.Grant(ctx, user.ID, "library")
	require.NoError(t, err)

	ok, err := access.Check(ctx, user.ID, "library")
	require.NoError(t, err)
	assert.True(t, ok)

	updated, err := access.Update(ctx, grant.ID, "lab")
	require.NoError(t, err)
	assert.Equal(t, "lab", updated.Permission)

	ok, err = access.Check(ctx, user.ID, "library")
	require.NoError(t, err)
	assert.False(t, ok)

	mine, err := access.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	all, err := access.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, access.Revoke(ctx, grant.ID))
	assert.True(t, apperr.Is(access.Revoke(ctx, grant.ID), apperr.KindNotFound))
}

// uuidColumnStore rejects malformed user ids the way the grants table does.
type uuidColumnStore struct {
	*memstore.Store
}

func (s uuidColumnStore) CreateGrant(ctx context.Context, grant model.AccessGrant) error {
	if _, err := uuid.Parse(grant.UserID); err != nil {
		return errors.New("invalid input syntax for type uuid")
	}
	return s.Store.CreateGrant(ctx, grant)
}

func TestGrantMalformedUserID(t *testing.T) {
	store := uuidColumnStore{Store: memstore.New()}
	access := NewAccess(store)
	ctx := context.Background()

	_, err := access.Grant(ctx, "not-a-uuid", "library")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, "user_not_found", apperr.From(err).Code)

	all, err := access.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
