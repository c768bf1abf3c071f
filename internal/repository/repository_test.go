package repository

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"uconnect/api/internal/db"
	"uconnect/api/internal/model"
)

var testStore *Store

// TestMain starts a throwaway Postgres only when INTEGRATION_TESTS=1.
func TestMain(m *testing.M) {
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		os.Exit(m.Run())
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("uconnect"),
		postgres.WithUsername("uconnect"),
		postgres.WithPassword("password"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Fatalf("failed to start container: %s", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable", "application_name=test")
	if err != nil {
		log.Fatalf("failed to get connection string: %v", err)
	}
	pool, err := db.NewPool(ctx, connStr)
	if err != nil {
		log.Fatalf("failed to open pool: %v", err)
	}
	if err := db.Migrate(ctx, pool, "up"); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}
	testStore = NewStore(pool)

	code := m.Run()

	pool.Close()
	if err := container.Terminate(ctx); err != nil {
		log.Printf("failed to terminate container: %s", err)
	}
	os.Exit(code)
}

func requireStore(t *testing.T) *Store {
	t.Helper()
	if testStore == nil {
		t.Skip("set INTEGRATION_TESTS=1 to run repository tests")
	}
	return testStore
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func seedUser(t *testing.T, store *Store, name string, role model.Role) model.User {
	t.Helper()
	id := uuid.NewString()
	user := model.User{
		ID:           id,
		Registration: "R-" + id[:8],
		Name:         name,
		Email:        id[:8] + "@example.local",
		PasswordHash: "hash",
		Role:         role,
		AccessStatus: model.StatusActive,
		CreatedAt:    now(),
		UpdatedAt:    now(),
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func TestUsers(t *testing.T) {
	store := requireStore(t)
	ctx := context.Background()

	user := seedUser(t, store, "Ana", model.RoleStudent)

	got, err := store.GetUserByRegistration(ctx, user.Registration)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	dup := user
	dup.ID = uuid.NewString()
	err = store.CreateUser(ctx, dup)
	assert.True(t, errors.Is(err, model.ErrConflict))

	_, err = store.GetUserByID(ctx, uuid.NewString())
	assert.True(t, errors.Is(err, model.ErrNotFound))

	name := "Ana Lima"
	status := model.StatusSuspended
	updated, err := store.UpdateUser(ctx, user.ID, model.UserPatch{Name: &name, AccessStatus: &status})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, model.StatusSuspended, updated.AccessStatus)

	found, err := store.GetUsersByIDs(ctx, []string{user.ID, uuid.NewString()})
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestSessions(t *testing.T) {
	store := requireStore(t)
	ctx := context.Background()
	user := seedUser(t, store, "Bruno", model.RoleStudent)

	live := model.Session{TokenKey: uuid.NewString(), UserID: user.ID, StartedAt: now(), ExpiresAt: now().Add(time.Hour)}
	stale := model.Session{TokenKey: uuid.NewString(), UserID: user.ID, StartedAt: now().Add(-2 * time.Hour), ExpiresAt: now().Add(-time.Hour)}
	require.NoError(t, store.CreateSession(ctx, live))
	require.NoError(t, store.CreateSession(ctx, stale))

	got, err := store.GetSession(ctx, live.TokenKey)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)

	removed, err := store.DeleteExpiredSessions(ctx, now())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, removed, int64(1))
	_, err = store.GetSession(ctx, stale.TokenKey)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	require.NoError(t, store.DeleteSession(ctx, live.TokenKey))
	require.NoError(t, store.DeleteSession(ctx, live.TokenKey))
}

func TestConversationThread(t *testing.T) {
	store := requireStore(t)
	ctx := context.Background()
	alice := seedUser(t, store, "Alice", model.RoleStudent)
	bob := seedUser(t, store, "Bob", model.RoleStudent)

	title := "Chat com Bob"
	conv := model.Conversation{ID: uuid.NewString(), Title: &title, Type: model.ConversationDirect, CreatedAt: now(), UpdatedAt: now()}
	thread, err := store.CreateConversation(ctx, conv, []string{alice.ID, bob.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, thread.SubchannelID)

	again, err := store.GetThread(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, thread, again)

	ok, err := store.IsParticipant(ctx, conv.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	authorID := alice.ID
	msg, err := store.AppendMessage(ctx, conv.ID, model.Message{ID: uuid.NewString(), Content: "Oi", AuthorID: &authorID, Timestamp: now().Add(time.Second)})
	require.NoError(t, err)
	assert.Equal(t, thread.SubchannelID, msg.SubchannelID)

	summaries, err := store.ListConversations(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "Oi", summaries[0].LastMessage.Content)
	assert.Len(t, summaries[0].Participants, 2)

	// The author's own messages stay unread.
	marked, err := store.MarkRead(ctx, conv.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), marked)
	marked, err = store.MarkRead(ctx, conv.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	messages, err := store.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.True(t, messages[0].IsRead)
	require.NotNil(t, messages[0].AuthorName)
	assert.Equal(t, "Alice", *messages[0].AuthorName)

	// Removing the author keeps the message with no author.
	_, err = store.AppendMessage(ctx, conv.ID, model.Message{ID: uuid.NewString(), Content: "Ainda ai?", AuthorID: &authorID, Timestamp: now().Add(2 * time.Second)})
	require.NoError(t, err)
	require.NoError(t, store.DeleteUser(ctx, alice.ID))
	messages, err = store.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	for _, m := range messages {
		assert.Nil(t, m.AuthorID)
		assert.Nil(t, m.AuthorName)
	}
	assert.False(t, messages[1].IsRead)
	marked, err = store.MarkRead(ctx, conv.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	require.NoError(t, store.DeleteConversation(ctx, conv.ID))
	_, err = store.GetThread(ctx, conv.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))
	err = store.DeleteConversation(ctx, conv.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestCampusTables(t *testing.T) {
	store := requireStore(t)
	ctx := context.Background()
	teacher := seedUser(t, store, "Tiago", model.RoleTeacher)

	group := model.AcademicGroup{ID: uuid.NewString(), Course: "Engenharia", ClassGroup: "ENG-" + uuid.NewString()[:6], Subject: "Cálculo"}
	require.NoError(t, store.CreateGroup(ctx, group))
	dup := group
	dup.ID = uuid.NewString()
	assert.True(t, errors.Is(store.CreateGroup(ctx, dup), model.ErrConflict))

	require.NoError(t, store.AddGroupMember(ctx, group.ID, teacher.ID))
	require.NoError(t, store.AddGroupMember(ctx, group.ID, teacher.ID))
	err := store.AddGroupMember(ctx, group.ID, uuid.NewString())
	assert.True(t, errors.Is(err, model.ErrNotFound))
	members, err := store.ListGroupMembers(ctx, group.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
	removed, err := store.RemoveGroupMember(ctx, group.ID, teacher.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = store.RemoveGroupMember(ctx, group.ID, teacher.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	for i, kind := range []model.PublicationKind{model.KindPost, model.KindPost, model.KindAnnouncement} {
		require.NoError(t, store.CreatePublication(ctx, model.Publication{
			ID: uuid.NewString(), Kind: kind, Title: "Aviso", Content: "Conteúdo",
			Date: now().Add(time.Duration(i) * time.Second), AuthorID: teacher.ID,
		}))
	}
	posts, err := store.CountPublications(ctx, model.KindPost)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, posts, int64(2))
	list, err := store.ListPublications(ctx, model.KindPost, model.Page{Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.False(t, list[0].Date.Before(list[1].Date))

	day := time.Date(2030, 3, 10, 0, 0, 0, 0, time.UTC)
	creatorID := teacher.ID
	event := model.Event{ID: uuid.NewString(), Title: "Prova", Timestamp: now(), EventDate: day, AcademicGroupID: &group.ID, CreatorID: &creatorID}
	require.NoError(t, store.CreateEvent(ctx, event))
	from, to := day.AddDate(0, 0, -1), day
	inRange, err := store.ListEvents(ctx, &from, &to, model.Page{})
	require.NoError(t, err)
	require.Len(t, inRange, 1)
	assert.True(t, inRange[0].EventDate.Equal(day))
	later := day.AddDate(0, 0, 1)
	outside, err := store.ListEvents(ctx, &later, nil, model.Page{})
	require.NoError(t, err)
	assert.Empty(t, outside)

	grant := model.AccessGrant{ID: uuid.NewString(), UserID: teacher.ID, Permission: "lab", CreatedAt: now()}
	require.NoError(t, store.CreateGrant(ctx, grant))
	has, err := store.HasPermission(ctx, teacher.ID, "lab")
	require.NoError(t, err)
	assert.True(t, has)
	orphan := model.AccessGrant{ID: uuid.NewString(), UserID: uuid.NewString(), Permission: "lab", CreatedAt: now()}
	assert.True(t, errors.Is(store.CreateGrant(ctx, orphan), model.ErrNotFound))

	// Deleting the user cascades to grants and memberships.
	require.NoError(t, store.DeleteUser(ctx, teacher.ID))
	has, err = store.HasPermission(ctx, teacher.ID, "lab")
	require.NoError(t, err)
	assert.False(t, has)
}
