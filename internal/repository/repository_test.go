package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/netai/social-api/internal/config"
	"github.com/netai/social-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()

	db, err := NewDatabase(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { db.Close() })

	return NewStore(db.DB, opts...)
}

func createUser(t *testing.T, s *Store, username string) *models.User {
	t.Helper()
	user := &models.User{Name: username, Username: username, Password: "x"}
	require.NoError(t, s.Users.Create(context.Background(), user))
	return user
}

func TestFollowCreateReportsNewEdges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := createUser(t, s, "a")
	b := createUser(t, s, "b")

	created, err := s.Follows.Create(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Follows.Create(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, created)

	followers, err := s.Follows.FollowerIDs(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID}, followers)

	removed, err := s.Follows.Delete(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Follows.Delete(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestUserLookups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")

	got, err := s.Users.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)

	ids, err := s.Users.IDsByUsernames(ctx, []string{"alice", "bob", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, map[string]uuid.UUID{"alice": alice.ID, "bob": bob.ID}, ids)

	ids, err = s.Users.IDsByUsernames(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestUserSearchTreatsWildcardsLiterally(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createUser(t, s, "axb")
	underscored := createUser(t, s, "a_b")
	createUser(t, s, "percent")

	users, err := s.Users.Search(ctx, "a_b", nil)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, underscored.ID, users[0].ID)

	users, err = s.Users.Search(ctx, "%", nil)
	require.NoError(t, err)
	assert.Empty(t, users)

	users, err = s.Users.Search(ctx, `\`, nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func newActivity(author uuid.UUID, message string, owners ...uuid.UUID) *models.Activity {
	a := &models.Activity{
		Type:     models.ActivityForYou,
		Message:  message,
		AuthorID: author,
	}
	for _, o := range owners {
		a.Owners = append(a.Owners, models.ActivityOwner{UserID: o})
	}
	return a
}

func TestActivityFindFirstOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	author := uuid.New()
	owner := uuid.New()

	first := newActivity(author, "followed you", owner)
	require.NoError(t, s.Activities.Create(ctx, first))
	second := newActivity(author, "followed you", owner)
	require.NoError(t, s.Activities.Create(ctx, second))

	got, err := s.Activities.FindFirst(ctx, ActivityQuery{AuthorID: &author, OwnerID: &owner, Message: "followed you"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, []uuid.UUID{owner}, got.OwnerIDs())

	got, err = s.Activities.FindFirst(ctx, ActivityQuery{Message: "liked your post"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestActivityQueryByRef(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	author := uuid.New()
	postID := uuid.New()

	liked := newActivity(author, "liked your post", uuid.New())
	liked.SetContext(models.PostRef(postID))
	require.NoError(t, s.Activities.Create(ctx, liked))

	other := newActivity(author, "liked your post", uuid.New())
	other.SetContext(models.PostRef(uuid.New()))
	require.NoError(t, s.Activities.Create(ctx, other))

	found, err := s.Activities.Find(ctx, ActivityQuery{Ref: models.PostRef(postID)})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, liked.ID, found[0].ID)
	assert.Equal(t, models.PostRef(postID), found[0].Context())
	assert.True(t, found[0].Content().IsZero())

	touching, err := s.Activities.FindTouching(ctx, []uuid.UUID{postID})
	require.NoError(t, err)
	assert.Len(t, touching, 1)
}

func TestActivityDeleteByIDsIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := uuid.New()
	activity := newActivity(uuid.New(), "followed you", owner)
	require.NoError(t, s.Activities.Create(ctx, activity))

	require.NoError(t, s.Activities.DeleteByIDs(ctx, []uuid.UUID{activity.ID}))
	require.NoError(t, s.Activities.DeleteByIDs(ctx, []uuid.UUID{activity.ID}))
	require.NoError(t, s.Activities.DeleteByIDs(ctx, nil))

	ids, err := s.Activities.IDsForOwner(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestActivityRemoveOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	activity := newActivity(uuid.New(), "Mentioned you in a post", a, b)
	require.NoError(t, s.Activities.Create(ctx, activity))

	require.NoError(t, s.Activities.RemoveOwner(ctx, []uuid.UUID{activity.ID}, a))

	got, err := s.Activities.GetByID(ctx, activity.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []uuid.UUID{b}, got.OwnerIDs())
}

func TestPostListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")

	text := &models.Post{UserID: alice.ID, Caption: "text"}
	require.NoError(t, s.Posts.Create(ctx, text))
	image := &models.Post{UserID: alice.ID, Image: models.Image{Src: "a.png"}}
	require.NoError(t, s.Posts.Create(ctx, image))
	_, err := s.Likes.Create(ctx, bob.ID, text.ID)
	require.NoError(t, err)

	hasImage := true
	posts, err := s.Posts.List(ctx, PostFilter{OwnerID: &alice.ID, HasImage: &hasImage}, 0, 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, image.ID, posts[0].ID)
	require.NotNil(t, posts[0].User)
	assert.Equal(t, "alice", posts[0].User.Username)

	posts, err = s.Posts.List(ctx, PostFilter{LikedBy: &bob.ID}, 0, 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, text.ID, posts[0].ID)

	posts, err = s.Posts.List(ctx, PostFilter{ExcludeOwnerID: &alice.ID}, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestTransactionRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx *Store) error {
		if err := tx.Users.Create(ctx, &models.User{Name: "x", Username: "x", Password: "x"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	user, err := s.Users.GetByUsername(ctx, "x")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestTransactionRetriesSerializationFailures(t *testing.T) {
	s := newTestStore(t, WithMaxRetries(2))
	ctx := context.Background()

	attempts := 0
	err := s.Transaction(ctx, func(tx *Store) error {
		attempts++
		return &pgconn.PgError{Code: "40001"}
	})
	assert.ErrorIs(t, err, ErrTxConflict)
	assert.Equal(t, 3, attempts)

	attempts = 0
	err = s.Transaction(ctx, func(tx *Store) error {
		attempts++
		if attempts < 2 {
			return &pgconn.PgError{Code: "40P01"}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
}
