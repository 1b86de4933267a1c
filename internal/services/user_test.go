package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/netai/social-api/internal/models"
	"github.com/netai/social-api/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	_, err := env.users.Register(context.Background(), &RegisterRequest{
		Name:     "Other Alice",
		Username: "alice",
		Password: "secret",
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRegisterValidatesUsername(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.users.Register(context.Background(), &RegisterRequest{
		Name:     "Alice",
		Username: "al ice",
		Password: "secret",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	user, err := env.users.Login(ctx, &LoginRequest{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)

	_, err = env.users.Login(ctx, &LoginRequest{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = env.users.Login(ctx, &LoginRequest{Username: "nobody", Password: "secret"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestEditProfileThrottlesUsernameChanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	env.register(t, "bob")

	now := time.Now()
	env.users.now = func() time.Time { return now }

	user, err := env.users.EditProfile(ctx, alice.ID.String(), &EditProfileRequest{
		Username: strPtr("alice2"),
		Bio:      strPtr("hi there"),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice2", user.Username)
	assert.Equal(t, "hi there", user.Bio)

	_, err = env.users.EditProfile(ctx, alice.ID.String(), &EditProfileRequest{Username: strPtr("alice3")})
	assert.ErrorIs(t, err, ErrThrottled)

	// other fields stay editable while the username is locked
	user, err = env.users.EditProfile(ctx, alice.ID.String(), &EditProfileRequest{
		Username: strPtr("alice2"),
		Name:     strPtr("Alice A."),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", user.Name)

	now = now.Add(15 * 24 * time.Hour)

	_, err = env.users.EditProfile(ctx, alice.ID.String(), &EditProfileRequest{Username: strPtr("bob")})
	assert.ErrorIs(t, err, ErrConflict)

	user, err = env.users.EditProfile(ctx, alice.ID.String(), &EditProfileRequest{Username: strPtr("alice3")})
	require.NoError(t, err)
	assert.Equal(t, "alice3", user.Username)
}

func TestEditProfileIgnoresPaddedOwnUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	user, err := env.users.EditProfile(ctx, alice.ID.String(), &EditProfileRequest{
		Username: strPtr(" alice "),
		Bio:      strPtr("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "hello", user.Bio)
	assert.Nil(t, user.UsernameChangedAt)

	// 修改后在限制期内提交相同用户名也不算修改
	_, err = env.users.EditProfile(ctx, alice.ID.String(), &EditProfileRequest{Username: strPtr("alice2")})
	require.NoError(t, err)
	user, err = env.users.EditProfile(ctx, alice.ID.String(), &EditProfileRequest{
		Username: strPtr("alice2 "),
		Link:     strPtr("https://example.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice2", user.Username)
	assert.Equal(t, "https://example.com", user.Link)
}

func TestFollowThenUnfollow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "a")
	b := env.register(t, "b")

	env.follow(t, a, b)

	profile, err := env.users.GetProfileByID(ctx, b.ID.String())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID}, profile.Followers)

	following, err := env.store.Follows.FollowingIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID}, following)

	received := env.activitiesOf(t, b)
	require.Len(t, received, 1)
	assert.Equal(t, models.ActivityForYou, received[0].Type)
	assert.Equal(t, MessageFollowed, received[0].Message)
	assert.Equal(t, a.ID, received[0].AuthorID)
	assert.Equal(t, []uuid.UUID{received[0].ID}, profile.Activities)

	require.NoError(t, env.users.Unfollow(ctx, &FollowRequest{UserID: a.ID.String(), Username: "b"}))

	profile, err = env.users.GetProfileByID(ctx, b.ID.String())
	require.NoError(t, err)
	assert.Empty(t, profile.Followers)
	assert.Empty(t, profile.Activities)
	assert.Empty(t, env.allActivities(t))
}

func TestFollowIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	a := env.register(t, "a")
	b := env.register(t, "b")

	env.follow(t, a, b)
	env.follow(t, a, b)

	assert.Len(t, env.activitiesOf(t, b), 1)
}

func TestUnfollowWithoutFollowIsNoop(t *testing.T) {
	env := newTestEnv(t)
	a := env.register(t, "a")
	env.register(t, "b")

	err := env.users.Unfollow(context.Background(), &FollowRequest{UserID: a.ID.String(), Username: "b"})
	assert.NoError(t, err)
}

func TestUnfollowRetractsOnlyOwnFollowActivity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "a")
	b := env.register(t, "b")
	c := env.register(t, "c")

	env.follow(t, a, b)
	env.follow(t, c, b)

	require.NoError(t, env.users.Unfollow(ctx, &FollowRequest{UserID: c.ID.String(), Username: "b"}))

	received := env.activitiesOf(t, b)
	require.Len(t, received, 1)
	assert.Equal(t, a.ID, received[0].AuthorID)
}

func TestFollowSelfIsRejected(t *testing.T) {
	env := newTestEnv(t)
	a := env.register(t, "a")

	err := env.users.Follow(context.Background(), &FollowRequest{UserID: a.ID.String(), Username: "a"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFollowUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	a := env.register(t, "a")

	err := env.users.Follow(context.Background(), &FollowRequest{UserID: a.ID.String(), Username: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfileCacheIsInvalidatedOnFollow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "a")
	b := env.register(t, "b")

	_, err := env.users.GetProfileByID(ctx, b.ID.String())
	require.NoError(t, err)
	require.True(t, env.cache.has(ProfileCacheKey(b.ID.String())))

	env.follow(t, a, b)
	assert.False(t, env.cache.has(ProfileCacheKey(b.ID.String())))

	profile, err := env.users.GetProfileByID(ctx, b.ID.String())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID}, profile.Followers)

	assert.Contains(t, env.producer.types(), queue.EventFollowCreated)
}

func TestSuggestedSkipsFollowedUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	viewer := env.register(t, "viewer")
	var others []*models.User
	for _, name := range []string{"u1", "u2", "u3", "u4", "u5"} {
		others = append(others, env.register(t, name))
	}
	env.follow(t, viewer, others[4])

	suggested, err := env.users.Suggested(ctx, viewer.ID.String())
	require.NoError(t, err)
	require.Len(t, suggested, 4)

	names := make([]string, 0, len(suggested))
	for _, u := range suggested {
		names = append(names, u.Username)
	}
	assert.Equal(t, []string{"u4", "u3", "u2", "u1"}, names)
}

func TestSearchExcludesViewer(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	env.register(t, "alina")
	env.register(t, "bob")

	users, err := env.users.Search(context.Background(), "ALI", alice.ID.String())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alina", users[0].Username)
}

func TestDeleteUserRequiresSelf(t *testing.T) {
	env := newTestEnv(t)
	a := env.register(t, "a")
	b := env.register(t, "b")

	err := env.users.Delete(context.Background(), b.ID.String(), a.ID.String())
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.users.GetProfileByID(context.Background(), a.ID.String())
	assert.NoError(t, err)
}

func TestDeleteMissingUserIsNoop(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.NewString()

	assert.NoError(t, env.users.Delete(context.Background(), id, id))
}
