package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/netai/social-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePostWithMention(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.register(t, "A")
	b := env.register(t, "B")

	post := env.post(t, a, "hi @B")

	received := env.activitiesOf(t, b)
	require.Len(t, received, 1)
	mention := received[0]
	assert.Equal(t, models.ActivityMentions, mention.Type)
	assert.Equal(t, MessageMentionPost, mention.Message)
	assert.Equal(t, a.ID, mention.AuthorID)
	assert.Equal(t, models.PostRef(post.ID), mention.Content())
	assert.True(t, mention.Context().IsZero())
	assert.Equal(t, []uuid.UUID{b.ID}, mention.OwnerIDs())

	profile, err := env.users.GetProfileByID(ctx, b.ID.String())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{mention.ID}, profile.Activities)

	require.NoError(t, env.posts.Delete(ctx, a.ID.String(), post.ID.String()))

	assert.Empty(t, env.allActivities(t))
	profile, err = env.users.GetProfileByID(ctx, b.ID.String())
	require.NoError(t, err)
	assert.Empty(t, profile.Activities)
}

func TestCreatePostWithoutMentionsRecordsNothing(t *testing.T) {
	env := newTestEnv(t)
	a := env.register(t, "a")

	env.post(t, a, "hello @a and @ghost")

	assert.Empty(t, env.allActivities(t))
}

func TestCreatePostRequiresContent(t *testing.T) {
	env := newTestEnv(t)
	a := env.register(t, "a")

	_, err := env.posts.Create(context.Background(), &CreatePostRequest{Owner: a.ID.String(), Caption: "  "})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreatePostUnknownOwner(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.posts.Create(context.Background(), &CreatePostRequest{Owner: uuid.NewString(), Caption: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleLike(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")
	fan := env.register(t, "fan")
	post := env.post(t, owner, "look")

	result, err := env.posts.ToggleLike(ctx, fan.ID.String(), post.ID.String())
	require.NoError(t, err)
	assert.True(t, result.Liked)

	view, err := env.posts.Get(ctx, post.ID.String())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{fan.ID}, view.Likes)

	received := env.activitiesOf(t, owner)
	require.Len(t, received, 1)
	assert.Equal(t, MessageLiked, received[0].Message)
	assert.Equal(t, models.PostRef(post.ID), received[0].Context())

	result, err = env.posts.ToggleLike(ctx, fan.ID.String(), post.ID.String())
	require.NoError(t, err)
	assert.False(t, result.Liked)

	view, err = env.posts.Get(ctx, post.ID.String())
	require.NoError(t, err)
	assert.Empty(t, view.Likes)
	assert.Empty(t, env.activitiesOf(t, owner))
}

func TestLikeOwnPostRecordsNoActivity(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner")
	post := env.post(t, owner, "mine")

	result, err := env.posts.ToggleLike(context.Background(), owner.ID.String(), post.ID.String())
	require.NoError(t, err)
	assert.True(t, result.Liked)
	assert.Empty(t, env.allActivities(t))
}

func TestUnlikeKeepsOtherLikersActivity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")
	first := env.register(t, "first")
	second := env.register(t, "second")
	post := env.post(t, owner, "popular")

	_, err := env.posts.ToggleLike(ctx, first.ID.String(), post.ID.String())
	require.NoError(t, err)
	_, err = env.posts.ToggleLike(ctx, second.ID.String(), post.ID.String())
	require.NoError(t, err)

	require.NoError(t, env.posts.Unlike(ctx, second.ID.String(), post.ID.String()))
	// unliking again is a no-op
	require.NoError(t, env.posts.Unlike(ctx, second.ID.String(), post.ID.String()))

	received := env.activitiesOf(t, owner)
	require.Len(t, received, 1)
	assert.Equal(t, first.ID, received[0].AuthorID)
}

func TestListAllFiltersImages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	viewer := env.register(t, "viewer")
	author := env.register(t, "author")

	env.post(t, viewer, "my own post")
	text := env.post(t, author, "text only")
	image, err := env.posts.Create(ctx, &CreatePostRequest{
		Owner: author.ID.String(),
		Image: &models.Image{Src: "https://img.example/1.png", Width: 10, Height: 10},
	})
	require.NoError(t, err)

	all, err := env.posts.ListAll(ctx, 0, "", viewer.ID.String())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, image.ID, all[0].ID)
	assert.Equal(t, text.ID, all[1].ID)

	withImage, err := env.posts.ListAll(ctx, 0, "true", viewer.ID.String())
	require.NoError(t, err)
	require.Len(t, withImage, 1)
	assert.Equal(t, image.ID, withImage[0].ID)

	withoutImage, err := env.posts.ListAll(ctx, 0, "false", viewer.ID.String())
	require.NoError(t, err)
	require.Len(t, withoutImage, 1)
	assert.Equal(t, text.ID, withoutImage[0].ID)

	_, err = env.posts.ListAll(ctx, 0, "maybe", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListOwnedMediaAndLiked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	plain := env.post(t, alice, "plain")
	media, err := env.posts.Create(ctx, &CreatePostRequest{
		Owner: alice.ID.String(),
		Image: &models.Image{Src: "https://img.example/2.png"},
	})
	require.NoError(t, err)
	_, err = env.posts.ToggleLike(ctx, bob.ID.String(), plain.ID.String())
	require.NoError(t, err)

	owned, err := env.posts.ListOwned(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	onlyMedia, err := env.posts.ListMedia(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, onlyMedia, 1)
	assert.Equal(t, media.ID, onlyMedia[0].ID)

	liked, err := env.posts.ListLiked(ctx, "bob", 0)
	require.NoError(t, err)
	require.Len(t, liked, 1)
	assert.Equal(t, plain.ID, liked[0].ID)

	_, err = env.posts.ListOwned(ctx, "ghost", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPaginates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	for i := 0; i < 12; i++ {
		env.post(t, alice, "post")
	}

	first, err := env.posts.ListOwned(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Len(t, first, 10)

	rest, err := env.posts.ListOwned(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Len(t, rest, 2)
}

func TestDeletePostRequiresOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	post := env.post(t, alice, "mine")

	err := env.posts.Delete(ctx, bob.ID.String(), post.ID.String())
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.posts.Get(ctx, post.ID.String())
	assert.NoError(t, err)
}

func TestDeletePostCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	carol := env.register(t, "carol")

	post := env.post(t, alice, "thread @carol")
	comment := env.comment(t, bob, post, "nice @carol")
	env.reply(t, alice, comment, "thanks @bob")
	_, err := env.posts.ToggleLike(ctx, bob.ID.String(), post.ID.String())
	require.NoError(t, err)

	// unrelated activity survives
	env.follow(t, bob, carol)

	require.NoError(t, env.posts.Delete(ctx, alice.ID.String(), post.ID.String()))

	_, err = env.posts.Get(ctx, post.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.comments.Get(ctx, comment.ID.String())
	assert.ErrorIs(t, err, ErrNotFound)
	replies, err := env.replies.ListByComment(ctx, comment.ID.String(), 0)
	require.NoError(t, err)
	assert.Empty(t, replies)

	remaining := env.allActivities(t)
	require.Len(t, remaining, 1)
	assert.Equal(t, MessageFollowed, remaining[0].Message)

	// deleting again is a no-op
	assert.NoError(t, env.posts.Delete(ctx, alice.ID.String(), post.ID.String()))
}
