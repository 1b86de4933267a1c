package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/netai/social-api/internal/config"
	"github.com/netai/social-api/internal/models"
	"github.com/netai/social-api/internal/repository"
	"github.com/netai/social-api/pkg/cache"
	"github.com/netai/social-api/pkg/logger"
	"github.com/netai/social-api/pkg/queue"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeProducer struct {
	mu     sync.Mutex
	events []queue.Event
}

func (p *fakeProducer) Publish(ctx context.Context, key string, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, value.(queue.Event))
	return nil
}

func (p *fakeProducer) types() []queue.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]queue.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeCache struct {
	mu      sync.Mutex
	values  map[string]interface{}
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]interface{})}
}

func (c *fakeCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return cache.ErrMiss
	}
	profile, ok := v.(*UserProfile)
	if !ok {
		return errors.New("unexpected cached type")
	}
	*(dest.(*UserProfile)) = *profile
	return nil
}

func (c *fakeCache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok
}

type testEnv struct {
	store      *repository.Store
	activities *ActivityService
	cascade    *CascadeEngine
	users      *UserService
	posts      *PostService
	comments   *CommentService
	replies    *ReplyService
	producer   *fakeProducer
	cache      *fakeCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := repository.NewDatabase(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { db.Close() })

	log := logger.Discard()
	store := repository.NewStore(db.DB)
	producer := &fakeProducer{}
	profiles := newFakeCache()
	userConfig := &config.UserConfig{
		UsernameChangeInterval: 14 * 24 * time.Hour,
		ProfileCacheTTL:        time.Minute,
		BcryptCost:             bcrypt.MinCost,
		SuggestedLimit:         4,
	}

	activities := NewActivityService(store, 10, log)
	cascade := NewCascadeEngine(activities, log)

	return &testEnv{
		store:      store,
		activities: activities,
		cascade:    cascade,
		users:      NewUserService(store, activities, cascade, producer, profiles, userConfig, log),
		posts:      NewPostService(store, activities, cascade, producer, profiles, 10, log),
		comments:   NewCommentService(store, activities, cascade, producer, profiles, 10, log),
		replies:    NewReplyService(store, activities, cascade, producer, profiles, 10, log),
		producer:   producer,
		cache:      profiles,
	}
}

func (e *testEnv) register(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := e.users.Register(context.Background(), &RegisterRequest{
		Name:     username,
		Username: username,
		Password: "secret",
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) post(t *testing.T, owner *models.User, caption string) *models.Post {
	t.Helper()
	post, err := e.posts.Create(context.Background(), &CreatePostRequest{
		Owner:   owner.ID.String(),
		Caption: caption,
	})
	require.NoError(t, err)
	return post
}

func (e *testEnv) comment(t *testing.T, owner *models.User, post *models.Post, text string) *models.Comment {
	t.Helper()
	comment, err := e.comments.Create(context.Background(), post.ID.String(), &CreateCommentRequest{
		Owner: owner.ID.String(),
		Text:  text,
	})
	require.NoError(t, err)
	return comment
}

func (e *testEnv) reply(t *testing.T, owner *models.User, comment *models.Comment, text string) *models.Reply {
	t.Helper()
	reply, err := e.replies.Create(context.Background(), comment.ID.String(), &CreateReplyRequest{
		Owner: owner.ID.String(),
		Text:  text,
	})
	require.NoError(t, err)
	return reply
}

func (e *testEnv) follow(t *testing.T, follower, followed *models.User) {
	t.Helper()
	require.NoError(t, e.users.Follow(context.Background(), &FollowRequest{
		UserID:   follower.ID.String(),
		Username: followed.Username,
	}))
}

// activitiesOf returns every activity the user owns, oldest first.
func (e *testEnv) activitiesOf(t *testing.T, user *models.User) []*models.Activity {
	t.Helper()
	activities, err := e.store.Activities.Find(context.Background(), repository.ActivityQuery{OwnerID: &user.ID})
	require.NoError(t, err)
	return activities
}

func (e *testEnv) allActivities(t *testing.T) []*models.Activity {
	t.Helper()
	activities, err := e.store.Activities.Find(context.Background(), repository.ActivityQuery{})
	require.NoError(t, err)
	return activities
}
