package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/netai/social-api/internal/models"
	"github.com/netai/social-api/internal/repository"
	"github.com/netai/social-api/pkg/logger"
	"github.com/netai/social-api/pkg/queue"
)

type PostService struct {
	store      *repository.Store
	activities *ActivityService
	cascade    *CascadeEngine
	notifier   *notifier
	pageSize   int
	logger     *logger.Logger
}

func NewPostService(
	store *repository.Store,
	activities *ActivityService,
	cascade *CascadeEngine,
	producer EventPublisher,
	cache ProfileCache,
	pageSize int,
	logger *logger.Logger,
) *PostService {
	return &PostService{
		store:      store,
		activities: activities,
		cascade:    cascade,
		notifier:   &notifier{producer: producer, cache: cache, logger: logger},
		pageSize:   pageSize,
		logger:     logger,
	}
}

type CreatePostRequest struct {
	Owner   string        `json:"owner" binding:"required"`
	Caption string        `json:"caption" binding:"max=2200"`
	Image   *models.Image `json:"image"`
}

type LikeRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// PostView is a post with its derived comment and like lists.
type PostView struct {
	*models.Post
	Comments []uuid.UUID `json:"comments"`
	Likes    []uuid.UUID `json:"likes"`
}

// LikeResult reports the membership after a toggle.
type LikeResult struct {
	Liked bool `json:"liked"`
}

// Create stores the post and notifies every user mentioned in the caption
// with a single mentions activity.
func (s *PostService) Create(ctx context.Context, req *CreatePostRequest) (*models.Post, error) {
	ownerID, err := parseID("owner", req.Owner)
	if err != nil {
		return nil, err
	}

	var image models.Image
	if req.Image != nil {
		image = *req.Image
	}
	caption := strings.TrimSpace(req.Caption)
	if caption == "" && image.Src == "" {
		return nil, invalid("post needs a caption or an image")
	}

	var post *models.Post
	var mention *models.Activity
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		owner, err := tx.Users.GetByID(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("failed to get owner: %w", err)
		}
		if owner == nil {
			return notFound("user", ownerID)
		}

		post = &models.Post{
			UserID:  ownerID,
			Caption: caption,
			Image:   image,
		}
		if err := tx.Posts.Create(ctx, post); err != nil {
			return err
		}

		mentioned, err := ResolveMentions(ctx, tx.Users, caption, ownerID)
		if err != nil {
			return err
		}
		mention, err = s.activities.RecordMention(ctx, tx, mentioned, ownerID,
			MessageMentionPost, models.PostRef(post.ID), models.Ref{})
		return err
	})
	if err != nil {
		return nil, classify(err)
	}

	affected := []uuid.UUID{ownerID}
	if mention != nil {
		affected = append(affected, mention.OwnerIDs()...)
	}
	s.notifier.publish(ctx, queue.EventPostCreated, post.ID, ownerID, affected)

	s.logger.WithFields(map[string]interface{}{
		"post_id": post.ID,
		"user_id": ownerID,
	}).Info("Post created successfully")
	return post, nil
}

func (s *PostService) Get(ctx context.Context, postID string) (*PostView, error) {
	id, err := parseID("post", postID)
	if err != nil {
		return nil, err
	}

	post, err := s.store.Posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, notFound("post", id)
	}

	views, err := s.views(ctx, []*models.Post{post})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// ListAll pages through every post except the viewer's own. imageOnly is
// "true" for posts with an image, "false" for posts without one and empty
// for both.
func (s *PostService) ListAll(ctx context.Context, skip int, imageOnly, viewerID string) ([]*PostView, error) {
	viewer, err := parseOptionalID("viewer", viewerID)
	if err != nil {
		return nil, err
	}

	filter := repository.PostFilter{ExcludeOwnerID: viewer}
	switch imageOnly {
	case "":
	case "true":
		hasImage := true
		filter.HasImage = &hasImage
	case "false":
		hasImage := false
		filter.HasImage = &hasImage
	default:
		return nil, invalid("imageonly must be true or false, got %q", imageOnly)
	}

	return s.list(ctx, filter, skip)
}

func (s *PostService) ListOwned(ctx context.Context, username string, skip int) ([]*PostView, error) {
	user, err := s.userByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, repository.PostFilter{OwnerID: &user.ID}, skip)
}

func (s *PostService) ListMedia(ctx context.Context, username string, skip int) ([]*PostView, error) {
	user, err := s.userByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	hasImage := true
	return s.list(ctx, repository.PostFilter{OwnerID: &user.ID, HasImage: &hasImage}, skip)
}

func (s *PostService) ListLiked(ctx context.Context, username string, skip int) ([]*PostView, error) {
	user, err := s.userByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, repository.PostFilter{LikedBy: &user.ID}, skip)
}

func (s *PostService) userByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.store.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, notFound("user", username)
	}
	return user, nil
}

func (s *PostService) list(ctx context.Context, filter repository.PostFilter, skip int) ([]*PostView, error) {
	posts, err := s.store.Posts.List(ctx, filter, clampSkip(skip), s.pageSize)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, posts)
}

func (s *PostService) views(ctx context.Context, posts []*models.Post) ([]*PostView, error) {
	ids := make([]uuid.UUID, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}

	comments, err := s.store.Comments.IDsByPost(ctx, ids)
	if err != nil {
		return nil, err
	}
	likes, err := s.store.Likes.LikerIDsByPost(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]*PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, &PostView{
			Post:     p,
			Comments: nonNil(comments[p.ID]),
			Likes:    nonNil(likes[p.ID]),
		})
	}
	return views, nil
}

// Delete removes the post and everything hanging off it. Only the owner may
// delete a post; deleting a missing post is a no-op.
func (s *PostService) Delete(ctx context.Context, actorID, postID string) error {
	id, err := parseID("post", postID)
	if err != nil {
		return err
	}
	actor, err := parseID("actor", actorID)
	if err != nil {
		return err
	}

	var result *CascadeResult
	var found bool
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		post, err := tx.Posts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if post == nil {
			found = false
			return nil
		}
		if post.UserID != actor {
			return fmt.Errorf("post %s belongs to another user: %w", id, ErrForbidden)
		}

		result, found, err = s.cascade.DeletePost(ctx, tx, id)
		return err
	})
	if err != nil {
		return classify(err)
	}
	if !found {
		return nil
	}

	s.notifier.publish(ctx, queue.EventPostDeleted, id, actor, result.AffectedUsers)

	s.logger.WithFields(map[string]interface{}{
		"post_id": id,
		"cascade": result.String(),
	}).Info("Post deleted successfully")
	return nil
}

// ToggleLike likes the post, or unlikes it when the actor already likes it.
func (s *PostService) ToggleLike(ctx context.Context, actorID, postID string) (*LikeResult, error) {
	actor, id, err := parseLike(actorID, postID)
	if err != nil {
		return nil, err
	}

	var liked bool
	var affected []uuid.UUID
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		post, err := s.likeTarget(ctx, tx, actor, id)
		if err != nil {
			return err
		}

		already, err := tx.Likes.IsLiked(ctx, actor, id)
		if err != nil {
			return err
		}
		if already {
			liked = false
			affected, err = s.unlike(ctx, tx, actor, post)
			return err
		}

		liked = true
		affected = nil
		if _, err := tx.Likes.Create(ctx, actor, id); err != nil {
			return err
		}
		activity, err := s.activities.RecordInteraction(ctx, tx, post.UserID, actor,
			MessageLiked, models.Ref{}, models.PostRef(id))
		if err != nil {
			return err
		}
		if activity != nil {
			affected = activity.OwnerIDs()
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	eventType := queue.EventPostUnliked
	if liked {
		eventType = queue.EventPostLiked
	}
	s.notifier.publish(ctx, eventType, id, actor, affected)

	s.logger.WithFields(map[string]interface{}{
		"post_id": id,
		"user_id": actor,
		"liked":   liked,
	}).Info("Post like toggled successfully")
	return &LikeResult{Liked: liked}, nil
}

// Unlike removes the like if present and is a no-op otherwise.
func (s *PostService) Unlike(ctx context.Context, actorID, postID string) error {
	actor, id, err := parseLike(actorID, postID)
	if err != nil {
		return err
	}

	var affected []uuid.UUID
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		post, err := s.likeTarget(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		affected, err = s.unlike(ctx, tx, actor, post)
		return err
	})
	if err != nil {
		return classify(err)
	}

	s.notifier.publish(ctx, queue.EventPostUnliked, id, actor, affected)

	s.logger.WithFields(map[string]interface{}{
		"post_id": id,
		"user_id": actor,
	}).Info("Post unliked successfully")
	return nil
}

func parseLike(actorID, postID string) (uuid.UUID, uuid.UUID, error) {
	actor, err := parseID("user", actorID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := parseID("post", postID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return actor, id, nil
}

func (s *PostService) likeTarget(ctx context.Context, tx *repository.Store, actor, postID uuid.UUID) (*models.Post, error) {
	user, err := tx.Users.GetByID(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, notFound("user", actor)
	}

	post, err := tx.Posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, notFound("post", postID)
	}
	return post, nil
}

// unlike drops the like and the "liked your post" activity the actor caused.
func (s *PostService) unlike(ctx context.Context, tx *repository.Store, actor uuid.UUID, post *models.Post) ([]uuid.UUID, error) {
	if _, err := tx.Likes.Delete(ctx, actor, post.ID); err != nil {
		return nil, err
	}

	activity, err := s.activities.RetractFirst(ctx, tx, repository.ActivityQuery{
		AuthorID: &actor,
		Message:  MessageLiked,
		Ref:      models.PostRef(post.ID),
	})
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, nil
	}
	return activity.OwnerIDs(), nil
}
