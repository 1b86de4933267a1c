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

type CommentService struct {
	store      *repository.Store
	activities *ActivityService
	cascade    *CascadeEngine
	notifier   *notifier
	pageSize   int
	logger     *logger.Logger
}

func NewCommentService(
	store *repository.Store,
	activities *ActivityService,
	cascade *CascadeEngine,
	producer EventPublisher,
	cache ProfileCache,
	pageSize int,
	logger *logger.Logger,
) *CommentService {
	return &CommentService{
		store:      store,
		activities: activities,
		cascade:    cascade,
		notifier:   &notifier{producer: producer, cache: cache, logger: logger},
		pageSize:   pageSize,
		logger:     logger,
	}
}

type CreateCommentRequest struct {
	Owner string `json:"owner" binding:"required"`
	Text  string `json:"text" binding:"required,max=1000"`
}

// CommentView is a comment with its derived reply list.
type CommentView struct {
	*models.Comment
	Replies []uuid.UUID `json:"replies"`
}

// Create stores the comment, notifies the users it mentions and tells the
// post owner about it.
func (s *CommentService) Create(ctx context.Context, postID string, req *CreateCommentRequest) (*models.Comment, error) {
	id, err := parseID("post", postID)
	if err != nil {
		return nil, err
	}
	ownerID, err := parseID("owner", req.Owner)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, invalid("comment text is required")
	}

	var comment *models.Comment
	var affected []uuid.UUID
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		affected = nil

		owner, err := tx.Users.GetByID(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("failed to get owner: %w", err)
		}
		if owner == nil {
			return notFound("user", ownerID)
		}
		post, err := tx.Posts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if post == nil {
			return notFound("post", id)
		}

		comment = &models.Comment{
			UserID: ownerID,
			PostID: id,
			Text:   text,
		}
		if err := tx.Comments.Create(ctx, comment); err != nil {
			return err
		}

		mentioned, err := ResolveMentions(ctx, tx.Users, text, ownerID)
		if err != nil {
			return err
		}
		mention, err := s.activities.RecordMention(ctx, tx, mentioned, ownerID,
			MessageMentionComment, models.CommentRef(comment.ID), models.PostRef(id))
		if err != nil {
			return err
		}
		if mention != nil {
			affected = append(affected, mention.OwnerIDs()...)
		}

		interaction, err := s.activities.RecordInteraction(ctx, tx, post.UserID, ownerID,
			MessageCommented, models.CommentRef(comment.ID), models.PostRef(id))
		if err != nil {
			return err
		}
		if interaction != nil {
			affected = append(affected, interaction.OwnerIDs()...)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}

	s.notifier.publish(ctx, queue.EventCommentCreated, comment.ID, ownerID, affected)

	s.logger.WithFields(map[string]interface{}{
		"comment_id": comment.ID,
		"post_id":    id,
		"user_id":    ownerID,
	}).Info("Comment created successfully")
	return comment, nil
}

// Get returns the comment with its owner and parent post.
func (s *CommentService) Get(ctx context.Context, commentID string) (*CommentView, error) {
	id, err := parseID("comment", commentID)
	if err != nil {
		return nil, err
	}

	comment, err := s.store.Comments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, notFound("comment", id)
	}

	views, err := s.views(ctx, []*models.Comment{comment})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// ListByPost pages through a post's comments, oldest first.
func (s *CommentService) ListByPost(ctx context.Context, postID string, skip int) ([]*CommentView, error) {
	id, err := parseID("post", postID)
	if err != nil {
		return nil, err
	}

	comments, err := s.store.Comments.GetByPostID(ctx, id, clampSkip(skip), s.pageSize)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, comments)
}

func (s *CommentService) views(ctx context.Context, comments []*models.Comment) ([]*CommentView, error) {
	ids := make([]uuid.UUID, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}

	replies, err := s.store.Replies.IDsByComment(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]*CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, &CommentView{Comment: c, Replies: nonNil(replies[c.ID])})
	}
	return views, nil
}

// Delete removes the comment, its replies and every activity about them.
// Only the comment owner may delete it; a missing comment is a no-op.
func (s *CommentService) Delete(ctx context.Context, actorID, commentID string) error {
	id, err := parseID("comment", commentID)
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
		comment, err := tx.Comments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if comment == nil {
			found = false
			return nil
		}
		if comment.UserID != actor {
			return fmt.Errorf("comment %s belongs to another user: %w", id, ErrForbidden)
		}

		result, found, err = s.cascade.DeleteComment(ctx, tx, id)
		return err
	})
	if err != nil {
		return classify(err)
	}
	if !found {
		return nil
	}

	s.notifier.publish(ctx, queue.EventCommentDeleted, id, actor, result.AffectedUsers)

	s.logger.WithFields(map[string]interface{}{
		"comment_id": id,
		"cascade":    result.String(),
	}).Info("Comment deleted successfully")
	return nil
}
