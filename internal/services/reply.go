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

type ReplyService struct {
	store      *repository.Store
	activities *ActivityService
	cascade    *CascadeEngine
	notifier   *notifier
	pageSize   int
	logger     *logger.Logger
}

func NewReplyService(
	store *repository.Store,
	activities *ActivityService,
	cascade *CascadeEngine,
	producer EventPublisher,
	cache ProfileCache,
	pageSize int,
	logger *logger.Logger,
) *ReplyService {
	return &ReplyService{
		store:      store,
		activities: activities,
		cascade:    cascade,
		notifier:   &notifier{producer: producer, cache: cache, logger: logger},
		pageSize:   pageSize,
		logger:     logger,
	}
}

type CreateReplyRequest struct {
	Owner string `json:"owner" binding:"required"`
	Text  string `json:"text" binding:"max=1000"`
	Image string `json:"image"`
}

// Create stores the reply, notifies the users it mentions and tells the
// comment owner about it. Mentions in replies use the comment message.
func (s *ReplyService) Create(ctx context.Context, commentID string, req *CreateReplyRequest) (*models.Reply, error) {
	id, err := parseID("comment", commentID)
	if err != nil {
		return nil, err
	}
	ownerID, err := parseID("owner", req.Owner)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Text)
	if text == "" && req.Image == "" {
		return nil, invalid("reply needs text or an image")
	}

	var reply *models.Reply
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
		comment, err := tx.Comments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if comment == nil {
			return notFound("comment", id)
		}

		reply = &models.Reply{
			UserID:    ownerID,
			CommentID: id,
			Text:      text,
			Image:     req.Image,
		}
		if err := tx.Replies.Create(ctx, reply); err != nil {
			return err
		}

		mentioned, err := ResolveMentions(ctx, tx.Users, text, ownerID)
		if err != nil {
			return err
		}
		mention, err := s.activities.RecordMention(ctx, tx, mentioned, ownerID,
			MessageMentionComment, models.ReplyRef(reply.ID), models.CommentRef(id))
		if err != nil {
			return err
		}
		if mention != nil {
			affected = append(affected, mention.OwnerIDs()...)
		}

		interaction, err := s.activities.RecordInteraction(ctx, tx, comment.UserID, ownerID,
			MessageReplied, models.ReplyRef(reply.ID), models.CommentRef(id))
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

	s.notifier.publish(ctx, queue.EventReplyCreated, reply.ID, ownerID, affected)

	s.logger.WithFields(map[string]interface{}{
		"reply_id":   reply.ID,
		"comment_id": id,
		"user_id":    ownerID,
	}).Info("Reply created successfully")
	return reply, nil
}

// ListByComment pages through a comment's replies, oldest first.
func (s *ReplyService) ListByComment(ctx context.Context, commentID string, skip int) ([]*models.Reply, error) {
	id, err := parseID("comment", commentID)
	if err != nil {
		return nil, err
	}

	replies, err := s.store.Replies.GetByCommentID(ctx, id, clampSkip(skip), s.pageSize)
	if err != nil {
		return nil, err
	}
	if replies == nil {
		replies = []*models.Reply{}
	}
	return replies, nil
}

// Delete removes the reply and the activities it caused. Only the reply
// owner may delete it; a missing reply is a no-op.
func (s *ReplyService) Delete(ctx context.Context, actorID, replyID string) error {
	id, err := parseID("reply", replyID)
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
		reply, err := tx.Replies.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if reply == nil {
			found = false
			return nil
		}
		if reply.UserID != actor {
			return fmt.Errorf("reply %s belongs to another user: %w", id, ErrForbidden)
		}

		result, found, err = s.cascade.DeleteReply(ctx, tx, id)
		return err
	})
	if err != nil {
		return classify(err)
	}
	if !found {
		return nil
	}

	s.notifier.publish(ctx, queue.EventReplyDeleted, id, actor, result.AffectedUsers)

	s.logger.WithFields(map[string]interface{}{
		"reply_id": id,
		"cascade":  result.String(),
	}).Info("Reply deleted successfully")
	return nil
}
