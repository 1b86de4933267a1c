package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/netai/social-api/internal/models"
	"gorm.io/gorm"
)

type ReplyRepository struct {
	db *gorm.DB
}

func NewReplyRepository(db *gorm.DB) *ReplyRepository {
	return &ReplyRepository{db: db}
}

func (r *ReplyRepository) Create(ctx context.Context, reply *models.Reply) error {
	if err := r.db.WithContext(ctx).Create(reply).Error; err != nil {
		return fmt.Errorf("failed to create reply: %w", err)
	}
	return nil
}

func (r *ReplyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Reply, error) {
	var reply models.Reply
	if err := r.db.WithContext(ctx).First(&reply, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reply: %w", err)
	}
	return &reply, nil
}

func (r *ReplyRepository) GetByCommentID(ctx context.Context, commentID uuid.UUID, offset, limit int) ([]*models.Reply, error) {
	var replies []*models.Reply
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("comment_id = ?", commentID).
		Order("created_at ASC").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&replies).Error; err != nil {
		return nil, fmt.Errorf("failed to get replies by comment: %w", err)
	}
	return replies, nil
}

// IDsByComment groups reply ids by their parent comment.
func (r *ReplyRepository) IDsByComment(ctx context.Context, commentIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	result := make(map[uuid.UUID][]uuid.UUID, len(commentIDs))
	if len(commentIDs) == 0 {
		return result, nil
	}

	var replies []models.Reply
	if err := r.db.WithContext(ctx).
		Select("id", "comment_id").
		Where("comment_id IN ?", commentIDs).
		Order("created_at ASC").
		Find(&replies).Error; err != nil {
		return nil, fmt.Errorf("failed to get reply ids by comment: %w", err)
	}

	for _, reply := range replies {
		result[reply.CommentID] = append(result[reply.CommentID], reply.ID)
	}
	return result, nil
}

func (r *ReplyRepository) IDsByCommentIDs(ctx context.Context, commentIDs []uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if len(commentIDs) == 0 {
		return ids, nil
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Reply{}).
		Where("comment_id IN ?", commentIDs).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to get reply ids: %w", err)
	}
	return ids, nil
}

func (r *ReplyRepository) IDsByOwner(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Reply{}).
		Where("user_id = ?", ownerID).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to get reply ids by owner: %w", err)
	}
	return ids, nil
}

func (r *ReplyRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Reply{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete reply: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *ReplyRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Delete(&models.Reply{}, "id IN ?", ids).Error; err != nil {
		return fmt.Errorf("failed to delete replies: %w", err)
	}
	return nil
}
