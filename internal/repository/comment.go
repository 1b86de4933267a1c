package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/netai/social-api/internal/models"
	"gorm.io/gorm"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

func (r *CommentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Post.User").
		First(&comment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return &comment, nil
}

func (r *CommentRepository) GetByPostID(ctx context.Context, postID uuid.UUID, offset, limit int) ([]*models.Comment, error) {
	var comments []*models.Comment
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("failed to get comments by post: %w", err)
	}
	return comments, nil
}

// IDsByPost groups comment ids by their parent post.
func (r *CommentRepository) IDsByPost(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	result := make(map[uuid.UUID][]uuid.UUID, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	var comments []models.Comment
	if err := r.db.WithContext(ctx).
		Select("id", "post_id").
		Where("post_id IN ?", postIDs).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("failed to get comment ids by post: %w", err)
	}

	for _, c := range comments {
		result[c.PostID] = append(result[c.PostID], c.ID)
	}
	return result, nil
}

func (r *CommentRepository) IDsByPostIDs(ctx context.Context, postIDs []uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if len(postIDs) == 0 {
		return ids, nil
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("post_id IN ?", postIDs).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to get comment ids: %w", err)
	}
	return ids, nil
}

// IDsByOwnerOutside returns the owner's comments that are not attached to any
// of excludePostIDs.
func (r *CommentRepository) IDsByOwnerOutside(ctx context.Context, ownerID uuid.UUID, excludePostIDs []uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	db := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("user_id = ?", ownerID)
	if len(excludePostIDs) > 0 {
		db = db.Where("post_id NOT IN ?", excludePostIDs)
	}
	if err := db.Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to get comment ids by owner: %w", err)
	}
	return ids, nil
}

func (r *CommentRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete comment: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *CommentRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Delete(&models.Comment{}, "id IN ?", ids).Error; err != nil {
		return fmt.Errorf("failed to delete comments: %w", err)
	}
	return nil
}
