package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/netai/social-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LikeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

func (r *LikeRepository) Create(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
	like := &models.Like{UserID: userID, PostID: postID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(like)
	if res.Error != nil {
		return false, fmt.Errorf("failed to create like: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *LikeRepository) Delete(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete like: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *LikeRepository) IsLiked(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check like status: %w", err)
	}
	return count > 0, nil
}

// LikerIDsByPost groups liker ids by post for the given posts.
func (r *LikeRepository) LikerIDsByPost(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	result := make(map[uuid.UUID][]uuid.UUID, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	var likes []models.Like
	if err := r.db.WithContext(ctx).
		Select("user_id", "post_id").
		Where("post_id IN ?", postIDs).
		Order("created_at ASC").
		Find(&likes).Error; err != nil {
		return nil, fmt.Errorf("failed to get likes by post: %w", err)
	}

	for _, l := range likes {
		result[l.PostID] = append(result[l.PostID], l.UserID)
	}
	return result, nil
}

func (r *LikeRepository) DeleteByPostIDs(ctx context.Context, postIDs []uuid.UUID) error {
	if len(postIDs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Where("post_id IN ?", postIDs).
		Delete(&models.Like{}).Error; err != nil {
		return fmt.Errorf("failed to delete likes by post: %w", err)
	}
	return nil
}

func (r *LikeRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Like{}).Error; err != nil {
		return fmt.Errorf("failed to delete likes by user: %w", err)
	}
	return nil
}
