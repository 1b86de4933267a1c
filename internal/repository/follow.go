package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/netai/social-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FollowRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) *FollowRepository {
	return &FollowRepository{db: db}
}

// Create inserts the pair and reports whether it was new.
func (r *FollowRepository) Create(ctx context.Context, followerID, followingID uuid.UUID) (bool, error) {
	follow := &models.Follow{FollowerID: followerID, FollowingID: followingID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(follow)
	if res.Error != nil {
		return false, fmt.Errorf("failed to create follow: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *FollowRepository) Delete(ctx context.Context, followerID, followingID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete follow: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteByUser removes every edge touching the user in either direction.
func (r *FollowRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("follower_id = ? OR following_id = ?", userID, userID).
		Delete(&models.Follow{}).Error; err != nil {
		return fmt.Errorf("failed to delete follows by user: %w", err)
	}
	return nil
}

func (r *FollowRepository) FollowerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("following_id = ?", userID).
		Order("created_at ASC").
		Pluck("follower_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to get followers: %w", err)
	}
	return ids, nil
}

func (r *FollowRepository) FollowingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Order("created_at ASC").
		Pluck("following_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to get following: %w", err)
	}
	return ids, nil
}
