package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/netai/social-api/internal/models"
	"gorm.io/gorm"
)

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

// PostFilter narrows List. Nil fields do not filter.
type PostFilter struct {
	OwnerID        *uuid.UUID
	ExcludeOwnerID *uuid.UUID
	LikedBy        *uuid.UUID
	HasImage       *bool
}

func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

func (r *PostRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).
		Preload("User").
		First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return &post, nil
}

func (r *PostRepository) List(ctx context.Context, filter PostFilter, offset, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	db := r.db.WithContext(ctx).Preload("User")

	if filter.OwnerID != nil {
		db = db.Where("user_id = ?", *filter.OwnerID)
	}
	if filter.ExcludeOwnerID != nil {
		db = db.Where("user_id <> ?", *filter.ExcludeOwnerID)
	}
	if filter.LikedBy != nil {
		liked := r.db.Model(&models.Like{}).Select("post_id").Where("user_id = ?", *filter.LikedBy)
		db = db.Where("id IN (?)", liked)
	}
	if filter.HasImage != nil {
		if *filter.HasImage {
			db = db.Where("image_src <> ''")
		} else {
			db = db.Where("(image_src = '' OR image_src IS NULL)")
		}
	}

	if err := db.Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

func (r *PostRepository) IDsByOwner(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to get post ids by owner: %w", err)
	}
	return ids, nil
}

func (r *PostRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete post: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *PostRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Delete(&models.Post{}, "id IN ?", ids).Error; err != nil {
		return fmt.Errorf("failed to delete posts: %w", err)
	}
	return nil
}
