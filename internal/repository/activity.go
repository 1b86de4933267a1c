package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/netai/social-api/internal/models"
	"gorm.io/gorm"
)

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// ActivityQuery selects activities by any combination of fields. Zero fields
// do not filter.
type ActivityQuery struct {
	AuthorID *uuid.UUID
	OwnerID  *uuid.UUID
	Type     models.ActivityType
	Message  string
	Content  models.Ref
	Ref      models.Ref
}

func (r *ActivityRepository) apply(db *gorm.DB, q ActivityQuery) *gorm.DB {
	if q.AuthorID != nil {
		db = db.Where("author_id = ?", *q.AuthorID)
	}
	if q.OwnerID != nil {
		owned := r.db.Model(&models.ActivityOwner{}).Select("activity_id").Where("user_id = ?", *q.OwnerID)
		db = db.Where("id IN (?)", owned)
	}
	if q.Type != "" {
		db = db.Where("type = ?", q.Type)
	}
	if q.Message != "" {
		db = db.Where("message = ?", q.Message)
	}
	if !q.Content.IsZero() {
		db = db.Where("content_kind = ? AND content_id = ?", q.Content.Kind, q.Content.ID)
	}
	if !q.Ref.IsZero() {
		db = db.Where("ref_kind = ? AND ref_id = ?", q.Ref.Kind, q.Ref.ID)
	}
	return db
}

// Create inserts the activity together with its owner rows.
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if err := r.db.WithContext(ctx).Create(activity).Error; err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

func (r *ActivityRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	var activity models.Activity
	if err := r.db.WithContext(ctx).
		Preload("Owners").
		First(&activity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return &activity, nil
}

// FindFirst returns the oldest matching activity, ties broken by id.
func (r *ActivityRepository) FindFirst(ctx context.Context, q ActivityQuery) (*models.Activity, error) {
	var activity models.Activity
	db := r.apply(r.db.WithContext(ctx), q)
	if err := db.Preload("Owners").
		Order("created_at ASC").
		Order("id ASC").
		First(&activity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find activity: %w", err)
	}
	return &activity, nil
}

func (r *ActivityRepository) Find(ctx context.Context, q ActivityQuery) ([]*models.Activity, error) {
	var activities []*models.Activity
	db := r.apply(r.db.WithContext(ctx), q)
	if err := db.Preload("Owners").
		Order("created_at ASC").
		Order("id ASC").
		Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("failed to find activities: %w", err)
	}
	return activities, nil
}

// FindTouching returns every activity whose content or ref id is in ids.
func (r *ActivityRepository) FindTouching(ctx context.Context, ids []uuid.UUID) ([]*models.Activity, error) {
	var activities []*models.Activity
	if len(ids) == 0 {
		return activities, nil
	}
	if err := r.db.WithContext(ctx).
		Preload("Owners").
		Where("(content_id IN ? OR ref_id IN ?)", ids, ids).
		Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("failed to find activities by target: %w", err)
	}
	return activities, nil
}

// ListForOwner pages through the activities a user received, newest first.
func (r *ActivityRepository) ListForOwner(ctx context.Context, ownerID uuid.UUID, activityType models.ActivityType, offset, limit int) ([]*models.Activity, error) {
	var activities []*models.Activity
	db := r.apply(r.db.WithContext(ctx), ActivityQuery{OwnerID: &ownerID, Type: activityType})
	if err := db.Preload("Owners").
		Preload("Author").
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}

func (r *ActivityRepository) IDsForOwner(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.ActivityOwner{}).
		Where("user_id = ?", ownerID).
		Pluck("activity_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to get activity ids by owner: %w", err)
	}
	return ids, nil
}

// DeleteByIDs removes the activities and every owner row pointing at them.
// Ids that no longer exist are ignored.
func (r *ActivityRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Where("activity_id IN ?", ids).
		Delete(&models.ActivityOwner{}).Error; err != nil {
		return fmt.Errorf("failed to delete activity owners: %w", err)
	}
	if err := r.db.WithContext(ctx).
		Delete(&models.Activity{}, "id IN ?", ids).Error; err != nil {
		return fmt.Errorf("failed to delete activities: %w", err)
	}
	return nil
}

// RemoveOwner drops userID from the owner set of each of activityIDs.
func (r *ActivityRepository) RemoveOwner(ctx context.Context, activityIDs []uuid.UUID, userID uuid.UUID) error {
	if len(activityIDs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND activity_id IN ?", userID, activityIDs).
		Delete(&models.ActivityOwner{}).Error; err != nil {
		return fmt.Errorf("failed to remove activity owner: %w", err)
	}
	return nil
}
