package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/netai/social-api/internal/models"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return &user, nil
}

// IDsByUsernames returns the ids of the users whose username is in names,
// keyed by username. Unknown names are absent from the map.
func (r *UserRepository) IDsByUsernames(ctx context.Context, names []string) (map[string]uuid.UUID, error) {
	result := make(map[string]uuid.UUID, len(names))
	if len(names) == 0 {
		return result, nil
	}

	var rows []struct {
		ID       uuid.UUID
		Username string
	}
	if err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("id", "username").
		Where("username IN ?", names).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve usernames: %w", err)
	}

	for _, row := range rows {
		result[row.Username] = row.ID
	}
	return result, nil
}

func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete user: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// likeEscaper makes LIKE wildcards in user input match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches username case-insensitively, excluding the viewer.
func (r *UserRepository) Search(ctx context.Context, query string, excludeID *uuid.UUID) ([]*models.User, error) {
	var users []*models.User
	db := r.db.WithContext(ctx).
		Where("LOWER(username) LIKE ? ESCAPE '\\'", "%"+likeEscaper.Replace(strings.ToLower(query))+"%")

	if excludeID != nil {
		db = db.Where("id <> ?", *excludeID)
	}

	if err := db.Order("username ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

// Suggested returns the newest users the viewer does not already follow.
func (r *UserRepository) Suggested(ctx context.Context, viewerID *uuid.UUID, limit int) ([]*models.User, error) {
	var users []*models.User
	db := r.db.WithContext(ctx)

	if viewerID != nil {
		following := r.db.Model(&models.Follow{}).
			Select("following_id").
			Where("follower_id = ?", *viewerID)
		db = db.Where("id <> ?", *viewerID).Where("id NOT IN (?)", following)
	}

	if err := db.Order("created_at DESC").Limit(limit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get suggested users: %w", err)
	}
	return users, nil
}
