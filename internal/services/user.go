package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/netai/social-api/internal/config"
	"github.com/netai/social-api/internal/models"
	"github.com/netai/social-api/internal/repository"
	"github.com/netai/social-api/pkg/logger"
	"github.com/netai/social-api/pkg/queue"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// usernames must be mentionable, so they use the same word characters as
// the mention pattern
var usernamePattern = regexp.MustCompile(`^\w{1,30}$`)

type UserService struct {
	store      *repository.Store
	activities *ActivityService
	cascade    *CascadeEngine
	notifier   *notifier
	config     *config.UserConfig
	logger     *logger.Logger
	now        func() time.Time
}

func NewUserService(
	store *repository.Store,
	activities *ActivityService,
	cascade *CascadeEngine,
	producer EventPublisher,
	cache ProfileCache,
	config *config.UserConfig,
	logger *logger.Logger,
) *UserService {
	return &UserService{
		store:      store,
		activities: activities,
		cascade:    cascade,
		notifier:   &notifier{producer: producer, cache: cache, logger: logger},
		config:     config,
		logger:     logger,
		now:        time.Now,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=50"`
	Username string `json:"username" binding:"required,max=30"`
	Password string `json:"password" binding:"required,max=72"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type EditProfileRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=50"`
	Username *string `json:"username" binding:"omitempty,max=30"`
	Bio      *string `json:"bio" binding:"omitempty,max=500"`
	Link     *string `json:"link" binding:"omitempty,max=200"`
	Picture  *string `json:"picture"`
}

type FollowRequest struct {
	UserID   string `json:"userId" binding:"required"`
	Username string `json:"username" binding:"required"`
}

// UserProfile is a user with its derived relation lists.
type UserProfile struct {
	*models.User
	Followers  []uuid.UUID `json:"followers"`
	Following  []uuid.UUID `json:"following"`
	Posts      []uuid.UUID `json:"posts"`
	Activities []uuid.UUID `json:"activities"`
}

func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	username := strings.TrimSpace(req.Username)
	if name == "" {
		return nil, invalid("name is required")
	}
	if !usernamePattern.MatchString(username) {
		return nil, invalid("username %q may only contain letters, digits and underscores", username)
	}
	if req.Password == "" {
		return nil, invalid("password is required")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user *models.User
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		existing, err := tx.Users.GetByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("failed to check username: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("user already exists, try another username: %w", ErrConflict)
		}

		user = &models.User{
			Name:     name,
			Username: username,
			Password: string(hashedPassword),
		}
		return tx.Users.Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("user already exists, try another username: %w", ErrConflict)
		}
		return nil, classify(err)
	}

	s.notifier.publish(ctx, queue.EventUserRegistered, user.ID, user.ID, nil)

	s.logger.WithField("user_id", user.ID).Info("User registered successfully")
	return user, nil
}

func (s *UserService) Login(ctx context.Context, req *LoginRequest) (*models.User, error) {
	user, err := s.store.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user doesn't exist: %w", ErrUnauthorized)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("username or password is incorrect: %w", ErrUnauthorized)
	}

	s.logger.WithField("user_id", user.ID).Info("User logged in successfully")
	return user, nil
}

// GetProfileByID returns the user with its relation lists, served from the
// profile cache when possible.
func (s *UserService) GetProfileByID(ctx context.Context, userID string) (*UserProfile, error) {
	id, err := parseID("user", userID)
	if err != nil {
		return nil, err
	}

	key := ProfileCacheKey(id.String())
	if s.notifier.cache != nil {
		var cached UserProfile
		if err := s.notifier.cache.GetJSON(ctx, key, &cached); err == nil && cached.User != nil {
			return &cached, nil
		}
	}

	user, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, notFound("user", id)
	}

	profile, err := s.buildProfile(ctx, user)
	if err != nil {
		return nil, err
	}

	if s.notifier.cache != nil {
		if err := s.notifier.cache.SetJSON(ctx, key, profile, s.config.ProfileCacheTTL); err != nil {
			s.logger.WithError(err).Error("Failed to cache user profile")
		}
	}
	return profile, nil
}

func (s *UserService) GetProfileByUsername(ctx context.Context, username string) (*UserProfile, error) {
	user, err := s.store.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, notFound("user", username)
	}
	return s.buildProfile(ctx, user)
}

func (s *UserService) buildProfile(ctx context.Context, user *models.User) (*UserProfile, error) {
	followers, err := s.store.Follows.FollowerIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	following, err := s.store.Follows.FollowingIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	posts, err := s.store.Posts.IDsByOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	activities, err := s.store.Activities.IDsForOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &UserProfile{
		User:       user,
		Followers:  nonNil(followers),
		Following:  nonNil(following),
		Posts:      nonNil(posts),
		Activities: nonNil(activities),
	}, nil
}

func (s *UserService) Search(ctx context.Context, query, viewerID string) ([]*models.User, error) {
	viewer, err := parseOptionalID("viewer", viewerID)
	if err != nil {
		return nil, err
	}
	users, err := s.store.Users.Search(ctx, query, viewer)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

// Suggested returns the newest users the viewer does not follow yet.
func (s *UserService) Suggested(ctx context.Context, viewerID string) ([]*models.User, error) {
	viewer, err := parseOptionalID("viewer", viewerID)
	if err != nil {
		return nil, err
	}
	users, err := s.store.Users.Suggested(ctx, viewer, s.config.SuggestedLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get suggested users: %w", err)
	}
	return users, nil
}

// EditProfile updates the given fields. A username change must be unique and
// is allowed once per UsernameChangeInterval.
func (s *UserService) EditProfile(ctx context.Context, userID string, req *EditProfileRequest) (*models.User, error) {
	id, err := parseID("user", userID)
	if err != nil {
		return nil, err
	}

	var user *models.User
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		user, err = tx.Users.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		if user == nil {
			return notFound("user", id)
		}

		if req.Username != nil {
			username := strings.TrimSpace(*req.Username)
			if username != user.Username {
				if err := s.changeUsername(ctx, tx, user, username); err != nil {
					return err
				}
			}
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return invalid("name must not be empty")
			}
			user.Name = name
		}
		if req.Bio != nil {
			user.Bio = *req.Bio
		}
		if req.Link != nil {
			user.Link = *req.Link
		}
		if req.Picture != nil {
			user.Picture = *req.Picture
		}

		return tx.Users.Update(ctx, user)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("username is taken: %w", ErrConflict)
		}
		return nil, classify(err)
	}

	s.notifier.publish(ctx, queue.EventUserUpdated, user.ID, user.ID, []uuid.UUID{user.ID})

	s.logger.WithField("user_id", user.ID).Info("User updated successfully")
	return user, nil
}

func (s *UserService) changeUsername(ctx context.Context, tx *repository.Store, user *models.User, username string) error {
	if !usernamePattern.MatchString(username) {
		return invalid("username %q may only contain letters, digits and underscores", username)
	}

	now := s.now()
	if user.UsernameChangedAt != nil {
		next := user.UsernameChangedAt.Add(s.config.UsernameChangeInterval)
		if now.Before(next) {
			return fmt.Errorf("username can be changed again after %s: %w", next.Format(time.RFC3339), ErrThrottled)
		}
	}

	existing, err := tx.Users.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("username %q is taken: %w", username, ErrConflict)
	}

	user.Username = username
	user.UsernameChangedAt = &now
	return nil
}

// Follow makes the actor follow the user named by req.Username and notifies
// the followed user. Following twice is a no-op.
func (s *UserService) Follow(ctx context.Context, req *FollowRequest) error {
	actorID, err := parseID("user", req.UserID)
	if err != nil {
		return err
	}

	var target *models.User
	var created bool
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		actor, err := tx.Users.GetByID(ctx, actorID)
		if err != nil {
			return fmt.Errorf("failed to get follower: %w", err)
		}
		if actor == nil {
			return notFound("user", actorID)
		}

		target, err = tx.Users.GetByUsername(ctx, req.Username)
		if err != nil {
			return fmt.Errorf("failed to get followed user: %w", err)
		}
		if target == nil {
			return notFound("user", req.Username)
		}
		if target.ID == actorID {
			return invalid("cannot follow yourself")
		}

		created, err = tx.Follows.Create(ctx, actorID, target.ID)
		if err != nil {
			return err
		}
		if !created {
			return nil
		}

		_, err = s.activities.RecordInteraction(ctx, tx, target.ID, actorID, MessageFollowed, models.Ref{}, models.Ref{})
		return err
	})
	if err != nil {
		return classify(err)
	}

	if created {
		s.notifier.publish(ctx, queue.EventFollowCreated, target.ID, actorID, []uuid.UUID{actorID, target.ID})
	}

	s.logger.WithFields(map[string]interface{}{
		"follower_id":  actorID,
		"following_id": target.ID,
	}).Info("User followed successfully")
	return nil
}

// Unfollow removes the edge and retracts the "followed you" activity if one
// exists. Unfollowing a user that is not followed is a no-op.
func (s *UserService) Unfollow(ctx context.Context, req *FollowRequest) error {
	actorID, err := parseID("user", req.UserID)
	if err != nil {
		return err
	}

	var target *models.User
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		target, err = tx.Users.GetByUsername(ctx, req.Username)
		if err != nil {
			return fmt.Errorf("failed to get followed user: %w", err)
		}
		if target == nil {
			return notFound("user", req.Username)
		}

		if _, err := tx.Follows.Delete(ctx, actorID, target.ID); err != nil {
			return err
		}

		_, err = s.activities.RetractFirst(ctx, tx, repository.ActivityQuery{
			AuthorID: &actorID,
			OwnerID:  &target.ID,
			Message:  MessageFollowed,
		})
		return err
	})
	if err != nil {
		return classify(err)
	}

	s.notifier.publish(ctx, queue.EventFollowDeleted, target.ID, actorID, []uuid.UUID{actorID, target.ID})

	s.logger.WithFields(map[string]interface{}{
		"follower_id":  actorID,
		"following_id": target.ID,
	}).Info("User unfollowed successfully")
	return nil
}

// Delete removes the account and cascades to everything it owns. Only the
// user itself may do this. Deleting a missing account is a no-op.
func (s *UserService) Delete(ctx context.Context, actorID, userID string) error {
	id, err := parseID("user", userID)
	if err != nil {
		return err
	}
	actor, err := parseID("actor", actorID)
	if err != nil {
		return err
	}
	if actor != id {
		return fmt.Errorf("only the account owner can delete it: %w", ErrForbidden)
	}

	var result *CascadeResult
	var found bool
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		result, found, err = s.cascade.DeleteUser(ctx, tx, id)
		return err
	})
	if err != nil {
		return classify(err)
	}
	if !found {
		return nil
	}

	s.notifier.publish(ctx, queue.EventUserDeleted, id, id, result.AffectedUsers)

	s.logger.WithFields(map[string]interface{}{
		"user_id": id,
		"cascade": result.String(),
	}).Info("User deleted successfully")
	return nil
}

func (s *UserService) Activities(ctx context.Context, userID, activityType string, skip int) ([]*ActivityView, error) {
	return s.activities.ListForUser(ctx, userID, activityType, skip)
}

func nonNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
