package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/netai/social-api/internal/models"
	"github.com/netai/social-api/internal/repository"
	"github.com/netai/social-api/pkg/logger"
)

// 通知文案
const (
	MessageMentionPost    = "Mentioned you in a post"
	MessageMentionComment = "Mentioned you in a comment"
	MessageCommented      = "Commented on your post"
	MessageReplied        = "Replied to your comment"
	MessageLiked          = "liked your post"
	MessageFollowed       = "followed you"
)

// ActivityService creates and retracts notifications. The Record and Retract
// methods take the transaction-bound store of the caller's unit of work.
type ActivityService struct {
	store    *repository.Store
	pageSize int
	logger   *logger.Logger
}

func NewActivityService(store *repository.Store, pageSize int, logger *logger.Logger) *ActivityService {
	return &ActivityService{
		store:    store,
		pageSize: pageSize,
		logger:   logger,
	}
}

// ActivityView is the read shape of an activity.
type ActivityView struct {
	*models.Activity
	Owner      []uuid.UUID `json:"owner"`
	ContentRef *models.Ref `json:"content,omitempty"`
	ContextRef *models.Ref `json:"ref,omitempty"`
}

func newActivityView(a *models.Activity) *ActivityView {
	view := &ActivityView{Activity: a, Owner: a.OwnerIDs()}
	if c := a.Content(); !c.IsZero() {
		view.ContentRef = &c
	}
	if r := a.Context(); !r.IsZero() {
		view.ContextRef = &r
	}
	return view
}

// RecordMention notifies every recipient at once with a single mentions
// activity. An empty recipient set records nothing and returns nil.
func (s *ActivityService) RecordMention(ctx context.Context, tx *repository.Store, recipients []uuid.UUID, authorID uuid.UUID, message string, content, about models.Ref) (*models.Activity, error) {
	recipients = dedupe(recipients)
	if len(recipients) == 0 {
		return nil, nil
	}

	activity := &models.Activity{
		Type:     models.ActivityMentions,
		Message:  message,
		AuthorID: authorID,
		Owners:   make([]models.ActivityOwner, 0, len(recipients)),
	}
	activity.SetContent(content)
	activity.SetContext(about)
	for _, id := range recipients {
		activity.Owners = append(activity.Owners, models.ActivityOwner{UserID: id})
	}

	if err := tx.Activities.Create(ctx, activity); err != nil {
		return nil, fmt.Errorf("failed to record mention: %w", err)
	}
	return activity, nil
}

// RecordInteraction notifies one recipient. Users are never notified about
// their own actions, so recipient == author records nothing.
func (s *ActivityService) RecordInteraction(ctx context.Context, tx *repository.Store, recipientID, authorID uuid.UUID, message string, content, about models.Ref) (*models.Activity, error) {
	if recipientID == authorID {
		return nil, nil
	}

	activity := &models.Activity{
		Type:     models.ActivityForYou,
		Message:  message,
		AuthorID: authorID,
		Owners:   []models.ActivityOwner{{UserID: recipientID}},
	}
	activity.SetContent(content)
	activity.SetContext(about)

	if err := tx.Activities.Create(ctx, activity); err != nil {
		return nil, fmt.Errorf("failed to record interaction: %w", err)
	}
	return activity, nil
}

// Retract deletes the activity and removes it from every owner. It returns
// the owners that lost it; a missing activity is a no-op.
func (s *ActivityService) Retract(ctx context.Context, tx *repository.Store, activityID uuid.UUID) ([]uuid.UUID, error) {
	activity, err := tx.Activities.GetByID(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, nil
	}
	return s.retract(ctx, tx, []*models.Activity{activity})
}

// RetractFirst retracts the oldest activity matching q. It returns nil when
// nothing matches.
func (s *ActivityService) RetractFirst(ctx context.Context, tx *repository.Store, q repository.ActivityQuery) (*models.Activity, error) {
	activity, err := tx.Activities.FindFirst(ctx, q)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, nil
	}
	if _, err := s.retract(ctx, tx, []*models.Activity{activity}); err != nil {
		return nil, err
	}
	return activity, nil
}

// RetractMatching retracts every activity matching q, each exactly once.
func (s *ActivityService) RetractMatching(ctx context.Context, tx *repository.Store, q repository.ActivityQuery) ([]*models.Activity, []uuid.UUID, error) {
	activities, err := tx.Activities.Find(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	owners, err := s.retract(ctx, tx, activities)
	if err != nil {
		return nil, nil, err
	}
	return activities, owners, nil
}

// RetractTouching retracts every activity whose content or ref points at one
// of targets.
func (s *ActivityService) RetractTouching(ctx context.Context, tx *repository.Store, targets []uuid.UUID) ([]*models.Activity, []uuid.UUID, error) {
	activities, err := tx.Activities.FindTouching(ctx, targets)
	if err != nil {
		return nil, nil, err
	}
	owners, err := s.retract(ctx, tx, activities)
	if err != nil {
		return nil, nil, err
	}
	return activities, owners, nil
}

func (s *ActivityService) retract(ctx context.Context, tx *repository.Store, activities []*models.Activity) ([]uuid.UUID, error) {
	if len(activities) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(activities))
	var owners []uuid.UUID
	for _, a := range activities {
		ids = append(ids, a.ID)
		owners = append(owners, a.OwnerIDs()...)
	}

	if err := tx.Activities.DeleteByIDs(ctx, ids); err != nil {
		return nil, fmt.Errorf("failed to retract activities: %w", err)
	}
	return dedupe(owners), nil
}

// ListForUser pages through a user's activities of one type, newest first.
func (s *ActivityService) ListForUser(ctx context.Context, userID string, activityType string, skip int) ([]*ActivityView, error) {
	id, err := parseID("user", userID)
	if err != nil {
		return nil, err
	}

	t := models.ActivityType(activityType)
	if t != "" && t != models.ActivityForYou && t != models.ActivityMentions {
		return nil, invalid("unknown activity type %q", activityType)
	}

	activities, err := s.store.Activities.ListForOwner(ctx, id, t, clampSkip(skip), s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get activities: %w", err)
	}

	views := make([]*ActivityView, 0, len(activities))
	for _, a := range activities {
		views = append(views, newActivityView(a))
	}
	return views, nil
}
