package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/netai/social-api/pkg/logger"
	"github.com/netai/social-api/pkg/queue"
)

// EventPublisher is satisfied by *queue.KafkaProducer.
type EventPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

// ProfileCache is satisfied by *cache.RedisClient.
type ProfileCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

func ProfileCacheKey(userID string) string {
	return fmt.Sprintf("user_profile:%s", userID)
}

// notifier runs the post-commit side effects of a mutation. Failures are
// logged and never fail the operation.
type notifier struct {
	producer EventPublisher
	cache    ProfileCache
	logger   *logger.Logger
}

func (n *notifier) publish(ctx context.Context, eventType queue.EventType, entityID, actorID uuid.UUID, affected []uuid.UUID) {
	n.invalidate(ctx, affected)

	if n.producer == nil {
		return
	}
	event := queue.Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data: queue.EntityEventData{
			EntityID:        entityID.String(),
			ActorID:         actorID.String(),
			AffectedUserIDs: idStrings(dedupe(affected)),
		},
	}
	if err := n.producer.Publish(ctx, actorID.String(), event); err != nil {
		n.logger.WithError(err).WithField("event_type", eventType).Error("Failed to publish event")
	}
}

func (n *notifier) invalidate(ctx context.Context, userIDs []uuid.UUID) {
	if n.cache == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range dedupe(userIDs) {
		keys = append(keys, ProfileCacheKey(id.String()))
	}
	if err := n.cache.Delete(ctx, keys...); err != nil {
		n.logger.WithError(err).Error("Failed to invalidate profile cache")
	}
}
