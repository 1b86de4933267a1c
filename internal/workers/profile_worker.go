package workers

import (
	"context"
	"fmt"

	"github.com/netai/social-api/internal/services"
	"github.com/netai/social-api/pkg/logger"
	"github.com/netai/social-api/pkg/queue"
)

// Consumer is satisfied by *queue.KafkaConsumer.
type Consumer interface {
	Subscribe(ctx context.Context, handler func(queue.Message) error, onError func(queue.Message, error)) error
	Close() error
}

type KeyDeleter interface {
	Delete(ctx context.Context, keys ...string) error
}

// ProfileWorker drops cached profiles of every user named in a social event.
// The API invalidates synchronously too; this covers API instances that
// failed to reach Redis and any other writer of the topic.
type ProfileWorker struct {
	consumer Consumer
	cache    KeyDeleter
	logger   *logger.Logger
}

func NewProfileWorker(consumer Consumer, cache KeyDeleter, logger *logger.Logger) *ProfileWorker {
	return &ProfileWorker{
		consumer: consumer,
		cache:    cache,
		logger:   logger,
	}
}

func (w *ProfileWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting profile worker...")

	return w.consumer.Subscribe(ctx, func(msg queue.Message) error {
		return w.handleMessage(ctx, msg)
	}, func(msg queue.Message, err error) {
		w.logger.WithError(err).WithField("key", msg.Key).Error("Failed to process event")
	})
}

func (w *ProfileWorker) handleMessage(ctx context.Context, msg queue.Message) error {
	eventType, data, err := queue.DecodeEntityEvent(msg.Value)
	if err != nil {
		return err
	}

	w.logger.WithFields(map[string]interface{}{
		"event_type": eventType,
		"entity_id":  data.EntityID,
		"affected":   len(data.AffectedUserIDs),
	}).Debug("Processing event")

	if len(data.AffectedUserIDs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(data.AffectedUserIDs))
	for _, id := range data.AffectedUserIDs {
		keys = append(keys, services.ProfileCacheKey(id))
	}
	if err := w.cache.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to invalidate profiles: %w", err)
	}
	return nil
}

func (w *ProfileWorker) Stop() error {
	w.logger.Info("Stopping profile worker...")
	return w.consumer.Close()
}
