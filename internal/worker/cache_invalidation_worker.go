package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/cache"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
)

// StartCacheInvalidationWorker evicts cached cards that the database removed
// by cascade when their owner was deleted.
func StartCacheInvalidationWorker(dispatcher events.Dispatcher, cards *cache.Coordinator[domain.PaymentCard], logger *zap.Logger) {
	if dispatcher == nil || cards == nil {
		return
	}
	dispatcher.Subscribe(events.EventUserDeleted, func(ctx context.Context, event events.Event) error {
		payload, ok := event.Payload.(events.UserDeletedPayload)
		if !ok {
			logger.Warn("unexpected user_deleted payload", zap.String("event_id", event.ID))
			return nil
		}
		for _, id := range payload.CardIDs {
			cards.Evict(ctx, id)
		}
		logger.Debug("evicted cascaded cards",
			zap.Int64("user_id", event.AggregateID),
			zap.Int("count", len(payload.CardIDs)),
		)
		return nil
	})
}

// StartAuditLogWorker writes lifecycle events to the structured log.
func StartAuditLogWorker(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}
	audit := func(_ context.Context, event events.Event) error {
		logger.Info("aggregate event",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Int64("aggregate_id", event.AggregateID),
			zap.String("actor", event.Actor),
			zap.Any("payload", event.Payload),
		)
		return nil
	}
	dispatcher.Subscribe(events.EventUserDeleted, audit)
	dispatcher.Subscribe(events.EventUserActivity, audit)
	dispatcher.Subscribe(events.EventCardLimitExceed, audit)
}
