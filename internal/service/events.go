package service

import (
	"context"

	"go.uber.org/zap"

	"socialmaps/internal/queue"
)

// publishEvent sends event after a commit. Failures are logged and never reach the caller.
func publishEvent(ctx context.Context, pub queue.Publisher, log *zap.Logger, event queue.Event) {
	if pub == nil {
		return
	}

	msgID, err := pub.Publish(ctx, queue.StreamNotifications, event)
	if err != nil {
		log.Warn("failed to publish event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	log.Debug("published event", zap.String("type", event.Type), zap.String("msg_id", msgID))
}
