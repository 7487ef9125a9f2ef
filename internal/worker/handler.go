package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"socialmaps/internal/logger"
	"socialmaps/internal/metrics"
	"socialmaps/internal/model"
	"socialmaps/internal/queue"
)

// RecipientLoader loads the user a notification is addressed to.
type RecipientLoader interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// PushSender delivers a single push message.
type PushSender interface {
	SendToToken(ctx context.Context, token, title, body string, data map[string]interface{}) error
}

// Handler processes notification stream events.
type Handler struct {
	users   RecipientLoader
	push    PushSender
	metrics metrics.Recorder
	log     *zap.Logger
}

// NewHandler creates a new event handler. rec may be nil.
func NewHandler(users RecipientLoader, push PushSender, rec metrics.Recorder) *Handler {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Handler{
		users:   users,
		push:    push,
		metrics: rec,
		log:     logger.Named("worker_handler"),
	}
}

// HandleEvent routes an event by type. Unknown types are ignored.
func (h *Handler) HandleEvent(ctx context.Context, event queue.Event) error {
	startTime := time.Now()
	h.metrics.RecordStreamEvent(event.Type)

	var err error
	switch event.Type {
	case queue.EventNotificationCreated:
		err = h.handleNotificationCreated(ctx, event)
	case queue.EventUserFollowed, queue.EventUserUnfollowed:
		h.log.Info("follow graph changed",
			zap.String("type", event.Type),
			zap.String("follower_id", event.FollowerID),
			zap.String("following_id", event.FollowingID),
		)
	default:
		h.log.Warn("unknown event type", zap.String("type", event.Type))
	}

	if err != nil {
		return fmt.Errorf("handle %s: %w", event.Type, err)
	}

	h.log.Debug("event handled", zap.String("type", event.Type), zap.Duration("duration", time.Since(startTime)))
	return nil
}

func (h *Handler) handleNotificationCreated(ctx context.Context, event queue.Event) error {
	recipient, err := h.users.GetByID(ctx, event.RecipientID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			h.metrics.RecordPushSend(metrics.OutcomeSkipped)
			return nil
		}
		h.metrics.RecordPushSend(metrics.OutcomeError)
		return fmt.Errorf("load recipient: %w", err)
	}

	if recipient.PushToken == nil || *recipient.PushToken == "" {
		h.metrics.RecordPushSend(metrics.OutcomeSkipped)
		return nil
	}

	data := map[string]interface{}{
		"notification_id": event.NotificationID,
		"kind":            event.Kind,
		"actor_id":        event.ActorID,
	}
	if err := h.push.SendToToken(ctx, *recipient.PushToken, event.Title, event.Body, data); err != nil {
		h.metrics.RecordPushSend(metrics.OutcomeError)
		return fmt.Errorf("send push: %w", err)
	}

	h.metrics.RecordPushSend(metrics.OutcomeOK)
	return nil
}
