package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"socialmaps/internal/model"
)

const notificationColumns = `id, user_id, actor_id, kind, title, message, actor_username, actor_avatar_url, created_at`

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// CreateRequest relies on the partial unique index over pending follow requests.
func (r *notificationRepository) CreateRequest(ctx context.Context, q sqlx.ExtContext, n *model.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES (:id, :user_id, :actor_id, :kind, :title, :message, :actor_username, :actor_avatar_url, :created_at)
		ON CONFLICT (user_id, actor_id) WHERE kind = 'follow_request' DO NOTHING
	`
	result, err := sqlx.NamedExecContext(ctx, q, query, n)
	if err != nil {
		return false, fmt.Errorf("insert follow request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows > 0, nil
}

// Create inserts a new notification.
func (r *notificationRepository) Create(ctx context.Context, q sqlx.ExtContext, n *model.Notification) error {
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES (:id, :user_id, :actor_id, :kind, :title, :message, :actor_username, :actor_avatar_url, :created_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, q, query, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) DeleteRequests(ctx context.Context, q sqlx.ExtContext, userID, actorID string) (int64, error) {
	query := `DELETE FROM notifications WHERE user_id = $1 AND actor_id = $2 AND kind = $3`
	result, err := q.ExecContext(ctx, query, userID, actorID, model.NotificationKindFollowRequest)
	if err != nil {
		return 0, fmt.Errorf("delete follow requests: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return rows, nil
}

func (r *notificationRepository) HasPendingRequest(ctx context.Context, userID, actorID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM notifications WHERE user_id = $1 AND actor_id = $2 AND kind = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, actorID, model.NotificationKindFollowRequest); err != nil {
		return false, fmt.Errorf("check pending request: %w", err)
	}
	return exists, nil
}

// ListForUser returns the whole inbox, newest first.
func (r *notificationRepository) ListForUser(ctx context.Context, userID string) ([]model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1 ORDER BY created_at DESC, id`

	notifications := []model.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, userID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}
