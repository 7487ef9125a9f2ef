package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"socialmaps/internal/model"
)

// TxManager runs fn inside a single database transaction. Write methods on the
// repositories accept the sqlx.ExtContext handed to fn so several of them commit together.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(q sqlx.ExtContext) error) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	Search(ctx context.Context, term string, limit int) ([]model.UserSummary, error)
	// Upsert inserts or refreshes a user row keyed by the identity provider id.
	Upsert(ctx context.Context, identity model.Identity) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, req model.UpdateProfileRequest) (*model.User, error)
	SetAvatarURL(ctx context.Context, id, avatarURL string) error
	SetPushToken(ctx context.Context, id, token string) error
}

type FollowRepository interface {
	Create(ctx context.Context, q sqlx.ExtContext, followerID, followingID string) (bool, error)
	Delete(ctx context.Context, q sqlx.ExtContext, followerID, followingID string) error
	Exists(ctx context.Context, followerID, followingID string) (bool, error)
	CountFollowers(ctx context.Context, userID string) (int, error)
	CountFollowing(ctx context.Context, userID string) (int, error)
	GetFollowers(ctx context.Context, userID string, cursor *model.FollowCursor, limit int) ([]model.UserSummary, *model.FollowCursor, error)
	GetFollowing(ctx context.Context, userID string, cursor *model.FollowCursor, limit int) ([]model.UserSummary, *model.FollowCursor, error)
	GetFollowerIDs(ctx context.Context, userID string) ([]string, error)
	GetFollowingIDs(ctx context.Context, userID string) ([]string, error)
	CheckFollows(ctx context.Context, followerID string, followingIDs []string) (map[string]bool, error)
}

type NotificationRepository interface {
	// CreateRequest inserts a follow_request row. It reports false when one is already pending for the pair.
	CreateRequest(ctx context.Context, q sqlx.ExtContext, n *model.Notification) (bool, error)
	Create(ctx context.Context, q sqlx.ExtContext, n *model.Notification) error
	// DeleteRequests removes every follow_request from actorID in userID's inbox and returns the count.
	DeleteRequests(ctx context.Context, q sqlx.ExtContext, userID, actorID string) (int64, error)
	HasPendingRequest(ctx context.Context, userID, actorID string) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]model.Notification, error)
}
