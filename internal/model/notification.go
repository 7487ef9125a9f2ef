package model

import (
	"errors"
	"time"
)

// Notification kinds
const (
	NotificationKindFollowRequest  = "follow_request"
	NotificationKindFollowAccepted = "follow_accepted"
	NotificationKindMessage        = "message"
)

// Display titles shown by the mobile client.
const (
	TitleFollowRequest    = "Takip isteği"
	TitleFollowAccepted   = "Takip isteği kabul edildi"
	MessageFollowAccepted = "takip isteğinizi kabul etti"
)

// Notification is one inbox entry. ActorID is the counterpart user for every kind.
// ActorUsername and ActorAvatarURL are a snapshot taken when the entry was created.
type Notification struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"-"`
	ActorID        string    `db:"actor_id" json:"actor_id"`
	Kind           string    `db:"kind" json:"kind"`
	Title          string    `db:"title" json:"type"`
	Message        *string   `db:"message" json:"message,omitempty"`
	ActorUsername  *string   `db:"actor_username" json:"username"`
	ActorAvatarURL *string   `db:"actor_avatar_url" json:"avatar_url"`
	CreatedAt      time.Time `db:"created_at" json:"date"`
}

// NotificationListResponse is the GET /notifications payload.
type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
}

// ResendInput describes a notification sent back to a requester.
// FollowerID receives it; FollowingID is recorded as the actor.
type ResendInput struct {
	FollowerID  string
	FollowingID string
	Username    string
	AvatarURL   string
	Message     string
	Title       string
	Kind        string
}

// FollowRequestInput carries the snapshot attached to a new follow request.
type FollowRequestInput struct {
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
	Username  string `json:"username" validate:"omitempty,max=30"`
}

var (
	ErrRequestAlreadyPending = errors.New("follow request already pending")
	ErrNoPendingRequest      = errors.New("no pending follow request")
	ErrInvalidNotification   = errors.New("invalid notification")
)
