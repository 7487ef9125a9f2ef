package model

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

type Follow struct {
	FollowerID  string    `db:"follower_id" json:"follower_id"`
	FollowingID string    `db:"following_id" json:"following_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// UserSummary is the row shape returned by search and follower lists.
type UserSummary struct {
	ID          string  `db:"id" json:"id"`
	Username    *string `db:"username" json:"username"`
	FirstName   *string `db:"first_name" json:"first_name"`
	LastName    *string `db:"last_name" json:"last_name"`
	AvatarURL   *string `db:"avatar_url" json:"avatar_url"`
	IsFollowing bool    `json:"is_following"`
}

type FollowListResponse struct {
	Users      []UserSummary `json:"users"`
	NextCursor *string       `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

// FollowCursor marks the last edge of a page. created_at alone is not unique,
// so the user on the other end of the edge breaks ties.
type FollowCursor struct {
	CreatedAt time.Time
	UserID    string
}

// Encode returns the opaque next_cursor value.
func (c FollowCursor) Encode() string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.UserID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseFollowCursor decodes a value produced by Encode.
func ParseFollowCursor(s string) (*FollowCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	ts, id, found := strings.Cut(string(raw), "|")
	if !found || id == "" {
		return nil, ErrInvalidCursor
	}
	at, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &FollowCursor{CreatedAt: at, UserID: id}, nil
}

// FollowData lists the raw ids on both sides of a user's follow graph.
type FollowData struct {
	Followers []string `json:"followers"`
	Following []string `json:"following"`
}

var (
	ErrAlreadyFollowing = errors.New("already following this user")
	ErrNotFollowing     = errors.New("not following this user")
	ErrCannotFollowSelf = errors.New("cannot follow yourself")
	ErrInvalidCursor    = errors.New("invalid cursor")
)
