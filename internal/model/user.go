package model

import (
	"errors"
	"time"
)

// User is a row in the users table. ID is the identity provider's user id and never changes.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     *string   `db:"email" json:"-"`
	Username  *string   `db:"username" json:"username"`
	FirstName *string   `db:"first_name" json:"first_name"`
	LastName  *string   `db:"last_name" json:"last_name"`
	AvatarURL *string   `db:"avatar_url" json:"avatar_url"`
	PushToken *string   `db:"push_token" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DisplayUsername returns the username or an empty string.
func (u *User) DisplayUsername() string {
	if u == nil || u.Username == nil {
		return ""
	}
	return *u.Username
}

// DisplayAvatar returns the avatar URL or an empty string.
func (u *User) DisplayAvatar() string {
	if u == nil || u.AvatarURL == nil {
		return ""
	}
	return *u.AvatarURL
}

// ProfileResponse is the profile screen payload.
type ProfileResponse struct {
	User           *User `json:"user"`
	FollowerCount  int   `json:"follower_count"`
	FollowingCount int   `json:"following_count"`
	IsFollowing    bool  `json:"is_following"`
	RequestPending bool  `json:"request_pending"`
}

// UpdateProfileRequest carries the editable profile fields. Nil fields are left untouched.
type UpdateProfileRequest struct {
	Username  *string `json:"username" validate:"omitempty,min=3,max=30,excludesall= @/"`
	FirstName *string `json:"first_name" validate:"omitempty,max=50"`
	LastName  *string `json:"last_name" validate:"omitempty,max=50"`
}

// PushTokenRequest is the body of PUT /me/push-token.
type PushTokenRequest struct {
	Token string `json:"token" validate:"required,max=255"`
}

// Identity is the subset of the identity provider's user object we persist.
type Identity struct {
	ID        string
	Email     *string
	Username  *string
	FirstName *string
	LastName  *string
	ImageURL  *string
}

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameExists is returned when attempting to take a username that is already in use
	ErrUsernameExists = errors.New("username already exists")

	ErrInvalidPushToken = errors.New("invalid push token")
	ErrInvalidIdentity  = errors.New("identity has no user id")
)
