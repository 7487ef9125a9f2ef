package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"socialmaps/internal/model"
)

// Event types for the notification stream
const (
	EventNotificationCreated = "notification_created"
	EventUserFollowed        = "user_followed"
	EventUserUnfollowed      = "user_unfollowed"
)

const StreamNotifications = "stream:notifications"

// ConsumerGroupPush is the consumer group shared by push workers.
const ConsumerGroupPush = "push_workers"

// Event is the single payload shape carried on the notification stream.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`

	// notification_created
	NotificationID string `json:"notification_id,omitempty"`
	RecipientID    string `json:"recipient_id,omitempty"`
	ActorID        string `json:"actor_id,omitempty"`
	Kind           string `json:"kind,omitempty"`
	Title          string `json:"title,omitempty"`
	Body           string `json:"body,omitempty"`

	// user_followed, user_unfollowed
	FollowerID  string `json:"follower_id,omitempty"`
	FollowingID string `json:"following_id,omitempty"`
}

// NewNotificationCreatedEvent builds the push payload for an inbox entry.
// The body is "<username> <message>" when both are known.
func NewNotificationCreatedEvent(n *model.Notification) Event {
	body := ""
	if n.Message != nil {
		body = *n.Message
	}
	if n.ActorUsername != nil && *n.ActorUsername != "" {
		if body == "" {
			body = *n.ActorUsername
		} else {
			body = *n.ActorUsername + " " + body
		}
	}

	return Event{
		Type:           EventNotificationCreated,
		Timestamp:      time.Now().Unix(),
		NotificationID: n.ID,
		RecipientID:    n.UserID,
		ActorID:        n.ActorID,
		Kind:           n.Kind,
		Title:          n.Title,
		Body:           body,
	}
}

func NewUserFollowedEvent(followerID, followingID string) Event {
	return Event{
		Type:        EventUserFollowed,
		Timestamp:   time.Now().Unix(),
		FollowerID:  followerID,
		FollowingID: followingID,
	}
}

func NewUserUnfollowedEvent(followerID, followingID string) Event {
	return Event{
		Type:        EventUserUnfollowed,
		Timestamp:   time.Now().Unix(),
		FollowerID:  followerID,
		FollowingID: followingID,
	}
}

// ToMap converts the event to XADD field-value pairs. The JSON body lives in "data".
func (e Event) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseEvent parses an Event from Redis stream message values.
func ParseEvent(values map[string]interface{}) (Event, error) {
	data, ok := values["data"].(string)
	if !ok {
		return Event{}, errors.New("missing or invalid 'data' field")
	}

	var event Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if event.Type == "" {
		return Event{}, errors.New("event has no type")
	}
	return event, nil
}
