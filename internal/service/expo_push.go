package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"socialmaps/internal/logger"
)

// ExpoPushClient sends push notifications through Expo's Push API.
// Tokens look like "ExponentPushToken[xxx]" and are stored on the user row by PUT /me/push-token.
type ExpoPushClient struct {
	http *resty.Client
	url  string
	log  *zap.Logger
}

// ExpoPushMessage is the payload for Expo's Push API.
type ExpoPushMessage struct {
	To       []string               `json:"to"`
	Title    string                 `json:"title,omitempty"`
	Body     string                 `json:"body"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Sound    string                 `json:"sound,omitempty"`
	Priority string                 `json:"priority,omitempty"`
}

type ExpoPushResponse struct {
	Data []ExpoPushTicket `json:"data"`
}

type ExpoPushTicket struct {
	Status  string `json:"status"` // "ok" or "error"
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"` // "DeviceNotRegistered", "MessageTooBig", ...
	} `json:"details,omitempty"`
}

func NewExpoPushClient(url string) *ExpoPushClient {
	client := resty.New().
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	return &ExpoPushClient{http: client, url: url, log: logger.Named("expo_push")}
}

// IsExpoToken reports whether token has the Expo push token shape.
func IsExpoToken(token string) bool {
	return strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")
}

// SendToToken sends one notification. Invalid tokens are skipped without error.
func (c *ExpoPushClient) SendToToken(ctx context.Context, token, title, body string, data map[string]interface{}) error {
	if !IsExpoToken(token) {
		c.log.Debug("skipping non-expo token")
		return nil
	}

	var out ExpoPushResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(ExpoPushMessage{
			To:       []string{token},
			Title:    title,
			Body:     body,
			Data:     data,
			Sound:    "default",
			Priority: "high",
		}).
		SetResult(&out).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("expo api error: status=%d body=%s", resp.StatusCode(), resp.String())
	}

	for _, ticket := range out.Data {
		if ticket.Status != "ok" {
			return fmt.Errorf("expo ticket error: %s (%s)", ticket.Message, ticket.Details.Error)
		}
	}
	return nil
}
