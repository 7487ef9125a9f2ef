package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	svix "github.com/svix/svix-webhooks/go"
	"go.uber.org/zap"

	"socialmaps/internal/httputil"
	"socialmaps/internal/logger"
	"socialmaps/internal/model"
)

const (
	maxWebhookBodyBytes = 1 << 20
	webhookSecretPrefix = "whsec_"
)

type UserProvisioner interface {
	ProvisionUser(ctx context.Context, identity model.Identity) (*model.User, error)
}

// WebhookHandler receives identity provider user events signed with Svix.
type WebhookHandler struct {
	users    UserProvisioner
	verifier *svix.Webhook
	log      *zap.Logger
}

// NewWebhookHandler takes the "whsec_<base64>" signing secret from the provider dashboard.
func NewWebhookHandler(users UserProvisioner, secret string) (*WebhookHandler, error) {
	if strings.TrimPrefix(secret, webhookSecretPrefix) == "" {
		return nil, errors.New("webhook secret is empty")
	}
	verifier, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook secret: %w", err)
	}
	return &WebhookHandler{
		users:    users,
		verifier: verifier,
		log:      logger.Named("webhook_handler"),
	}, nil
}

type identityEvent struct {
	Type string       `json:"type"`
	Data identityUser `json:"data"`
}

type identityUser struct {
	ID                    string  `json:"id"`
	Username              *string `json:"username"`
	FirstName             *string `json:"first_name"`
	LastName              *string `json:"last_name"`
	ImageURL              *string `json:"image_url"`
	PrimaryEmailAddressID string  `json:"primary_email_address_id"`
	EmailAddresses        []struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

func (u identityUser) identity() model.Identity {
	id := model.Identity{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		ImageURL:  u.ImageURL,
	}
	for _, e := range u.EmailAddresses {
		if e.ID == u.PrimaryEmailAddressID || id.Email == nil {
			email := e.EmailAddress
			id.Email = &email
		}
	}
	return id
}

// Handle serves POST /webhooks/identity
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	// svix checks the timestamp tolerance and every rotated v1 signature
	if err := h.verifier.Verify(body, r.Header); err != nil {
		h.log.Warn("rejected webhook", zap.Error(err))
		httputil.WriteUnauthorized(w, "Invalid webhook signature")
		return
	}

	var event identityEvent
	if err := json.Unmarshal(body, &event); err != nil {
		httputil.WriteBadRequest(w, "Invalid event payload")
		return
	}

	switch event.Type {
	case "user.created", "user.updated":
	default:
		h.log.Debug("ignoring webhook event", zap.String("type", event.Type))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	user, err := h.users.ProvisionUser(r.Context(), event.Data.identity())
	if err != nil {
		if errors.Is(err, model.ErrInvalidIdentity) {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		writeServiceError(w, h.log, err, "Failed to provision user")
		return
	}

	h.log.Info("user provisioned", zap.String("type", event.Type), zap.String("user_id", user.ID))
	w.WriteHeader(http.StatusNoContent)
}
