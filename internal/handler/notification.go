package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"socialmaps/internal/httputil"
	"socialmaps/internal/logger"
	"socialmaps/internal/model"
)

type NotificationService interface {
	SendFollowRequest(ctx context.Context, followerID, followingID string, in model.FollowRequestInput) (*model.Notification, error)
	HasPendingRequest(ctx context.Context, followerID, followingID string) (bool, error)
	CancelRequest(ctx context.Context, requesterID, targetID string) error
	ShowNotifications(ctx context.Context, ownID string) ([]model.Notification, error)
	AcceptRequest(ctx context.Context, requesterID, accepterID string) (*model.Notification, error)
	RejectRequest(ctx context.Context, requesterID, rejecterID string) error
}

type NotificationHandler struct {
	notifications NotificationService
	log           *zap.Logger
}

func NewNotificationHandler(notifications NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		log:           logger.Named("notification_handler"),
	}
}

// SendFollowRequest handles POST /users/{id}/follow-request.
// The body is optional and only overrides the sender snapshot.
func (h *NotificationHandler) SendFollowRequest(w http.ResponseWriter, r *http.Request) {
	followerID, ok := requireUser(w, r)
	if !ok {
		return
	}
	followingID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	var in model.FollowRequestInput
	if r.ContentLength != 0 && !httputil.DecodeJSON(w, r, &in) {
		return
	}

	n, err := h.notifications.SendFollowRequest(r.Context(), followerID, followingID, in)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to send follow request")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, n)
}

// PendingRequest handles GET /users/{id}/follow-request
func (h *NotificationHandler) PendingRequest(w http.ResponseWriter, r *http.Request) {
	followerID, ok := requireUser(w, r)
	if !ok {
		return
	}
	followingID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	pending, err := h.notifications.HasPendingRequest(r.Context(), followerID, followingID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to check follow request")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"pending": pending})
}

// CancelRequest handles DELETE /users/{id}/follow-request
func (h *NotificationHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := requireUser(w, r)
	if !ok {
		return
	}
	targetID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	if err := h.notifications.CancelRequest(r.Context(), requesterID, targetID); err != nil {
		writeServiceError(w, h.log, err, "Failed to cancel follow request")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	items, err := h.notifications.ShowNotifications(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load notifications")
		return
	}
	if items == nil {
		items = []model.Notification{}
	}

	httputil.WriteJSON(w, http.StatusOK, model.NotificationListResponse{Notifications: items})
}

// Accept handles POST /notifications/requests/{id}/accept where {id} is the requester.
func (h *NotificationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	accepterID, ok := requireUser(w, r)
	if !ok {
		return
	}
	requesterID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	if _, err := h.notifications.AcceptRequest(r.Context(), requesterID, accepterID); err != nil {
		writeServiceError(w, h.log, err, "Failed to accept follow request")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Follow request accepted",
	})
}

// Reject handles POST /notifications/requests/{id}/reject
func (h *NotificationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	rejecterID, ok := requireUser(w, r)
	if !ok {
		return
	}
	requesterID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	if err := h.notifications.RejectRequest(r.Context(), requesterID, rejecterID); err != nil {
		writeServiceError(w, h.log, err, "Failed to reject follow request")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
