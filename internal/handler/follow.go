package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"socialmaps/internal/httputil"
	"socialmaps/internal/logger"
	"socialmaps/internal/model"
	"socialmaps/internal/service"
	"socialmaps/internal/transport/http/middleware"
)

// FollowService is the part of service.FollowService the follow routes need.
type FollowService interface {
	FetchFollowData(ctx context.Context, userID string) (*model.FollowData, error)
	GetFollowers(ctx context.Context, userID string, cursor *model.FollowCursor, limit int, viewerID string) (*model.FollowListResponse, error)
	GetFollowing(ctx context.Context, userID string, cursor *model.FollowCursor, limit int, viewerID string) (*model.FollowListResponse, error)
	UnfollowUser(ctx context.Context, followerID, followingID string) error
}

type FollowHandler struct {
	followService FollowService
	log           *zap.Logger
}

func NewFollowHandler(followService FollowService) *FollowHandler {
	return &FollowHandler{
		followService: followService,
		log:           logger.Named("follow_handler"),
	}
}

// FollowData handles GET /users/{id}/follow-data
func (h *FollowHandler) FollowData(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	data, err := h.followService.FetchFollowData(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to fetch follow data")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, data)
}

// Unfollow handles DELETE /users/{id}/follow
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := requireUser(w, r)
	if !ok {
		return
	}
	followingID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	if err := h.followService.UnfollowUser(r.Context(), followerID, followingID); err != nil {
		writeServiceError(w, h.log, err, "Failed to unfollow user")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Successfully unfollowed user",
	})
}

func (h *FollowHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.followService.GetFollowers, "Failed to fetch followers")
}

func (h *FollowHandler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.followService.GetFollowing, "Failed to fetch following")
}

type listFunc func(ctx context.Context, userID string, cursor *model.FollowCursor, limit int, viewerID string) (*model.FollowListResponse, error)

func (h *FollowHandler) list(w http.ResponseWriter, r *http.Request, fetch listFunc, failure string) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	cursor, ok := parseCursor(r.URL.Query().Get("cursor"))
	if !ok {
		httputil.WriteBadRequest(w, "Invalid cursor format")
		return
	}

	limit, ok := parseLimit(r.URL.Query().Get("limit"), service.DefaultFollowListLimit, service.MaxFollowListLimit)
	if !ok {
		httputil.WriteBadRequest(w, "Limit must be between 1 and 100")
		return
	}

	viewerID, _ := middleware.GetUserIDFromContext(r.Context())

	result, err := fetch(r.Context(), userID, cursor, limit, viewerID)
	if err != nil {
		writeServiceError(w, h.log, err, failure)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}
