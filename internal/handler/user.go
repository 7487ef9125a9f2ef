package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"go.uber.org/zap"

	"socialmaps/internal/httputil"
	"socialmaps/internal/logger"
	"socialmaps/internal/model"
)

// avatar file limit plus room for the multipart envelope
const maxAvatarFormSize = model.MaxAvatarSizeBytes + 1<<20

type UserService interface {
	FindUsers(ctx context.Context, term string, limit int, viewerID string) ([]model.UserSummary, error)
	GetProfile(ctx context.Context, userID, viewerID string) (*model.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID string, req model.UpdateProfileRequest) (*model.User, error)
	UpdateAvatar(ctx context.Context, userID string, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error)
	SetPushToken(ctx context.Context, userID, token string) error
}

type UserHandler struct {
	userService UserService
	log         *zap.Logger
}

func NewUserHandler(userService UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
		log:         logger.Named("user_handler"),
	}
}

// Me handles GET /me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	h.writeProfile(w, r, userID, userID)
}

// GetProfile handles GET /users/{id}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireUser(w, r)
	if !ok {
		return
	}
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	h.writeProfile(w, r, userID, viewerID)
}

func (h *UserHandler) writeProfile(w http.ResponseWriter, r *http.Request, userID, viewerID string) {
	profile, err := h.userService.GetProfile(r.Context(), userID, viewerID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to load profile")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// UpdateMe handles PATCH /me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.UpdateProfileRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update profile")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}

// UpdateAvatar handles PUT /me/avatar with a multipart "avatar" file.
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarFormSize)
	if err := r.ParseMultipartForm(maxAvatarFormSize); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrNotMultipart):
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
		case errors.As(err, &maxErr):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Avatar exceeds 5MB limit")
		default:
			httputil.WriteBadRequest(w, "Invalid form data")
		}
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		httputil.WriteBadRequest(w, "avatar file is required")
		return
	}
	defer file.Close()

	result, err := h.userService.UpdateAvatar(r.Context(), userID, file, header)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to upload avatar")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// SetPushToken handles PUT /me/push-token
func (h *UserHandler) SetPushToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.PushTokenRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	if err := h.userService.SetPushToken(r.Context(), userID, req.Token); err != nil {
		writeServiceError(w, h.log, err, "Failed to save push token")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /users/search. A blank q yields an empty list, not an error.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit, ok := parseLimit(r.URL.Query().Get("limit"), model.DefaultSearchLimit, model.MaxSearchLimit)
	if !ok {
		httputil.WriteBadRequest(w, "Limit must be between 1 and 100")
		return
	}

	users, err := h.userService.FindUsers(r.Context(), r.URL.Query().Get("q"), limit, viewerID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to search users")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
	})
}
