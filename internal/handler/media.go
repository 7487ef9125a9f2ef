package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"socialmaps/internal/httputil"
	"socialmaps/internal/logger"
	"socialmaps/internal/model"
)

type MediaService interface {
	AddPostAt(ctx context.Context, userID, key, contentBase64, contentType string) (*model.UploadResult, error)
	GetUserImages(ctx context.Context, userID string) ([]string, error)
}

type MediaHandler struct {
	mediaService MediaService
	log          *zap.Logger
}

func NewMediaHandler(mediaService MediaService) *MediaHandler {
	return &MediaHandler{
		mediaService: mediaService,
		log:          logger.Named("media_handler"),
	}
}

// CreatePost handles POST /posts
// Uploads a base64 image or video into the caller's folder.
func (h *MediaHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreatePostRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.mediaService.AddPostAt(r.Context(), userID, req.Path, req.ContentBase64, req.ContentType)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to upload post")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, res)
}

// UserImages handles GET /users/{id}/images
func (h *MediaHandler) UserImages(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}

	urls, err := h.mediaService.GetUserImages(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list images")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.ImageListResponse{Images: urls})
}
