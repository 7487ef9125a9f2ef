package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"socialmaps/internal/httputil"
	"socialmaps/internal/model"
	"socialmaps/internal/transport/http/middleware"
)

// writeServiceError maps domain errors onto the HTTP error envelope.
// Anything unrecognised is logged and reported as a 500 with fallback as the message.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, model.ErrCannotFollowSelf),
		errors.Is(err, model.ErrInvalidCoordinates),
		errors.Is(err, model.ErrInvalidPushToken),
		errors.Is(err, model.ErrInvalidNotification),
		errors.Is(err, model.ErrInvalidPostPath):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, model.ErrFileTooLarge):
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, err.Error())
	case errors.Is(err, model.ErrInvalidMediaType):
		httputil.WriteBadRequestWithCode(w, model.CodeInvalidMediaType, err.Error())
	case errors.Is(err, model.ErrInvalidPayload):
		httputil.WriteBadRequestWithCode(w, model.CodeInvalidPayload, err.Error())
	case errors.Is(err, model.ErrUserNotFound),
		errors.Is(err, model.ErrNotFollowing),
		errors.Is(err, model.ErrNoPendingRequest),
		errors.Is(err, model.ErrNoRoute),
		errors.Is(err, model.ErrAddressNotFound):
		httputil.WriteNotFound(w, err.Error())
	case errors.Is(err, model.ErrAlreadyFollowing),
		errors.Is(err, model.ErrRequestAlreadyPending),
		errors.Is(err, model.ErrUsernameExists):
		httputil.WriteConflict(w, err.Error())
	case errors.Is(err, model.ErrStorageNotEnabled):
		httputil.WriteError(w, http.StatusServiceUnavailable, model.CodeStorageNotEnabled, err.Error())
	case errors.Is(err, model.ErrMapsUnavailable):
		log.Warn("maps provider call failed", zap.Error(err))
		httputil.WriteBadGateway(w, "Maps provider is unavailable")
	default:
		log.Error(fallback, zap.Error(err))
		httputil.WriteInternalError(w, fallback)
	}
}

// requireUser returns the caller's id or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
	}
	return userID, ok
}

// pathUserID reads the {id} segment. Identity provider ids are opaque strings.
func pathUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return "", false
	}
	return id, true
}

// parseLimit returns def for a missing value and rejects anything outside [1, max].
func parseLimit(raw string, def, max int) (int, bool) {
	if raw == "" {
		return def, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > max {
		return 0, false
	}
	return limit, true
}

// parseCursor accepts the opaque values handed out as next_cursor.
func parseCursor(raw string) (*model.FollowCursor, bool) {
	if raw == "" {
		return nil, true
	}
	cursor, err := model.ParseFollowCursor(raw)
	if err != nil {
		return nil, false
	}
	return cursor, true
}

func parseFloatParam(r *http.Request, name string) (float64, bool) {
	v, err := strconv.ParseFloat(r.URL.Query().Get(name), 64)
	return v, err == nil
}
