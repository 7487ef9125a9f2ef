package handler

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"socialmaps/internal/httputil"
	"socialmaps/internal/model"
	"socialmaps/internal/transport/http/middleware"
)

type mockFollowService struct {
	FetchFollowDataFunc func(ctx context.Context, userID string) (*model.FollowData, error)
	GetFollowersFunc    func(ctx context.Context, userID string, cursor *model.FollowCursor, limit int, viewerID string) (*model.FollowListResponse, error)
	GetFollowingFunc    func(ctx context.Context, userID string, cursor *model.FollowCursor, limit int, viewerID string) (*model.FollowListResponse, error)
	UnfollowUserFunc    func(ctx context.Context, followerID, followingID string) error
}

func (m *mockFollowService) FetchFollowData(ctx context.Context, userID string) (*model.FollowData, error) {
	return m.FetchFollowDataFunc(ctx, userID)
}

func (m *mockFollowService) GetFollowers(ctx context.Context, userID string, cursor *model.FollowCursor, limit int, viewerID string) (*model.FollowListResponse, error) {
	return m.GetFollowersFunc(ctx, userID, cursor, limit, viewerID)
}

func (m *mockFollowService) GetFollowing(ctx context.Context, userID string, cursor *model.FollowCursor, limit int, viewerID string) (*model.FollowListResponse, error) {
	return m.GetFollowingFunc(ctx, userID, cursor, limit, viewerID)
}

func (m *mockFollowService) UnfollowUser(ctx context.Context, followerID, followingID string) error {
	return m.UnfollowUserFunc(ctx, followerID, followingID)
}

type mockNotificationService struct {
	SendFollowRequestFunc func(ctx context.Context, followerID, followingID string, in model.FollowRequestInput) (*model.Notification, error)
	HasPendingRequestFunc func(ctx context.Context, followerID, followingID string) (bool, error)
	CancelRequestFunc     func(ctx context.Context, requesterID, targetID string) error
	ShowNotificationsFunc func(ctx context.Context, ownID string) ([]model.Notification, error)
	AcceptRequestFunc     func(ctx context.Context, requesterID, accepterID string) (*model.Notification, error)
	RejectRequestFunc     func(ctx context.Context, requesterID, rejecterID string) error
}

func (m *mockNotificationService) SendFollowRequest(ctx context.Context, followerID, followingID string, in model.FollowRequestInput) (*model.Notification, error) {
	return m.SendFollowRequestFunc(ctx, followerID, followingID, in)
}

func (m *mockNotificationService) HasPendingRequest(ctx context.Context, followerID, followingID string) (bool, error) {
	return m.HasPendingRequestFunc(ctx, followerID, followingID)
}

func (m *mockNotificationService) CancelRequest(ctx context.Context, requesterID, targetID string) error {
	return m.CancelRequestFunc(ctx, requesterID, targetID)
}

func (m *mockNotificationService) ShowNotifications(ctx context.Context, ownID string) ([]model.Notification, error) {
	return m.ShowNotificationsFunc(ctx, ownID)
}

func (m *mockNotificationService) AcceptRequest(ctx context.Context, requesterID, accepterID string) (*model.Notification, error) {
	return m.AcceptRequestFunc(ctx, requesterID, accepterID)
}

func (m *mockNotificationService) RejectRequest(ctx context.Context, requesterID, rejecterID string) error {
	return m.RejectRequestFunc(ctx, requesterID, rejecterID)
}

type mockUserService struct {
	FindUsersFunc     func(ctx context.Context, term string, limit int, viewerID string) ([]model.UserSummary, error)
	GetProfileFunc    func(ctx context.Context, userID, viewerID string) (*model.ProfileResponse, error)
	UpdateProfileFunc func(ctx context.Context, userID string, req model.UpdateProfileRequest) (*model.User, error)
	UpdateAvatarFunc  func(ctx context.Context, userID string, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error)
	SetPushTokenFunc  func(ctx context.Context, userID, token string) error
	ProvisionUserFunc func(ctx context.Context, identity model.Identity) (*model.User, error)
}

func (m *mockUserService) FindUsers(ctx context.Context, term string, limit int, viewerID string) ([]model.UserSummary, error) {
	return m.FindUsersFunc(ctx, term, limit, viewerID)
}

func (m *mockUserService) GetProfile(ctx context.Context, userID, viewerID string) (*model.ProfileResponse, error) {
	return m.GetProfileFunc(ctx, userID, viewerID)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID string, req model.UpdateProfileRequest) (*model.User, error) {
	return m.UpdateProfileFunc(ctx, userID, req)
}

func (m *mockUserService) UpdateAvatar(ctx context.Context, userID string, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error) {
	return m.UpdateAvatarFunc(ctx, userID, file, header)
}

func (m *mockUserService) SetPushToken(ctx context.Context, userID, token string) error {
	return m.SetPushTokenFunc(ctx, userID, token)
}

func (m *mockUserService) ProvisionUser(ctx context.Context, identity model.Identity) (*model.User, error) {
	return m.ProvisionUserFunc(ctx, identity)
}

type mockMediaService struct {
	AddPostAtFunc     func(ctx context.Context, userID, key, contentBase64, contentType string) (*model.UploadResult, error)
	GetUserImagesFunc func(ctx context.Context, userID string) ([]string, error)
}

func (m *mockMediaService) AddPostAt(ctx context.Context, userID, key, contentBase64, contentType string) (*model.UploadResult, error) {
	return m.AddPostAtFunc(ctx, userID, key, contentBase64, contentType)
}

func (m *mockMediaService) GetUserImages(ctx context.Context, userID string) ([]string, error) {
	return m.GetUserImagesFunc(ctx, userID)
}

type mockPlacesService struct {
	NearbySearchFunc   func(ctx context.Context, center model.LatLng, radius int, placeType string) ([]model.Place, error)
	ReverseGeocodeFunc func(ctx context.Context, at model.LatLng) (*model.Address, error)
	DirectionsFunc     func(ctx context.Context, origin, destination model.LatLng) (*model.Route, error)
	EstimateTripsFunc  func(ctx context.Context, req model.TripEstimatesRequest) ([]model.TripEstimate, error)
	PhotoURLFunc       func(ref string, maxWidth int) string
}

func (m *mockPlacesService) NearbySearch(ctx context.Context, center model.LatLng, radius int, placeType string) ([]model.Place, error) {
	return m.NearbySearchFunc(ctx, center, radius, placeType)
}

func (m *mockPlacesService) ReverseGeocode(ctx context.Context, at model.LatLng) (*model.Address, error) {
	return m.ReverseGeocodeFunc(ctx, at)
}

func (m *mockPlacesService) Directions(ctx context.Context, origin, destination model.LatLng) (*model.Route, error) {
	return m.DirectionsFunc(ctx, origin, destination)
}

func (m *mockPlacesService) EstimateTrips(ctx context.Context, req model.TripEstimatesRequest) ([]model.TripEstimate, error) {
	return m.EstimateTripsFunc(ctx, req)
}

func (m *mockPlacesService) PhotoURL(ref string, maxWidth int) string {
	return m.PhotoURLFunc(ref, maxWidth)
}

// newRequest builds a request routed through chi with the given {id} and, when
// userID is non-empty, an authenticated caller.
func newRequest(method, target, id, userID string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rctx := chi.NewRouteContext()
	if id != "" {
		rctx.URLParams.Add("id", id)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if userID != "" {
		ctx = middleware.WithUserID(ctx, userID)
	}
	return req.WithContext(ctx)
}

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) httputil.ErrorDetail {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error
}
