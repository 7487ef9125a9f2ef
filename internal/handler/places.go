package handler

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"socialmaps/internal/httputil"
	"socialmaps/internal/logger"
	"socialmaps/internal/model"
)

type PlacesService interface {
	NearbySearch(ctx context.Context, center model.LatLng, radius int, placeType string) ([]model.Place, error)
	ReverseGeocode(ctx context.Context, at model.LatLng) (*model.Address, error)
	Directions(ctx context.Context, origin, destination model.LatLng) (*model.Route, error)
	EstimateTrips(ctx context.Context, req model.TripEstimatesRequest) ([]model.TripEstimate, error)
	PhotoURL(ref string, maxWidth int) string
}

type PlacesHandler struct {
	places PlacesService
	log    *zap.Logger
}

func NewPlacesHandler(places PlacesService) *PlacesHandler {
	return &PlacesHandler{places: places, log: logger.Named("places_handler")}
}

// latLngParams reads a "<prefix>lat"/"<prefix>lng" query pair.
func latLngParams(r *http.Request, prefix string) (model.LatLng, bool) {
	lat, okLat := parseFloatParam(r, prefix+"lat")
	lng, okLng := parseFloatParam(r, prefix+"lng")
	return model.LatLng{Lat: lat, Lng: lng}, okLat && okLng
}

// Nearby handles GET /places/nearby?lat=&lng=&radius=&type=
func (h *PlacesHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	center, ok := latLngParams(r, "")
	if !ok {
		httputil.WriteBadRequest(w, "lat and lng are required")
		return
	}

	radius := 0
	if raw := r.URL.Query().Get("radius"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httputil.WriteBadRequest(w, "radius must be a positive number of meters")
			return
		}
		radius = parsed
	}

	places, err := h.places.NearbySearch(r.Context(), center, radius, r.URL.Query().Get("type"))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to search nearby places")
		return
	}
	if places == nil {
		places = []model.Place{}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"places": places})
}

// Geocode handles GET /places/geocode?lat=&lng=
func (h *PlacesHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	at, ok := latLngParams(r, "")
	if !ok {
		httputil.WriteBadRequest(w, "lat and lng are required")
		return
	}

	addr, err := h.places.ReverseGeocode(r.Context(), at)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to reverse geocode")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, addr)
}

// Directions handles GET /places/directions?origin_lat=&origin_lng=&dest_lat=&dest_lng=
func (h *PlacesHandler) Directions(w http.ResponseWriter, r *http.Request) {
	origin, okOrigin := latLngParams(r, "origin_")
	dest, okDest := latLngParams(r, "dest_")
	if !okOrigin || !okDest {
		httputil.WriteBadRequest(w, "origin and destination coordinates are required")
		return
	}

	route, err := h.places.Directions(r.Context(), origin, dest)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to compute directions")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, route)
}

// Estimates handles POST /places/estimates
func (h *PlacesHandler) Estimates(w http.ResponseWriter, r *http.Request) {
	var req model.TripEstimatesRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	estimates, err := h.places.EstimateTrips(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to estimate trips")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"estimates": estimates})
}

// Photo handles GET /places/photo?ref=&max_width=
func (h *PlacesHandler) Photo(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		httputil.WriteBadRequest(w, "ref is required")
		return
	}

	maxWidth, ok := parseLimit(r.URL.Query().Get("max_width"), 0, 1600)
	if !ok {
		httputil.WriteBadRequest(w, "max_width must be between 1 and 1600")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"url": h.places.PhotoURL(ref, maxWidth)})
}
