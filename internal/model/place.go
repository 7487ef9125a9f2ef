package model

import "errors"

// DefaultNearbyRadius is the search radius in meters when the client sends none.
const DefaultNearbyRadius = 10000

// FarePerMinute prices a trip estimate.
const FarePerMinute = 0.5

type LatLng struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

// Place is a nearby-search result reduced to what the map markers need.
type Place struct {
	ID       string   `json:"id"`
	Name     string   `json:"title"`
	Location LatLng   `json:"location"`
	Address  string   `json:"address,omitempty"`
	Rating   float64  `json:"rating,omitempty"`
	PhotoRef string   `json:"photo_reference,omitempty"`
	Types    []string `json:"types,omitempty"`
}

type Address struct {
	FormattedAddress string `json:"formatted_address"`
	Name             string `json:"name"`
	Region           string `json:"region"`
}

type Route struct {
	DurationSeconds int    `json:"duration_seconds"`
	DistanceMeters  int    `json:"distance_meters"`
	Summary         string `json:"summary,omitempty"`
	Polyline        string `json:"polyline,omitempty"`
}

// TripEstimatesRequest is the body of POST /places/estimates.
type TripEstimatesRequest struct {
	User        LatLng   `json:"user"`
	Destination LatLng   `json:"destination"`
	Places      []LatLng `json:"places" validate:"required,min=1,max=20,dive"`
}

type TripEstimate struct {
	Location LatLng  `json:"location"`
	Minutes  float64 `json:"time"`
	Price    float64 `json:"price"`
}

var (
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrNoRoute            = errors.New("no route found")
	ErrAddressNotFound    = errors.New("no address found")
	ErrMapsUnavailable    = errors.New("maps provider unavailable")
)
