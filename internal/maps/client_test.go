package maps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialmaps/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key")
}

func TestNearbySearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/place/nearbysearch/json", r.URL.Path)
		assert.Equal(t, "41.01,28.97", r.URL.Query().Get("location"))
		assert.Equal(t, "10000", r.URL.Query().Get("radius"))
		assert.Equal(t, "cafe", r.URL.Query().Get("type"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"OK","results":[
			{"place_id":"p1","name":"Kahve","vicinity":"Beyoglu","rating":4.5,
			 "geometry":{"location":{"lat":41.02,"lng":28.98}},
			 "photos":[{"photo_reference":"ref1"}]}
		]}`)
	})

	places, err := client.NearbySearch(context.Background(), model.LatLng{Lat: 41.01, Lng: 28.97}, 10000, "cafe")
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "p1", places[0].ID)
	assert.Equal(t, "Kahve", places[0].Name)
	assert.Equal(t, 41.02, places[0].Location.Lat)
	assert.Equal(t, "ref1", places[0].PhotoRef)
}

func TestNearbySearch_ZeroResultsIsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ZERO_RESULTS","results":[]}`)
	})

	places, err := client.NearbySearch(context.Background(), model.LatLng{Lat: 1, Lng: 2}, 500, "")
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestNearbySearch_ProviderErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"REQUEST_DENIED","error_message":"bad key"}`)
	})

	_, err := client.NearbySearch(context.Background(), model.LatLng{Lat: 1, Lng: 2}, 500, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrMapsUnavailable))
}

func TestDirections(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/directions/json", r.URL.Path)
		assert.Equal(t, "1,2", r.URL.Query().Get("origin"))
		assert.Equal(t, "3,4", r.URL.Query().Get("destination"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"OK","routes":[{"summary":"E5","overview_polyline":{"points":"abc"},
			"legs":[{"duration":{"value":600},"distance":{"value":4200}}]}]}`)
	})

	route, err := client.Directions(context.Background(), model.LatLng{Lat: 1, Lng: 2}, model.LatLng{Lat: 3, Lng: 4})
	require.NoError(t, err)
	assert.Equal(t, 600, route.DurationSeconds)
	assert.Equal(t, 4200, route.DistanceMeters)
	assert.Equal(t, "E5", route.Summary)
}

func TestDirections_NoRoute(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ZERO_RESULTS","routes":[]}`)
	})

	_, err := client.Directions(context.Background(), model.LatLng{}, model.LatLng{Lat: 1, Lng: 1})
	assert.ErrorIs(t, err, model.ErrNoRoute)
}

func TestDirections_HTTPFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Directions(context.Background(), model.LatLng{}, model.LatLng{Lat: 1, Lng: 1})
	assert.ErrorIs(t, err, model.ErrMapsUnavailable)
}

func TestReverseGeocode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/json", r.URL.Path)
		assert.Equal(t, "41.01,28.97", r.URL.Query().Get("latlng"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"OK","results":[{"formatted_address":"Istiklal Cd., Istanbul",
			"address_components":[
				{"long_name":"12","types":["street_number"]},
				{"long_name":"Istiklal Caddesi","types":["route"]},
				{"long_name":"Istanbul","types":["administrative_area_level_1","political"]}
			]}]}`)
	})

	addr, err := client.ReverseGeocode(context.Background(), model.LatLng{Lat: 41.01, Lng: 28.97})
	require.NoError(t, err)
	assert.Equal(t, "Istiklal Caddesi", addr.Name)
	assert.Equal(t, "Istanbul", addr.Region)
	assert.Equal(t, "Istiklal Cd., Istanbul", addr.FormattedAddress)
}

func TestPhotoURL(t *testing.T) {
	client := NewClient("https://maps.example.com/api/", "k")

	got, err := url.Parse(client.PhotoURL("ref 1", 400))
	require.NoError(t, err)
	assert.Equal(t, "/api/place/photo", got.Path)
	assert.Equal(t, "400", got.Query().Get("maxwidth"))
	assert.Equal(t, "ref 1", got.Query().Get("photoreference"))
	assert.Equal(t, "k", got.Query().Get("key"))
}
