package maps

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"socialmaps/internal/model"
)

const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

// Client calls the Places, Geocoding and Directions web services.
type Client struct {
	http    *resty.Client
	baseURL string
	apiKey  string
}

func NewClient(baseURL, apiKey string) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetQueryParam("key", apiKey)

	return &Client{http: client, baseURL: baseURL, apiKey: apiKey}
}

type latLngJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type nearbyResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		PlaceID  string   `json:"place_id"`
		Name     string   `json:"name"`
		Vicinity string   `json:"vicinity"`
		Rating   float64  `json:"rating"`
		Types    []string `json:"types"`
		Geometry struct {
			Location latLngJSON `json:"location"`
		} `json:"geometry"`
		Photos []struct {
			PhotoReference string `json:"photo_reference"`
		} `json:"photos"`
	} `json:"results"`
}

// NearbySearch returns places of placeType within radius meters of center.
func (c *Client) NearbySearch(ctx context.Context, center model.LatLng, radius int, placeType string) ([]model.Place, error) {
	var out nearbyResponse
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("location", formatLatLng(center)).
		SetQueryParam("radius", strconv.Itoa(radius)).
		SetResult(&out)
	if placeType != "" {
		req.SetQueryParam("type", placeType)
	}

	if err := do(req, "/place/nearbysearch/json"); err != nil {
		return nil, err
	}
	if err := checkStatus(out.Status, out.ErrorMessage); err != nil {
		return nil, err
	}

	places := make([]model.Place, 0, len(out.Results))
	for _, r := range out.Results {
		p := model.Place{
			ID:       r.PlaceID,
			Name:     r.Name,
			Location: model.LatLng{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
			Address:  r.Vicinity,
			Rating:   r.Rating,
			Types:    r.Types,
		}
		if len(r.Photos) > 0 {
			p.PhotoRef = r.Photos[0].PhotoReference
		}
		places = append(places, p)
	}
	return places, nil
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress  string `json:"formatted_address"`
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

// ReverseGeocode resolves the first address at the given point.
func (c *Client) ReverseGeocode(ctx context.Context, at model.LatLng) (*model.Address, error) {
	var out geocodeResponse
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("latlng", formatLatLng(at)).
		SetResult(&out)

	if err := do(req, "/geocode/json"); err != nil {
		return nil, err
	}
	if err := checkStatus(out.Status, out.ErrorMessage); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		return nil, model.ErrAddressNotFound
	}

	first := out.Results[0]
	addr := &model.Address{FormattedAddress: first.FormattedAddress}
	for _, comp := range first.AddressComponents {
		switch {
		case addr.Name == "" && hasType(comp.Types, "route", "neighborhood", "sublocality", "locality"):
			addr.Name = comp.LongName
		case addr.Region == "" && hasType(comp.Types, "administrative_area_level_1"):
			addr.Region = comp.LongName
		}
	}
	return addr, nil
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Summary          string `json:"summary"`
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
		Legs []struct {
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
			Distance struct {
				Value int `json:"value"`
			} `json:"distance"`
		} `json:"legs"`
	} `json:"routes"`
}

// Directions returns the first leg of the first route between origin and destination.
func (c *Client) Directions(ctx context.Context, origin, destination model.LatLng) (*model.Route, error) {
	var out directionsResponse
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("origin", formatLatLng(origin)).
		SetQueryParam("destination", formatLatLng(destination)).
		SetResult(&out)

	if err := do(req, "/directions/json"); err != nil {
		return nil, err
	}
	if out.Status == statusZeroResults {
		return nil, model.ErrNoRoute
	}
	if err := checkStatus(out.Status, out.ErrorMessage); err != nil {
		return nil, err
	}
	if len(out.Routes) == 0 || len(out.Routes[0].Legs) == 0 {
		return nil, model.ErrNoRoute
	}

	route := out.Routes[0]
	leg := route.Legs[0]
	return &model.Route{
		DurationSeconds: leg.Duration.Value,
		DistanceMeters:  leg.Distance.Value,
		Summary:         route.Summary,
		Polyline:        route.OverviewPolyline.Points,
	}, nil
}

// PhotoURL builds the photo endpoint URL for a photo reference. No request is made.
func (c *Client) PhotoURL(ref string, maxWidth int) string {
	q := url.Values{}
	q.Set("maxwidth", strconv.Itoa(maxWidth))
	q.Set("photoreference", ref)
	q.Set("key", c.apiKey)
	return c.baseURL + "/place/photo?" + q.Encode()
}

func do(req *resty.Request, path string) error {
	resp, err := req.Get(path)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrMapsUnavailable, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: %s returned %d", model.ErrMapsUnavailable, path, resp.StatusCode())
	}
	return nil
}

// checkStatus treats ZERO_RESULTS as an empty success.
func checkStatus(status, message string) error {
	if status == statusOK || status == statusZeroResults {
		return nil
	}
	if message != "" {
		return fmt.Errorf("%w: %s: %s", model.ErrMapsUnavailable, status, message)
	}
	return fmt.Errorf("%w: %s", model.ErrMapsUnavailable, status)
}

func formatLatLng(p model.LatLng) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

func hasType(types []string, want ...string) bool {
	for _, t := range types {
		for _, w := range want {
			if t == w {
				return true
			}
		}
	}
	return false
}
