package service

import (
	"context"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"socialmaps/internal/cache"
	"socialmaps/internal/logger"
	"socialmaps/internal/model"
)

const (
	MaxNearbyRadius      = 50000
	DefaultPhotoMaxWidth = 400
	estimateConcurrency  = 4
)

// MapsClient is the maps provider surface used by PlacesService.
type MapsClient interface {
	NearbySearch(ctx context.Context, center model.LatLng, radius int, placeType string) ([]model.Place, error)
	ReverseGeocode(ctx context.Context, at model.LatLng) (*model.Address, error)
	Directions(ctx context.Context, origin, destination model.LatLng) (*model.Route, error)
	PhotoURL(ref string, maxWidth int) string
}

type PlacesService struct {
	maps  MapsClient
	cache cache.PlacesCache
	log   *zap.Logger
}

// NewPlacesService builds the service. placesCache may be nil.
func NewPlacesService(maps MapsClient, placesCache cache.PlacesCache) *PlacesService {
	return &PlacesService{maps: maps, cache: placesCache, log: logger.Named("places_service")}
}

// NearbySearch defaults radius to 10 km and serves repeated queries from the cache.
func (s *PlacesService) NearbySearch(ctx context.Context, center model.LatLng, radius int, placeType string) ([]model.Place, error) {
	if !validLatLng(center) {
		return nil, model.ErrInvalidCoordinates
	}
	if radius <= 0 {
		radius = model.DefaultNearbyRadius
	}
	if radius > MaxNearbyRadius {
		radius = MaxNearbyRadius
	}

	key := cache.NearbyKey(center, radius, placeType)
	if s.cache != nil {
		// cache errors degrade to a provider call
		if places, found, err := s.cache.GetNearby(ctx, key); err == nil && found {
			return places, nil
		}
	}

	places, err := s.maps.NearbySearch(ctx, center, radius, placeType)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetNearby(ctx, key, places); err != nil {
			s.log.Warn("failed to cache nearby results", zap.String("key", key), zap.Error(err))
		}
	}
	return places, nil
}

func (s *PlacesService) ReverseGeocode(ctx context.Context, at model.LatLng) (*model.Address, error) {
	if !validLatLng(at) {
		return nil, model.ErrInvalidCoordinates
	}
	return s.maps.ReverseGeocode(ctx, at)
}

func (s *PlacesService) Directions(ctx context.Context, origin, destination model.LatLng) (*model.Route, error) {
	if !validLatLng(origin) || !validLatLng(destination) {
		return nil, model.ErrInvalidCoordinates
	}
	return s.maps.Directions(ctx, origin, destination)
}

// EstimateTrips prices a trip from each candidate place: pickup leg (place -> user) plus the
// ride (user -> destination), in minutes, at FarePerMinute rounded to cents.
func (s *PlacesService) EstimateTrips(ctx context.Context, req model.TripEstimatesRequest) ([]model.TripEstimate, error) {
	if !validLatLng(req.User) || !validLatLng(req.Destination) {
		return nil, model.ErrInvalidCoordinates
	}
	for _, p := range req.Places {
		if !validLatLng(p) {
			return nil, model.ErrInvalidCoordinates
		}
	}

	// the ride leg is the same for every candidate
	ride, err := s.maps.Directions(ctx, req.User, req.Destination)
	if err != nil {
		return nil, err
	}

	estimates := make([]model.TripEstimate, len(req.Places))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(estimateConcurrency)
	for i, place := range req.Places {
		g.Go(func() error {
			pickup, err := s.maps.Directions(gctx, place, req.User)
			if err != nil {
				return err
			}

			minutes := float64(pickup.DurationSeconds+ride.DurationSeconds) / 60
			estimates[i] = model.TripEstimate{
				Location: place,
				Minutes:  minutes,
				Price:    math.Round(minutes*model.FarePerMinute*100) / 100,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return estimates, nil
}

// PhotoURL builds a place photo URL. No request is made.
func (s *PlacesService) PhotoURL(ref string, maxWidth int) string {
	if maxWidth <= 0 {
		maxWidth = DefaultPhotoMaxWidth
	}
	return s.maps.PhotoURL(ref, maxWidth)
}

func validLatLng(p model.LatLng) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lng)
}
