package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"socialmaps/internal/logger"
	"socialmaps/internal/model"
)

const (
	// NearbyCachePrefix is the key prefix for nearby-search results
	NearbyCachePrefix = "places:nearby:"

	// NearbyCacheTTL keeps results long enough to cover a map session without going stale
	NearbyCacheTTL = 10 * time.Minute
)

// PlacesCache stores nearby-search results keyed by a rounded query.
type PlacesCache interface {
	// GetNearby returns found=false on a miss.
	GetNearby(ctx context.Context, key string) (places []model.Place, found bool, err error)
	SetNearby(ctx context.Context, key string, places []model.Place) error
}

// RedisPlacesCache implements PlacesCache with JSON strings.
type RedisPlacesCache struct {
	client *redis.Client
	log    *zap.Logger
}

// NewPlacesCache creates a new PlacesCache backed by Redis.
func NewPlacesCache(client *redis.Client) PlacesCache {
	return &RedisPlacesCache{client: client, log: logger.Named("places_cache")}
}

// NearbyKey rounds coordinates to three decimals (about 110 m) so nearby map pans share entries.
func NearbyKey(center model.LatLng, radius int, placeType string) string {
	return fmt.Sprintf("%s%.3f:%.3f:%d:%s", NearbyCachePrefix, center.Lat, center.Lng, radius, placeType)
}

func (c *RedisPlacesCache) GetNearby(ctx context.Context, key string) ([]model.Place, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		c.log.Warn("get nearby failed", zap.String("key", key), zap.Error(err))
		return nil, false, fmt.Errorf("get nearby cache: %w", err)
	}

	var places []model.Place
	if err := json.Unmarshal(raw, &places); err != nil {
		// a corrupt entry is dropped and treated as a miss
		c.client.Del(ctx, key)
		return nil, false, nil
	}

	c.log.Debug("nearby cache hit", zap.String("key", key), zap.Int("places", len(places)))
	return places, true, nil
}

func (c *RedisPlacesCache) SetNearby(ctx context.Context, key string, places []model.Place) error {
	raw, err := json.Marshal(places)
	if err != nil {
		return fmt.Errorf("encode nearby cache: %w", err)
	}

	if err := c.client.Set(ctx, key, raw, NearbyCacheTTL).Err(); err != nil {
		c.log.Warn("set nearby failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("set nearby cache: %w", err)
	}
	return nil
}
