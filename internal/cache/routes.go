package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tracksandtaps/taps_core/internal/models"
)

var ErrLockTimeout = errors.New("timeout waiting for lock")

// TourRouteKey generates a cache key for a tour route from its ordered stops
func TourRouteKey(stops []models.GeoPoint) string {
	var b strings.Builder
	for _, s := range stops {
		fmt.Fprintf(&b, "%.6f,%.6f;", s.Lat, s.Lon)
	}
	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("tour_route:%x", hash[:8])
}

// LockKey generates a mutex lock key
func LockKey(routeKey string) string {
	return fmt.Sprintf("lock:%s", routeKey)
}

// RouteCache caches computed tour routes in Redis
type RouteCache struct {
	rdb      *redis.Client
	ttl      time.Duration
	mutexTTL time.Duration
	maxWait  time.Duration
	poll     time.Duration
}

// NewRouteCache creates a route cache on top of rdb
func NewRouteCache(rdb *redis.Client, cfg *Config) *RouteCache {
	return &RouteCache{
		rdb:      rdb,
		ttl:      cfg.TTL,
		mutexTTL: cfg.MutexTTL,
		maxWait:  cfg.MaxWait,
		poll:     100 * time.Millisecond,
	}
}

// Get retrieves a cached route; a miss returns nil, nil
func (rc *RouteCache) Get(ctx context.Context, key string) (models.TourRoute, error) {
	data, err := rc.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil // cache miss
	}
	if err != nil {
		return nil, err
	}

	var route models.TourRoute
	if err := json.Unmarshal(data, &route); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached route: %w", err)
	}

	return route, nil
}

// Set caches a route
func (rc *RouteCache) Set(ctx context.Context, key string, route models.TourRoute) error {
	data, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("failed to marshal route: %w", err)
	}

	return rc.rdb.Set(ctx, key, data, rc.ttl).Err()
}

// AcquireLock attempts to acquire a distributed lock
// Returns true if lock was acquired, false if already locked
func (rc *RouteCache) AcquireLock(ctx context.Context, key string) (bool, error) {
	return rc.rdb.SetNX(ctx, key, "1", rc.mutexTTL).Result()
}

// ReleaseLock releases a distributed lock
func (rc *RouteCache) ReleaseLock(ctx context.Context, key string) error {
	return rc.rdb.Del(ctx, key).Err()
}

// WaitForLock waits for a lock to be released and then retrieves the result
// This implements the "wait for result" pattern to avoid thundering herd
func (rc *RouteCache) WaitForLock(ctx context.Context, routeKey string) (models.TourRoute, error) {
	lockKey := LockKey(routeKey)
	deadline := time.Now().Add(rc.maxWait)

	for time.Now().Before(deadline) {
		exists, err := rc.rdb.Exists(ctx, lockKey).Result()
		if err != nil {
			return nil, err
		}

		if exists == 0 {
			return rc.Get(ctx, routeKey)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(rc.poll):
		}
	}

	return nil, ErrLockTimeout
}

// GetOrCompute returns the cached route for key or computes and caches it.
// Only one caller computes a given key at a time; the others wait for its result.
// Redis failures degrade to computing without the cache.
func (rc *RouteCache) GetOrCompute(ctx context.Context, key string, compute func(context.Context) models.TourRoute) (models.TourRoute, bool) {
	cached, err := rc.Get(ctx, key)
	if err == nil && cached != nil {
		return cached, true
	}

	lockKey := LockKey(key)
	acquired, err := rc.AcquireLock(ctx, lockKey)
	if err != nil {
		log.Printf("Failed to acquire lock: %v", err)
		// Continue without lock (degrade gracefully)
	} else if !acquired {
		// Another request is computing this route, wait for it
		cached, err := rc.WaitForLock(ctx, key)
		if err == nil && cached != nil {
			return cached, true
		}
		// If waiting failed, compute anyway
	}

	defer func() {
		if acquired {
			if err := rc.ReleaseLock(context.WithoutCancel(ctx), lockKey); err != nil {
				log.Printf("Failed to release lock %s: %v", lockKey, err)
			}
		}
	}()

	route := compute(ctx)

	// an all-direct route usually means the path finder was down; retry next time
	if route.AllDirect() {
		return route, false
	}

	if err := rc.Set(ctx, key, route); err != nil {
		log.Printf("Failed to cache route: %v", err)
	}

	return route, false
}
