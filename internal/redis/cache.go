package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefixes
const (
	carsCachePrefix = "cache:cars:"
	carsGenKey      = "cache:cars:gen"
)

// CachedResponse is an HTTP response stored for replay.
type CachedResponse struct {
	StatusCode  int             `json:"status_code"`
	ContentType string          `json:"content_type"`
	Body        json.RawMessage `json:"body"`
}

// CacheStore caches car listing responses in Redis.
// Keys embed a generation number; bumping the generation invalidates every
// cached listing at once and lets the old keys expire on their own.
type CacheStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client, ttl time.Duration) *CacheStore {
	return &CacheStore{client: client, ttl: ttl}
}

// Get retrieves a cached response. Returns nil on a cache miss.
func (s *CacheStore) Get(ctx context.Context, requestKey string) (*CachedResponse, error) {
	key, err := s.key(ctx, requestKey)
	if err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var cached CachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return &cached, nil
}

// Set stores a response for requestKey.
func (s *CacheStore) Set(ctx context.Context, requestKey string, resp *CachedResponse) error {
	key, err := s.key(ctx, requestKey)
	if err != nil {
		return err
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, s.ttl).Err()
}

// InvalidateCars drops every cached car listing.
func (s *CacheStore) InvalidateCars(ctx context.Context) error {
	return s.client.Incr(ctx, carsGenKey).Err()
}

func (s *CacheStore) key(ctx context.Context, requestKey string) (string, error) {
	gen, err := s.client.Get(ctx, carsGenKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return carsCachePrefix + strconv.FormatInt(gen, 10) + ":" + requestKey, nil
}
