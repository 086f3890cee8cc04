package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vibesense/vibesense/internal/domain"
)

// suggestionTTL bounds how long a stale suggestion can be served after the
// user stops sending readings.
const suggestionTTL = 24 * time.Hour

// RedisCache is the Redis-backed latest-suggestion cache, for deployments
// where the API runs as more than one replica.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis-backed suggestion cache and verifies the
// connection before returning.
func NewRedisCache(host, port string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

func suggestionKey(userID string) string {
	return fmt.Sprintf("user:%s:suggestion", userID)
}

// SetLatest stores the most recent suggestion for its user with a TTL.
func (c *RedisCache) SetLatest(ctx context.Context, suggestion domain.Suggestion) error {
	data, err := json.Marshal(suggestion)
	if err != nil {
		return fmt.Errorf("failed to encode suggestion: %w", err)
	}
	return c.client.Set(ctx, suggestionKey(suggestion.UserID), data, suggestionTTL).Err()
}

// Latest returns the most recent suggestion for a user, or nil when the key
// is absent or expired.
func (c *RedisCache) Latest(ctx context.Context, userID string) (*domain.Suggestion, error) {
	result := c.client.Get(ctx, suggestionKey(userID))
	if result.Err() == redis.Nil {
		return nil, nil
	}
	if result.Err() != nil {
		return nil, result.Err()
	}

	var suggestion domain.Suggestion
	if err := json.Unmarshal([]byte(result.Val()), &suggestion); err != nil {
		return nil, fmt.Errorf("failed to decode cached suggestion: %w", err)
	}
	return &suggestion, nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
