package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/adiwardana/cabtrack/internal/pkg/database"
	"github.com/adiwardana/cabtrack/internal/pkg/models"
)

const (
	locationKeyPrefix = "cab:location:"
	trailKeyPrefix    = "cab:trail:"
	locationTTL       = 30 * time.Minute
)

// RedisSink keeps the latest sample per cab in a hash and appends a
// breadcrumb trail per cab, both with a rolling TTL
type RedisSink struct {
	client *database.RedisClient
}

// NewRedisSink connects to Redis and returns the sink
func NewRedisSink(cfg models.RedisConfig) (*RedisSink, error) {
	client, err := database.NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return &RedisSink{client: client}, nil
}

// Store writes one sample
func (s *RedisSink) Store(ctx context.Context, cabID string, pos models.Coordinate, observedAt time.Time) error {
	key := locationKeyPrefix + cabID
	err := s.client.HSet(ctx, key, map[string]interface{}{
		"latitude":    pos.Latitude,
		"longitude":   pos.Longitude,
		"observed_at": models.FormatTime(observedAt),
	})
	if err != nil {
		return fmt.Errorf("store location: %w", err)
	}
	if err := s.client.Expire(ctx, key, locationTTL); err != nil {
		return fmt.Errorf("expire location: %w", err)
	}

	trailKey := trailKeyPrefix + cabID
	entry := fmt.Sprintf("%s|%f|%f", models.FormatTime(observedAt), pos.Latitude, pos.Longitude)
	if err := s.client.RPush(ctx, trailKey, entry); err != nil {
		return fmt.Errorf("append trail: %w", err)
	}
	if err := s.client.Expire(ctx, trailKey, locationTTL); err != nil {
		return fmt.Errorf("expire trail: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisSink) Close() error {
	return s.client.Close()
}
