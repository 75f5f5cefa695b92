package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/irfndi/predictarena-go/internal/models"
	"github.com/redis/go-redis/v9"
)

// ContestChannel is the pub/sub channel carrying a contest's events.
func ContestChannel(contestID string) string {
	return "arena:contest:" + contestID
}

// RedisEventPublisher publishes domain events as JSON on per-contest channels.
type RedisEventPublisher struct {
	redis *redis.Client
}

// NewRedisEventPublisher creates a publisher.
func NewRedisEventPublisher(client *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{redis: client}
}

// Publish sends event to its contest channel.
func (p *RedisEventPublisher) Publish(ctx context.Context, event models.DomainEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}
	if err := p.redis.Publish(ctx, ContestChannel(event.ContestID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event for contest %s: %w", event.Type, event.ContestID, err)
	}
	return nil
}
