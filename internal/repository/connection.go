package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/villagehub/chatcore/internal/domain"
)

type ConnectionRepo struct {
	redis *redis.Client
}

func NewConnectionRepo(redis *redis.Client) *ConnectionRepo {
	return &ConnectionRepo{
		redis: redis,
	}
}

func eventChannel(identityID string) string {
	return fmt.Sprintf("events:%s", identityID)
}

func (cr *ConnectionRepo) Subscribe(ctx context.Context, identityID string) *redis.PubSub {
	return cr.redis.Subscribe(ctx, eventChannel(identityID))
}

func (cr *ConnectionRepo) Produce(ctx context.Context, identityID string, evt *domain.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return cr.redis.Publish(ctx, eventChannel(identityID), data).Err()
}
