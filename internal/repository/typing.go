package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type TypingRepo struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewTypingRepo(redis *redis.Client, ttl time.Duration) *TypingRepo {
	return &TypingRepo{
		redis: redis,
		ttl:   ttl,
	}
}

func typingKey(channelID, senderID string) string {
	return fmt.Sprintf("typing:%s:%s", channelID, senderID)
}

// Set writes the flag with the configured TTL so a crashed sender never
// leaves a stuck indicator. Clearing deletes the key outright.
func (tr *TypingRepo) Set(ctx context.Context, channelID, senderID string, isTyping bool) error {
	key := typingKey(channelID, senderID)
	if !isTyping {
		return tr.redis.Del(ctx, key).Err()
	}
	return tr.redis.Set(ctx, key, true, tr.ttl).Err()
}

func (tr *TypingRepo) Get(ctx context.Context, channelID, senderID string) (bool, error) {
	v, err := tr.redis.Get(ctx, typingKey(channelID, senderID)).Bool()
	if err == redis.Nil {
		return false, nil
	}
	return v, err
}
