package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/villagehub/chatcore/internal/domain"
)

type PresenceRepo struct {
	redis *redis.Client
}

func NewPresenceRepo(redis *redis.Client) *PresenceRepo {
	return &PresenceRepo{
		redis: redis,
	}
}

func presenceKey(memberID string) string {
	return fmt.Sprintf("presence:%s", memberID)
}

// SetStatus merges the status into the existing presence hash rather than
// overwriting the whole record.
func (pr *PresenceRepo) SetStatus(ctx context.Context, memberID string, status domain.PresenceStatus) error {
	return pr.redis.HSet(ctx, presenceKey(memberID),
		"status", string(status),
		"last_active_at", strconv.FormatInt(time.Now().UnixMilli(), 10),
	).Err()
}

func (pr *PresenceRepo) Get(ctx context.Context, memberID string) (*domain.PresenceRecord, error) {
	fields, err := pr.redis.HGetAll(ctx, presenceKey(memberID)).Result()
	if err != nil {
		return nil, err
	}

	record := &domain.PresenceRecord{Status: domain.StatusOffline}
	if len(fields) == 0 {
		return record, nil
	}

	if status, ok := fields["status"]; ok {
		record.Status = domain.PresenceStatus(status)
	}
	if raw, ok := fields["last_active_at"]; ok {
		if millis, err := strconv.ParseInt(raw, 10, 64); err == nil {
			record.LastActiveAt = time.UnixMilli(millis)
		}
	}
	return record, nil
}
