package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"deskrelay/backend/internal/models"
)

// Sessions is the ephemeral per-user session context: a pending service
// selection waiting to seed the next thread. Entries expire on their own
// (TTL) or are cleared explicitly once consumed by the first tagged
// relayed message.
type Sessions interface {
	SetPendingService(userID int64, sel models.ServiceSelection) error
	PendingService(userID int64) (*models.ServiceSelection, error)
	ClearPendingService(userID int64) error
}

// RedisSessions implements Sessions with one JSON value per user under
// session:<user_id>.
type RedisSessions struct {
	rdb *redis.Client
	ttl time.Duration
	ctx context.Context
}

// NewRedisSessions constructs the session store. ttl <= 0 falls back to
// 24 hours.
func NewRedisSessions(rdb *redis.Client, ttl time.Duration) *RedisSessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSessions{rdb: rdb, ttl: ttl, ctx: context.Background()}
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("session:%d", userID)
}

func (s *RedisSessions) SetPendingService(userID int64, sel models.ServiceSelection) error {
	data, err := json.Marshal(sel)
	if err != nil {
		return err
	}
	return s.rdb.Set(s.ctx, sessionKey(userID), data, s.ttl).Err()
}

// PendingService returns (nil, nil) when no selection is pending.
func (s *RedisSessions) PendingService(userID int64) (*models.ServiceSelection, error) {
	data, err := s.rdb.Get(s.ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sel models.ServiceSelection
	if err := json.Unmarshal(data, &sel); err != nil {
		return nil, err
	}
	return &sel, nil
}

func (s *RedisSessions) ClearPendingService(userID int64) error {
	return s.rdb.Del(s.ctx, sessionKey(userID)).Err()
}
