package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RefreshTTL is the lifetime of a refresh token.
const RefreshTTL = 7 * 24 * time.Hour

// RefreshStore wraps Redis for refresh-token management. Tokens are
// opaque uuids mapping to the user id they were issued for.
type RefreshStore struct {
	rdb *redis.Client
}

func NewRefreshStore(rdb *redis.Client) *RefreshStore {
	return &RefreshStore{rdb: rdb}
}

// Create stores a new refresh token for userID and returns it.
func (s *RefreshStore) Create(ctx context.Context, userID string) (string, error) {
	token := uuid.New().String()
	err := s.rdb.Set(ctx, "refresh:"+token, userID, RefreshTTL).Err()
	return token, err
}

// Get returns the userID a refresh token was issued for, or "" if the
// token is unknown or expired.
func (s *RefreshStore) Get(ctx context.Context, token string) (string, error) {
	val, err := s.rdb.Get(ctx, "refresh:"+token).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// Delete revokes a refresh token.
func (s *RefreshStore) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, "refresh:"+token).Err()
}
