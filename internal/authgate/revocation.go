package authgate

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RevocationList interface {
	Revoke(ctx context.Context, sessionID string, until time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// RedisRevocations remembers signed-out sessions until their token would
// have expired anyway.
type RedisRevocations struct{ R *redis.Client }

func revokedKey(sessionID string) string { return "session:revoked:" + sessionID }

func (r *RedisRevocations) Revoke(ctx context.Context, sessionID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.R.Set(ctx, revokedKey(sessionID), 1, ttl).Err()
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.R.Exists(ctx, revokedKey(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
