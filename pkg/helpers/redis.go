package helpers

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient initializes a redis client
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func keyRevokedToken(jti string) string { return "session:revoked:" + jti }

// RedisRevocations records logged-out token ids until they expire.
type RedisRevocations struct {
	RDB *redis.Client
}

func NewRedisRevocations(rdb *redis.Client) *RedisRevocations {
	return &RedisRevocations{RDB: rdb}
}

// Revoke marks jti as revoked until exp. Expired tokens are skipped.
func (r *RedisRevocations) Revoke(ctx context.Context, jti string, exp time.Time) error {
	ttl := time.Until(exp)
	if jti == "" || ttl <= 0 {
		return nil
	}
	return r.RDB.Set(ctx, keyRevokedToken(jti), "1", ttl).Err()
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	err := r.RDB.Get(ctx, keyRevokedToken(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
