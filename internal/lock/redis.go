// Package lock provides a business lock shared across processes through Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"bizbiller/internal/core"
)

const (
	// DefaultTTL bounds how long a crashed holder can block a business.
	DefaultTTL = 30 * time.Second
	retryEvery = 50 * time.Millisecond
)

// ErrNotObtained is returned when the lock is still held by someone else
// after ctx expires.
var ErrNotObtained = errors.New("could not obtain business lock")

// Connect opens a Redis client and pings it.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisLocker implements core.BusinessLocker with one redislock key per business.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	log    zerolog.Logger
}

var _ core.BusinessLocker = (*RedisLocker)(nil)

func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration, log zerolog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLocker{client: redislock.New(rdb), ttl: ttl, log: log}
}

// Lock blocks, retrying, until the key is obtained or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, businessID int64) (func(), error) {
	key := Key(businessID)
	lk, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(retryEvery),
	})
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("%w for business %d", ErrNotObtained, businessID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	return func() {
		if err := lk.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.log.Warn().Err(err).Str("key", key).Msg("failed to release business lock")
		}
	}, nil
}

func Key(businessID int64) string {
	return fmt.Sprintf("business:%d", businessID)
}
