// Package lease keeps two processes from synchronizing the same source at once.
package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"vacancy_syncer/internal/domain"
)

// ErrNotHeld is returned by Release when the lease expired or was taken over.
var ErrNotHeld = errors.New("lease not held")

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker hands out per-source leases backed by SET NX with a TTL. The TTL
// bounds how long a crashed holder can block a source.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisLocker(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl}
}

// Acquire returns domain.ErrSourceLocked when another holder owns the key.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (domain.Lease, error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrSourceLocked
	}

	return &redisLease{client: l.client, key: redisKey, token: token}, nil
}

type redisLease struct {
	client redis.UniversalClient
	key    string
	token  string
}

func (l *redisLease) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// NoopLocker grants every lease. It is used when no Redis is configured.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, string) (domain.Lease, error) {
	return noopLease{}, nil
}

type noopLease struct{}

func (noopLease) Release(context.Context) error { return nil }
