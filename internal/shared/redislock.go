package shared

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLockHeld indicates another worker owns the critical section.
var ErrLockHeld = errors.New("lock already held")

// DistLock is a redis SetNX lock for short critical sections such as saving
// a reconciliation or replaying one product's stock history.
type DistLock struct {
	client *redis.Client
}

// NewDistLock constructs a DistLock.
func NewDistLock(client *redis.Client) *DistLock {
	return &DistLock{client: client}
}

// Acquire claims key for ttl and returns a release func. A nil receiver is a
// no-op so single-process deployments and tests can skip redis entirely.
func (l *DistLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l == nil || l.client == nil {
		return func() {}, nil
	}
	ok, err := l.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		l.client.Del(ctx, key)
	}
	return release, nil
}
