package sweep

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/meridianpay/subvault/pkg/redis"
)

const defaultLockTTL = 5 * time.Minute

// Lock coordinates exclusive sweep cycles across worker instances.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// RedisLock implements Lock on the shared redis locker.
type RedisLock struct {
	locker redis.Locker
	name   string
	ttl    time.Duration
	holder string
}

// NewRedisLock constructs a redis-backed sweep lock.
func NewRedisLock(locker redis.Locker, name string, ttl time.Duration) (*RedisLock, error) {
	if locker == nil {
		return nil, errors.New("redis locker required")
	}
	if name == "" {
		return nil, errors.New("lock name is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{locker: locker, name: name, ttl: ttl}, nil
}

// Acquire tries to own the lock for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	holder := uuid.NewString()
	ok, err := l.locker.AcquireLock(ctx, l.name, holder, l.ttl)
	if err != nil {
		return false, err
	}
	if ok {
		l.holder = holder
	}
	return ok, nil
}

// Release frees the lock if this instance holds it.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.holder == "" {
		return nil
	}
	if err := l.locker.ReleaseLock(ctx, l.name); err != nil {
		return err
	}
	l.holder = ""
	return nil
}
