package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeConflict, "lock not acquired")
	ErrLockNotHeld     = errors.New(errors.ErrCodeConflict, "lock not held")
)

// unlockScript deletes the key only when it still carries this holder's value.
const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`

// Lock is a single-holder lease on a named key.
type Lock interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
	Key() string
}

// LockFactory hands out locks scoped under the client's key prefix.
type LockFactory struct {
	client  *Client
	ttl     time.Duration
	valueFn func() string
}

// NewLockFactory returns a factory whose locks expire after ttl.
func NewLockFactory(client *Client, ttl time.Duration) *LockFactory {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &LockFactory{
		client:  client,
		ttl:     ttl,
		valueFn: func() string { return uuid.NewString() },
	}
}

// NewLock creates a lock for name. Each lock carries its own holder value.
func (f *LockFactory) NewLock(name string) Lock {
	return &redisMutex{
		client: f.client,
		key:    f.client.KeyPrefix() + "lock:" + name,
		value:  f.valueFn(),
		ttl:    f.ttl,
	}
}

type redisMutex struct {
	client *Client
	key    string
	value  string
	ttl    time.Duration
}

func (m *redisMutex) Key() string { return m.key }

func (m *redisMutex) TryLock(ctx context.Context) (bool, error) {
	ok, err := m.client.SetNX(ctx, m.key, m.value, m.ttl).Result()
	if err != nil && err != redis.Nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to set lock")
	}
	return ok, nil
}

func (m *redisMutex) Unlock(ctx context.Context) error {
	res, err := m.client.Eval(ctx, unlockScript, []string{m.key}, m.value).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to release lock")
	}
	if res == 0 {
		return ErrLockNotHeld
	}
	return nil
}

//Personal.AI order the ending
