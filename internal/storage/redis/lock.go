package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotHeld is returned by unlock when the lock expired and may already
// belong to someone else.
var ErrLockNotHeld = errors.New("lock was not held or already expired")

// Locker hands out short-lived exclusive locks keyed by name.
type Locker struct {
	client *redis.Client
	rs     *redsync.Redsync
	prefix string
}

func New(addr string) *Locker {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return NewLocker(client, "nfticket:lock:")
}

func NewLocker(client *redis.Client, prefix string) *Locker {
	return &Locker{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
		prefix: prefix,
	}
}

// TryLock takes the lock without waiting. ok is false when someone else
// holds it.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	const op = "storage.redis.TryLock"

	mutex := l.rs.NewMutex(
		l.prefix+key,
		redsync.WithExpiry(ttl),
		redsync.WithTries(1),
	)
	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.As(err, &taken) || errors.Is(err, redsync.ErrFailed) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	unlock := func(ctx context.Context) error {
		const op = "storage.redis.Unlock"

		ok, err := mutex.UnlockContext(ctx)
		switch {
		case ok:
			return nil
		case err != nil:
			return fmt.Errorf("%s: %w: %w", op, ErrLockNotHeld, err)
		default:
			return fmt.Errorf("%s: %w", op, ErrLockNotHeld)
		}
	}
	return unlock, true, nil
}

func (l *Locker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *Locker) Stop() error {
	const op = "storage.redis.Stop"

	if err := l.client.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
