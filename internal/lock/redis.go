// Package lock provides a Redis-backed mutual exclusion for checkout
// redemptions.
package lock

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the lock could not be taken before the
// wait deadline.
var ErrNotAcquired = errors.New("lock not acquired")

// release deletes the key only while it still holds our token, so an expired
// lock re-taken by someone else is left alone.
var release = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// Options configures a Locker.
type Options struct {
	// Prefix is prepended to every key.
	Prefix string
	// TTL bounds how long a crashed holder keeps the lock.
	TTL time.Duration
	// Wait is how long Lock retries before giving up.
	Wait time.Duration
	// RetryBackoff is the pause between attempts.
	RetryBackoff time.Duration
}

// Locker takes per-key locks with SET NX and releases them with a
// compare-and-delete script.
type Locker struct {
	client redis.UniversalClient
	opts   Options
}

// NewLocker creates a Locker on client.
func NewLocker(client redis.UniversalClient, opts Options) *Locker {
	if opts.Prefix == "" {
		opts.Prefix = "shop:lock:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.Wait <= 0 {
		opts.Wait = 5 * time.Second
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 25 * time.Millisecond
	}
	return &Locker{client: client, opts: opts}
}

// Lock blocks until key is held, ctx is done or the wait deadline passes. The
// returned function releases the lock.
func (l *Locker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	key = l.opts.Prefix + key
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, l.opts.Wait)
	defer cancel()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.opts.TTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrapf(ErrNotAcquired, "%s", key)
			}
			return nil, errors.Wrapf(err, "setnx %s", key)
		}
		if ok {
			return func(ctx context.Context) error {
				if err := release.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
					return errors.Wrapf(err, "release %s", key)
				}
				return nil
			}, nil
		}

		timer := time.NewTimer(l.opts.RetryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.Wrapf(ErrNotAcquired, "%s", key)
		case <-timer.C:
		}
	}
}
