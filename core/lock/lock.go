package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrNotObtained is returned when the lock stayed held by someone else for
// every retry.
var ErrNotObtained = errors.New("lock not obtained")

// UnlockFunc releases a lock.
type UnlockFunc func(ctx context.Context) error

// Locker obtains exclusive locks by key.
type Locker interface {
	Lock(ctx context.Context, key string) (UnlockFunc, error)
}

// Key builds the lock key of one record identity.
func Key(clientID, externalID string) string {
	return fmt.Sprintf("api-poller:identity:%s:%s", clientID, externalID)
}

// OwnerKey builds the lock key of the accreditation set of one owner.
func OwnerKey(clientID, externalEmpID string) string {
	return fmt.Sprintf("api-poller:owner:%s:%s", clientID, externalEmpID)
}

// New returns a Redis locker when cfg.Addr is set and a local locker
// otherwise. The returned close function releases the Redis connection.
func New(ctx context.Context, cfg Config) (Locker, func() error, error) {
	if cfg.Addr == "" {
		return NewLocal(), func() error { return nil }, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedis(rdb, cfg), rdb.Close, nil
}

// RedisLocker obtains locks from Redis.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
}

// NewRedis returns a RedisLocker over rdb.
func NewRedis(rdb redislock.RedisClient, cfg Config) *RedisLocker {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(interval), retries),
	}
}

// Lock obtains key, retrying while it is held elsewhere.
func (l *RedisLocker) Lock(ctx context.Context, key string) (UnlockFunc, error) {
	held, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotObtained)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	return func(ctx context.Context) error {
		err := held.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			// Expired before release, nothing left to do
			return nil
		}
		return err
	}, nil
}

// LocalLocker is an in-process keyed mutex.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localEntry
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

// NewLocal returns an empty LocalLocker.
func NewLocal() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localEntry)}
}

// Lock blocks until key is free or ctx is done.
func (l *LocalLocker) Lock(ctx context.Context, key string) (UnlockFunc, error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e, false)
		return nil, fmt.Errorf("%s: %w: %w", key, ErrNotObtained, ctx.Err())
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { l.release(key, e, true) })
		return nil
	}, nil
}

func (l *LocalLocker) release(key string, e *localEntry, held bool) {
	if held {
		<-e.ch
	}
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}
