// Package lock provides a Redis-backed lease so that only one API replica
// runs the cleanup sweep at a time.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultKey is the Redis key holding the sweep lease.
	DefaultKey = "rideshare:sweep:lease"

	// DefaultTTL is used when NewRedisLease is given a non-positive ttl.
	DefaultTTL = 2 * time.Minute
)

// releaseScript deletes the key only if it still holds our token, so a lease
// that expired and was taken by another replica is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript pushes the expiry out only while the key still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLease is a best-effort mutual-exclusion lease (SET NX PX). While held
// it is renewed every ttl/3, so ttl only bounds how long a crashed holder
// blocks other replicas, not how long a pass may run.
type RedisLease struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewRedisLease constructs a lease on key.
func NewRedisLease(client redis.UniversalClient, key string, ttl time.Duration) *RedisLease {
	if key == "" {
		key = DefaultKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLease{client: client, key: key, ttl: ttl}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("lock.Connect: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("lock.Connect: ping: %w", err)
	}
	return client, nil
}

// Acquire tries to take the lease without waiting. When ok is false another
// holder has it. release must be called once the protected work finishes.
func (l *RedisLease) Acquire(ctx context.Context) (release func(context.Context) error, ok bool, err error) {
	token := uuid.NewString()
	ok, err = l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lock.RedisLease.Acquire: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	renewCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	renewed := make(chan struct{})
	go l.keepAlive(renewCtx, token, renewed)

	release = func(ctx context.Context) error {
		stop()
		<-renewed
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			return fmt.Errorf("lock.RedisLease.Release: %w", err)
		}
		return nil
	}
	return release, true, nil
}

// keepAlive extends the lease until ctx ends or the key no longer holds
// token. A failed renewal is retried on the next tick.
func (l *RedisLease) keepAlive(ctx context.Context, token string, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := renewScript.Run(ctx, l.client, []string{l.key}, token, l.ttl.Milliseconds()).Int()
			if err == nil && n == 0 {
				return
			}
		}
	}
}
