// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWindow increments the counter and starts its window on first use,
// atomically so a counter never lives without a TTL.
var incrWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// RedisStore shares counters between instances through Redis.
type RedisStore struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// Dial connects to Redis and checks the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// NewRedisStore allows limit requests per key and window.
func NewRedisStore(client *redis.Client, limit int, window time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:",
	}
}

// Allow implements Store.
func (s *RedisStore) Allow(ctx context.Context, key string) (bool, error) {
	n, err := incrWindow.Run(ctx, s.client, []string{s.prefix + key}, s.window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n <= int64(s.limit), nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
