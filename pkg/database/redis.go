package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// LockRepository definition a best-effort distributed lock over redis,
// used to keep two workers off the same video at once.
type LockRepository interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
	Refresh(ctx context.Context, key string, ttl time.Duration) error
}

type lockRepository struct {
	client *redis.Client
}

// NewRedisClient init a redis connection
func NewRedisClient(addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return rdb, nil
}

// NewLockRepository init redis lock repository (Acquire, Release, Refresh)
func NewLockRepository(client *redis.Client) LockRepository {
	return &lockRepository{client: client}
}

// Acquire returns true if the caller now holds the lock. SETNX semantics,
// the TTL bounds a crashed holder.
func (r *lockRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return ok, nil
}

func (r *lockRepository) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *lockRepository) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Expire(ctx, key, ttl).Err()
}
