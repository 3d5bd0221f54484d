package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisCache wraps the shared Redis client. The reminder dispatcher uses it
// to claim a tenant's reminder minute across replicas.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis client and checks the connection
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	logrus.Info("Redis connection established")
	return &RedisCache{client: client}, nil
}

// TryLock sets key only if it doesn't exist. The lock is never released
// explicitly; it expires after ttl.
func (c *RedisCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
