package readiness

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCheck pings a Redis server.
type RedisCheck struct {
	name    string
	client  *redis.Client
	timeout time.Duration
}

func NewRedisCheck(name, addr, password string, db int, timeout time.Duration) *RedisCheck {
	return &RedisCheck{
		name: name,
		client: redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     password,
			DB:           db,
			DialTimeout:  timeout,
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
			PoolSize:     2,
			MaxRetries:   -1,
		}),
		timeout: timeout,
	}
}

func (r *RedisCheck) Name() string { return r.name }

func (r *RedisCheck) Check(ctx context.Context) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.client.Ping(ctx).Err()
}

func (r *RedisCheck) Close() error {
	return r.client.Close()
}
