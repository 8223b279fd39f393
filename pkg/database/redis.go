package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient init Redis connection and verifies it with a ping
func NewRedisClient(ctx context.Context, c Connection, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: c.ConnectStr,
		DB:   db, // Redis 数据库编号
	})

	var err error
	for i := 0; i <= c.RetryCount; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return rdb, nil
		}
		if i < c.RetryCount {
			time.Sleep(c.RetryInterval)
		}
	}

	rdb.Close()
	return nil, fmt.Errorf("failed to connect to redis %s: %w", c.ConnectStr, err)
}
