package storage

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisOnce sync.Once
	rdb       *redis.Client
)

// RedisConfig for the process-wide client.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// InitRedis sets up the singleton client and pings it once.
func InitRedis(c RedisConfig) error {
	var initErr error
	redisOnce.Do(func() {
		cli := redis.NewClient(&redis.Options{
			Addr:     c.Addr,
			Password: c.Password,
			DB:       c.DB,
			PoolSize: c.PoolSize,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := cli.Ping(ctx).Err(); err != nil {
			initErr = err
			return
		}
		rdb = cli
	})
	return initErr
}

// GetRedis returns the singleton client.
func GetRedis() *redis.Client {
	if rdb == nil {
		panic("redis not initialized, call InitRedis first")
	}
	return rdb
}

func CloseRedis() error {
	if rdb == nil {
		return nil
	}
	return rdb.Close()
}
