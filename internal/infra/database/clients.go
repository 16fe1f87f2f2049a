package database

import (
	"context"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// NewRedis connects to the event bus and fails fast when it is unreachable.
func NewRedis(ctx context.Context, addr string, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, errors.Wrapf(err, "redis %s unreachable", addr)
	}
	return rdb, nil
}

func NewMemcached(server string) (*memcache.Client, error) {
	mc := memcache.New(server)
	mc.Timeout = 200 * time.Millisecond
	if err := mc.Ping(); err != nil {
		return nil, errors.Wrapf(err, "memcached %s unreachable", server)
	}
	return mc, nil
}
