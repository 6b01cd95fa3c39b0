package config

import (
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from the configuration.
func (r RedisConfig) RedisOptions() *redis.Options {
	connMaxIdleTime, _ := time.ParseDuration(r.ConnMaxIdleTime)
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 30 * time.Minute
	}
	connMaxLifetime, _ := time.ParseDuration(r.ConnMaxLifetime)
	if connMaxLifetime == 0 {
		connMaxLifetime = time.Hour
	}

	options := &redis.Options{
		Addr:         r.GetAddr(),
		Password:     r.Password,
		DB:           r.Database,
		MaxRetries:   r.MaxRetries,
		PoolSize:     r.PoolSize,
		MinIdleConns: r.MinIdleConns,

		DialTimeout:  5 * time.Second,
		// The change-stream tail blocks for up to a second per read.
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,

		ConnMaxIdleTime: connMaxIdleTime,
		ConnMaxLifetime: connMaxLifetime,
	}
	if r.EnableTLS {
		options.TLSConfig = &tls.Config{ServerName: r.Host}
	}
	return options
}
