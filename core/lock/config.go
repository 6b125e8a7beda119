package lock

import "time"

// Config holds configuration for the identity lock.
type Config struct {
	// Addr is the Redis address. Empty selects the in-process locker.
	Addr string `mapstructure:"addr" default:""`
	// Password is the Redis password.
	Password string `mapstructure:"password" default:""`
	// DB is the Redis database index.
	DB int `mapstructure:"db" default:"0"`
	// TTL is how long a lock is held before Redis expires it.
	TTL time.Duration `mapstructure:"ttl" default:"30s"`
	// RetryInterval is the wait between attempts to obtain a held lock.
	RetryInterval time.Duration `mapstructure:"retry_interval" default:"100ms"`
	// MaxRetries bounds the attempts to obtain a held lock.
	MaxRetries int `mapstructure:"max_retries" default:"50"`
}
