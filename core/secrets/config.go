package secrets

import "time"

// Config holds configuration for the secret store.
type Config struct {
	// Region is the AWS region. Empty uses the SDK default chain.
	Region string `mapstructure:"region" default:""`
	// Endpoint overrides the service endpoint (e.g. LocalStack).
	Endpoint string `mapstructure:"endpoint" default:""`
	// Prefix is the first segment of every secret name.
	Prefix string `mapstructure:"prefix" default:"oho"`
	// CacheTTL is how long a fetched value is reused. Zero disables caching.
	CacheTTL time.Duration `mapstructure:"cache_ttl" default:"5m"`
}
