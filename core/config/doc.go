// Package config provides configuration management for the API poller.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file. Defaults come from `default` struct tags.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key, timeouts)
//   - Database: MySQL or SQLite connection details
//   - Storage: S3/MinIO credentials and the raw page bucket
//   - Log: Logging level and format
//   - Redis: identity lock backend
//   - Secrets: AWS Secrets Manager region and name prefix
//   - Poller: page size, retention, concurrency and sync switches
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Poller.MaxPageSize)
package config
