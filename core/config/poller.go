package config

import (
	"fmt"
	"time"

	"api-poller/core/apperr"
)

// Poller holds the sync behaviour shared by the poller and line-item
// features.
type Poller struct {
	// Env is the environment segment of secret names (dev, uat, prod).
	Env string `mapstructure:"env" default:"dev"`
	// MaxPageSize is the number of records planned per job.
	MaxPageSize int `mapstructure:"max_page_size" default:"100"`
	// RetentionDays is how long batch and job rows are kept.
	RetentionDays int `mapstructure:"retention_days" default:"14"`
	// Concurrency bounds the jobs of one batch fetched at once.
	Concurrency int `mapstructure:"concurrency" default:"4"`
	// AllowLastEdit restricts fetches to records edited since the last
	// completed run.
	AllowLastEdit bool `mapstructure:"allow_last_edit" default:"false"`
	// AllowDeactivation deactivates stored accreditations missing from a fetch.
	AllowDeactivation bool `mapstructure:"allow_deactivation" default:"false"`
	// FetchTimeout bounds one data source call.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" default:"30s"`
}

// Validate rejects settings the planner cannot work with.
func (p Poller) Validate() error {
	if p.MaxPageSize <= 0 {
		return apperr.Invalid("poller.max_page_size", fmt.Sprintf("must be positive, got %d", p.MaxPageSize))
	}
	if p.Concurrency <= 0 {
		return apperr.Invalid("poller.concurrency", fmt.Sprintf("must be positive, got %d", p.Concurrency))
	}
	return nil
}
