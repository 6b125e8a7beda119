package integrity

import (
	"context"
	"time"

	"api-poller/core/storage"
	"api-poller/feature/integrity/checks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultStallAfter is how long a job may go without reporting before it is
// considered stalled.
const DefaultStallAfter = time.Hour

// Service handles integrity checks.
type Service struct {
	client storage.Client
	bucket string
	region string
	logger *zap.Logger
	db     *gorm.DB
	models []any

	stallAfter time.Duration
	now        func() time.Time
}

// NewService creates a new integrity service. models are the GORM models
// whose tables the schema check inspects.
func NewService(client storage.Client, bucket, region string, logger *zap.Logger, db *gorm.DB, models []any) *Service {
	return &Service{
		client:     client,
		bucket:     bucket,
		region:     region,
		logger:     logger,
		db:         db,
		models:     models,
		stallAfter: DefaultStallAfter,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CheckArchive reports the state of the page archive bucket.
func (s *Service) CheckArchive(ctx context.Context) (*checks.ArchiveReport, error) {
	return checks.CheckArchive(ctx, s.client, s.bucket)
}

// FixArchive creates the page archive bucket.
func (s *Service) FixArchive(ctx context.Context) error {
	return checks.FixArchive(ctx, s.client, s.bucket, s.region, s.logger)
}

// CheckSchema compares the database with the models.
func (s *Service) CheckSchema() (*checks.SchemaReport, error) {
	return checks.CheckSchema(s.db, s.models...)
}

// FixSchema migrates the models.
func (s *Service) FixSchema() error {
	return checks.FixSchema(s.db, s.models...)
}

// CheckJobs lists stalled jobs.
func (s *Service) CheckJobs(ctx context.Context) ([]checks.StalledJob, error) {
	return checks.CheckStalledJobs(ctx, s.db, s.now().Add(-s.stallAfter))
}
