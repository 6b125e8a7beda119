package checks

import (
	"context"
	"fmt"

	"api-poller/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// PagesPrefix is the prefix archived pages are stored under.
const PagesPrefix = "pages/"

// ArchiveReport describes the page archive bucket.
type ArchiveReport struct {
	Bucket string `json:"bucket"`
	Exists bool   `json:"exists"`
	// Clients lists the client prefixes holding archived pages.
	Clients []string `json:"clients"`
}

// CheckArchive reports whether the archive bucket exists and which clients
// have pages in it.
func CheckArchive(ctx context.Context, client storage.Client, bucket string) (*ArchiveReport, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	report := &ArchiveReport{Bucket: bucket, Exists: exists, Clients: []string{}}
	if !exists {
		return report, nil
	}

	opts := minio.ListObjectsOptions{Prefix: PagesPrefix, Recursive: false}
	for obj := range client.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list archived pages: %w", obj.Err)
		}
		report.Clients = append(report.Clients, obj.Key)
	}
	return report, nil
}

// FixArchive creates the archive bucket.
func FixArchive(ctx context.Context, client storage.Client, bucket, region string, logger *zap.Logger) error {
	if err := storage.EnsureBucket(ctx, client, bucket, region); err != nil {
		logger.Error("Failed to create archive bucket", zap.String("bucket", bucket), zap.Error(err))
		return err
	}
	logger.Info("Archive bucket ready", zap.String("bucket", bucket))
	return nil
}
