// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client so that the poller can archive the raw payload
// of every fetched page. Both AWS S3 and self-hosted MinIO are supported.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it easier
// to mock storage interactions for unit testing (see core/storage/mocks).
//
// # Helpers
//
//   - EnsureBucket: creates the archive bucket on first use.
//   - RemovePrefix: bulk-deletes every object below a prefix, used when
//     expired batches are purged.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	err = storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region)
package storage
