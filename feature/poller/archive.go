package poller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"api-poller/core/apperr"
	"api-poller/core/storage"

	"github.com/minio/minio-go/v7"
)

// ErrPageNotArchived is returned by Get when no archived page exists.
var ErrPageNotArchived = errors.New("page not archived")

// maxPageBytes caps a page read back from the archive.
const maxPageBytes = 64 << 20

// Archive keeps the raw body of every fetched page in object storage until
// its batch is purged.
type Archive struct {
	client storage.Client
	bucket string
}

// NewArchive creates an archive in bucket. A nil client disables archiving.
func NewArchive(client storage.Client, bucket string) *Archive {
	return &Archive{client: client, bucket: bucket}
}

// Enabled reports whether pages are archived.
func (a *Archive) Enabled() bool {
	return a != nil && a.client != nil
}

// BatchPrefix is the key prefix of every page of a batch.
func BatchPrefix(clientID, batchID string) string {
	return fmt.Sprintf("pages/%s/%s/", clientID, batchID)
}

// PageKey is the key of one page.
func PageKey(clientID, batchID string, startIndex int) string {
	return fmt.Sprintf("%s%06d.json", BatchPrefix(clientID, batchID), startIndex)
}

// Put stores the raw page of t and returns its key.
func (a *Archive) Put(ctx context.Context, t Task, raw []byte) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	key := PageKey(t.ClientID, t.Batch.ID, t.Job.StartIndex)
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"job-id": t.Job.ID,
		},
	})
	if err != nil {
		return "", apperr.Collaborator("archive page", err)
	}
	return key, nil
}

// Get reads back the raw page a job fetched at startIndex.
func (a *Archive) Get(ctx context.Context, clientID, batchID string, startIndex int) ([]byte, error) {
	if !a.Enabled() {
		return nil, ErrPageNotArchived
	}
	key := PageKey(clientID, batchID, startIndex)
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err == nil {
		defer obj.Close()
		var raw []byte
		if raw, err = io.ReadAll(io.LimitReader(obj, maxPageBytes)); err == nil {
			return raw, nil
		}
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return nil, fmt.Errorf("%s: %w", key, ErrPageNotArchived)
	}
	return nil, apperr.Collaborator("read archived page", err)
}

// RemoveBatch deletes every archived page of a batch.
func (a *Archive) RemoveBatch(ctx context.Context, clientID, batchID string) (int, error) {
	if !a.Enabled() {
		return 0, nil
	}
	n, err := storage.RemovePrefix(ctx, a.client, a.bucket, BatchPrefix(clientID, batchID))
	if err != nil {
		return n, apperr.Collaborator("remove archived pages", err)
	}
	return n, nil
}
