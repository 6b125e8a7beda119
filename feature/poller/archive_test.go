package poller

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"api-poller/core/apperr"
	"api-poller/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPageKey(t *testing.T) {
	assert.Equal(t, "pages/c1/b1/", BatchPrefix("c1", "b1"))
	assert.Equal(t, "pages/c1/b1/000042.json", PageKey("c1", "b1", 42))
}

func TestArchive_Disabled(t *testing.T) {
	var a *Archive
	assert.False(t, a.Enabled())
	assert.False(t, NewArchive(nil, "pages").Enabled())

	key, err := a.Put(context.Background(), Task{}, []byte("{}"))
	require.NoError(t, err)
	assert.Empty(t, key)

	n, err := a.RemoveBatch(context.Background(), "c1", "b1")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = a.Get(context.Background(), "c1", "b1", 1)
	assert.ErrorIs(t, err, ErrPageNotArchived)
}

func TestArchive_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("stored page", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("GetObject", ctx, "pages", "pages/c1/b1/000003.json", minio.GetObjectOptions{}).
			Return(io.NopCloser(strings.NewReader(`{"items":[]}`)), nil)

		raw, err := NewArchive(mockClient, "pages").Get(ctx, "c1", "b1", 3)
		require.NoError(t, err)
		assert.JSONEq(t, `{"items":[]}`, string(raw))
		mockClient.AssertExpectations(t)
	})

	t.Run("missing page", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("GetObject", ctx, "pages", "pages/c1/b1/000009.json", minio.GetObjectOptions{}).
			Return(nil, minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."})

		_, err := NewArchive(mockClient, "pages").Get(ctx, "c1", "b1", 9)
		assert.ErrorIs(t, err, ErrPageNotArchived)
	})

	t.Run("storage failure", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("GetObject", ctx, "pages", "pages/c1/b1/000001.json", minio.GetObjectOptions{}).
			Return(nil, errors.New("connection reset"))

		_, err := NewArchive(mockClient, "pages").Get(ctx, "c1", "b1", 1)
		var collab *apperr.CollaboratorError
		require.ErrorAs(t, err, &collab)
		assert.Equal(t, "read archived page", collab.Op)
	})
}

func TestArchive_PutFailure(t *testing.T) {
	mockClient := new(mocks.Client)
	mockClient.On("PutObject", mock.Anything, "pages", "pages/c1/b1/000001.json", mock.Anything, int64(2),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool {
			return o.ContentType == "application/json" && o.UserMetadata["job-id"] == "j1"
		})).
		Return(minio.UploadInfo{}, errors.New("bucket gone"))

	a := NewArchive(mockClient, "pages")
	task := Task{Batch: BatchRef{ID: "b1"}, Job: JobRef{ID: "j1", StartIndex: 1}}
	task.ClientID = "c1"

	_, err := a.Put(context.Background(), task, []byte("{}"))
	require.Error(t, err)
	var collab *apperr.CollaboratorError
	assert.ErrorAs(t, err, &collab)
	mockClient.AssertExpectations(t)
}
