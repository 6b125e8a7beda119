package checks

import (
	"context"
	"errors"
	"testing"

	"api-poller/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCheckArchive(t *testing.T) {
	t.Run("bucket with clients", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "pages").Return(true, nil)

		ch := make(chan minio.ObjectInfo, 2)
		ch <- minio.ObjectInfo{Key: "pages/c1/"}
		ch <- minio.ObjectInfo{Key: "pages/c2/"}
		close(ch)
		mockClient.On("ListObjects", mock.Anything, "pages", minio.ListObjectsOptions{Prefix: PagesPrefix}).
			Return((<-chan minio.ObjectInfo)(ch))

		report, err := CheckArchive(context.Background(), mockClient, "pages")
		require.NoError(t, err)
		assert.True(t, report.Exists)
		assert.Equal(t, []string{"pages/c1/", "pages/c2/"}, report.Clients)
	})

	t.Run("missing bucket", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "pages").Return(false, nil)

		report, err := CheckArchive(context.Background(), mockClient, "pages")
		require.NoError(t, err)
		assert.False(t, report.Exists)
		mockClient.AssertNotCalled(t, "ListObjects", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("listing error", func(t *testing.T) {
		mockClient := new(mocks.Client)
		mockClient.On("BucketExists", mock.Anything, "pages").Return(true, nil)
		ch := make(chan minio.ObjectInfo, 1)
		ch <- minio.ObjectInfo{Err: errors.New("denied")}
		close(ch)
		mockClient.On("ListObjects", mock.Anything, "pages", mock.Anything).Return((<-chan minio.ObjectInfo)(ch))

		_, err := CheckArchive(context.Background(), mockClient, "pages")
		assert.ErrorContains(t, err, "denied")
	})
}

func TestFixArchive(t *testing.T) {
	mockClient := new(mocks.Client)
	mockClient.On("BucketExists", mock.Anything, "pages").Return(false, nil)
	mockClient.On("MakeBucket", mock.Anything, "pages", minio.MakeBucketOptions{Region: "eu-west-1"}).Return(nil)

	err := FixArchive(context.Background(), mockClient, "pages", "eu-west-1", zap.NewNop())
	require.NoError(t, err)
	mockClient.AssertExpectations(t)
}
