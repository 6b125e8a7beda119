package storage_test

import (
	"context"
	"errors"
	"testing"

	"api-poller/core/storage"
	"api-poller/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		cfg := storage.Config{
			Endpoint:  "localhost:9000",
			AccessKey: "testkey",
			SecretKey: "testsecret",
			Bucket:    "test-bucket",
			Region:    "us-east-1",
		}

		client, err := storage.NewClient(cfg)
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("EndpointWithHTTPS", func(t *testing.T) {
		cfg := storage.Config{
			Endpoint:  "https://s3.amazonaws.com",
			AccessKey: "testkey",
			SecretKey: "testsecret",
			UseSSL:    true,
			Region:    "us-east-1",
		}

		client, err := storage.NewClient(cfg)
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})
}

func TestEnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("exists", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "pages").Return(true, nil)

		require.NoError(t, storage.EnsureBucket(ctx, m, "pages", ""))
		m.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("created", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "pages").Return(false, nil)
		m.On("MakeBucket", ctx, "pages", minio.MakeBucketOptions{Region: "eu-west-1"}).Return(nil)

		require.NoError(t, storage.EnsureBucket(ctx, m, "pages", "eu-west-1"))
		m.AssertExpectations(t)
	})

	t.Run("lookup error", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "pages").Return(false, errors.New("denied"))

		err := storage.EnsureBucket(ctx, m, "pages", "")
		assert.ErrorContains(t, err, "denied")
	})
}

func TestRemovePrefix(t *testing.T) {
	ctx := context.Background()
	m := new(mocks.Client)

	listed := make(chan minio.ObjectInfo, 3)
	listed <- minio.ObjectInfo{Key: "raw/c1/b1/j1/1.json"}
	listed <- minio.ObjectInfo{Key: "raw/c1/b1/j1/2.json"}
	listed <- minio.ObjectInfo{Key: "raw/c1/b1/j2/1.json"}
	close(listed)

	m.On("ListObjects", ctx, "pages", minio.ListObjectsOptions{Prefix: "raw/c1/b1/", Recursive: true}).
		Return((<-chan minio.ObjectInfo)(listed))

	var removed []string
	errs := make(chan minio.RemoveObjectError)
	m.On("RemoveObjects", ctx, "pages", mock.Anything, minio.RemoveObjectsOptions{}).
		Run(func(args mock.Arguments) {
			in := args.Get(2).(<-chan minio.ObjectInfo)
			go func() {
				defer close(errs)
				for obj := range in {
					removed = append(removed, obj.Key)
				}
			}()
		}).
		Return((<-chan minio.RemoveObjectError)(errs))

	n, err := storage.RemovePrefix(ctx, m, "pages", "raw/c1/b1/")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, removed, 3)
}
