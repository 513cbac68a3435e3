// Package miniowr provides a MinIO implementation of filestore.FileStore.
package miniowr

import (
	"context"
	"io"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/code19m/errx"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/rise-and-shine/docclip/filestore"
	"github.com/rise-and-shine/docclip/logger"
)

const (
	codeNoSuchKey = "NoSuchKey"
	codeNotFound  = "NotFound"
)

// Client implements filestore.FileStore on top of a single MinIO bucket.
type Client struct {
	client *minio.Client
	bucket string
}

var _ filestore.FileStore = (*Client)(nil)

// New connects to MinIO and makes sure the configured bucket exists.
// The bucket check is retried with exponential backoff because object
// storage often starts later than the application in local setups.
func New(ctx context.Context, cfg Config) (*Client, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errx.Wrap(err)
	}

	log := logger.Named("miniowr")
	err = retry.Do(
		func() error { return ensureBucket(ctx, cli, cfg) },
		retry.Context(ctx),
		retry.Attempts(cfg.BootstrapAttempts),
		retry.Delay(cfg.BootstrapDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.With("attempt", n+1, "bucket", cfg.Bucket).Warnx(err)
		}),
	)
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"bucket": cfg.Bucket, "endpoint": cfg.Endpoint}))
	}

	return &Client{client: cli, bucket: cfg.Bucket}, nil
}

func ensureBucket(ctx context.Context, cli *minio.Client, cfg Config) error {
	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return errx.Wrap(err)
	}
	if exists {
		return nil
	}
	err = cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region})
	if err != nil {
		return errx.Wrap(err)
	}
	return nil
}

// Put uploads the object at path.
func (c *Client) Put(
	ctx context.Context,
	path string,
	r io.Reader,
	size int64,
	contentType string,
) (*filestore.FileInfo, error) {
	info, err := c.client.PutObject(ctx, c.bucket, path, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"path": path}))
	}

	return &filestore.FileInfo{
		Path:         path,
		Size:         info.Size,
		ContentType:  contentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

// Get opens the object at path.
func (c *Client) Get(ctx context.Context, path string) (*filestore.File, error) {
	obj, err := c.client.GetObject(ctx, c.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, c.wrapMinioError(err, path)
	}

	stat, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, c.wrapMinioError(err, path)
	}

	return &filestore.File{
		Content: obj,
		Info: filestore.FileInfo{
			Path:         path,
			Size:         stat.Size,
			ContentType:  stat.ContentType,
			ETag:         stat.ETag,
			LastModified: stat.LastModified,
		},
	}, nil
}

// Delete removes the object at path. MinIO reports success for missing keys.
func (c *Client) Delete(ctx context.Context, path string) error {
	err := c.client.RemoveObject(ctx, c.bucket, path, minio.RemoveObjectOptions{})
	if err != nil {
		return c.wrapMinioError(err, path)
	}
	return nil
}

// Exists reports whether an object is stored at path.
func (c *Client) Exists(ctx context.Context, path string) (bool, error) {
	_, err := c.client.StatObject(ctx, c.bucket, path, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, errx.Wrap(err, errx.WithDetails(errx.D{"path": path}))
	}
	return true, nil
}

// URL returns a presigned GET URL for path.
func (c *Client) URL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	u, err := c.client.PresignedGetObject(ctx, c.bucket, path, expiry, nil)
	if err != nil {
		return "", errx.Wrap(err, errx.WithDetails(errx.D{"path": path}))
	}
	return u.String(), nil
}

func (c *Client) wrapMinioError(err error, path string) error {
	if isNotFound(err) {
		return errx.New(
			"file not found",
			errx.WithCode(filestore.CodeFileNotFound),
			errx.WithType(errx.T_NotFound),
			errx.WithDetails(errx.D{"path": path, "bucket": c.bucket}),
		)
	}
	return errx.Wrap(err, errx.WithDetails(errx.D{"path": path}))
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == codeNoSuchKey || code == codeNotFound
}
