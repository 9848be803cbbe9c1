package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const codeNoSuchKey = "NoSuchKey"

// MinioStorage implements Storage using a MinIO (or any S3-compatible) bucket.
// Objects live at the bucket root, so the namespace stays flat.
type MinioStorage struct {
	client *minio.Client
	bucket string
}

// MinioOptions configures NewMinioStorage.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool

	// Transport overrides the HTTP transport, e.g. to trust a private CA.
	Transport http.RoundTripper
}

// NewMinioStorage creates a MinIO client, ensures the bucket exists, and
// returns a ready-to-use MinioStorage.
func NewMinioStorage(ctx context.Context, opts MinioOptions, log *zap.Logger) (*MinioStorage, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:    opts.UseSSL,
		Transport: opts.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", opts.Bucket, err)
		}
		log.Info("storage: created bucket", zap.String("bucket", opts.Bucket))
	}

	return &MinioStorage{client: client, bucket: opts.Bucket}, nil
}

// Put streams reader to the bucket under name.
func (s *MinioStorage) Put(ctx context.Context, name string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, name, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", name, err)
	}
	return nil
}

// Exists reports whether an object is stored under name.
func (s *MinioStorage) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object %q: %w", name, err)
	}
	return true, nil
}

// Get opens the object stored under name. Objects stored without a specific
// type are sniffed.
func (s *MinioStorage) Get(ctx context.Context, name string) (*Object, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", name, err)
	}

	stat, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat object %q: %w", name, err)
	}

	contentType := stat.ContentType
	if needsSniff(contentType) {
		if contentType, err = sniffContentType(obj); err != nil {
			_ = obj.Close()
			return nil, fmt.Errorf("detect type of %q: %w", name, err)
		}
	}

	return &Object{
		Name:        name,
		Content:     obj,
		Size:        stat.Size,
		ContentType: contentType,
		ModTime:     stat.LastModified,
	}, nil
}

// Delete removes the object stored under name. S3 deletes are idempotent, so
// the object is stat'ed first to report ErrNotFound like the local backend.
func (s *MinioStorage) Delete(ctx context.Context, name string) error {
	ok, err := s.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %q: %w", name, err)
	}
	return nil
}

// List returns the keys at the bucket root.
func (s *MinioStorage) List(ctx context.Context) ([]string, error) {
	var names []string
	for info := range s.client.ListObjectsIter(ctx, s.bucket, minio.ListObjectsOptions{}) {
		if info.Err != nil {
			return nil, fmt.Errorf("list objects: %w", info.Err)
		}
		if strings.HasSuffix(info.Key, "/") {
			continue
		}
		names = append(names, info.Key)
	}
	return names, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == codeNoSuchKey
}
