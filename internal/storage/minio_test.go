package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testBucket = "images"

// s3Object is one entry held by s3Server.
type s3Object struct {
	data        []byte
	contentType string
	etag        string
	modTime     time.Time
}

// s3Server answers the subset of the S3 API that MinioStorage uses, with the
// same idempotent DELETE real S3 has.
type s3Server struct {
	mu      sync.Mutex
	buckets map[string]map[string]*s3Object
}

func newS3Server() *s3Server {
	return &s3Server{buckets: make(map[string]map[string]*s3Object)}
}

func (s *s3Server) put(bucket, key string, data []byte, contentType string) {
	sum := md5.Sum(data)
	s.buckets[bucket][key] = &s3Object{
		data:        data,
		contentType: contentType,
		etag:        hex.EncodeToString(sum[:]),
		modTime:     time.Now().UTC().Truncate(time.Second),
	}
}

func (s *s3Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, ok := r.URL.Query()["location"]; ok {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, xml.Header+`<LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/"></LocationConstraint>`)
		return
	}

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")

	s.mu.Lock()
	defer s.mu.Unlock()

	objects, ok := s.buckets[bucket]
	if key == "" {
		switch {
		case r.Method == http.MethodPut:
			if !ok {
				s.buckets[bucket] = make(map[string]*s3Object)
			}
		case !ok:
			writeS3Error(w, http.StatusNotFound, "NoSuchBucket")
		case r.Method == http.MethodGet:
			writeListing(w, bucket, objects)
		}
		return
	}
	if !ok {
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket")
		return
	}

	switch r.Method {
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			writeS3Error(w, http.StatusBadRequest, "IncompleteBody")
			return
		}
		s.put(bucket, key, data, r.Header.Get("Content-Type"))
		w.Header().Set("ETag", `"`+objects[key].etag+`"`)
	case http.MethodGet, http.MethodHead:
		obj, ok := objects[key]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("Content-Type", obj.contentType)
		w.Header().Set("ETag", `"`+obj.etag+`"`)
		http.ServeContent(w, r, key, obj.modTime, bytes.NewReader(obj.data))
	case http.MethodDelete:
		delete(objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeS3Error(w, http.StatusMethodNotAllowed, "MethodNotAllowed")
	}
}

func writeS3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, xml.Header+"<Error><Code>"+code+"</Code><Message>"+code+"</Message></Error>")
}

type s3ListEntry struct {
	Key          string
	LastModified string
	ETag         string
	Size         int
}

type s3ListResult struct {
	XMLName     xml.Name `xml:"ListBucketResult"`
	Name        string
	KeyCount    int
	MaxKeys     int
	IsTruncated bool
	Contents    []s3ListEntry
}

func writeListing(w http.ResponseWriter, bucket string, objects map[string]*s3Object) {
	res := s3ListResult{Name: bucket, MaxKeys: 1000}
	keys := make([]string, 0, len(objects))
	for k := range objects {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		obj := objects[k]
		res.Contents = append(res.Contents, s3ListEntry{
			Key:          k,
			LastModified: obj.modTime.Format(time.RFC3339),
			ETag:         `"` + obj.etag + `"`,
			Size:         len(obj.data),
		})
	}
	res.KeyCount = len(res.Contents)

	w.Header().Set("Content-Type", "application/xml")
	_, _ = io.WriteString(w, xml.Header)
	_ = xml.NewEncoder(w).Encode(res)
}

// newTestMinio serves the fake over TLS so the client sends plain payloads
// instead of chunk-signed streams.
func newTestMinio(t *testing.T) (*MinioStorage, *s3Server) {
	t.Helper()
	fake := newS3Server()
	srv := httptest.NewTLSServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewMinioStorage(context.Background(), MinioOptions{
		Endpoint:  srv.Listener.Addr().String(),
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    testBucket,
		UseSSL:    true,
		Transport: srv.Client().Transport,
	}, zap.NewNop())
	require.NoError(t, err)
	return store, fake
}

func TestIsNoSuchKey(t *testing.T) {
	assert.True(t, isNoSuchKey(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.False(t, isNoSuchKey(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isNoSuchKey(errors.New("dial tcp: connection refused")))
}

func TestMinioStorageCreatesBucket(t *testing.T) {
	_, fake := newTestMinio(t)
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Contains(t, fake.buckets, testBucket)
}

func TestMinioStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestMinio(t)

	const name = "2c1e9a44-6c7e-4b43-9a43-0d5f7b1b2e0a.png"
	data := "Hello, World! This is test image data."

	require.NoError(t, store.Put(ctx, name, strings.NewReader(data), int64(len(data)), "image/png"))

	ok, err := store.Exists(ctx, name)
	require.NoError(t, err)
	assert.True(t, ok)

	obj, err := store.Get(ctx, name)
	require.NoError(t, err)
	got, err := io.ReadAll(obj.Content)
	require.NoError(t, err)
	require.NoError(t, obj.Content.Close())
	assert.Equal(t, data, string(got))
	assert.Equal(t, int64(len(data)), obj.Size)
	assert.Equal(t, "image/png", obj.ContentType)

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{name}, names)
}

func TestMinioStorageMissingObject(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestMinio(t)

	ok, err := store.Exists(ctx, "missing.png")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Get(ctx, "missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMinioStorageDeleteTwice(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestMinio(t)

	const name = "2c1e9a44-6c7e-4b43-9a43-0d5f7b1b2e0a.gif"
	require.NoError(t, store.Put(ctx, name, strings.NewReader("GIF89a"), 6, "image/gif"))

	require.NoError(t, store.Delete(ctx, name))
	assert.ErrorIs(t, store.Delete(ctx, name), ErrNotFound)
}

func TestMinioStorageListSkipsPrefixKeys(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestMinio(t)

	fake.mu.Lock()
	fake.put(testBucket, "a.png", []byte("a"), "image/png")
	fake.put(testBucket, "nested/", nil, "")
	fake.put(testBucket, "b.jpeg", []byte("b"), "image/jpeg")
	fake.mu.Unlock()

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.jpeg"}, names)
}

func TestMinioStorageGetSniffsUntypedObject(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestMinio(t)

	const name = "2c1e9a44-6c7e-4b43-9a43-0d5f7b1b2e0a.bin"
	data := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"
	require.NoError(t, store.Put(ctx, name, strings.NewReader(data), int64(len(data)), ""))

	obj, err := store.Get(ctx, name)
	require.NoError(t, err)
	defer obj.Content.Close()

	assert.Equal(t, "image/png", obj.ContentType)
	got, err := io.ReadAll(obj.Content)
	require.NoError(t, err)
	assert.Equal(t, data, string(got))
}
