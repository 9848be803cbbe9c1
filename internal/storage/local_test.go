package storage_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imageshare/service/internal/storage"
)

func newLocal(t *testing.T) *storage.LocalStorage {
	t.Helper()
	s, err := storage.NewLocalStorage(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	return s
}

func TestLocalStorageLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	const name = "2c1e9a44-6c7e-4b43-9a43-0d5f7b1b2e0a.png"
	data := "Hello, World! This is test image data."

	require.NoError(t, s.Put(ctx, name, strings.NewReader(data), int64(len(data)), "image/png"))

	ok, err := s.Exists(ctx, name)
	require.NoError(t, err)
	assert.True(t, ok)

	obj, err := s.Get(ctx, name)
	require.NoError(t, err)
	got, err := io.ReadAll(obj.Content)
	require.NoError(t, err)
	require.NoError(t, obj.Content.Close())
	assert.Equal(t, data, string(got))
	assert.Equal(t, int64(len(data)), obj.Size)
	assert.Equal(t, "image/png", obj.ContentType)
	_, seekable := obj.Content.(io.Seeker)
	assert.True(t, seekable)

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{name}, names)

	require.NoError(t, s.Delete(ctx, name))

	ok, err = s.Exists(ctx, name)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorageNotFound(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	_, err := s.Get(ctx, "missing.png")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = s.Delete(ctx, "missing.png")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLocalStorageDeleteTwice(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	require.NoError(t, s.Put(ctx, "a.jpeg", strings.NewReader("x"), 1, ""))
	require.NoError(t, s.Delete(ctx, "a.jpeg"))
	assert.ErrorIs(t, s.Delete(ctx, "a.jpeg"), storage.ErrNotFound)
}

func TestLocalStoragePutOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	require.NoError(t, s.Put(ctx, "a.gif", strings.NewReader("first"), -1, ""))
	require.NoError(t, s.Put(ctx, "a.gif", strings.NewReader("second"), -1, ""))

	obj, err := s.Get(ctx, "a.gif")
	require.NoError(t, err)
	defer obj.Content.Close()
	got, err := io.ReadAll(obj.Content)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestLocalStoragePutFailureLeavesNothing(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	r := io.MultiReader(strings.NewReader("partial"), failingReader{})
	require.Error(t, s.Put(ctx, "a.png", r, -1, ""))

	entries, err := os.ReadDir(s.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStorageListSkipsDirectoriesAndTempFiles(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	require.NoError(t, os.Mkdir(filepath.Join(s.Root(), "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), ".upload-123"), []byte("x"), 0o644))
	require.NoError(t, s.Put(ctx, "b.webp", strings.NewReader("x"), 1, ""))

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.webp"}, names)

	ok, err := s.Exists(ctx, "nested")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorageRejectsPaths(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	for _, name := range []string{"", "..", "../etc/passwd", `a\b`} {
		_, err := s.Get(ctx, name)
		assert.Error(t, err, name)
		assert.NotErrorIs(t, err, storage.ErrNotFound, name)
	}
}

func TestLocalStorageGetSniffsUnknownExtension(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	const name = "2c1e9a44-6c7e-4b43-9a43-0d5f7b1b2e0a.bin"
	data := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"
	require.NoError(t, s.Put(ctx, name, strings.NewReader(data), int64(len(data)), ""))

	obj, err := s.Get(ctx, name)
	require.NoError(t, err)
	defer obj.Content.Close()

	assert.Equal(t, "image/png", obj.ContentType)
	got, err := io.ReadAll(obj.Content)
	require.NoError(t, err)
	assert.Equal(t, data, string(got), "sniffing must not consume content")
}
