package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// tempPrefix marks in-flight writes; List never reports them.
const tempPrefix = ".upload-"

// LocalStorage implements Storage on a single flat directory.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates the directory if needed and returns a ready-to-use LocalStorage.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

// Root returns the directory backing the store.
func (s *LocalStorage) Root() string {
	return s.root
}

// Put writes to a temporary file next to the destination and renames it into
// place, so a failed or aborted write never leaves a partial entry under name.
func (s *LocalStorage) Put(_ context.Context, name string, reader io.Reader, _ int64, _ string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.root, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, reader); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close %q: %w", name, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %q: %w", name, err)
	}
	return nil
}

// Exists reports whether a regular file is stored under name.
func (s *LocalStorage) Exists(_ context.Context, name string) (bool, error) {
	path, err := s.path(name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %q: %w", name, err)
	}
	return info.Mode().IsRegular(), nil
}

// Get opens the file stored under name. The content type is inferred from the
// extension, falling back to the leading bytes when the extension is unknown.
func (s *LocalStorage) Get(_ context.Context, name string) (*Object, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", name, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %q: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, ErrNotFound
	}

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if needsSniff(contentType) {
		if contentType, err = sniffContentType(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("detect type of %q: %w", name, err)
		}
	}

	return &Object{
		Name:        name,
		Content:     f,
		Size:        info.Size(),
		ContentType: contentType,
		ModTime:     info.ModTime(),
	}, nil
}

// Delete removes the file stored under name.
func (s *LocalStorage) Delete(_ context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("remove %q: %w", name, err)
	}
	return nil
}

// List returns the names of all regular files in the directory.
func (s *LocalStorage) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read storage directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// path maps a key onto the directory, refusing anything that is not a bare filename.
func (s *LocalStorage) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	return filepath.Join(s.root, name), nil
}
