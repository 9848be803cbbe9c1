package image

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/imageshare/service/internal/storage"
)

// Service contains business logic for ingesting, serving and removing images.
type Service struct {
	store storage.Storage
	log   *zap.Logger
	newID func() string
}

// NewService creates a new image Service.
func NewService(store storage.Storage, log *zap.Logger) *Service {
	return &Service{store: store, log: log, newID: NewID}
}

// Ingest classifies an upload and writes it under a freshly generated name.
// Every check runs before the write, so a rejected upload leaves storage untouched.
func (s *Service) Ingest(ctx context.Context, up Upload) (*Result, error) {
	id := s.newID()

	c, err := Classify(id, up)
	if err != nil {
		return nil, err
	}

	body := up.Body
	if up.Shape == ShapeRaw {
		if body, err = nonEmpty(up.Body); err != nil {
			return nil, err
		}
	}

	name := id + c.Extension
	if err := s.store.Put(ctx, name, body, up.Size, c.ContentType); err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}

	s.log.Info("image stored",
		zap.String("stored_filename", name),
		zap.String("original_filename", c.OriginalFilename),
		zap.String("content_type", c.ContentType),
		zap.Stringer("shape", up.Shape),
	)

	return &Result{
		ImageID:          id,
		StoredFilename:   name,
		OriginalFilename: c.OriginalFilename,
		ContentType:      c.ContentType,
	}, nil
}

// Open returns the stored image. The caller must close Object.Content.
func (s *Service) Open(ctx context.Context, name string) (*storage.Object, error) {
	if !ValidName(name) {
		return nil, ErrInvalidName
	}
	ok, err := s.store.Exists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check image: %w", err)
	}
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.store.Get(ctx, name)
}

// Delete removes one stored image. Deleting a missing image is an error.
func (s *Service) Delete(ctx context.Context, name string) error {
	if !ValidName(name) {
		return ErrInvalidName
	}
	if err := s.store.Delete(ctx, name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete image: %w", err)
	}
	s.log.Info("image deleted", zap.String("stored_filename", name))
	return nil
}

// WipeAll deletes every stored entry. A failed removal is logged and recorded
// in the result without stopping the remaining deletions.
func (s *Service) WipeAll(ctx context.Context) (*WipeResult, error) {
	names, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	res := &WipeResult{}
	for _, name := range names {
		if err := s.store.Delete(ctx, name); err != nil {
			s.log.Warn("wipe: delete failed", zap.String("stored_filename", name), zap.Error(err))
			res.Failed = append(res.Failed, name)
			continue
		}
		res.Deleted++
	}

	s.log.Info("wipe complete", zap.Int("deleted", res.Deleted), zap.Int("failed", len(res.Failed)))
	return res, nil
}

// IsNotFound returns true when the error means the requested image does not exist.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound) || errors.Is(err, ErrInvalidName)
}

// IsInvalidUpload returns true when the error is the client's fault.
func (s *Service) IsInvalidUpload(err error) bool {
	return errors.Is(err, ErrNotImage) || errors.Is(err, ErrEmptyBody) || errors.Is(err, ErrNoFile)
}

// nonEmpty returns a reader equivalent to r, or ErrEmptyBody when r has no bytes.
func nonEmpty(r io.Reader) (io.Reader, error) {
	if r == nil {
		return nil, ErrEmptyBody
	}
	br := bufio.NewReader(r)
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyBody
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	return br, nil
}
