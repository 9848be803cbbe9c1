package storage

import (
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const octetStream = "application/octet-stream"

// needsSniff reports whether a stored type says nothing about the bytes.
func needsSniff(contentType string) bool {
	contentType = strings.TrimSpace(contentType)
	return contentType == "" || strings.HasPrefix(contentType, octetStream)
}

// sniffContentType detects the type of rs from its leading bytes and rewinds it.
func sniffContentType(rs io.ReadSeeker) (string, error) {
	mt, err := mimetype.DetectReader(rs)
	if err != nil {
		return "", err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind: %w", err)
	}
	return mt.String(), nil
}
