// Package image turns uploads into stored files and manages the stored collection.
package image

import (
	"errors"
	"io"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

// ErrNotImage is returned when a multipart upload does not declare an image/* type.
var ErrNotImage = errors.New("file must be an image")

// ErrEmptyBody is returned when a raw upload carries no bytes.
var ErrEmptyBody = errors.New("empty request body")

// ErrNoFile is returned when a multipart request has no "file" part.
var ErrNoFile = errors.New("no image provided")

// ErrInvalidName is returned for a stored filename this service could never have generated.
var ErrInvalidName = errors.New("invalid image name")

// Shape is the form an upload arrives in.
type Shape int

const (
	// ShapeMultipart is a multipart/form-data request with a "file" part.
	ShapeMultipart Shape = iota
	// ShapeRaw is a request whose body is the image bytes.
	ShapeRaw
)

func (s Shape) String() string {
	if s == ShapeMultipart {
		return "multipart"
	}
	return "raw"
}

// Upload is one inbound image, before classification.
type Upload struct {
	Shape Shape
	// ContentType is the part's declared type (multipart) or the request's Content-Type (raw).
	ContentType string
	// Filename is the multipart part filename. Raw uploads carry it in Header.
	Filename string
	// Header holds the transport headers of a raw upload.
	Header http.Header
	Body   io.Reader
	// Size is the body length in bytes, or -1 when unknown.
	Size int64
}

// Result describes a stored upload.
type Result struct {
	ImageID          string
	StoredFilename   string
	OriginalFilename string
	ContentType      string
}

// WipeResult reports the outcome of WipeAll.
type WipeResult struct {
	Deleted int
	Failed  []string
}

var storedNameRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.[a-z0-9-]+$`)

// NewID returns a random 128-bit identifier in canonical UUID form.
func NewID() string {
	return uuid.NewString()
}

// ValidName reports whether name has the <uuid><.ext> shape of generated filenames.
func ValidName(name string) bool {
	return storedNameRe.MatchString(name)
}
