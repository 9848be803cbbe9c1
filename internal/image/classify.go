package image

import (
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/samber/lo"
)

const (
	// DefaultImageType is assigned to raw uploads that carry no usable type signal.
	DefaultImageType = "image/jpeg"

	octetStream  = "application/octet-stream"
	fallbackExt  = ".bin"
	synthPrefix  = "uploaded_image_"
	filenameAttr = "filename="

	// maxExtLen bounds a stored extension, dot included, so that a stored
	// name stays well inside a filesystem name component.
	maxExtLen = 16
)

// imageExtensions are the suffixes that vouch for a raw upload with a non-image Content-Type.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tiff"}

// extraFilenameHeaders are checked after X-Filename and Content-Disposition, in order.
var extraFilenameHeaders = []string{"X-File-Name", "X-Original-Filename", "Filename", "Slug"}

var extRe = regexp.MustCompile(`^[a-z0-9-]+$`)

// Classification is the outcome of Classify.
type Classification struct {
	ContentType      string
	Extension        string
	OriginalFilename string
}

// Classify decides the content type, stored extension and reported filename of an upload.
//
// Multipart uploads must declare an image/* type and keep the extension of the
// supplied filename when it has one. Raw uploads are never rejected: a
// non-image type is replaced by the type implied by the filename's suffix, or
// by DefaultImageType, and the extension always follows the final type.
func Classify(id string, up Upload) (Classification, error) {
	if up.Shape == ShapeMultipart {
		return classifyMultipart(id, up.ContentType, up.Filename)
	}
	return classifyRaw(id, up.ContentType, up.Header), nil
}

func classifyMultipart(id, contentType, filename string) (Classification, error) {
	ct := normalizeType(contentType)
	if !isImageType(ct) {
		return Classification{}, ErrNotImage
	}

	ext := extFromFilename(filename)
	if ext == "" {
		ext = extFromType(ct)
	}

	original := strings.TrimSpace(filename)
	if original == "" {
		original = synthPrefix + id
	}

	return Classification{ContentType: ct, Extension: ext, OriginalFilename: original}, nil
}

func classifyRaw(id, contentType string, header http.Header) Classification {
	ct := normalizeType(contentType)
	if ct == "" {
		ct = octetStream
	}

	original := filenameFromHeaders(header)
	if original == "" {
		original = synthPrefix + id
	}

	if !isImageType(ct) {
		suffix := strings.ToLower(filepath.Ext(original))
		if lo.Contains(imageExtensions, suffix) {
			ct = typeForSuffix(suffix)
		} else {
			ct = DefaultImageType
		}
	}

	return Classification{ContentType: ct, Extension: extFromType(ct), OriginalFilename: original}
}

// filenameFromHeaders looks for a client-supplied filename in a raw upload's headers.
func filenameFromHeaders(header http.Header) string {
	if header == nil {
		return ""
	}
	if v := strings.TrimSpace(header.Get("X-Filename")); v != "" {
		return v
	}
	if v := dispositionFilename(header.Get("Content-Disposition")); v != "" {
		return v
	}
	name, ok := lo.Find(extraFilenameHeaders, func(h string) bool {
		return strings.TrimSpace(header.Get(h)) != ""
	})
	if ok {
		return strings.TrimSpace(header.Get(name))
	}
	return ""
}

// dispositionFilename extracts the filename= token of a Content-Disposition
// value, stripping surrounding quotes. Malformed values are tolerated.
func dispositionFilename(value string) string {
	if value == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(value); err == nil {
		if v := strings.TrimSpace(params["filename"]); v != "" {
			return v
		}
	}

	i := strings.Index(strings.ToLower(value), filenameAttr)
	if i < 0 {
		return ""
	}
	v := value[i+len(filenameAttr):]
	if j := strings.IndexByte(v, ';'); j >= 0 {
		v = v[:j]
	}
	return strings.Trim(strings.TrimSpace(v), `"'`)
}

// normalizeType lower-cases a media type and drops its parameters.
// Unparseable values are returned trimmed so the caller can still inspect the prefix.
func normalizeType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(contentType)
	}
	return mt
}

func isImageType(ct string) bool {
	return strings.HasPrefix(ct, "image/")
}

func typeForSuffix(suffix string) string {
	if suffix == ".jpg" {
		return "image/jpeg"
	}
	return "image/" + strings.TrimPrefix(suffix, ".")
}

// extFromType derives ".subtype" from a media type, dropping any +suffix.
func extFromType(ct string) string {
	_, sub, ok := strings.Cut(ct, "/")
	if !ok {
		return fallbackExt
	}
	if i := strings.IndexAny(sub, "+;"); i >= 0 {
		sub = sub[:i]
	}
	sub = strings.ToLower(strings.TrimSpace(sub))
	if len(sub) >= maxExtLen || !extRe.MatchString(sub) {
		return fallbackExt
	}
	return "." + sub
}

// extFromFilename returns the lower-cased suffix of name, or "" when it has none
// usable as a stored extension.
func extFromFilename(name string) string {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
	if len(ext) < 2 || len(ext) > maxExtLen || !extRe.MatchString(ext[1:]) {
		return ""
	}
	return ext
}
