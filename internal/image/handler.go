package image

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/imageshare/service/internal/middleware"
	"github.com/imageshare/service/internal/response"
)

// fileField is the multipart form field that carries the image.
const fileField = "file"

// Handler holds HTTP handlers for image endpoints.
type Handler struct {
	svc         *Service
	downloadURL func(storedFilename string) string
	log         *zap.Logger
}

// NewHandler creates a new image Handler. downloadURL builds the public URL
// returned for each upload.
func NewHandler(svc *Service, downloadURL func(string) string, log *zap.Logger) *Handler {
	return &Handler{svc: svc, downloadURL: downloadURL, log: log}
}

type uploadResponse struct {
	ImageID          string `json:"image_id"          example:"e7eedc79-0707-4fe4-8734-526b7ef13a7b"`
	DownloadURL      string `json:"download_url"      example:"http://localhost/images/e7eedc79-0707-4fe4-8734-526b7ef13a7b.png"`
	OriginalFilename string `json:"original_filename" example:"photo.png"`
}

type wipeResponse struct {
	Message      string   `json:"message"       example:"Deleted 3 images"`
	DeletedCount int      `json:"deleted_count" example:"3"`
	Failed       []string `json:"failed,omitempty"`
}

type bannerResponse struct {
	Message string `json:"message" example:"Image Share API"`
	Version string `json:"version" example:"1.0.0"`
}

// Root godoc
//
//	@Summary	Service banner
//	@Tags		meta
//	@Produce	json
//	@Success	200	{object}	bannerResponse
//	@Router		/ [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	response.OK(w, bannerResponse{Message: "Image Share API", Version: "1.0.0"})
}

// Upload godoc
//
//	@Summary		Upload image
//	@Description	Accepts either a multipart form with a "file" part declared as image/*, or the raw image bytes as the request body.
//	@Description	Raw uploads may name the file through X-Filename or Content-Disposition and are never rejected for their type.
//	@Tags			images
//	@Accept			multipart/form-data,application/octet-stream,image/png,image/jpeg
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Param			file		formData	file	false	"Image file (multipart uploads)"
//	@Param			X-Filename	header		string	false	"Original filename (raw uploads)"
//	@Success		200			{object}	uploadResponse
//	@Failure		400			{object}	response.ErrorBody
//	@Failure		401			{object}	response.ErrorBody
//	@Failure		500			{object}	response.ErrorBody
//	@Router			/images [put]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	up, closeFn, err := h.readUpload(r)
	if err != nil {
		if h.svc.IsInvalidUpload(err) {
			response.BadRequest(w, uploadErrorMessage(err))
			return
		}
		response.BadRequest(w, "invalid multipart body")
		return
	}
	defer closeFn()

	res, err := h.svc.Ingest(r.Context(), up)
	if err != nil {
		if h.svc.IsInvalidUpload(err) {
			response.BadRequest(w, uploadErrorMessage(err))
			return
		}
		h.log.Error("upload failed", zap.Error(err), zap.String("principal", middleware.Principal(r.Context())))
		response.InternalError(w)
		return
	}

	response.OK(w, uploadResponse{
		ImageID:          res.ImageID,
		DownloadURL:      h.downloadURL(res.StoredFilename),
		OriginalFilename: res.OriginalFilename,
	})
}

// Get godoc
//
//	@Summary		Download image
//	@Description	Streams the stored bytes with a content type inferred from the extension.
//	@Tags			images
//	@Produce		octet-stream
//	@Param			filename	path		string	true	"Stored filename"
//	@Success		200			{file}		binary
//	@Failure		404			{object}	response.ErrorBody
//	@Router			/images/{filename} [get]
//	@Router			/uploads/{filename} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	obj, err := h.svc.Open(r.Context(), name)
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "Image not found")
			return
		}
		h.log.Error("open image failed", zap.String("stored_filename", name), zap.Error(err))
		response.InternalError(w)
		return
	}
	defer func() {
		if err := obj.Content.Close(); err != nil {
			h.log.Warn("close image failed", zap.String("stored_filename", name), zap.Error(err))
		}
	}()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}

	if rs, ok := obj.Content.(io.ReadSeeker); ok {
		http.ServeContent(w, r, name, obj.ModTime, rs)
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Content); err != nil {
		h.log.Warn("stream image failed", zap.String("stored_filename", name), zap.Error(err))
	}
}

// Delete godoc
//
//	@Summary	Delete image
//	@Tags		images
//	@Security	ApiKeyAuth
//	@Param		filename	path	string	true	"Stored filename"
//	@Success	204
//	@Failure	401	{object}	response.ErrorBody
//	@Failure	404	{object}	response.ErrorBody
//	@Router		/images/{filename} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	if err := h.svc.Delete(r.Context(), name); err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "Image not found")
			return
		}
		h.log.Error("delete image failed", zap.String("stored_filename", name), zap.Error(err))
		response.InternalError(w)
		return
	}

	response.NoContent(w)
}

// WipeAll godoc
//
//	@Summary		Delete all images
//	@Description	Removes every stored file. Files that could not be removed are listed in "failed".
//	@Tags			images
//	@Produce		json
//	@Security		ApiKeyAuth
//	@Success		200	{object}	wipeResponse
//	@Failure		401	{object}	response.ErrorBody
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/wipe-all [delete]
func (h *Handler) WipeAll(w http.ResponseWriter, r *http.Request) {
	h.log.Warn("wipe requested", zap.String("principal", middleware.Principal(r.Context())))

	res, err := h.svc.WipeAll(r.Context())
	if err != nil {
		h.log.Error("wipe failed", zap.Error(err))
		response.InternalError(w)
		return
	}

	response.OK(w, wipeResponse{
		Message:      fmt.Sprintf("Deleted %d images", res.Deleted),
		DeletedCount: res.Deleted,
		Failed:       res.Failed,
	})
}

// readUpload turns the request into an Upload. Multipart bodies are streamed
// part by part; the returned func closes the file part.
func (h *Handler) readUpload(r *http.Request) (Upload, func(), error) {
	noop := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return Upload{
			Shape:       ShapeRaw,
			ContentType: r.Header.Get("Content-Type"),
			Header:      r.Header,
			Body:        r.Body,
			Size:        r.ContentLength,
		}, noop, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return Upload{}, noop, err
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return Upload{}, noop, ErrNoFile
		}
		if err != nil {
			return Upload{}, noop, err
		}
		if part.FormName() != fileField {
			_ = part.Close()
			continue
		}
		return Upload{
			Shape:       ShapeMultipart,
			ContentType: part.Header.Get("Content-Type"),
			Filename:    part.FileName(),
			Body:        part,
			Size:        -1,
		}, func() { _ = part.Close() }, nil
	}
}

func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotImage):
		return "File must be an image"
	case errors.Is(err, ErrEmptyBody):
		return "Empty request body"
	default:
		return "No image provided"
	}
}
