package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms"
)

// multipartOverhead is the slack allowed on top of the file size for the
// multipart envelope.
const multipartOverhead = 1 << 20

// MediaHandler handles uploads and serves stored assets.
type MediaHandler struct {
	service portfoliocms.MediaService
	errors  ErrorRenderer
	maxBody int64
}

// NewMediaHandler creates a new media handler. maxUpload bounds the request
// body; zero uses the service default.
func NewMediaHandler(service portfoliocms.MediaService, errs ErrorRenderer, maxUpload int64) *MediaHandler {
	if maxUpload <= 0 {
		maxUpload = portfoliocms.DefaultMaxUploadBytes
	}
	return &MediaHandler{service: service, errors: errs, maxBody: maxUpload + multipartOverhead}
}

// Routes returns the routes for media
func (h *MediaHandler) Routes(protect Middleware) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListMedia)
	r.Get("/{id}", h.GetMedia)
	r.With(protect).Post("/", h.UploadMedia)
	r.With(protect).Delete("/{id}", h.DeleteMedia)

	return r
}

// UploadMedia stores the multipart "file" field
func (h *MediaHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.errors.render(w, r, badRequest("File too large", portfoliocms.FieldViolation{
				Field: "file", Violation: "max", Message: "request body exceeds the upload limit",
			}))
			return
		}
		h.errors.render(w, r, badRequest("Invalid multipart body"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errors.render(w, r, badRequest("No file uploaded", portfoliocms.FieldViolation{
			Field: "file", Violation: "required", Message: "file is a required field",
		}))
		return
	}
	defer file.Close()

	media, err := h.service.UploadMedia(r.Context(), portfoliocms.UploadMediaRequest{
		FileName: header.Filename,
		Size:     header.Size,
		Reader:   file,
	})
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, media)
}

// ListMedia returns every uploaded asset, newest first
func (h *MediaHandler) ListMedia(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListMedia(r.Context())
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	render.JSON(w, r, items)
}

// GetMedia returns one asset record
func (h *MediaHandler) GetMedia(w http.ResponseWriter, r *http.Request) {
	id, err := mediaID(r)
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	media, err := h.service.GetMedia(r.Context(), id)
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	render.JSON(w, r, media)
}

// DeleteMedia removes an asset, its thumbnail and its record
func (h *MediaHandler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	id, err := mediaID(r)
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	if err := h.service.DeleteMedia(r.Context(), id); err != nil {
		h.errors.render(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// ServeUpload serves GET /uploads/*. Backends with direct URLs get a
// redirect; the rest are streamed.
func (h *MediaHandler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")

	target, err := h.service.MediaURL(r.Context(), key)
	switch {
	case err == nil && target != "":
		http.Redirect(w, r, target, http.StatusFound)
		return
	case err != nil && !errors.Is(err, portfoliocms.ErrNoDirectURL):
		h.errors.render(w, r, err)
		return
	}

	rc, meta, err := h.service.OpenMedia(r.Context(), key)
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	defer rc.Close()

	if meta.ETag != "" {
		etag := `"` + meta.ETag + `"`
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if !meta.UpdatedAt.IsZero() {
		w.Header().Set("Last-Modified", meta.UpdatedAt.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.errors.logger.WarnContext(r.Context(), "upload stream interrupted", "key", key, "err", err)
	}
}

func mediaID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, badRequest("Invalid media id", portfoliocms.FieldViolation{
			Field: "id", Violation: "uuid", Message: "id must be a UUID",
		})
	}
	return id, nil
}
