package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms"
)

// ContentHandler exposes single field writes for low level edits.
type ContentHandler struct {
	service portfoliocms.Service
	errors  ErrorRenderer
}

// NewContentHandler creates a new content handler
func NewContentHandler(service portfoliocms.Service, errs ErrorRenderer) *ContentHandler {
	return &ContentHandler{service: service, errors: errs}
}

// Routes returns the routes for content fields
func (h *ContentHandler) Routes(protect Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(protect)

	r.Post("/", h.CreateContent)
	r.Put("/", h.UpsertContent)
	r.Delete("/{section}/{field}", h.DeleteContent)

	return r
}

// CreateContent inserts a new field and fails with 409 when it already exists
func (h *ContentHandler) CreateContent(w http.ResponseWriter, r *http.Request) {
	var req portfoliocms.UpsertContentRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errors.render(w, r, badRequest("Invalid JSON body"))
		return
	}
	field, err := h.service.CreateContent(r.Context(), req)
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, field)
}

// UpsertContent writes a field, creating it when missing
func (h *ContentHandler) UpsertContent(w http.ResponseWriter, r *http.Request) {
	var req portfoliocms.UpsertContentRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errors.render(w, r, badRequest("Invalid JSON body"))
		return
	}
	field, err := h.service.UpsertContent(r.Context(), req)
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	render.JSON(w, r, field)
}

// DeleteContent removes one field
func (h *ContentHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	section, err := portfoliocms.ParseSection(chi.URLParam(r, "section"))
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	if err := h.service.DeleteContent(r.Context(), section, chi.URLParam(r, "field")); err != nil {
		h.errors.render(w, r, err)
		return
	}
	render.NoContent(w, r)
}
