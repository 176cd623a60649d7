package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms"
)

// HomepageHandler serves the structured homepage and its list sub-resources.
type HomepageHandler struct {
	service portfoliocms.Service
	errors  ErrorRenderer
}

// NewHomepageHandler creates a new homepage handler
func NewHomepageHandler(service portfoliocms.Service, errs ErrorRenderer) *HomepageHandler {
	return &HomepageHandler{service: service, errors: errs}
}

// Routes returns the routes for the homepage. protect guards every mutating route.
func (h *HomepageHandler) Routes(protect Middleware) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.GetHomepage)
	r.Get("/{section}", h.GetSection)
	r.Get("/{section}/fields", h.GetSectionFields)
	r.With(protect).Put("/{section}", h.UpdateSection)

	listRoutes(r, protect, "/brands/logos", h.errors, h.service.AddLogo, h.service.RemoveLogo, h.service.ReorderLogos)
	listRoutes(r, protect, "/services/items", h.errors, h.service.AddServiceCard, h.service.RemoveServiceCard, h.service.ReorderServiceCards)
	listRoutes(r, protect, "/offer/points", h.errors, h.service.AddOfferPoint, h.service.RemoveOfferPoint, h.service.ReorderOfferPoints)
	listRoutes(r, protect, "/testimonials/items", h.errors, h.service.AddTestimonial, h.service.RemoveTestimonial, h.service.ReorderTestimonials)

	return r
}

// GetHomepage returns every section of the homepage
func (h *HomepageHandler) GetHomepage(w http.ResponseWriter, r *http.Request) {
	content, err := h.service.GetStructuredContent(r.Context())
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	render.JSON(w, r, content)
}

// GetSection returns one structured section
func (h *HomepageHandler) GetSection(w http.ResponseWriter, r *http.Request) {
	section, err := portfoliocms.ParseSection(chi.URLParam(r, "section"))
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	value, err := h.service.GetSection(r.Context(), section)
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	render.JSON(w, r, value)
}

// GetSectionFields returns the raw rows of a section in display order
func (h *HomepageHandler) GetSectionFields(w http.ResponseWriter, r *http.Request) {
	section, err := portfoliocms.ParseSection(chi.URLParam(r, "section"))
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	fields, err := h.service.GetSectionContent(r.Context(), section)
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	render.JSON(w, r, fields)
}

// UpdateSection validates and replaces one section
func (h *HomepageHandler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	section, err := portfoliocms.ParseSection(chi.URLParam(r, "section"))
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	value, err := portfoliocms.NewSectionValue(section)
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	if err := render.DecodeJSON(r.Body, value); err != nil {
		h.errors.render(w, r, badRequest("Invalid JSON body"))
		return
	}

	if err := h.service.UpdateSection(r.Context(), section, value); err != nil {
		h.errors.render(w, r, err)
		return
	}

	updated, err := h.service.GetSection(r.Context(), section)
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	render.JSON(w, r, updated)
}

// ReorderRequest is the body of a list reorder call: every item id, in the new order.
type ReorderRequest struct {
	IDs []int `json:"ids"`
}

func listRoutes[T any](
	r chi.Router,
	protect Middleware,
	path string,
	errs ErrorRenderer,
	add func(context.Context, T) (*T, error),
	remove func(context.Context, int) error,
	reorder func(context.Context, []int) ([]T, error),
) {
	r.With(protect).Post(path, func(w http.ResponseWriter, r *http.Request) {
		var item T
		if err := render.DecodeJSON(r.Body, &item); err != nil {
			errs.render(w, r, badRequest("Invalid JSON body"))
			return
		}
		created, err := add(r.Context(), item)
		if err != nil {
			errs.render(w, r, err)
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, created)
	})

	r.With(protect).Put(path+"/order", func(w http.ResponseWriter, r *http.Request) {
		var req ReorderRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			errs.render(w, r, badRequest("Invalid JSON body"))
			return
		}
		items, err := reorder(r.Context(), req.IDs)
		if err != nil {
			errs.render(w, r, err)
			return
		}
		render.JSON(w, r, items)
	})

	r.With(protect).Delete(path+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			errs.render(w, r, badRequest("Invalid item id", portfoliocms.FieldViolation{
				Field: "id", Violation: "numeric", Message: "id must be an integer",
			}))
			return
		}
		if err := remove(r.Context(), id); err != nil {
			errs.render(w, r, err)
			return
		}
		render.NoContent(w, r)
	})
}
