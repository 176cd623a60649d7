package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/dayhz/portfolio2-sub000/pkg/portfoliocms"
)

// VersionsHandler exposes snapshot history, restore and cleanup.
type VersionsHandler struct {
	service portfoliocms.Service
	errors  ErrorRenderer
}

// NewVersionsHandler creates a new versions handler
func NewVersionsHandler(service portfoliocms.Service, errs ErrorRenderer) *VersionsHandler {
	return &VersionsHandler{service: service, errors: errs}
}

// Routes returns the routes for versions
func (h *VersionsHandler) Routes(protect Middleware) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListVersions)
	r.Get("/active", h.GetActiveVersion)
	r.Get("/{id}", h.GetVersion)
	r.Get("/{id}/diff", h.DiffVersion)

	r.Group(func(r chi.Router) {
		r.Use(protect)
		r.Post("/", h.CreateVersion)
		r.Post("/cleanup", h.CleanupVersions)
		r.Post("/emergency-backup", h.EmergencyBackup)
		r.Post("/{id}/restore", h.RestoreVersion)
		r.Delete("/{id}", h.DeleteVersion)
	})

	return r
}

// CreateVersionRequest is the optional body of POST /versions. Without a
// snapshot the current content is captured.
type CreateVersionRequest struct {
	Name     string                          `json:"versionName"`
	Snapshot *portfoliocms.StructuredContent `json:"contentSnapshot,omitempty"`
}

// RestoreResponse confirms a restore
type RestoreResponse struct {
	Message   string `json:"message"`
	VersionID int64  `json:"versionId"`
}

// CleanupResponse reports how many versions were pruned
type CleanupResponse struct {
	Deleted int `json:"deleted"`
}

// ListVersions returns the newest versions first
func (h *VersionsHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", portfoliocms.DefaultVersionListLimit)
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	versions, err := h.service.ListVersions(r.Context(), limit)
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	render.JSON(w, r, versions)
}

// GetActiveVersion returns the backup of record
func (h *VersionsHandler) GetActiveVersion(w http.ResponseWriter, r *http.Request) {
	version, err := h.service.GetActiveVersion(r.Context())
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	render.JSON(w, r, version)
}

// GetVersion returns one version with its snapshot
func (h *VersionsHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	id, err := versionID(r)
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	version, err := h.service.GetVersion(r.Context(), id)
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	render.JSON(w, r, version)
}

// DiffVersion compares a snapshot with the live content
func (h *VersionsHandler) DiffVersion(w http.ResponseWriter, r *http.Request) {
	id, err := versionID(r)
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	diff, err := h.service.DiffVersion(r.Context(), id)
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	render.JSON(w, r, diff)
}

// CreateVersion snapshots the live content
func (h *VersionsHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	var req CreateVersionRequest
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			h.errors.render(w, r, badRequest("Invalid JSON body"))
			return
		}
	}
	version, err := h.service.CreateVersion(r.Context(), req.Name, req.Snapshot)
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, version)
}

// RestoreVersion replaces the live content with a snapshot
func (h *VersionsHandler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	id, err := versionID(r)
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	if err := h.service.RestoreVersion(r.Context(), id); err != nil {
		h.errors.render(w, r, err)
		return
	}
	render.JSON(w, r, RestoreResponse{Message: "Version restored", VersionID: id})
}

// DeleteVersion removes one version
func (h *VersionsHandler) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	id, err := versionID(r)
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	if err := h.service.DeleteVersion(r.Context(), id); err != nil {
		h.errors.render(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// CleanupVersions keeps only the newest versions
func (h *VersionsHandler) CleanupVersions(w http.ResponseWriter, r *http.Request) {
	keep, err := queryInt(r, "keep", 0)
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	deleted, err := h.service.CleanupOldVersions(r.Context(), keep)
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	render.JSON(w, r, CleanupResponse{Deleted: deleted})
}

// EmergencyBackup snapshots the live content under an emergency name
func (h *VersionsHandler) EmergencyBackup(w http.ResponseWriter, r *http.Request) {
	version, err := h.service.CreateEmergencyBackup(r.Context())
	if err != nil {
		h.errors.render(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, version)
}

func versionID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("Invalid version id", portfoliocms.FieldViolation{
			Field: "id", Violation: "numeric", Message: "id must be a positive integer",
		})
	}
	return id, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badRequest("Invalid "+name, portfoliocms.FieldViolation{
			Field: name, Violation: "numeric", Message: name + " must be a non-negative integer",
		})
	}
	return n, nil
}
