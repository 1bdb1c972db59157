package directory

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sevler/gatehouse/internal/domain"
	"github.com/sevler/gatehouse/internal/pkg/httputil"
)

// Handler handles HTTP requests for the directory module.
type Handler struct {
	service *Service
}

// NewHandler creates a new directory handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers all HTTP routes for the directory module (admin only).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/groups/{group}/members", func(r chi.Router) {
		r.Get("/", h.ListMembers)
		r.Put("/{client_id}", h.AddMember)
		r.Delete("/{client_id}", h.RemoveMember)
	})
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrMemberNotFound, Status: http.StatusNotFound},
	{Error: ErrDisabled, Status: http.StatusServiceUnavailable},
}

// ListMembers handles GET /groups/{group}/members.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")

	members, err := h.service.ListMembers(r.Context(), group)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, members)
}

// AddMember handles PUT /groups/{group}/members/{client_id}.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")

	clientID, err := domain.ParseClientID(chi.URLParam(r, "client_id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid client id")
		return
	}

	if err := h.service.AddMember(r.Context(), group, clientID); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.JSON(w, http.StatusNoContent, nil)
}

// RemoveMember handles DELETE /groups/{group}/members/{client_id}.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")

	clientID, err := domain.ParseClientID(chi.URLParam(r, "client_id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid client id")
		return
	}

	if err := h.service.RemoveMember(r.Context(), group, clientID); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.JSON(w, http.StatusNoContent, nil)
}
