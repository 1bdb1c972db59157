package queue

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sevler/gatehouse/internal/domain"
	"github.com/sevler/gatehouse/internal/pkg/httputil"
)

// Handler exposes the proxy-facing queue events API: the proxy reports
// lobby arrivals and departures here, and can query a client's position.
type Handler struct {
	scheduler *Scheduler
	validator *validator.Validate
}

// NewHandler creates a new queue events handler.
func NewHandler(scheduler *Scheduler) *Handler {
	return &Handler{
		scheduler: scheduler,
		validator: validator.New(),
	}
}

// RegisterRoutes registers queue event routes (require auth).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/events/arrival", h.Arrival)
	r.Post("/events/departure", h.Departure)
	r.Get("/queue/{client_id}/position", h.Position)
}

// ClientEventRequest represents an arrival or departure event body.
type ClientEventRequest struct {
	ClientID string `json:"client_id" validate:"required,uuid"`
}

// Arrival handles POST /events/arrival.
func (h *Handler) Arrival(w http.ResponseWriter, r *http.Request) {
	id, ok := h.decodeClientEvent(w, r)
	if !ok {
		return
	}

	h.scheduler.HandleArrival(r.Context(), id)

	httputil.Success(w, http.StatusOK, map[string]int{
		"position": h.scheduler.PositionOf(id),
	})
}

// Departure handles POST /events/departure.
func (h *Handler) Departure(w http.ResponseWriter, r *http.Request) {
	id, ok := h.decodeClientEvent(w, r)
	if !ok {
		return
	}

	h.scheduler.HandleDeparture(r.Context(), id)

	httputil.Success(w, http.StatusOK, map[string]bool{"removed": true})
}

// Position handles GET /queue/{client_id}/position.
func (h *Handler) Position(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseClientID(chi.URLParam(r, "client_id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid client id")
		return
	}

	httputil.Success(w, http.StatusOK, map[string]int{
		"position": h.scheduler.PositionOf(id),
	})
}

func (h *Handler) decodeClientEvent(w http.ResponseWriter, r *http.Request) (domain.ClientID, bool) {
	var req ClientEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return domain.ClientID{}, false
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return domain.ClientID{}, false
	}

	id, err := domain.ParseClientID(req.ClientID)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid client id")
		return domain.ClientID{}, false
	}

	return id, true
}
