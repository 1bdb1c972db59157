package skiptoken

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sevler/gatehouse/internal/domain"
	"github.com/sevler/gatehouse/internal/pkg/httputil"
)

// Handler handles HTTP requests for the skip token module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new skip token handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes for the skip token module (admin only).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.CreateToken)
	r.Post("/import", h.ImportToken)
	r.Get("/verify", h.VerifyToken)
	r.Post("/consume", h.ConsumeToken)
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrTokenNotFound, Status: http.StatusNotFound},
	{Error: ErrTokenConsumed, Status: http.StatusConflict},
	{Error: ErrTokenExpired, Status: http.StatusGone},
	{Error: ErrInvalidCode, Status: http.StatusBadRequest},
}

// CreateTokenRequest represents the request body for issuing a token.
type CreateTokenRequest struct {
	TTLSeconds int    `json:"ttl_seconds" validate:"required,min=1"`
	CreatedBy  string `json:"created_by" validate:"max=255"`
}

// CreateToken handles POST /skip-tokens.
func (h *Handler) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req CreateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	token, err := h.service.Create(r.Context(),
		time.Duration(req.TTLSeconds)*time.Second,
		req.CreatedBy,
		remoteIP(r),
	)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, token)
}

// ImportTokenRequest represents the request body for importing a code.
type ImportTokenRequest struct {
	Code      string    `json:"code" validate:"required,min=4,max=32"`
	ExpiresAt time.Time `json:"expires_at" validate:"required"`
	CreatedBy string    `json:"created_by" validate:"max=255"`
}

// ImportToken handles POST /skip-tokens/import.
func (h *Handler) ImportToken(w http.ResponseWriter, r *http.Request) {
	var req ImportTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	token, err := h.service.Import(r.Context(), req.Code, req.ExpiresAt, req.CreatedBy)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, token)
}

// VerifyToken handles GET /skip-tokens/verify?code=....
func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		httputil.Error(w, http.StatusBadRequest, "code is required")
		return
	}

	token, err := h.service.Verify(r.Context(), code)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, token)
}

// ConsumeTokenRequest represents the request body for redeeming a token.
type ConsumeTokenRequest struct {
	Code     string `json:"code" validate:"required,min=4,max=32"`
	ClientID string `json:"client_id" validate:"required,uuid"`
}

// ConsumeToken handles POST /skip-tokens/consume.
func (h *Handler) ConsumeToken(w http.ResponseWriter, r *http.Request) {
	var req ConsumeTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	clientID, err := domain.ParseClientID(req.ClientID)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid client id")
		return
	}

	token, err := h.service.Consume(r.Context(), req.Code, clientID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, token)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
