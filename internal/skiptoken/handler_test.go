package skiptoken

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(service *Service) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/skip-tokens", func(r chi.Router) {
		NewHandler(service).RegisterRoutes(r)
	})
	return r
}

func decodeToken(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Data
}

func TestHandler_CreateToken(t *testing.T) {
	service := newTestService(newFakeRepository(), nil, time.Now())
	router := newTestHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/skip-tokens",
		strings.NewReader(`{"ttl_seconds":1800,"created_by":"admin"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	data := decodeToken(t, rec)
	assert.Len(t, data["code"], CodeLength)
	assert.Equal(t, "admin", data["created_by"])
}

func TestHandler_CreateTokenValidation(t *testing.T) {
	service := newTestService(newFakeRepository(), nil, time.Now())
	router := newTestHandler(service)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing ttl", `{}`},
		{"negative ttl", `{"ttl_seconds":-60}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/skip-tokens", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandler_ImportToken(t *testing.T) {
	service := newTestService(newFakeRepository(), nil, time.Now())
	router := newTestHandler(service)

	expires := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	body := `{"code":"promo42","expires_at":"` + expires + `","created_by":"admin"}`

	req := httptest.NewRequest(http.MethodPost, "/skip-tokens/import", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "PROMO42", decodeToken(t, rec)["code"])
}

func TestHandler_VerifyToken(t *testing.T) {
	now := time.Now()
	service := newTestService(newFakeRepository(), nil, now)
	router := newTestHandler(service)

	token, err := service.Create(context.Background(), time.Hour, "", "")
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/skip-tokens/verify?code="+token.Code, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing code", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/skip-tokens/verify", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown code", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/skip-tokens/verify?code=NOSUCH99", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandler_ConsumeToken(t *testing.T) {
	now := time.Now()
	dispatcher := &fakeDispatcher{}
	service := newTestService(newFakeRepository(), dispatcher, now)
	router := newTestHandler(service)

	token, err := service.Create(context.Background(), time.Hour, "", "")
	require.NoError(t, err)

	clientID := uuid.New()
	body := `{"code":"` + token.Code + `","client_id":"` + clientID.String() + `"}`

	req := httptest.NewRequest(http.MethodPost, "/skip-tokens/consume", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeToken(t, rec)["consumed"])
	assert.Len(t, dispatcher.calls, 1)

	// Replay gets a conflict.
	req = httptest.NewRequest(http.MethodPost, "/skip-tokens/consume", strings.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
