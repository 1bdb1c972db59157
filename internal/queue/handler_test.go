package queue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, gw *fakeGateway) *chi.Mux {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(newTestScheduler(t, gw, nil)).RegisterRoutes(r)
	return r
}

func TestHandler_Arrival(t *testing.T) {
	gw := newFakeGateway()
	router := newTestRouter(t, gw)

	id := uuid.New()
	gw.place(id, "lobby")

	body := `{"client_id":"` + id.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/events/arrival", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Position int `json:"position"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Data.Position)
}

func TestHandler_ArrivalInvalidBody(t *testing.T) {
	router := newTestRouter(t, newFakeGateway())

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"missing client_id", `{}`},
		{"not a uuid", `{"client_id":"steve"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/events/arrival", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandler_Departure(t *testing.T) {
	gw := newFakeGateway()
	scheduler := newTestScheduler(t, gw, nil)
	router := chi.NewRouter()
	NewHandler(scheduler).RegisterRoutes(router)

	id := uuid.New()
	gw.place(id, "lobby")
	scheduler.HandleArrival(context.Background(), id)
	require.True(t, scheduler.store.Contains(id))

	body := `{"client_id":"` + id.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/events/departure", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, scheduler.store.Contains(id))
}

func TestHandler_Position(t *testing.T) {
	gw := newFakeGateway()
	scheduler := newTestScheduler(t, gw, nil)
	router := chi.NewRouter()
	NewHandler(scheduler).RegisterRoutes(router)

	first := uuid.New()
	second := uuid.New()
	for _, id := range []uuid.UUID{first, second} {
		gw.place(id, "lobby")
		scheduler.HandleArrival(context.Background(), id)
	}

	req := httptest.NewRequest(http.MethodGet, "/queue/"+second.String()+"/position", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Position int `json:"position"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Data.Position)
}

func TestHandler_PositionInvalidID(t *testing.T) {
	router := newTestRouter(t, newFakeGateway())

	req := httptest.NewRequest(http.MethodGet, "/queue/not-a-uuid/position", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
