package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Probe(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Token: "secret"})

	require.NoError(t, client.Probe(context.Background(), "game-1"))
	assert.Equal(t, "/servers/game-1/ping", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestClient_ProbeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})

	err := client.Probe(context.Background(), "game-1")
	assert.ErrorContains(t, err, "status 503")
}

func TestClient_Connect(t *testing.T) {
	id := uuid.New()

	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})

	require.NoError(t, client.Connect(context.Background(), id, "game-2"))
	assert.Equal(t, "/players/"+id.String()+"/connect", gotPath)
	assert.Equal(t, map[string]string{"server": "game-2"}, gotBody)
}

func TestClient_Notify(t *testing.T) {
	id := uuid.New()

	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})

	require.NoError(t, client.Notify(context.Background(), id, "Connecting..."))
	assert.Equal(t, map[string]string{"text": "Connecting..."}, gotBody)
}

func TestClient_Locate(t *testing.T) {
	id := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/players/"+id.String(), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"server":"lobby"}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})

	server, err := client.Locate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "lobby", server)
}

func TestClient_LocateUnknownClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})

	server, err := client.Locate(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, server)
}

func TestClient_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})

	assert.Error(t, client.Probe(context.Background(), "game-1"))
	_, err := client.Locate(context.Background(), uuid.New())
	assert.Error(t, err)
}
