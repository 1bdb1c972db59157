//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenResponse struct {
	Data struct {
		Code      string `json:"code"`
		Consumed  bool   `json:"consumed"`
		CreatedBy string `json:"created_by"`
	} `json:"data"`
}

func TestSkipTokens_Lifecycle(t *testing.T) {
	client := newTestClient(t)

	// Issue.
	resp, err := client.POST("/api/v1/skip-tokens", map[string]interface{}{
		"ttl_seconds": 3600,
		"created_by":  "integration-test",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created tokenResponse
	decode(t, resp, &created)
	require.Len(t, created.Data.Code, 8)
	assert.Equal(t, "integration-test", created.Data.CreatedBy)

	// Verify without consuming.
	resp, err = client.GET("/api/v1/skip-tokens/verify?code=" + created.Data.Code)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	// Consume for a lobby client; the fake proxy should see the handoff.
	clientID := uuid.NewString()
	proxy.place(clientID, "lobby")
	defer cleanupClients(t, clientID)
	mustArrive(t, clientID)

	resp, err = client.POST("/api/v1/skip-tokens/consume", map[string]string{
		"code":      created.Data.Code,
		"client_id": clientID,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var consumed tokenResponse
	decode(t, resp, &consumed)
	assert.True(t, consumed.Data.Consumed)

	connects := proxy.connectsFor(clientID)
	require.Len(t, connects, 1)
	assert.Contains(t, []string{"game-1", "game-2"}, connects[0])

	// Replay is rejected and does not reconnect.
	resp, err = client.POST("/api/v1/skip-tokens/consume", map[string]string{
		"code":      created.Data.Code,
		"client_id": uuid.NewString(),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()
	assert.Len(t, proxy.connectsFor(clientID), 1)
}

func TestSkipTokens_Import(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.POST("/api/v1/skip-tokens/import", map[string]string{
		"code":       "golden99",
		"expires_at": "2030-01-01T00:00:00Z",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var imported tokenResponse
	decode(t, resp, &imported)
	assert.Equal(t, "GOLDEN99", imported.Data.Code)

	// Lookup is case-insensitive.
	resp, err = client.GET("/api/v1/skip-tokens/verify?code=golden99")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestSkipTokens_VerifyUnknown(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.GET("/api/v1/skip-tokens/verify?code=NOSUCH99")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
