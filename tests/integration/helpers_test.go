//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/sevler/gatehouse/internal/testutil"
	"github.com/stretchr/testify/require"
)

// decode reads the response body into v and closes it.
func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	testutil.DecodeJSON(t, resp, v)
}

// mustArrive reports a lobby arrival and asserts it was accepted.
func mustArrive(t *testing.T, clientID string) {
	t.Helper()

	client := newTestClientWithoutValidation()
	resp, err := client.POST("/api/v1/events/arrival", map[string]string{"client_id": clientID})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// cleanupClients removes clients from the queue and the fake proxy so tests
// stay independent.
func cleanupClients(t *testing.T, clientIDs ...string) {
	t.Helper()

	client := newTestClientWithoutValidation()
	for _, id := range clientIDs {
		resp, err := client.POST("/api/v1/events/departure", map[string]string{"client_id": id})
		if err == nil {
			_ = resp.Body.Close()
		}
		proxy.remove(id)
	}
}
