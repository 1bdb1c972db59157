//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
)

// fakeProxy is an in-memory stand-in for the proxy control API. It tracks
// which server each client is on and records connect and message calls.
type fakeProxy struct {
	mu        sync.Mutex
	locations map[string]string
	down      map[string]bool
	messages  map[string][]string
	connects  map[string][]string
}

func newFakeProxy() *fakeProxy {
	return &fakeProxy{
		locations: make(map[string]string),
		down:      make(map[string]bool),
		messages:  make(map[string][]string),
		connects:  make(map[string][]string),
	}
}

func (p *fakeProxy) place(clientID, server string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locations[clientID] = server
}

func (p *fakeProxy) remove(clientID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.locations, clientID)
}

func (p *fakeProxy) locationOf(clientID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.locations[clientID]
}

func (p *fakeProxy) connectsFor(clientID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.connects[clientID]...)
}

func (p *fakeProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case len(parts) == 3 && parts[0] == "servers" && parts[2] == "ping":
		p.mu.Lock()
		down := p.down[parts[1]]
		p.mu.Unlock()
		if down {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)

	case len(parts) == 2 && parts[0] == "players" && r.Method == http.MethodGet:
		p.mu.Lock()
		server, ok := p.locations[parts[1]]
		p.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"server": server})

	case len(parts) == 3 && parts[0] == "players" && parts[2] == "connect":
		var body struct {
			Server string `json:"server"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		p.mu.Lock()
		p.connects[parts[1]] = append(p.connects[parts[1]], body.Server)
		p.locations[parts[1]] = body.Server
		p.mu.Unlock()
		w.WriteHeader(http.StatusOK)

	case len(parts) == 3 && parts[0] == "players" && parts[2] == "message":
		var body struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		p.mu.Lock()
		p.messages[parts[1]] = append(p.messages[parts[1]], body.Text)
		p.mu.Unlock()
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
