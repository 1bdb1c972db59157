// Package apitoken manages the static bearer token that protects the
// administrative API.
package apitoken

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const tokenBytes = 48

// Manager holds the API token loaded from or generated into a file.
type Manager struct {
	token string
}

// LoadOrCreate reads the token from the given file, generating and writing a
// new one when the file does not exist. The file is created with owner-only
// permissions.
func LoadOrCreate(path string) (*Manager, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		token := strings.TrimSpace(string(data))
		if token == "" {
			return nil, fmt.Errorf("token file %s is empty", path)
		}
		return &Manager{token: token}, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(raw)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create token directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("write token file: %w", err)
	}

	slog.Info("generated new api token", "path", path)
	return &Manager{token: token}, nil
}

// Authorize reports whether the presented token matches. Comparison is
// constant time.
func (m *Manager) Authorize(presented string) bool {
	return subtle.ConstantTimeCompare([]byte(m.token), []byte(presented)) == 1
}
