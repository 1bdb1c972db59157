// Package telemetry reports anonymous installation statistics at startup.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sevler/gatehouse/internal/pkg/ctxlog"
	"github.com/sevler/gatehouse/internal/version"
)

const (
	defaultTimeout = 15 * time.Second
	installIDFile  = "install-id"
)

// Config holds telemetry configuration.
type Config struct {
	Endpoint string
	DataDir  string
}

// Reporter sends a single anonymous ping describing the installation.
type Reporter struct {
	config     Config
	httpClient *http.Client
}

// NewReporter creates a new telemetry reporter.
func NewReporter(config Config) *Reporter {
	return &Reporter{
		config: config,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

type pingPayload struct {
	InstallID string `json:"install_id"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	Targets   int    `json:"targets"`
}

// Report sends the startup ping. Failures are logged at debug level and
// never surface to the caller.
func (r *Reporter) Report(ctx context.Context, targets int) {
	log := ctxlog.FromContext(ctx)

	installID, err := r.installID()
	if err != nil {
		log.Debug("telemetry disabled", "error", err)
		return
	}

	payload := pingPayload{
		InstallID: installID,
		Version:   version.Version,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		Targets:   targets,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Debug("telemetry ping failed", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		log.Debug("telemetry ping failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		log.Debug("telemetry ping failed", "error", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	log.Debug("telemetry ping sent", "status", resp.StatusCode)
}

// installID returns the persistent anonymous installation identifier,
// generating one on first use.
func (r *Reporter) installID() (string, error) {
	path := filepath.Join(r.config.DataDir, installIDFile)

	data, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if _, parseErr := uuid.Parse(id); parseErr == nil {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read install id: %w", err)
	}

	id := uuid.New().String()
	if err := os.MkdirAll(r.config.DataDir, 0o700); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write install id: %w", err)
	}
	return id, nil
}
