// Package updates periodically checks a release endpoint for newer versions.
package updates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sevler/gatehouse/internal/pkg/ctxlog"
	"github.com/sevler/gatehouse/internal/version"
)

const defaultTimeout = 15 * time.Second

// Config holds update checker configuration.
type Config struct {
	Endpoint string
	Interval time.Duration
}

// Checker polls the release endpoint and logs when a newer version exists.
type Checker struct {
	config     Config
	httpClient *http.Client

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewChecker creates a new update checker.
func NewChecker(config Config) *Checker {
	return &Checker{
		config: config,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		stopCh: make(chan struct{}),
	}
}

// Start launches the background check loop. The first check runs
// immediately.
func (c *Checker) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()
}

// Stop signals the loop to exit and waits for it to finish.
func (c *Checker) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	c.wg.Wait()
}

func (c *Checker) run(ctx context.Context) {
	log := ctxlog.FromContext(ctx)
	log.Info("update checker started", "endpoint", c.config.Endpoint, "interval", c.config.Interval)

	c.check(ctx)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.check(ctx)
		}
	}
}

func (c *Checker) check(ctx context.Context) {
	log := ctxlog.FromContext(ctx)

	latest, err := c.fetchLatest(ctx)
	if err != nil {
		log.Debug("update check failed", "error", err)
		return
	}

	if latest != "" && latest != version.Version {
		log.Warn("a newer version is available",
			"current", version.Version,
			"latest", latest,
		)
	}
}

func (c *Checker) fetchLatest(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var payload struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return payload.Version, nil
}
