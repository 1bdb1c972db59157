package skiptoken

import (
	"context"
	"sync"
	"time"

	"github.com/sevler/gatehouse/internal/pkg/ctxlog"
)

// Janitor periodically removes expired tokens from storage.
type Janitor struct {
	service  *Service
	interval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewJanitor creates a new janitor running at the given interval.
func NewJanitor(service *Service, interval time.Duration) *Janitor {
	return &Janitor{
		service:  service,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the background cleanup loop.
func (j *Janitor) Start(ctx context.Context) {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.run(ctx)
	}()
}

// Stop signals the loop to exit and waits for it to finish.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		close(j.stopCh)
	})
	j.wg.Wait()
}

func (j *Janitor) run(ctx context.Context) {
	log := ctxlog.FromContext(ctx)
	log.Info("skip token janitor started", "interval", j.interval)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("skip token janitor stopped", "reason", "context cancelled")
			return
		case <-j.stopCh:
			log.Info("skip token janitor stopped", "reason", "stop requested")
			return
		case <-ticker.C:
			removed, err := j.service.PurgeExpired(ctx)
			if err != nil {
				log.Error("failed to purge expired tokens", "error", err)
				continue
			}
			if removed > 0 {
				log.Debug("purged expired tokens", "count", removed)
			}
		}
	}
}
