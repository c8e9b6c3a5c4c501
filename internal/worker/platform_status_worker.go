package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tradehaven/wallet-api/internal/observability"
	"github.com/tradehaven/wallet-api/internal/platform"
)

// PlatformStatusWorker polls the trading platform server status and
// publishes the result as a gauge so operators can alert on outages.
type PlatformStatusWorker struct {
	platform platform.Platform
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPlatformStatusWorker(p platform.Platform) *PlatformStatusWorker {
	return &PlatformStatusWorker{
		platform: p,
		interval: 30 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval updates the poll interval.
func (w *PlatformStatusWorker) WithInterval(interval time.Duration) *PlatformStatusWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks and polls the platform at the configured interval.
func (w *PlatformStatusWorker) Start(ctx context.Context) {
	zap.L().Info("platform status worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("platform status worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("platform status worker stop signal received")
			return
		case <-ticker.C:
			w.pollOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *PlatformStatusWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *PlatformStatusWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *PlatformStatusWorker) pollOnce(ctx context.Context) {
	status, err := w.platform.GetServerStatus(ctx)
	if err != nil {
		observability.SetPlatformOnline(false)
		observability.IncrementWorkerRun("platform_status", "failed")
		zap.L().Warn("platform status poll failed", zap.Error(err))
		return
	}
	observability.SetPlatformOnline(status.Online)
	observability.IncrementWorkerRun("platform_status", "success")
	if !status.Online {
		zap.L().Warn("trading platform reported offline",
			zap.Time("checked_at", status.CheckedAt))
	}
}
