// Package worker runs the background reaper for abandoned listing forms.
// A form the browser never comes back to would otherwise hold its pending
// image buffers until process exit.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"doska-client/internal/form"
)

const (
	// DefaultInterval is how often the reaper scans the registry.
	DefaultInterval = 5 * time.Minute

	// DefaultIdleTTL is how long a form may go untouched before it is
	// closed and its previews released.
	DefaultIdleTTL = 30 * time.Minute
)

// Reaper periodically closes idle form controllers.
type Reaper struct {
	registry *form.Registry
	interval time.Duration
	idleTTL  time.Duration
	logger   *zap.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewReaper wires a reaper over the registry. Non-positive durations fall
// back to the defaults.
func NewReaper(registry *form.Registry, interval, idleTTL time.Duration, logger *zap.Logger) *Reaper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Reaper{
		registry: registry,
		interval: interval,
		idleTTL:  idleTTL,
		logger:   logger,
	}
}

// Start launches the reap loop.
func (r *Reaper) Start() {
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.wg.Add(1)
	go r.run()
	r.logger.Info("form reaper started",
		zap.Duration("interval", r.interval),
		zap.Duration("idle_ttl", r.idleTTL))
}

// Stop cancels the loop and waits for it to exit.
func (r *Reaper) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.wg.Wait()
	r.logger.Info("form reaper stopped")
}

func (r *Reaper) run() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.registry.ReapIdle(r.idleTTL)
		}
	}
}
