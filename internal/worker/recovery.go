package worker

import (
	"context"
	"time"

	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/queue"
)

// DefaultRecoveryInterval is how often stuck messages are swept.
const DefaultRecoveryInterval = time.Minute

// QueueInspector is the part of *queue.Queue the recovery loop uses.
type QueueInspector interface {
	Recover(ctx context.Context) (int, error)
	Stats(ctx context.Context) (queue.Stats, error)
}

// QueueRecoveryWorker periodically returns messages whose visibility
// timeout expired (the worker holding them crashed) to the ready set, and
// logs queue depth.
type QueueRecoveryWorker struct {
	queue    QueueInspector
	interval time.Duration
}

// NewQueueRecoveryWorker creates a recovery loop. A non-positive interval
// uses DefaultRecoveryInterval.
func NewQueueRecoveryWorker(q QueueInspector, interval time.Duration) *QueueRecoveryWorker {
	if interval <= 0 {
		interval = DefaultRecoveryInterval
	}
	return &QueueRecoveryWorker{queue: q, interval: interval}
}

// Start runs the loop until ctx is cancelled.
func (w *QueueRecoveryWorker) Start(ctx context.Context) {
	logger.Info("queue recovery starting", "component", "recovery", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("queue recovery stopped", "component", "recovery")
			return
		case <-ticker.C:
			w.RecoverOnce(ctx)
		}
	}
}

// RecoverOnce performs one sweep and returns how many messages moved.
func (w *QueueRecoveryWorker) RecoverOnce(ctx context.Context) int {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := w.queue.Recover(sweepCtx)
	if err != nil {
		logger.Error("recover failed", "component", "recovery", "error", err)
		return 0
	}
	if n > 0 {
		logger.Warn("requeued stuck messages", "component", "recovery", "count", n)
	}

	if stats, err := w.queue.Stats(sweepCtx); err == nil {
		logger.Debug("queue depth",
			"component", "recovery",
			"ready", stats.Ready,
			"processing", stats.Processing,
			"dead", stats.Dead,
		)
	}
	return n
}
