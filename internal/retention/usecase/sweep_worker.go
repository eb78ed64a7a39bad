package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SweepWorker runs the retention sweep on a fixed interval until stopped.
type SweepWorker struct {
	scheduler Scheduler
	interval  time.Duration
	logger    *slog.Logger
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewSweepWorker creates a new SweepWorker.
func NewSweepWorker(scheduler Scheduler, interval time.Duration, logger *slog.Logger) *SweepWorker {
	return &SweepWorker{
		scheduler: scheduler,
		interval:  interval,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start launches the sweep loop. The first sweep runs after one interval.
func (w *SweepWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-w.done:
				return
			case <-ticker.C:
				result, err := w.scheduler.Sweep(ctx)
				if err != nil {
					w.logger.Error("retention sweep failed", slog.Any("error", err))
					continue
				}
				w.logger.Info("retention sweep completed",
					slog.Int("scanned", result.Scanned),
					slog.Int("queued", result.Queued),
				)
			}
		}
	}()
}

// Stop signals the loop to exit and waits for it.
func (w *SweepWorker) Stop() {
	close(w.done)
	w.wg.Wait()
}
