package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// QueueWorker runs the deletion executor on a fixed interval until stopped.
type QueueWorker struct {
	executor Executor
	interval time.Duration
	logger   *slog.Logger
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewQueueWorker creates a new QueueWorker.
func NewQueueWorker(executor Executor, interval time.Duration, logger *slog.Logger) *QueueWorker {
	return &QueueWorker{
		executor: executor,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the executor loop. The first pass runs after one interval.
func (w *QueueWorker) Start(ctx context.Context) {
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
				result, err := w.executor.ProcessQueue(ctx)
				if err != nil {
					w.logger.Error("deletion pass failed", slog.Any("error", err))
					continue
				}
				w.logger.Info("deletion pass completed",
					slog.Int("processed", result.Processed),
					slog.Int("completed", result.Completed),
					slog.Int("retried", result.Retried),
					slog.Int("failed", result.Failed),
				)
			}
		}
	}()
}

// Stop signals the loop to exit and waits for it.
func (w *QueueWorker) Stop() {
	close(w.done)
	w.wg.Wait()
}
