package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/themisguard/datashield/internal/metrics"
	"github.com/themisguard/datashield/internal/retention/domain"
)

const metricsDomain = "retention"

// schedulerMetricsDecorator wraps a Scheduler with business metrics recording.
type schedulerMetricsDecorator struct {
	inner           Scheduler
	businessMetrics metrics.BusinessMetrics
}

// NewSchedulerMetricsDecorator wraps a Scheduler with metrics recording.
func NewSchedulerMetricsDecorator(inner Scheduler, businessMetrics metrics.BusinessMetrics) Scheduler {
	return &schedulerMetricsDecorator{
		inner:           inner,
		businessMetrics: businessMetrics,
	}
}

func (d *schedulerMetricsDecorator) Schedule(ctx context.Context, tenantID, resourceType, resourceID string, category domain.DataCategory, storedAt time.Time) (*domain.Entry, error) {
	start := time.Now()
	entry, err := d.inner.Schedule(ctx, tenantID, resourceType, resourceID, category, storedAt)
	d.record(ctx, "schedule", start, err)
	return entry, err
}

func (d *schedulerMetricsDecorator) Extend(ctx context.Context, actor string, entryID uuid.UUID, extendDays int, reason string) (*domain.Entry, error) {
	start := time.Now()
	entry, err := d.inner.Extend(ctx, actor, entryID, extendDays, reason)
	d.record(ctx, "extend", start, err)
	return entry, err
}

func (d *schedulerMetricsDecorator) Status(ctx context.Context, tenantID string) (*StatusReport, error) {
	start := time.Now()
	report, err := d.inner.Status(ctx, tenantID)
	d.record(ctx, "status", start, err)
	return report, err
}

func (d *schedulerMetricsDecorator) Sweep(ctx context.Context) (*SweepResult, error) {
	start := time.Now()
	result, err := d.inner.Sweep(ctx)
	d.record(ctx, "sweep", start, err)
	return result, err
}

func (d *schedulerMetricsDecorator) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	d.businessMetrics.RecordOperation(ctx, metricsDomain, operation, status)
	d.businessMetrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}
