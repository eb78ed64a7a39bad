package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/themisguard/datashield/internal/metrics"
	retentionDomain "github.com/themisguard/datashield/internal/retention/domain"
)

const metricsDomain = "deletion"

// executorMetricsDecorator wraps an Executor with business metrics recording.
type executorMetricsDecorator struct {
	inner           Executor
	businessMetrics metrics.BusinessMetrics
}

// NewExecutorMetricsDecorator wraps an Executor with metrics recording.
func NewExecutorMetricsDecorator(inner Executor, businessMetrics metrics.BusinessMetrics) Executor {
	return &executorMetricsDecorator{
		inner:           inner,
		businessMetrics: businessMetrics,
	}
}

func (d *executorMetricsDecorator) ProcessQueue(ctx context.Context) (*ProcessResult, error) {
	start := time.Now()
	result, err := d.inner.ProcessQueue(ctx)
	d.record(ctx, "process_queue", start, err)
	return result, err
}

func (d *executorMetricsDecorator) Approve(ctx context.Context, actor string, queueItemID uuid.UUID) (*retentionDomain.QueueItem, error) {
	start := time.Now()
	item, err := d.inner.Approve(ctx, actor, queueItemID)
	d.record(ctx, "approve", start, err)
	return item, err
}

func (d *executorMetricsDecorator) DeleteTenantData(ctx context.Context, actor, tenantID, reason string) (*PurgeResult, error) {
	start := time.Now()
	result, err := d.inner.DeleteTenantData(ctx, actor, tenantID, reason)
	d.record(ctx, "delete_tenant_data", start, err)
	return result, err
}

func (d *executorMetricsDecorator) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	d.businessMetrics.RecordOperation(ctx, metricsDomain, operation, status)
	d.businessMetrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}
