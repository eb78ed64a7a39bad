package usecase

import (
	"context"
	"time"

	"github.com/themisguard/datashield/internal/keyring/domain"
	"github.com/themisguard/datashield/internal/metrics"
)

const metricsDomain = "keyring"

// registryMetricsDecorator wraps a KeyRegistry with business metrics recording.
type registryMetricsDecorator struct {
	inner           KeyRegistry
	businessMetrics metrics.BusinessMetrics
}

// NewRegistryMetricsDecorator wraps a KeyRegistry with metrics recording.
func NewRegistryMetricsDecorator(inner KeyRegistry, businessMetrics metrics.BusinessMetrics) KeyRegistry {
	return &registryMetricsDecorator{
		inner:           inner,
		businessMetrics: businessMetrics,
	}
}

func (d *registryMetricsDecorator) GetOrCreateKey(ctx context.Context, tenantID string) (*domain.CustomerKey, error) {
	start := time.Now()
	key, err := d.inner.GetOrCreateKey(ctx, tenantID)
	d.record(ctx, "get_or_create_key", start, err)
	return key, err
}

func (d *registryMetricsDecorator) RotateKey(ctx context.Context, actor, tenantID string) (*domain.CustomerKey, error) {
	start := time.Now()
	key, err := d.inner.RotateKey(ctx, actor, tenantID)
	d.record(ctx, "rotate_key", start, err)
	return key, err
}

func (d *registryMetricsDecorator) DestroyKey(ctx context.Context, actor, tenantID string, graceDays int) error {
	start := time.Now()
	err := d.inner.DestroyKey(ctx, actor, tenantID, graceDays)
	d.record(ctx, "destroy_key", start, err)
	return err
}

func (d *registryMetricsDecorator) MarkDestroyed(ctx context.Context, tenantID string, now time.Time) (int, error) {
	start := time.Now()
	marked, err := d.inner.MarkDestroyed(ctx, tenantID, now)
	d.record(ctx, "mark_destroyed", start, err)
	return marked, err
}

func (d *registryMetricsDecorator) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	d.businessMetrics.RecordOperation(ctx, metricsDomain, operation, status)
	d.businessMetrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}
