package usecase

import (
	"context"
	"time"

	"github.com/themisguard/datashield/internal/envelope/domain"
	"github.com/themisguard/datashield/internal/metrics"
)

const metricsDomain = "envelope"

// engineMetricsDecorator wraps an Engine with business metrics recording.
type engineMetricsDecorator struct {
	inner           Engine
	businessMetrics metrics.BusinessMetrics
}

// NewEngineMetricsDecorator wraps an Engine with metrics recording.
func NewEngineMetricsDecorator(inner Engine, businessMetrics metrics.BusinessMetrics) Engine {
	return &engineMetricsDecorator{
		inner:           inner,
		businessMetrics: businessMetrics,
	}
}

func (d *engineMetricsDecorator) Encrypt(ctx context.Context, encCtx domain.EncryptionContext, plaintext []byte) (*domain.EncryptedRecord, error) {
	start := time.Now()
	record, err := d.inner.Encrypt(ctx, encCtx, plaintext)
	d.record(ctx, "encrypt", start, err)
	return record, err
}

func (d *engineMetricsDecorator) Decrypt(ctx context.Context, callerTenantID string, record *domain.EncryptedRecord) ([]byte, error) {
	start := time.Now()
	plaintext, err := d.inner.Decrypt(ctx, callerTenantID, record)
	d.record(ctx, "decrypt", start, err)
	return plaintext, err
}

func (d *engineMetricsDecorator) Reencrypt(ctx context.Context, callerTenantID string, record *domain.EncryptedRecord) (*domain.EncryptedRecord, error) {
	start := time.Now()
	reencrypted, err := d.inner.Reencrypt(ctx, callerTenantID, record)
	d.record(ctx, "reencrypt", start, err)
	return reencrypted, err
}

func (d *engineMetricsDecorator) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	d.businessMetrics.RecordOperation(ctx, metricsDomain, operation, status)
	d.businessMetrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}
