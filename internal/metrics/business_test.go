package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessMetrics(t *testing.T) {
	t.Run("RecordsWithoutError", func(t *testing.T) {
		provider, err := NewProvider("datashield_test")
		require.NoError(t, err)
		defer provider.Shutdown(context.Background()) //nolint:errcheck

		bm, err := NewBusinessMetrics(provider.MeterProvider(), "datashield_test")
		require.NoError(t, err)

		// Should not panic or block
		bm.RecordOperation(context.Background(), "envelope", "encrypt", "success")
		bm.RecordDuration(context.Background(), "retention", "sweep", 0, "success")
	})

	t.Run("NoOpImplementation", func(t *testing.T) {
		bm := NewNoOpBusinessMetrics()
		assert.NotNil(t, bm)
		bm.RecordOperation(context.Background(), "keyring", "rotate_key", "error")
	})
}

func TestProvider_Handler(t *testing.T) {
	provider, err := NewProvider("datashield_test")
	require.NoError(t, err)
	defer provider.Shutdown(context.Background()) //nolint:errcheck

	assert.NotNil(t, provider.Handler())
}
