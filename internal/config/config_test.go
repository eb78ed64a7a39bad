package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg := Load()

		assert.Equal(t, "postgres", cfg.DBDriver)
		assert.Equal(t, "awskms", cfg.KMSProvider)
		assert.Equal(t, 30, cfg.KeyRotationGraceDays)
		assert.Equal(t, 7, cfg.KeyDestructionGraceDays)
		assert.Equal(t, "aes-gcm", cfg.EncryptionAlgorithm)
		assert.Equal(t, 8, cfg.FieldHashLength)
		assert.Equal(t, 168*time.Hour, cfg.ExportBundleExpiry)
		assert.Equal(t, time.Hour, cfg.ExportSignedURLExpiry)
		assert.Equal(t, 100, cfg.SweepBatchSize)
		assert.Equal(t, 3, cfg.DeletionMaxRetries)
	})

	t.Run("EnvironmentOverrides", func(t *testing.T) {
		t.Setenv("KMS_PROVIDER", "localkms")
		t.Setenv("DOCUMENT_STORE_BACKEND", "memory")
		t.Setenv("SWEEP_BATCH_SIZE", "7")

		cfg := Load()

		assert.Equal(t, "localkms", cfg.KMSProvider)
		assert.Equal(t, "memory", cfg.DocumentStoreBackend)
		assert.Equal(t, 7, cfg.SweepBatchSize)
	})
}
