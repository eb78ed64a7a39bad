package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsDir(t *testing.T) {
	t.Run("PairsDriverWithDialect", func(t *testing.T) {
		dir, err := MigrationsDir(DriverPostgres)
		require.NoError(t, err)
		assert.Equal(t, "migrations/postgresql", dir)

		dir, err = MigrationsDir(DriverMySQL)
		require.NoError(t, err)
		assert.Equal(t, "migrations/mysql", dir)
	})

	t.Run("UnknownDriverRejected", func(t *testing.T) {
		_, err := MigrationsDir("sqlite")
		assert.ErrorContains(t, err, "unsupported database driver")
	})
}

func TestConnect_UnknownDriverRejected(t *testing.T) {
	_, err := Connect(Config{Driver: "sqlite", ConnectionString: "file::memory:"})
	assert.ErrorContains(t, err, "unsupported database driver")
}
