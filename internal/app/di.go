// Package app provides the dependency injection container assembling the
// encryption and data-lifecycle components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	accessUseCase "github.com/themisguard/datashield/internal/access/usecase"
	auditUseCase "github.com/themisguard/datashield/internal/audit/usecase"
	"github.com/themisguard/datashield/internal/config"
	"github.com/themisguard/datashield/internal/database"
	deletionUseCase "github.com/themisguard/datashield/internal/deletion/usecase"
	envelopeUseCase "github.com/themisguard/datashield/internal/envelope/usecase"
	keyringService "github.com/themisguard/datashield/internal/keyring/service"
	keyringUseCase "github.com/themisguard/datashield/internal/keyring/usecase"
	"github.com/themisguard/datashield/internal/metrics"
	retentionUseCase "github.com/themisguard/datashield/internal/retention/usecase"
	"github.com/themisguard/datashield/internal/storage"
)

// Container holds all application dependencies and provides methods to access
// them. Components are created lazily on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	txManager       database.TxManager
	metricsProvider *metrics.Provider
	metricsServer   *metrics.Server
	businessMetrics metrics.BusinessMetrics

	// Storage
	documentStore storage.DocumentStore
	objectStore   *storage.ObjectStore

	// Audit
	outboxRepo auditUseCase.OutboxEventRepository
	auditSink  auditUseCase.Sink
	auditRelay auditUseCase.RelayUseCase

	// Keyring
	keyService  keyringService.KeyService
	keyRepo     keyringUseCase.CustomerKeyRepository
	keyRegistry keyringUseCase.KeyRegistry

	// Envelope and access control
	gate       accessUseCase.Gate
	engine     envelopeUseCase.Engine
	fieldCodec envelopeUseCase.FieldCodec

	// Retention and deletion
	entryRepo        retentionUseCase.EntryRepository
	queueRepo        retentionUseCase.QueueRepository
	scheduler        retentionUseCase.Scheduler
	guardedScheduler retentionUseCase.Scheduler
	executor         deletionUseCase.Executor
	guardedExecutor  deletionUseCase.Executor
	sweepWorker      *retentionUseCase.SweepWorker
	queueWorker      *deletionUseCase.QueueWorker

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	txManagerInit       sync.Once
	metricsProviderInit sync.Once
	metricsServerInit   sync.Once
	businessMetricsInit sync.Once
	documentStoreInit   sync.Once
	objectStoreInit     sync.Once
	outboxRepoInit      sync.Once
	auditSinkInit       sync.Once
	auditRelayInit      sync.Once
	keyServiceInit      sync.Once
	keyRepoInit         sync.Once
	keyRegistryInit     sync.Once
	gateInit            sync.Once
	engineInit          sync.Once
	fieldCodecInit      sync.Once
	entryRepoInit       sync.Once
	queueRepoInit       sync.Once
	schedulerInit       sync.Once
	guardedSchedInit    sync.Once
	executorInit        sync.Once
	guardedExecInit     sync.Once
	sweepWorkerInit     sync.Once
	queueWorkerInit     sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided
// configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := database.Connect(database.Config{
			Driver:             c.config.DBDriver,
			ConnectionString:   c.config.DBConnectionString,
			MaxOpenConnections: c.config.DBMaxOpenConnections,
			MaxIdleConnections: c.config.DBMaxIdleConnections,
			ConnMaxLifetime:    c.config.DBConnMaxLifetime,
		})
		if err != nil {
			c.initErrors["db"] = fmt.Errorf("failed to connect to database: %w", err)
			return
		}
		c.db = db
	})
	if err, exists := c.initErrors["db"]; exists {
		return nil, err
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["txManager"] = fmt.Errorf("failed to get database for tx manager: %w", err)
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	if err, exists := c.initErrors["txManager"]; exists {
		return nil, err
	}
	return c.txManager, nil
}

// MetricsProvider returns the metrics provider.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = fmt.Errorf("failed to create metrics provider: %w", err)
			return
		}
		c.metricsProvider = provider
	})
	if err, exists := c.initErrors["metricsProvider"]; exists {
		return nil, err
	}
	return c.metricsProvider, nil
}

// MetricsServer returns the metrics HTTP server, or nil when metrics are
// disabled.
func (c *Container) MetricsServer() (*metrics.Server, error) {
	c.metricsServerInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}

		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
			return
		}
		c.metricsServer = metrics.NewServer(c.config.MetricsPort, c.Logger(), provider)
	})
	if err, exists := c.initErrors["metricsServer"]; exists {
		return nil, err
	}
	return c.metricsServer, nil
}

// BusinessMetrics returns the business metrics recorder. A no-op recorder is
// returned when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		if !c.config.MetricsEnabled {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}

		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["businessMetrics"] = fmt.Errorf("failed to get metrics provider: %w", err)
			return
		}

		businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["businessMetrics"] = fmt.Errorf("failed to create business metrics: %w", err)
			return
		}
		c.businessMetrics = businessMetrics
	})
	if err, exists := c.initErrors["businessMetrics"]; exists {
		return nil, err
	}
	return c.businessMetrics, nil
}

// Shutdown performs cleanup of all initialized resources.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.sweepWorker != nil {
		c.sweepWorker.Stop()
	}
	if c.queueWorker != nil {
		c.queueWorker.Stop()
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.objectStore != nil {
		if err := c.objectStore.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("object store close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}
	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}
