package app

import (
	"fmt"

	accessUseCase "github.com/themisguard/datashield/internal/access/usecase"
	deletionUseCase "github.com/themisguard/datashield/internal/deletion/usecase"
	retentionRepository "github.com/themisguard/datashield/internal/retention/repository"
	retentionUseCase "github.com/themisguard/datashield/internal/retention/usecase"
)

// EntryRepository returns the retention ledger repository instance.
func (c *Container) EntryRepository() (retentionUseCase.EntryRepository, error) {
	c.entryRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["entryRepo"] = fmt.Errorf("failed to get database for entry repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.entryRepo = retentionRepository.NewMySQLEntryRepository(db)
		case "postgres":
			c.entryRepo = retentionRepository.NewPostgreSQLEntryRepository(db)
		default:
			c.initErrors["entryRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if err, exists := c.initErrors["entryRepo"]; exists {
		return nil, err
	}
	return c.entryRepo, nil
}

// QueueRepository returns the deletion queue repository instance.
func (c *Container) QueueRepository() (retentionUseCase.QueueRepository, error) {
	c.queueRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["queueRepo"] = fmt.Errorf("failed to get database for queue repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.queueRepo = retentionRepository.NewMySQLQueueRepository(db)
		case "postgres":
			c.queueRepo = retentionRepository.NewPostgreSQLQueueRepository(db)
		default:
			c.initErrors["queueRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if err, exists := c.initErrors["queueRepo"]; exists {
		return nil, err
	}
	return c.queueRepo, nil
}

// Scheduler returns the retention scheduler instance.
func (c *Container) Scheduler() (retentionUseCase.Scheduler, error) {
	c.schedulerInit.Do(func() {
		txManager, err := c.TxManager()
		if err != nil {
			c.initErrors["scheduler"] = fmt.Errorf("failed to get tx manager for scheduler: %w", err)
			return
		}

		entryRepo, err := c.EntryRepository()
		if err != nil {
			c.initErrors["scheduler"] = fmt.Errorf("failed to get entry repository for scheduler: %w", err)
			return
		}

		queueRepo, err := c.QueueRepository()
		if err != nil {
			c.initErrors["scheduler"] = fmt.Errorf("failed to get queue repository for scheduler: %w", err)
			return
		}

		auditSink, err := c.AuditSink()
		if err != nil {
			c.initErrors["scheduler"] = fmt.Errorf("failed to get audit sink for scheduler: %w", err)
			return
		}

		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["scheduler"] = fmt.Errorf("failed to get business metrics for scheduler: %w", err)
			return
		}

		schedulerConfig := retentionUseCase.SchedulerConfig{
			SweepBatchSize:  c.config.SweepBatchSize,
			SweepRatePerSec: c.config.SweepRatePerSec,
		}
		scheduler := retentionUseCase.NewSchedulerUseCase(schedulerConfig, txManager, entryRepo, queueRepo, auditSink, c.Logger())
		c.scheduler = retentionUseCase.NewSchedulerMetricsDecorator(scheduler, businessMetrics)
	})
	if err, exists := c.initErrors["scheduler"]; exists {
		return nil, err
	}
	return c.scheduler, nil
}

// Executor returns the deletion executor instance.
func (c *Container) Executor() (deletionUseCase.Executor, error) {
	c.executorInit.Do(func() {
		txManager, err := c.TxManager()
		if err != nil {
			c.initErrors["executor"] = fmt.Errorf("failed to get tx manager for executor: %w", err)
			return
		}

		entryRepo, err := c.EntryRepository()
		if err != nil {
			c.initErrors["executor"] = fmt.Errorf("failed to get entry repository for executor: %w", err)
			return
		}

		queueRepo, err := c.QueueRepository()
		if err != nil {
			c.initErrors["executor"] = fmt.Errorf("failed to get queue repository for executor: %w", err)
			return
		}

		keyRegistry, err := c.KeyRegistry()
		if err != nil {
			c.initErrors["executor"] = fmt.Errorf("failed to get key registry for executor: %w", err)
			return
		}

		documentStore, err := c.DocumentStore()
		if err != nil {
			c.initErrors["executor"] = fmt.Errorf("failed to get document store for executor: %w", err)
			return
		}

		objectStore, err := c.ObjectStore()
		if err != nil {
			c.initErrors["executor"] = fmt.Errorf("failed to get object store for executor: %w", err)
			return
		}

		auditSink, err := c.AuditSink()
		if err != nil {
			c.initErrors["executor"] = fmt.Errorf("failed to get audit sink for executor: %w", err)
			return
		}

		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["executor"] = fmt.Errorf("failed to get business metrics for executor: %w", err)
			return
		}

		executorConfig := deletionUseCase.ExecutorConfig{
			MaxRetries:              c.config.DeletionMaxRetries,
			RetryBackoff:            c.config.DeletionRetryBackoff,
			BatchSize:               c.config.SweepBatchSize,
			KeyDestructionGraceDays: c.config.KeyDestructionGraceDays,
		}
		executor := deletionUseCase.NewExecutorUseCase(executorConfig, txManager, entryRepo, queueRepo, keyRegistry, documentStore, objectStore, auditSink, c.Logger())
		c.executor = deletionUseCase.NewExecutorMetricsDecorator(executor, businessMetrics)
	})
	if err, exists := c.initErrors["executor"]; exists {
		return nil, err
	}
	return c.executor, nil
}

// GuardedScheduler returns the retention scheduler guarded by the access gate.
// Tenant-facing calls must carry a principal in the context.
func (c *Container) GuardedScheduler() (retentionUseCase.Scheduler, error) {
	c.guardedSchedInit.Do(func() {
		scheduler, err := c.Scheduler()
		if err != nil {
			c.initErrors["guardedScheduler"] = fmt.Errorf("failed to get scheduler: %w", err)
			return
		}

		entryRepo, err := c.EntryRepository()
		if err != nil {
			c.initErrors["guardedScheduler"] = fmt.Errorf("failed to get entry repository for guarded scheduler: %w", err)
			return
		}

		gate, err := c.Gate()
		if err != nil {
			c.initErrors["guardedScheduler"] = fmt.Errorf("failed to get gate for scheduler: %w", err)
			return
		}
		c.guardedScheduler = accessUseCase.NewGuardedScheduler(gate, entryRepo, scheduler)
	})
	if err, exists := c.initErrors["guardedScheduler"]; exists {
		return nil, err
	}
	return c.guardedScheduler, nil
}

// GuardedExecutor returns the deletion executor guarded by the access gate.
// Tenant-facing calls must carry a principal in the context.
func (c *Container) GuardedExecutor() (deletionUseCase.Executor, error) {
	c.guardedExecInit.Do(func() {
		executor, err := c.Executor()
		if err != nil {
			c.initErrors["guardedExecutor"] = fmt.Errorf("failed to get executor: %w", err)
			return
		}

		queueRepo, err := c.QueueRepository()
		if err != nil {
			c.initErrors["guardedExecutor"] = fmt.Errorf("failed to get queue repository for guarded executor: %w", err)
			return
		}

		gate, err := c.Gate()
		if err != nil {
			c.initErrors["guardedExecutor"] = fmt.Errorf("failed to get gate for executor: %w", err)
			return
		}
		c.guardedExecutor = accessUseCase.NewGuardedExecutor(gate, queueRepo, executor)
	})
	if err, exists := c.initErrors["guardedExecutor"]; exists {
		return nil, err
	}
	return c.guardedExecutor, nil
}

// SweepWorker returns the background retention sweep worker.
func (c *Container) SweepWorker() (*retentionUseCase.SweepWorker, error) {
	c.sweepWorkerInit.Do(func() {
		scheduler, err := c.Scheduler()
		if err != nil {
			c.initErrors["sweepWorker"] = fmt.Errorf("failed to get scheduler for sweep worker: %w", err)
			return
		}
		c.sweepWorker = retentionUseCase.NewSweepWorker(scheduler, c.config.SweepInterval, c.Logger())
	})
	if err, exists := c.initErrors["sweepWorker"]; exists {
		return nil, err
	}
	return c.sweepWorker, nil
}

// QueueWorker returns the background deletion executor worker.
func (c *Container) QueueWorker() (*deletionUseCase.QueueWorker, error) {
	c.queueWorkerInit.Do(func() {
		executor, err := c.Executor()
		if err != nil {
			c.initErrors["queueWorker"] = fmt.Errorf("failed to get executor for queue worker: %w", err)
			return
		}
		c.queueWorker = deletionUseCase.NewQueueWorker(executor, c.config.DeletionInterval, c.Logger())
	})
	if err, exists := c.initErrors["queueWorker"]; exists {
		return nil, err
	}
	return c.queueWorker, nil
}
