package app

import (
	"context"
	"fmt"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	auditRepository "github.com/themisguard/datashield/internal/audit/repository"
	auditUseCase "github.com/themisguard/datashield/internal/audit/usecase"
	"github.com/themisguard/datashield/internal/storage"
)

// DocumentStore returns the tenant document store instance.
func (c *Container) DocumentStore() (storage.DocumentStore, error) {
	c.documentStoreInit.Do(func() {
		switch c.config.DocumentStoreBackend {
		case "memory":
			c.documentStore = storage.NewMemoryDocumentStore()
		case "sql":
			db, err := c.DB()
			if err != nil {
				c.initErrors["documentStore"] = fmt.Errorf("failed to get database for document store: %w", err)
				return
			}
			switch c.config.DBDriver {
			case "mysql":
				c.documentStore = storage.NewMySQLDocumentStore(db)
			case "postgres":
				c.documentStore = storage.NewPostgreSQLDocumentStore(db)
			default:
				c.initErrors["documentStore"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
			}
		default:
			c.initErrors["documentStore"] = fmt.Errorf("unsupported document store backend: %s", c.config.DocumentStoreBackend)
		}
	})
	if err, exists := c.initErrors["documentStore"]; exists {
		return nil, err
	}
	return c.documentStore, nil
}

// ObjectStore returns the blob object store instance. The backend is selected
// by the bucket URL scheme (s3://, file://, mem://).
func (c *Container) ObjectStore() (*storage.ObjectStore, error) {
	c.objectStoreInit.Do(func() {
		bucket, err := blob.OpenBucket(context.Background(), c.config.ObjectStoreURL)
		if err != nil {
			c.initErrors["objectStore"] = fmt.Errorf("failed to open bucket %q: %w", c.config.ObjectStoreURL, err)
			return
		}
		c.objectStore = storage.NewObjectStore(bucket)
	})
	if err, exists := c.initErrors["objectStore"]; exists {
		return nil, err
	}
	return c.objectStore, nil
}

// OutboxRepository returns the audit outbox repository instance.
func (c *Container) OutboxRepository() (auditUseCase.OutboxEventRepository, error) {
	c.outboxRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["outboxRepo"] = fmt.Errorf("failed to get database for outbox repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.outboxRepo = auditRepository.NewMySQLOutboxEventRepository(db)
		case "postgres":
			c.outboxRepo = auditRepository.NewPostgreSQLOutboxEventRepository(db)
		default:
			c.initErrors["outboxRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if err, exists := c.initErrors["outboxRepo"]; exists {
		return nil, err
	}
	return c.outboxRepo, nil
}

// AuditSink returns the audit event sink. Events are buffered in the outbox
// table and relayed asynchronously.
func (c *Container) AuditSink() (auditUseCase.Sink, error) {
	c.auditSinkInit.Do(func() {
		outboxRepo, err := c.OutboxRepository()
		if err != nil {
			c.initErrors["auditSink"] = fmt.Errorf("failed to get outbox repository for audit sink: %w", err)
			return
		}
		c.auditSink = auditUseCase.NewOutboxSink(outboxRepo)
	})
	if err, exists := c.initErrors["auditSink"]; exists {
		return nil, err
	}
	return c.auditSink, nil
}

// AuditRelay returns the audit relay use case instance.
func (c *Container) AuditRelay() (auditUseCase.RelayUseCase, error) {
	c.auditRelayInit.Do(func() {
		txManager, err := c.TxManager()
		if err != nil {
			c.initErrors["auditRelay"] = fmt.Errorf("failed to get tx manager for audit relay: %w", err)
			return
		}

		outboxRepo, err := c.OutboxRepository()
		if err != nil {
			c.initErrors["auditRelay"] = fmt.Errorf("failed to get outbox repository for audit relay: %w", err)
			return
		}

		relayConfig := auditUseCase.RelayConfig{
			BatchSize:  c.config.OutboxBatchSize,
			MaxRetries: c.config.OutboxMaxRetries,
		}
		publisher := auditUseCase.NewLogPublisher(c.Logger())
		c.auditRelay = auditUseCase.NewRelayUseCase(relayConfig, txManager, outboxRepo, publisher, c.Logger())
	})
	if err, exists := c.initErrors["auditRelay"]; exists {
		return nil, err
	}
	return c.auditRelay, nil
}
