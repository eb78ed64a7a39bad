package app

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"

	keyringRepository "github.com/themisguard/datashield/internal/keyring/repository"
	keyringService "github.com/themisguard/datashield/internal/keyring/service"
	keyringUseCase "github.com/themisguard/datashield/internal/keyring/usecase"
)

// KeyService returns the key service backend selected by configuration.
func (c *Container) KeyService() (keyringService.KeyService, error) {
	c.keyServiceInit.Do(func() {
		switch c.config.KMSProvider {
		case "localkms":
			c.keyService = keyringService.NewLocalKeyService()
		case "awskms":
			awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
				awsconfig.WithRegion(c.config.KMSRegion),
			)
			if err != nil {
				c.initErrors["keyService"] = fmt.Errorf("failed to load aws config: %w", err)
				return
			}

			serviceConfig := keyringService.AWSKeyServiceConfig{
				CallTimeout: c.config.KMSCallTimeout,
				MaxRetries:  c.config.KMSMaxRetries,
				Backoff:     c.config.KMSCallTimeout / 10,
			}
			c.keyService = keyringService.NewAWSKeyService(kms.NewFromConfig(awsCfg), serviceConfig, c.Logger())
		default:
			c.initErrors["keyService"] = fmt.Errorf("unsupported kms provider: %s", c.config.KMSProvider)
		}
	})
	if err, exists := c.initErrors["keyService"]; exists {
		return nil, err
	}
	return c.keyService, nil
}

// CustomerKeyRepository returns the customer key repository instance.
func (c *Container) CustomerKeyRepository() (keyringUseCase.CustomerKeyRepository, error) {
	c.keyRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["keyRepo"] = fmt.Errorf("failed to get database for customer key repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.keyRepo = keyringRepository.NewMySQLCustomerKeyRepository(db)
		case "postgres":
			c.keyRepo = keyringRepository.NewPostgreSQLCustomerKeyRepository(db)
		default:
			c.initErrors["keyRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if err, exists := c.initErrors["keyRepo"]; exists {
		return nil, err
	}
	return c.keyRepo, nil
}

// KeyRegistry returns the customer key registry instance.
func (c *Container) KeyRegistry() (keyringUseCase.KeyRegistry, error) {
	c.keyRegistryInit.Do(func() {
		txManager, err := c.TxManager()
		if err != nil {
			c.initErrors["keyRegistry"] = fmt.Errorf("failed to get tx manager for key registry: %w", err)
			return
		}

		keyRepo, err := c.CustomerKeyRepository()
		if err != nil {
			c.initErrors["keyRegistry"] = fmt.Errorf("failed to get customer key repository for key registry: %w", err)
			return
		}

		keyService, err := c.KeyService()
		if err != nil {
			c.initErrors["keyRegistry"] = fmt.Errorf("failed to get key service for key registry: %w", err)
			return
		}

		auditSink, err := c.AuditSink()
		if err != nil {
			c.initErrors["keyRegistry"] = fmt.Errorf("failed to get audit sink for key registry: %w", err)
			return
		}

		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["keyRegistry"] = fmt.Errorf("failed to get business metrics for key registry: %w", err)
			return
		}

		registryConfig := keyringUseCase.RegistryConfig{
			RotationGraceDays:    c.config.KeyRotationGraceDays,
			DestructionGraceDays: c.config.KeyDestructionGraceDays,
		}
		registry := keyringUseCase.NewRegistryUseCase(registryConfig, txManager, keyRepo, keyService, auditSink, c.Logger())
		c.keyRegistry = keyringUseCase.NewRegistryMetricsDecorator(registry, businessMetrics)
	})
	if err, exists := c.initErrors["keyRegistry"]; exists {
		return nil, err
	}
	return c.keyRegistry, nil
}
