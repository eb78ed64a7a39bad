package app

import (
	"encoding/base64"
	"fmt"

	accessService "github.com/themisguard/datashield/internal/access/service"
	accessUseCase "github.com/themisguard/datashield/internal/access/usecase"
	envelopeService "github.com/themisguard/datashield/internal/envelope/service"
	envelopeUseCase "github.com/themisguard/datashield/internal/envelope/usecase"
)

// Gate returns the access control gate.
func (c *Container) Gate() (accessUseCase.Gate, error) {
	c.gateInit.Do(func() {
		auditSink, err := c.AuditSink()
		if err != nil {
			c.initErrors["gate"] = fmt.Errorf("failed to get audit sink for gate: %w", err)
			return
		}

		enforcer, err := accessService.NewEnforcer()
		if err != nil {
			c.initErrors["gate"] = fmt.Errorf("failed to create access enforcer: %w", err)
			return
		}
		c.gate = accessUseCase.NewGateUseCase(enforcer, auditSink, c.Logger())
	})
	if err, exists := c.initErrors["gate"]; exists {
		return nil, err
	}
	return c.gate, nil
}

// Engine returns the envelope encryption engine, guarded by the access gate.
// Every call must carry a principal in the context.
func (c *Container) Engine() (envelopeUseCase.Engine, error) {
	c.engineInit.Do(func() {
		registry, err := c.KeyRegistry()
		if err != nil {
			c.initErrors["engine"] = fmt.Errorf("failed to get key registry for engine: %w", err)
			return
		}

		keyService, err := c.KeyService()
		if err != nil {
			c.initErrors["engine"] = fmt.Errorf("failed to get key service for engine: %w", err)
			return
		}

		aeadManager, err := envelopeService.NewAEADManager(c.config.EncryptionAlgorithm)
		if err != nil {
			c.initErrors["engine"] = fmt.Errorf("failed to create aead manager: %w", err)
			return
		}

		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["engine"] = fmt.Errorf("failed to get business metrics for engine: %w", err)
			return
		}

		gate, err := c.Gate()
		if err != nil {
			c.initErrors["engine"] = fmt.Errorf("failed to get gate for engine: %w", err)
			return
		}

		engine := envelopeUseCase.NewEngineUseCase(registry, keyService, aeadManager, c.Logger())
		engine = envelopeUseCase.NewEngineMetricsDecorator(engine, businessMetrics)
		c.engine = accessUseCase.NewGuardedEngine(gate, engine)
	})
	if err, exists := c.initErrors["engine"]; exists {
		return nil, err
	}
	return c.engine, nil
}

// FieldCodec returns the field-level encryption codec.
func (c *Container) FieldCodec() (envelopeUseCase.FieldCodec, error) {
	c.fieldCodecInit.Do(func() {
		engine, err := c.Engine()
		if err != nil {
			c.initErrors["fieldCodec"] = fmt.Errorf("failed to get engine for field codec: %w", err)
			return
		}

		if c.config.FieldHashKey == "" {
			c.initErrors["fieldCodec"] = fmt.Errorf("FIELD_HASH_KEY is required for field encryption")
			return
		}
		hashKey, err := base64.StdEncoding.DecodeString(c.config.FieldHashKey)
		if err != nil {
			c.initErrors["fieldCodec"] = fmt.Errorf("failed to decode FIELD_HASH_KEY: %w", err)
			return
		}

		hasher := envelopeService.NewFieldHasher(hashKey, c.config.FieldHashLength)
		c.fieldCodec = envelopeUseCase.NewFieldUseCase(engine, hasher, c.Logger())
	})
	if err, exists := c.initErrors["fieldCodec"]; exists {
		return nil, err
	}
	return c.fieldCodec, nil
}
