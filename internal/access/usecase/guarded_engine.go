package usecase

import (
	"context"

	"github.com/themisguard/datashield/internal/access/domain"
	envelopeDomain "github.com/themisguard/datashield/internal/envelope/domain"
	envelopeUseCase "github.com/themisguard/datashield/internal/envelope/usecase"
)

// guardedEngine puts the access gate in front of the envelope engine. A
// denied principal never reaches the engine or the key service.
type guardedEngine struct {
	gate  Gate
	inner envelopeUseCase.Engine
}

// NewGuardedEngine wraps an envelope engine with gate enforcement. The
// principal is taken from the request context.
func NewGuardedEngine(gate Gate, inner envelopeUseCase.Engine) envelopeUseCase.Engine {
	return &guardedEngine{
		gate:  gate,
		inner: inner,
	}
}

func (g *guardedEngine) Encrypt(ctx context.Context, encCtx envelopeDomain.EncryptionContext, plaintext []byte) (*envelopeDomain.EncryptedRecord, error) {
	principal, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrNoPrincipal
	}
	if err := g.gate.Authorize(ctx, principal, encCtx.CustomerID, domain.PermissionWriteOwnData, "encrypt"); err != nil {
		return nil, err
	}
	return g.inner.Encrypt(ctx, encCtx, plaintext)
}

func (g *guardedEngine) Decrypt(ctx context.Context, callerTenantID string, record *envelopeDomain.EncryptedRecord) ([]byte, error) {
	principal, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrNoPrincipal
	}
	if err := g.gate.Authorize(ctx, principal, record.Context.CustomerID, domain.PermissionReadOwnData, "decrypt"); err != nil {
		return nil, err
	}
	return g.inner.Decrypt(ctx, callerTenantID, record)
}

func (g *guardedEngine) Reencrypt(ctx context.Context, callerTenantID string, record *envelopeDomain.EncryptedRecord) (*envelopeDomain.EncryptedRecord, error) {
	principal, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrNoPrincipal
	}
	if err := g.gate.Authorize(ctx, principal, record.Context.CustomerID, domain.PermissionWriteOwnData, "reencrypt"); err != nil {
		return nil, err
	}
	return g.inner.Reencrypt(ctx, callerTenantID, record)
}
