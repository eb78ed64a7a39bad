// Package service provides the cryptographic primitives behind the envelope
// encryption engine: AEAD ciphers for the bulk payload and the deterministic
// field hash used for equality lookups over encrypted fields.
package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/themisguard/datashield/internal/envelope/domain"
	apperrors "github.com/themisguard/datashield/internal/errors"
)

// AEAD seals and opens payloads under a 256-bit data key with additional
// authenticated data. The nonce is generated per seal and prepended to the
// ciphertext.
type AEAD interface {
	// Algorithm returns the identifier stored on encrypted records.
	Algorithm() string

	// Seal encrypts plaintext under key, authenticating aad.
	Seal(key, plaintext, aad []byte) ([]byte, error)

	// Open decrypts a sealed payload. Any modification of the ciphertext or
	// aad fails authentication.
	Open(key, ciphertext, aad []byte) ([]byte, error)
}

// aesGCM implements AEAD with AES-256-GCM.
type aesGCM struct{}

// NewAESGCM creates an AES-256-GCM AEAD.
func NewAESGCM() AEAD {
	return &aesGCM{}
}

func (a *aesGCM) Algorithm() string {
	return domain.AlgorithmAESGCM
}

func (a *aesGCM) Seal(key, plaintext, aad []byte) ([]byte, error) {
	aead, err := a.aead(key)
	if err != nil {
		return nil, err
	}
	return seal(aead, plaintext, aad)
}

func (a *aesGCM) Open(key, ciphertext, aad []byte) ([]byte, error) {
	aead, err := a.aead(key)
	if err != nil {
		return nil, err
	}
	return open(aead, ciphertext, aad)
}

func (a *aesGCM) aead(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, apperrors.Wrap(err, "create aes cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperrors.Wrap(err, "create gcm")
	}
	return aead, nil
}

// chaCha20Poly1305 implements AEAD with ChaCha20-Poly1305.
type chaCha20Poly1305 struct{}

// NewChaCha20Poly1305 creates a ChaCha20-Poly1305 AEAD.
func NewChaCha20Poly1305() AEAD {
	return &chaCha20Poly1305{}
}

func (c *chaCha20Poly1305) Algorithm() string {
	return domain.AlgorithmChaCha20Poly1305
}

func (c *chaCha20Poly1305) Seal(key, plaintext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, apperrors.Wrap(err, "create chacha20poly1305")
	}
	return seal(aead, plaintext, aad)
}

func (c *chaCha20Poly1305) Open(key, ciphertext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, apperrors.Wrap(err, "create chacha20poly1305")
	}
	return open(aead, ciphertext, aad)
}

func seal(aead cipher.AEAD, plaintext, aad []byte) ([]byte, error) {
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, apperrors.Wrap(err, "generate nonce")
	}
	return aead.Seal(nonce, nonce, plaintext, aad), nil
}

func open(aead cipher.AEAD, ciphertext, aad []byte) ([]byte, error) {
	if len(ciphertext) < aead.NonceSize() {
		return nil, domain.ErrDecryptionFailed
	}
	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, aad)
	if err != nil {
		return nil, domain.ErrDecryptionFailed
	}
	return plaintext, nil
}

// AEADManager resolves AEAD implementations by algorithm identifier, so
// records encrypted under an older algorithm stay readable after the default
// changes.
type AEADManager struct {
	defaultAlgorithm string
	aeads            map[string]AEAD
}

// NewAEADManager creates a manager over the supported AEADs.
// Returns an error when the default algorithm is not supported.
func NewAEADManager(defaultAlgorithm string) (*AEADManager, error) {
	aeads := map[string]AEAD{
		domain.AlgorithmAESGCM:           NewAESGCM(),
		domain.AlgorithmChaCha20Poly1305: NewChaCha20Poly1305(),
	}
	if _, ok := aeads[defaultAlgorithm]; !ok {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("unsupported algorithm %q", defaultAlgorithm))
	}
	return &AEADManager{
		defaultAlgorithm: defaultAlgorithm,
		aeads:            aeads,
	}, nil
}

// Default returns the AEAD used for new records.
func (m *AEADManager) Default() AEAD {
	return m.aeads[m.defaultAlgorithm]
}

// ForAlgorithm returns the AEAD for a stored record's algorithm identifier.
func (m *AEADManager) ForAlgorithm(algorithm string) (AEAD, error) {
	aead, ok := m.aeads[algorithm]
	if !ok {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("unsupported algorithm %q", algorithm))
	}
	return aead, nil
}
