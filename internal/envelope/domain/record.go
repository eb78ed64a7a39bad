package domain

import (
	"time"
)

// Algorithm identifiers for the AEAD used on the bulk payload.
const (
	AlgorithmAESGCM           = "aes-gcm"
	AlgorithmChaCha20Poly1305 = "chacha20-poly1305"
)

// EncryptedRecord is the self-contained envelope produced by one encrypt
// operation. It carries everything needed to decrypt except the tenant key,
// which only the key service can apply.
type EncryptedRecord struct {
	Ciphertext  []byte            `json:"ciphertext"`
	WrappedKey  []byte            `json:"wrapped_key"`
	Algorithm   string            `json:"algorithm"`
	Context     EncryptionContext `json:"context"`
	ContentHash []byte            `json:"content_hash"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Zero overwrites key material in place. Call it as soon as a plaintext data
// key is no longer needed.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
