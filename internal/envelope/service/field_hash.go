package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// FieldHasher produces the deterministic short hash stored next to each
// encrypted field. The hash supports equality lookups without decryption; it
// is keyed so values cannot be brute-forced offline from the hash alone.
type FieldHasher struct {
	key    []byte
	length int
}

// NewFieldHasher creates a FieldHasher truncating to length bytes of the
// HMAC-SHA256 output. Longer hashes reduce collisions at the cost of making
// the hash a better fingerprint of the value.
func NewFieldHasher(key []byte, length int) *FieldHasher {
	if length <= 0 || length > sha256.Size {
		length = 8
	}
	return &FieldHasher{
		key:    key,
		length: length,
	}
}

// Hash returns the truncated keyed hash of value, hex encoded. The same value
// always produces the same hash under the same key.
func (h *FieldHasher) Hash(value string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil)[:h.length])
}
