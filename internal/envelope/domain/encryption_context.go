// Package domain defines the envelope encryption domain models.
//
// Every encrypted record carries its encryption context: the tenant, purpose,
// and caller that produced it. The context is cryptographically bound to the
// wrapped data key and authenticated alongside the ciphertext, so moving a
// record across tenants breaks decryption rather than leaking data.
package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	validation "github.com/jellydator/validation"

	apperrors "github.com/themisguard/datashield/internal/errors"
)

// EncryptionContext identifies who encrypted what for whom. It is stored with
// the record and must be presented unchanged at decryption time.
type EncryptionContext struct {
	CustomerID string    `json:"customer_id"`
	Purpose    string    `json:"purpose"`
	CallerID   string    `json:"caller_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewEncryptionContext creates a context stamped with the current UTC time.
func NewEncryptionContext(customerID, purpose, callerID string) EncryptionContext {
	return EncryptionContext{
		CustomerID: customerID,
		Purpose:    purpose,
		CallerID:   callerID,
		Timestamp:  time.Now().UTC(),
	}
}

// Validate checks that all identifying fields are present.
func (c EncryptionContext) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.CustomerID, validation.Required),
		validation.Field(&c.Purpose, validation.Required),
		validation.Field(&c.CallerID, validation.Required),
		validation.Field(&c.Timestamp, validation.Required),
	)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("encryption context: %s", err))
	}
	return nil
}

// ToMap renders the context as the string map handed to the key service. The
// same map must be produced at wrap and unwrap time, so the timestamp uses a
// fixed RFC 3339 UTC rendering.
func (c EncryptionContext) ToMap() map[string]string {
	return map[string]string{
		"customer_id": c.CustomerID,
		"purpose":     c.Purpose,
		"caller_id":   c.CallerID,
		"timestamp":   c.Timestamp.UTC().Format(time.RFC3339),
	}
}

// CanonicalBytes serializes the context deterministically for use as
// additional authenticated data. Entries are sorted by key so any two
// renderings of the same context are byte-identical.
func (c EncryptionContext) CanonicalBytes() []byte {
	entries := c.ToMap()
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for i, key := range keys {
		if i > 0 {
			builder.WriteByte('\n')
		}
		builder.WriteString(key)
		builder.WriteByte('=')
		builder.WriteString(entries[key])
	}
	return []byte(builder.String())
}
