// Package domain defines the retention policy model: data categories, their
// retention windows, and the deletion method applied when a window expires.
package domain

import (
	"fmt"

	"github.com/themisguard/datashield/internal/errors"
)

// DataCategory classifies stored data for retention purposes.
type DataCategory string

const (
	CategoryProtectedHealthData DataCategory = "protected-health-data"
	CategoryAuditLogs           DataCategory = "audit-logs"
	CategorySystemLogs          DataCategory = "system-logs"
	CategoryBillingData         DataCategory = "billing-data"
	CategoryAccountData         DataCategory = "account-data"
	CategoryAnonymizedAnalytics DataCategory = "anonymized-analytics"
)

// DeletionMethod names how expired data is removed.
type DeletionMethod string

const (
	// MethodCryptoErasure destroys the key material so ciphertext becomes
	// unrecoverable without touching the stored bytes.
	MethodCryptoErasure DeletionMethod = "crypto_erasure"

	// MethodHardDelete physically removes the data and verifies it is gone.
	MethodHardDelete DeletionMethod = "hard_delete"

	// MethodSoftDelete marks the data deleted but keeps it recoverable, used
	// where a recovery window is legally required.
	MethodSoftDelete DeletionMethod = "soft_delete"
)

// AuditLevel names how much detail deletion and retention events carry for a
// category.
type AuditLevel string

const (
	// AuditLevelComprehensive records full detail, required for regulated
	// categories.
	AuditLevelComprehensive AuditLevel = "comprehensive"

	// AuditLevelStandard records the normal operational detail.
	AuditLevelStandard AuditLevel = "standard"

	// AuditLevelMinimal records only that the operation happened.
	AuditLevelMinimal AuditLevel = "minimal"
)

// Policy is one row of the retention policy table.
type Policy struct {
	Category         DataCategory
	RetentionDays    int  // 0 when Indefinite
	Indefinite       bool // retained until account closure
	Method           DeletionMethod
	RequiresApproval bool
	AuditLevel       AuditLevel
}

// policies is the fixed retention policy table. Windows are driven by the
// regulations each category falls under, not by operational convenience.
var policies = map[DataCategory]Policy{
	CategoryProtectedHealthData: {
		Category:         CategoryProtectedHealthData,
		RetentionDays:    2190,
		Method:           MethodCryptoErasure,
		RequiresApproval: true,
		AuditLevel:       AuditLevelComprehensive,
	},
	CategoryAuditLogs: {
		Category:         CategoryAuditLogs,
		RetentionDays:    3650,
		Method:           MethodHardDelete,
		RequiresApproval: true,
		AuditLevel:       AuditLevelComprehensive,
	},
	CategorySystemLogs: {
		Category:      CategorySystemLogs,
		RetentionDays: 365,
		Method:        MethodHardDelete,
		AuditLevel:    AuditLevelStandard,
	},
	CategoryBillingData: {
		Category:         CategoryBillingData,
		RetentionDays:    3650,
		Method:           MethodSoftDelete,
		RequiresApproval: true,
		AuditLevel:       AuditLevelComprehensive,
	},
	CategoryAccountData: {
		Category:   CategoryAccountData,
		Indefinite: true,
		Method:     MethodHardDelete,
		AuditLevel: AuditLevelStandard,
	},
	CategoryAnonymizedAnalytics: {
		Category:      CategoryAnonymizedAnalytics,
		RetentionDays: 730,
		Method:        MethodHardDelete,
		AuditLevel:    AuditLevelMinimal,
	},
}

// PolicyFor returns the retention policy for a category.
func PolicyFor(category DataCategory) (Policy, error) {
	policy, ok := policies[category]
	if !ok {
		return Policy{}, errors.Wrap(ErrUnknownCategory, fmt.Sprintf("category %q", category))
	}
	return policy, nil
}

// Categories returns all known categories.
func Categories() []DataCategory {
	return []DataCategory{
		CategoryProtectedHealthData,
		CategoryAuditLogs,
		CategorySystemLogs,
		CategoryBillingData,
		CategoryAccountData,
		CategoryAnonymizedAnalytics,
	}
}
