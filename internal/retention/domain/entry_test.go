package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyFor(t *testing.T) {
	t.Run("PolicyTable", func(t *testing.T) {
		tests := []struct {
			category         DataCategory
			retentionDays    int
			indefinite       bool
			method           DeletionMethod
			requiresApproval bool
			auditLevel       AuditLevel
		}{
			{CategoryProtectedHealthData, 2190, false, MethodCryptoErasure, true, AuditLevelComprehensive},
			{CategoryAuditLogs, 3650, false, MethodHardDelete, true, AuditLevelComprehensive},
			{CategorySystemLogs, 365, false, MethodHardDelete, false, AuditLevelStandard},
			{CategoryBillingData, 3650, false, MethodSoftDelete, true, AuditLevelComprehensive},
			{CategoryAccountData, 0, true, MethodHardDelete, false, AuditLevelStandard},
			{CategoryAnonymizedAnalytics, 730, false, MethodHardDelete, false, AuditLevelMinimal},
		}

		for _, tt := range tests {
			policy, err := PolicyFor(tt.category)
			require.NoError(t, err, tt.category)
			assert.Equal(t, tt.retentionDays, policy.RetentionDays, tt.category)
			assert.Equal(t, tt.indefinite, policy.Indefinite, tt.category)
			assert.Equal(t, tt.method, policy.Method, tt.category)
			assert.Equal(t, tt.requiresApproval, policy.RequiresApproval, tt.category)
			assert.Equal(t, tt.auditLevel, policy.AuditLevel, tt.category)
		}
	})

	t.Run("UnknownCategoryRejected", func(t *testing.T) {
		_, err := PolicyFor("marketing-emails")
		assert.ErrorIs(t, err, ErrUnknownCategory)
	})
}

func TestNewEntry(t *testing.T) {
	storedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("ExpiryFromStorageTime", func(t *testing.T) {
		entry, err := NewEntry("acme", "scan-data", "scan-1", CategoryProtectedHealthData, storedAt)
		require.NoError(t, err)

		require.NotNil(t, entry.ExpiresAt)
		assert.Equal(t, time.Date(2029, 12, 30, 0, 0, 0, 0, time.UTC), *entry.ExpiresAt)
		assert.Equal(t, EntryStatusActive, entry.Status)
		assert.Equal(t, AuditLevelComprehensive, entry.AuditLevel)
	})

	t.Run("IndefiniteRetention", func(t *testing.T) {
		entry, err := NewEntry("acme", "accounts", "acct-1", CategoryAccountData, storedAt)
		require.NoError(t, err)
		assert.Nil(t, entry.ExpiresAt)
		assert.False(t, entry.Expired(time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("UnknownCategory", func(t *testing.T) {
		_, err := NewEntry("acme", "scan-data", "scan-1", "marketing-emails", storedAt)
		assert.ErrorIs(t, err, ErrUnknownCategory)
	})
}

func TestEntry_Expiry(t *testing.T) {
	storedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	entry, err := NewEntry("acme", "logs", "log-1", CategorySystemLogs, storedAt)
	require.NoError(t, err)

	expiresAt := storedAt.AddDate(0, 0, 365)

	assert.False(t, entry.Expired(expiresAt.Add(-time.Second)))
	assert.True(t, entry.Expired(expiresAt))
	assert.True(t, entry.Expired(expiresAt.Add(time.Hour)))

	t.Run("ExpiringSoon", func(t *testing.T) {
		window := 30 * 24 * time.Hour
		assert.True(t, entry.ExpiringSoon(expiresAt.Add(-29*24*time.Hour), window))
		assert.False(t, entry.ExpiringSoon(expiresAt.Add(-31*24*time.Hour), window))
		// Already expired entries are past "soon".
		assert.False(t, entry.ExpiringSoon(expiresAt.Add(time.Hour), window))
	})
}

func TestEntry_Extend(t *testing.T) {
	storedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("AppendsHistory", func(t *testing.T) {
		entry, err := NewEntry("acme", "billing", "inv-1", CategoryBillingData, storedAt)
		require.NoError(t, err)
		original := *entry.ExpiresAt

		first := original.AddDate(0, 0, 90)
		require.NoError(t, entry.Extend("legal@example.com", "litigation hold", first, now))

		second := first.AddDate(0, 0, 90)
		require.NoError(t, entry.Extend("legal@example.com", "hold extended", second, now.AddDate(0, 1, 0)))

		assert.Equal(t, second, *entry.ExpiresAt)
		require.Len(t, entry.Extensions, 2)
		assert.Equal(t, original, entry.Extensions[0].OldExpiresAt)
		assert.Equal(t, first, entry.Extensions[0].NewExpiresAt)
		assert.Equal(t, first, entry.Extensions[1].OldExpiresAt)
		assert.Equal(t, second, entry.Extensions[1].NewExpiresAt)
	})

	t.Run("BackwardExtensionRejected", func(t *testing.T) {
		entry, err := NewEntry("acme", "billing", "inv-1", CategoryBillingData, storedAt)
		require.NoError(t, err)

		err = entry.Extend("legal@example.com", "shorten", entry.ExpiresAt.AddDate(0, 0, -1), now)
		assert.ErrorIs(t, err, ErrInvalidExtension)
		assert.Empty(t, entry.Extensions)
	})

	t.Run("IndefiniteEntryRejected", func(t *testing.T) {
		entry, err := NewEntry("acme", "accounts", "acct-1", CategoryAccountData, storedAt)
		require.NoError(t, err)

		err = entry.Extend("legal@example.com", "hold", now.AddDate(1, 0, 0), now)
		assert.ErrorIs(t, err, ErrIndefiniteRetention)
	})
}

func TestQueueItem(t *testing.T) {
	storedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2034, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("ApprovalRequiredCategory", func(t *testing.T) {
		entry, err := NewEntry("acme", "billing", "inv-1", CategoryBillingData, storedAt)
		require.NoError(t, err)
		policy, err := PolicyFor(entry.Category)
		require.NoError(t, err)

		item := NewQueueItem(entry, policy, "system", "retention window expired")
		assert.Equal(t, QueueItemStatusPendingApproval, item.Status)
		assert.Equal(t, MethodSoftDelete, item.Method)
		assert.Equal(t, "system", item.RequestedBy)
		assert.Equal(t, "retention window expired", item.Reason)

		require.NoError(t, item.Approve("ops@example.com", now))
		assert.Equal(t, QueueItemStatusReady, item.Status)
		require.NotNil(t, item.ApprovedBy)
		assert.Equal(t, "ops@example.com", *item.ApprovedBy)

		// Double approval is a conflict.
		assert.ErrorIs(t, item.Approve("ops@example.com", now), ErrNotPendingApproval)
	})

	t.Run("NoApprovalCategory", func(t *testing.T) {
		entry, err := NewEntry("acme", "logs", "log-1", CategorySystemLogs, storedAt)
		require.NoError(t, err)
		policy, err := PolicyFor(entry.Category)
		require.NoError(t, err)

		item := NewQueueItem(entry, policy, "system", "retention window expired")
		assert.Equal(t, QueueItemStatusReady, item.Status)
		assert.Equal(t, MethodHardDelete, item.Method)
	})
}
