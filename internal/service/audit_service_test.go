package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-integrity-service/internal/model"
)

func seedAuditHistory(t *testing.T, f *fixture) (model.Trip, model.Trip) {
	t.Helper()
	a := trip(8, 10, 1000, 1050)
	f.insert(t, a)
	_, err := f.trips.ValidateAndCommitTrip(context.Background(), admin, trip(9, 11, 1050, 1080), WriteInsert, WriteOptions{})
	require.ErrorIs(t, err, ErrConflict)
	d := trip(12, 14, 1250, 1300)
	f.insert(t, d)
	return a, d
}

func TestSearchAuditTrail(t *testing.T) {
	f := newFixture(t)
	_, d := seedAuditHistory(t, f)

	t.Run("newest first with total", func(t *testing.T) {
		page, err := f.audit.SearchAuditTrail(context.Background(), auditor, AuditSearchOptions{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.TotalCount)
		require.Len(t, page.Entries, 3)
		assert.Equal(t, d.ID.String(), page.Entries[0].EntityID)
	})

	t.Run("by severity", func(t *testing.T) {
		page, err := f.audit.SearchAuditTrail(context.Background(), auditor, AuditSearchOptions{Severities: []model.Severity{model.SeverityError}})
		require.NoError(t, err)
		require.Len(t, page.Entries, 1)
		assert.Equal(t, model.AuditDecisionRejected, page.Entries[0].Decision)
	})

	t.Run("free text over reasons and tags", func(t *testing.T) {
		page, err := f.audit.SearchAuditTrail(context.Background(), auditor, AuditSearchOptions{Search: "LARGE_ODOMETER"})
		require.NoError(t, err)
		require.Len(t, page.Entries, 1)
		assert.Equal(t, d.ID.String(), page.Entries[0].EntityID)
	})

	t.Run("paging", func(t *testing.T) {
		page, err := f.audit.SearchAuditTrail(context.Background(), auditor, AuditSearchOptions{Limit: 1, Offset: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.TotalCount)
		assert.Len(t, page.Entries, 1)
		assert.Equal(t, 1, page.Limit)
		assert.Equal(t, 2, page.Offset)
	})

	t.Run("date window", func(t *testing.T) {
		from := base.Add(31 * 24 * time.Hour)
		page, err := f.audit.SearchAuditTrail(context.Background(), auditor, AuditSearchOptions{DateFrom: &from})
		require.NoError(t, err)
		assert.Empty(t, page.Entries)
	})

	t.Run("unknown severity", func(t *testing.T) {
		_, err := f.audit.SearchAuditTrail(context.Background(), auditor, AuditSearchOptions{Severities: []model.Severity{"fatal"}})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("other organization sees nothing", func(t *testing.T) {
		other := auditor
		other.OrgID = orgB
		page, err := f.audit.SearchAuditTrail(context.Background(), other, AuditSearchOptions{})
		require.NoError(t, err)
		assert.Zero(t, page.TotalCount)
	})

	t.Run("dispatchers cannot read", func(t *testing.T) {
		dispatcher := model.Principal{UserID: admin.UserID, OrgID: orgA, Role: model.UserRoleDispatcher}
		_, err := f.audit.SearchAuditTrail(context.Background(), dispatcher, AuditSearchOptions{})
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})
}

func TestEntityAuditTrail(t *testing.T) {
	f := newFixture(t)
	a, _ := seedAuditHistory(t, f)

	edited := a
	edited.EndKm = 1040
	_, err := f.trips.ValidateAndCommitTrip(context.Background(), admin, edited, WriteUpdate, WriteOptions{})
	require.NoError(t, err)

	entries, err := f.audit.GetEntityAuditTrail(context.Background(), auditor, model.EntityTypeTrip, a.ID.String(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.AuditOpTripUpdate, entries[0].OperationType)
	assert.Equal(t, model.AuditOpTripInsert, entries[1].OperationType)
	assert.Contains(t, entries[0].Payload, "before")
	assert.Contains(t, entries[0].Payload, "after")

	limited, err := f.audit.GetEntityAuditTrail(context.Background(), auditor, model.EntityTypeTrip, a.ID.String(), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = f.audit.GetEntityAuditTrail(context.Background(), auditor, "", a.ID.String(), 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAuditRollups(t *testing.T) {
	f := newFixture(t)
	seedAuditHistory(t, f)

	rollups, err := f.audit.Rollups(context.Background(), auditor, nil, nil)
	require.NoError(t, err)

	counts := map[model.Severity]int64{}
	for _, r := range rollups {
		assert.Equal(t, model.AuditOpTripInsert, r.OperationType)
		assert.Equal(t, base.Add(30*24*time.Hour), r.Day)
		counts[r.Severity] += r.Count
	}
	assert.Equal(t, map[model.Severity]int64{
		model.SeverityInfo:    1,
		model.SeverityError:   1,
		model.SeverityWarning: 1,
	}, counts)

	_, err = f.audit.Rollups(context.Background(), driverPrincipal(driver1), nil, nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestAuditEntriesAreImmutable(t *testing.T) {
	f := newFixture(t)
	result := f.insert(t, trip(8, 10, 1000, 1050))

	dup := result.AuditEntries[0]
	err := f.store.AppendAudit(context.Background(), &dup)
	assert.ErrorIs(t, err, model.ErrAuditImmutable)
	assert.Equal(t, int64(1), f.auditCount(t))
}
