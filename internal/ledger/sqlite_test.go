// File: internal/ledger/sqlite_test.go
package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zakpestsos/call-center-profiles-sub000/internal/models"
	"github.com/zakpestsos/call-center-profiles-sub000/pkg/utils"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store := NewSQLiteStore(&StoreConfig{
		Type:             "sqlite",
		ConnectionString: filepath.Join(t.TempDir(), "ledger.db"),
		MaxConnections:   4,
		MaxIdleTime:      time.Minute,
	})
	require.NoError(t, store.Connect())
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { store.Close() })

	return store
}

func testInput(company string) *models.ProfileInput {
	return &models.ProfileInput{
		CompanyName:     company,
		Location:        "Dallas, TX",
		Timezone:        "America/Chicago",
		Phone:           "555-0100",
		Email:           "office@acmepest.test",
		PestsNotCovered: "Raccoons",
		CustomFields:    map[string]string{"salesRep": "Dana"},
		Children: models.ChildSet{
			Services: []models.Service{
				{
					Name:      "General Pest",
					Frequency: "Quarterly",
					PricingTiers: []models.PricingTier{
						{FirstPrice: "$150", RecurringPrice: "$45", SqftMax: 2500},
						{FirstPrice: "$175", RecurringPrice: "$55", SqftMin: 2501},
					},
				},
			},
			Technicians: []models.Technician{
				{Name: "Jo Vega", Role: "Technician", ZipCodes: []string{"75001", "75002"}},
			},
			Policies: []models.Policy{
				{Title: "Refund Policy", SortOrder: 1, Options: []string{"Full refund", "Credit"}},
			},
			ServiceAreas: []models.ServiceArea{
				{Zip: "75001", City: "Addison", InService: true},
			},
		},
	}
}

func TestCreateAndGetProfile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	profileID, err := store.CreateProfile(ctx, testInput("ACME Pest Control"))
	require.NoError(t, err)
	require.NotEmpty(t, profileID)

	profile, err := store.GetProfile(ctx, profileID)
	require.NoError(t, err)
	require.NotNil(t, profile)

	assert.Equal(t, "ACME Pest Control", profile.CompanyName)
	assert.Equal(t, "America/Chicago", profile.Timezone)
	assert.Equal(t, models.StatusPendingRemoteSync, profile.SyncStatus)
	assert.Equal(t, 0, profile.SyncAttempts)
	assert.Nil(t, profile.LastPushAt)
	assert.Equal(t, "Dana", profile.CustomFields["salesRep"])
	assert.False(t, profile.LastUpdated.IsZero())

	require.Len(t, profile.Services, 1)
	require.Len(t, profile.Services[0].PricingTiers, 2)
	assert.Equal(t, "$175", profile.Services[0].PricingTiers[1].FirstPrice)
	require.Len(t, profile.Technicians, 1)
	assert.Equal(t, []string{"75001", "75002"}, profile.Technicians[0].ZipCodes)
	require.Len(t, profile.Policies, 1)
	require.Len(t, profile.ServiceAreas, 1)

	// Creation leaves an audit trail
	entries, err := store.GetAuditEntries(ctx, models.AuditFilter{ProfileID: &profileID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionCreateProfile, entries[0].Action)
	assert.Equal(t, models.AuditSuccess, entries[0].Status)
}

func TestCreateProfileDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	input := testInput("ACME Pest Control")
	input.ProfileID = "fixed-id"

	_, err := store.CreateProfile(ctx, input)
	require.NoError(t, err)

	_, err = store.CreateProfile(ctx, input)
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeDuplicate, utils.ErrorCode(err))
}

func TestGetProfileMissing(t *testing.T) {
	store := newTestStore(t)

	profile, err := store.GetProfile(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestUpdateProfileMergesFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	profileID, err := store.CreateProfile(ctx, testInput("ACME Pest Control"))
	require.NoError(t, err)

	before, err := store.GetProfile(ctx, profileID)
	require.NoError(t, err)

	newName := "ACME Pest Control LLC"
	newBulletin := "Now serving Fort Worth"
	require.NoError(t, store.UpdateProfile(ctx, profileID, &models.ProfileUpdate{
		CompanyName: &newName,
		Bulletin:    &newBulletin,
	}))

	after, err := store.GetProfile(ctx, profileID)
	require.NoError(t, err)

	assert.Equal(t, newName, after.CompanyName)
	assert.Equal(t, newBulletin, after.Bulletin)
	// Untouched fields survive the merge
	assert.Equal(t, before.Phone, after.Phone)
	assert.Equal(t, before.Timezone, after.Timezone)
	// Business updates move the drift clock forward, never backward
	assert.False(t, after.LastUpdated.Before(before.LastUpdated))
}

func TestUpdateProfileMissing(t *testing.T) {
	store := newTestStore(t)

	name := "x"
	err := store.UpdateProfile(context.Background(), "nope", &models.ProfileUpdate{CompanyName: &name})
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeNotFound, utils.ErrorCode(err))
}

func TestSetSyncStatusLeavesLastUpdatedAlone(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	profileID, err := store.CreateProfile(ctx, testInput("ACME Pest Control"))
	require.NoError(t, err)

	before, err := store.GetProfile(ctx, profileID)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, store.SetSyncStatus(ctx, profileID, models.StatusSynced, 0, &now))

	after, err := store.GetProfile(ctx, profileID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusSynced, after.SyncStatus)
	require.NotNil(t, after.LastPushAt)
	assert.True(t, before.LastUpdated.Equal(after.LastUpdated),
		"control-field writes must not move last_updated")
}

func TestSetSyncStatusValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SetSyncStatus(ctx, "any", models.SyncStatus("weird"), 0, nil)
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeValidation, utils.ErrorCode(err))

	err = store.SetSyncStatus(ctx, "missing", models.StatusSynced, 0, nil)
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeNotFound, utils.ErrorCode(err))
}

func TestSetRemoteRef(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	profileID, err := store.CreateProfile(ctx, testInput("ACME Pest Control"))
	require.NoError(t, err)

	require.NoError(t, store.SetRemoteRef(ctx, profileID, "remote-1", "https://site.test/p/remote-1"))

	profile, err := store.GetProfile(ctx, profileID)
	require.NoError(t, err)
	assert.Equal(t, "remote-1", profile.RemoteRef)
	assert.Equal(t, "https://site.test/p/remote-1", profile.RemoteURL)
}

func TestReplaceAllChildren(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	profileID, err := store.CreateProfile(ctx, testInput("ACME Pest Control"))
	require.NoError(t, err)

	replacement := &models.ChildSet{
		Services: []models.Service{
			{Name: "Mosquito"},
			{Name: "Termite"},
		},
		ServiceAreas: []models.ServiceArea{
			{Zip: "75050", InService: true},
		},
	}
	require.NoError(t, store.ReplaceAllChildren(ctx, profileID, replacement))

	profile, err := store.GetProfile(ctx, profileID)
	require.NoError(t, err)

	// Old rows are gone wholesale, including kinds absent from the new set
	require.Len(t, profile.Services, 2)
	assert.Equal(t, "Mosquito", profile.Services[0].Name)
	assert.Empty(t, profile.Technicians)
	assert.Empty(t, profile.Policies)
	require.Len(t, profile.ServiceAreas, 1)
}

func TestAuditEntriesFilterAndOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, action := range []string{models.ActionRemotePush, models.ActionReimport, models.ActionRemotePush} {
		require.NoError(t, store.AppendAudit(ctx, &models.AuditEntry{
			ProfileID: "p1",
			Action:    action,
			Source:    models.StoreLedger,
			Target:    models.StoreRemote,
			Status:    models.AuditSuccess,
			Detail:    string(rune('a' + i)),
		}))
	}
	require.NoError(t, store.AppendAudit(ctx, &models.AuditEntry{
		ProfileID: "p2",
		Action:    models.ActionRemotePush,
		Source:    models.StoreLedger,
		Target:    models.StoreRemote,
		Status:    models.AuditError,
	}))

	pushAction := models.ActionRemotePush
	p1 := "p1"
	entries, err := store.GetAuditEntries(ctx, models.AuditFilter{ProfileID: &p1, Action: &pushAction})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Newest first
	assert.Equal(t, "c", entries[0].Detail)
	assert.Equal(t, "a", entries[1].Detail)

	status := models.AuditError
	entries, err = store.GetAuditEntries(ctx, models.AuditFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "p2", entries[0].ProfileID)
}

func TestSyncState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	value, err := store.GetSyncState(ctx, StateLastSyncTime)
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, store.SetSyncState(ctx, StateLastSyncTime, "first"))
	require.NoError(t, store.SetSyncState(ctx, StateLastSyncTime, "second"))

	value, err = store.GetSyncState(ctx, StateLastSyncTime)
	require.NoError(t, err)
	assert.Equal(t, "second", value)
}

func TestLeaseLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	acquired, err := store.AcquireLease(ctx, "p1", "worker-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	// Held lease blocks other workers
	acquired, err = store.AcquireLease(ctx, "p1", "worker-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired)

	// Releasing frees it
	require.NoError(t, store.ReleaseLease(ctx, "p1", "worker-a"))
	acquired, err = store.AcquireLease(ctx, "p1", "worker-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	// A wrong-holder release is a no-op
	require.NoError(t, store.ReleaseLease(ctx, "p1", "worker-a"))
	acquired, err = store.AcquireLease(ctx, "p1", "worker-c", time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired)
}

func TestLeaseExpiry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	acquired, err := store.AcquireLease(ctx, "p1", "worker-a", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	time.Sleep(25 * time.Millisecond)

	// Expired leases are taken over, crashed workers cannot wedge a profile
	acquired, err = store.AcquireLease(ctx, "p1", "worker-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestGetStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id1, err := store.CreateProfile(ctx, testInput("Company One"))
	require.NoError(t, err)
	_, err = store.CreateProfile(ctx, testInput("Company Two"))
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, store.SetSyncStatus(ctx, id1, models.StatusSynced, 0, &now))
	require.NoError(t, store.SetSyncState(ctx, StateLastSyncTime, now.Format(time.RFC3339Nano)))

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.TotalProfiles)
	assert.Equal(t, int64(1), stats.ProfilesByStatus[string(models.StatusSynced)])
	assert.Equal(t, int64(1), stats.ProfilesByStatus[string(models.StatusPendingRemoteSync)])
	assert.Equal(t, int64(2), stats.TotalAuditEntries)
	require.NotNil(t, stats.LastSyncTime)
}
