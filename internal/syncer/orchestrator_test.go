// File: internal/syncer/orchestrator_test.go
package syncer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zakpestsos/call-center-profiles-sub000/internal/config"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/document"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/ledger"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/models"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/remote"
	"github.com/zakpestsos/call-center-profiles-sub000/pkg/utils"
)

// stubRemote is a scriptable remote content store
type stubRemote struct {
	mu       sync.Mutex
	pushes   []*models.Profile
	err      error
	errForID string
}

func (s *stubRemote) Push(ctx context.Context, profile *models.Profile) (*remote.PushResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pushes = append(s.pushes, profile)
	if s.err != nil {
		return nil, s.err
	}
	if s.errForID != "" && s.errForID == profile.ProfileID {
		return nil, utils.NewAppError(utils.ErrCodeRemote, "Remote store unreachable", profile.ProfileID)
	}
	return &remote.PushResult{
		RemoteRef: "remote-" + profile.ProfileID,
		RemoteURL: "https://site.test/p/" + profile.ProfileID,
	}, nil
}

func (s *stubRemote) pushCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pushes)
}

func (s *stubRemote) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// brokenDocuments always fails, simulating an unreachable document host
type brokenDocuments struct{}

func (b *brokenDocuments) Create(ctx context.Context, profile *models.Profile, children *models.ChildSet) (*document.CreateResult, error) {
	return nil, utils.NewAppError(utils.ErrCodeDocument, "Document host unreachable", "stub")
}

func (b *brokenDocuments) ModifiedAt(ctx context.Context, ref string) (time.Time, error) {
	return time.Time{}, utils.NewAppError(utils.ErrCodeDocument, "Document host unreachable", "stub")
}

func (b *brokenDocuments) Fetch(ctx context.Context, ref string) (*document.Document, error) {
	return nil, utils.NewAppError(utils.ErrCodeDocument, "Document host unreachable", "stub")
}

// flakyChildStore fails ReplaceAllChildren a set number of times, then
// delegates to the real store
type flakyChildStore struct {
	ledger.Store
	mu       sync.Mutex
	failures int
}

func (s *flakyChildStore) ReplaceAllChildren(ctx context.Context, profileID string, set *models.ChildSet) error {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to begin transaction", "disk I/O error")
	}
	s.mu.Unlock()
	return s.Store.ReplaceAllChildren(ctx, profileID, set)
}

func testSyncConfig() *config.SyncConfig {
	return &config.SyncConfig{
		Enabled:         true,
		Interval:        time.Minute,
		MaxPushAttempts: 3,
		RetryBaseDelay:  time.Minute,
		RetryMaxDelay:   10 * time.Minute,
		LeaseTTL:        time.Minute,
		ProfileTimeout:  10 * time.Second,
	}
}

func newTestLedger(t *testing.T) ledger.Store {
	t.Helper()

	store := ledger.NewSQLiteStore(&ledger.StoreConfig{
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

func createProfile(t *testing.T, store ledger.Store, company string) string {
	t.Helper()

	profileID, err := store.CreateProfile(context.Background(), &models.ProfileInput{
		CompanyName: company,
		Location:    "Dallas, TX",
		Children: models.ChildSet{
			Services: []models.Service{{Name: "General Pest"}},
		},
	})
	require.NoError(t, err)
	return profileID
}

func TestRunAllPushesPendingProfile(t *testing.T) {
	ctx := context.Background()
	store := newTestLedger(t)
	docs := document.NewMemoryStore()
	content := &stubRemote{}
	orch := NewOrchestrator(store, docs, content, testSyncConfig())

	profileID := createProfile(t, store, "ACME Pest Control")

	result, err := orch.RunAll(ctx, TriggerScheduled)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ProfilesScanned)
	assert.Equal(t, 1, result.Pushed)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, content.pushCount())

	profile, err := store.GetProfile(ctx, profileID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, profile.SyncStatus)
	assert.Equal(t, 0, profile.SyncAttempts)
	assert.Equal(t, "remote-"+profileID, profile.RemoteRef)
	require.NotNil(t, profile.LastPushAt)

	pushAction := models.ActionRemotePush
	entries, err := store.GetAuditEntries(ctx, models.AuditFilter{ProfileID: &profileID, Action: &pushAction})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditSuccess, entries[0].Status)

	// The run records its completion time
	raw, err := store.GetSyncState(ctx, ledger.StateLastSyncTime)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
}

func TestRunAllSkipsSyncedProfiles(t *testing.T) {
	ctx := context.Background()
	store := newTestLedger(t)
	content := &stubRemote{}
	orch := NewOrchestrator(store, document.NewMemoryStore(), content, testSyncConfig())

	createProfile(t, store, "ACME Pest Control")

	_, err := orch.RunAll(ctx, TriggerScheduled)
	require.NoError(t, err)
	require.Equal(t, 1, content.pushCount())

	// A second pass finds nothing to do
	result, err := orch.RunAll(ctx, TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Pushed)
	assert.Equal(t, 1, content.pushCount())
}

func TestRunAllIsolatesProfileFailures(t *testing.T) {
	ctx := context.Background()
	store := newTestLedger(t)
	content := &stubRemote{}
	orch := NewOrchestrator(store, document.NewMemoryStore(), content, testSyncConfig())

	badID := createProfile(t, store, "Failing Co")
	goodID := createProfile(t, store, "Working Co")

	content.mu.Lock()
	content.errForID = badID
	content.mu.Unlock()

	result, err := orch.RunAll(ctx, TriggerScheduled)
	require.NoError(t, err)

	assert.Equal(t, 2, result.ProfilesScanned)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Pushed)
	assert.Equal(t, 2, content.pushCount(), "one profile's failure must not stop the run")
	require.Len(t, result.Errors, 1)
	assert.Equal(t, badID, result.Errors[0].ProfileID)

	bad, err := store.GetProfile(ctx, badID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSyncFailed, bad.SyncStatus)
	assert.Equal(t, 1, bad.SyncAttempts)
	require.NotNil(t, bad.LastPushAt)

	good, err := store.GetProfile(ctx, goodID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, good.SyncStatus)
	assert.Equal(t, 0, good.SyncAttempts)
}

func TestPushFailureBackoffAndAbandonment(t *testing.T) {
	ctx := context.Background()
	store := newTestLedger(t)
	content := &stubRemote{}
	orch := NewOrchestrator(store, document.NewMemoryStore(), content, testSyncConfig())

	profileID := createProfile(t, store, "ACME Pest Control")
	content.setErr(errors.New("boom"))

	// First failure
	result, err := orch.RunAll(ctx, TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	// Immediate scheduled re-run sits inside the backoff window
	result, err = orch.RunAll(ctx, TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SkippedBackoff)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, content.pushCount())

	// Manual syncs are forced and bypass the window
	_, err = orch.RunOne(ctx, profileID)
	require.Error(t, err)
	profile, gerr := store.GetProfile(ctx, profileID)
	require.NoError(t, gerr)
	assert.Equal(t, 2, profile.SyncAttempts)

	// Third failure hits the attempt cap and dead-letters the profile
	_, err = orch.RunOne(ctx, profileID)
	require.Error(t, err)
	profile, gerr = store.GetProfile(ctx, profileID)
	require.NoError(t, gerr)
	assert.Equal(t, models.StatusSyncAbandoned, profile.SyncStatus)
	assert.Equal(t, 3, profile.SyncAttempts)

	// Scheduled runs leave abandoned profiles alone
	pushesBefore := content.pushCount()
	result, err = orch.RunAll(ctx, TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, pushesBefore, content.pushCount())

	// A manual sync revives the dead letter once the remote recovers
	content.setErr(nil)
	outcome, err := orch.RunOne(ctx, profileID)
	require.NoError(t, err)
	assert.True(t, outcome.Pushed)

	profile, gerr = store.GetProfile(ctx, profileID)
	require.NoError(t, gerr)
	assert.Equal(t, models.StatusSynced, profile.SyncStatus)
	assert.Equal(t, 0, profile.SyncAttempts)
}

func TestDriftTriggersReimportAndPush(t *testing.T) {
	ctx := context.Background()
	store := newTestLedger(t)
	docs := document.NewMemoryStore()
	content := &stubRemote{}
	orch := NewOrchestrator(store, docs, content, testSyncConfig())

	profileID := createProfile(t, store, "ACME Pest Control")

	// Link a document and settle the profile as synced
	profile, err := store.GetProfile(ctx, profileID)
	require.NoError(t, err)
	created, err := docs.Create(ctx, profile, profile.Children())
	require.NoError(t, err)
	require.NoError(t, store.UpdateProfile(ctx, profileID, &models.ProfileUpdate{
		ClientDocumentRef: &created.DocumentRef,
		EditURL:           &created.EditURL,
	}))
	now := time.Now().UTC()
	require.NoError(t, store.SetSyncStatus(ctx, profileID, models.StatusSynced, 0, &now))

	// An external edit lands in the document
	docs.Put(created.DocumentRef, &document.Document{
		ModifiedAt:  time.Now().UTC().Add(time.Second),
		CompanyName: "ACME Pest Control LLC",
		Location:    "Fort Worth, TX",
		Children: models.ChildSet{
			Services: []models.Service{{Name: "General Pest"}, {Name: "Mosquito"}},
			Policies: []models.Policy{{Title: "Refund Policy"}},
		},
	})

	result, err := orch.RunAll(ctx, TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DriftDetected)
	assert.Equal(t, 1, result.Reimported)
	assert.Equal(t, 1, result.Pushed)

	reloaded, err := store.GetProfile(ctx, profileID)
	require.NoError(t, err)
	assert.Equal(t, "ACME Pest Control LLC", reloaded.CompanyName)
	assert.Equal(t, "Fort Worth, TX", reloaded.Location)
	require.Len(t, reloaded.Services, 2)
	require.Len(t, reloaded.Policies, 1)
	assert.Equal(t, models.StatusSynced, reloaded.SyncStatus)

	// The pushed profile carried the reimported content
	lastPush := content.pushes[content.pushCount()-1]
	assert.Equal(t, "ACME Pest Control LLC", lastPush.CompanyName)
	require.Len(t, lastPush.Services, 2)

	reimportAction := models.ActionReimport
	entries, err := store.GetAuditEntries(ctx, models.AuditFilter{ProfileID: &profileID, Action: &reimportAction})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditSuccess, entries[0].Status)
}

func TestReimportRetriesAfterChildReplacementFailure(t *testing.T) {
	ctx := context.Background()
	store := newTestLedger(t)
	docs := document.NewMemoryStore()
	content := &stubRemote{}
	flaky := &flakyChildStore{Store: store, failures: 1}
	orch := NewOrchestrator(flaky, docs, content, testSyncConfig())

	profileID := createProfile(t, store, "ACME Pest Control")

	profile, err := store.GetProfile(ctx, profileID)
	require.NoError(t, err)
	created, err := docs.Create(ctx, profile, profile.Children())
	require.NoError(t, err)
	require.NoError(t, store.UpdateProfile(ctx, profileID, &models.ProfileUpdate{
		ClientDocumentRef: &created.DocumentRef,
	}))
	now := time.Now().UTC()
	require.NoError(t, store.SetSyncStatus(ctx, profileID, models.StatusSynced, 0, &now))

	// External edit: new name, new services
	docs.Put(created.DocumentRef, &document.Document{
		ModifiedAt:  time.Now().UTC().Add(time.Second),
		CompanyName: "ACME LLC",
		Children: models.ChildSet{
			Services: []models.Service{{Name: "Mosquito"}},
		},
	})

	// Pass 1: child replacement fails mid-reimport. Nothing may advance
	// last_updated, or the drift signal is consumed and the edit is lost.
	result, err := orch.RunAll(ctx, TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DriftDetected)
	assert.Equal(t, 0, result.Reimported)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, content.pushCount())

	mid, err := store.GetProfile(ctx, profileID)
	require.NoError(t, err)
	assert.Equal(t, "ACME Pest Control", mid.CompanyName, "scalar merge must not outrun child replacement")
	require.Len(t, mid.Services, 1)
	assert.Equal(t, "General Pest", mid.Services[0].Name)

	// Pass 2: the store recovered; drift is still detectable and the whole
	// reimport replays.
	result, err = orch.RunAll(ctx, TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DriftDetected)
	assert.Equal(t, 1, result.Reimported)
	assert.Equal(t, 1, result.Pushed)

	after, err := store.GetProfile(ctx, profileID)
	require.NoError(t, err)
	assert.Equal(t, "ACME LLC", after.CompanyName)
	require.Len(t, after.Services, 1)
	assert.Equal(t, "Mosquito", after.Services[0].Name)
	assert.Equal(t, models.StatusSynced, after.SyncStatus)
}

func TestUnreachableDocumentHostLeavesStatusAlone(t *testing.T) {
	ctx := context.Background()
	store := newTestLedger(t)
	docs := document.NewMemoryStore()
	content := &stubRemote{}

	// Settle a clean, synced profile with a linked document
	profileID := createProfile(t, store, "ACME Pest Control")
	profile, err := store.GetProfile(ctx, profileID)
	require.NoError(t, err)
	created, err := docs.Create(ctx, profile, profile.Children())
	require.NoError(t, err)
	require.NoError(t, store.UpdateProfile(ctx, profileID, &models.ProfileUpdate{
		ClientDocumentRef: &created.DocumentRef,
	}))
	now := time.Now().UTC()
	require.NoError(t, store.SetSyncStatus(ctx, profileID, models.StatusSynced, 0, &now))
	docs.Touch(created.DocumentRef, now.Add(-time.Minute))

	// The document host goes down for one pass
	broken := NewOrchestrator(store, &brokenDocuments{}, content, testSyncConfig())
	result, err := broken.RunAll(ctx, TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, content.pushCount(), "an unreadable document must block the push")

	reloaded, err := store.GetProfile(ctx, profileID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, reloaded.SyncStatus,
		"a drift-read failure must not change sync status")
	assert.Equal(t, 0, reloaded.SyncAttempts)

	reimportAction := models.ActionReimport
	entries, err := store.GetAuditEntries(ctx, models.AuditFilter{ProfileID: &profileID, Action: &reimportAction})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditError, entries[0].Status)

	// Host recovers with no edits anywhere: nothing to push
	healthy := NewOrchestrator(store, docs, content, testSyncConfig())
	result, err = healthy.RunAll(ctx, TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 0, result.Pushed)
	assert.Equal(t, 0, content.pushCount(), "recovery with no edits must not re-push")
}

func TestLeaseContention(t *testing.T) {
	ctx := context.Background()
	store := newTestLedger(t)
	content := &stubRemote{}
	orch := NewOrchestrator(store, document.NewMemoryStore(), content, testSyncConfig())

	profileID := createProfile(t, store, "ACME Pest Control")

	// Another worker holds the lease
	acquired, err := store.AcquireLease(ctx, profileID, "other-worker", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	_, err = orch.RunOne(ctx, profileID)
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeLocked, utils.ErrorCode(err))

	result, err := orch.RunAll(ctx, TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SkippedLease)
	assert.Equal(t, 0, content.pushCount())

	// Lease released, next pass proceeds
	require.NoError(t, store.ReleaseLease(ctx, profileID, "other-worker"))
	result, err = orch.RunAll(ctx, TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pushed)
}

func TestRunOneMissingProfile(t *testing.T) {
	store := newTestLedger(t)
	orch := NewOrchestrator(store, document.NewMemoryStore(), &stubRemote{}, testSyncConfig())

	_, err := orch.RunOne(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeNotFound, utils.ErrorCode(err))
}
