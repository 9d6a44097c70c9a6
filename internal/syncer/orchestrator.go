// File: internal/syncer/orchestrator.go
package syncer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zakpestsos/call-center-profiles-sub000/internal/config"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/document"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/ledger"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/metrics"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/models"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/remote"
	"github.com/zakpestsos/call-center-profiles-sub000/pkg/utils"
)

// Sync run triggers
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// Skip reasons for profiles examined but not pushed
const (
	SkipNone      = ""
	SkipInSync    = "in_sync"
	SkipLease     = "lease_held"
	SkipBackoff   = "backoff"
	SkipAbandoned = "abandoned"
)

// Orchestrator runs the detect-reimport-push pipeline. All configuration is
// passed in explicitly at construction; nothing is read from ambient state
// while a run is in flight.
type Orchestrator struct {
	store     ledger.Store
	documents document.Store
	remote    remote.ContentStore
	detector  *Detector
	config    *config.SyncConfig
	logger    *logrus.Entry
	workerID  string

	metricsManager *metrics.Manager
}

// NewOrchestrator creates a new sync orchestrator
func NewOrchestrator(
	store ledger.Store,
	documents document.Store,
	contentStore remote.ContentStore,
	cfg *config.SyncConfig,
) *Orchestrator {
	hostname, _ := os.Hostname()
	suffix, _ := utils.GenerateID()
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}

	return &Orchestrator{
		store:     store,
		documents: documents,
		remote:    contentStore,
		detector:  NewDetector(documents),
		config:    cfg,
		logger:    utils.ComponentLogger("sync_orchestrator"),
		workerID:  fmt.Sprintf("%s-%s", hostname, suffix),
	}
}

// SetMetricsManager attaches the metrics manager for sync metrics
func (o *Orchestrator) SetMetricsManager(m *metrics.Manager) {
	o.metricsManager = m
}

// RunResult summarizes one complete sync pass
type RunResult struct {
	Trigger         string        `json:"trigger"`
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
	ProfilesScanned int           `json:"profiles_scanned"`
	DriftDetected   int           `json:"drift_detected"`
	Reimported      int           `json:"reimported"`
	Pushed          int           `json:"pushed"`
	Failed          int           `json:"failed"`
	Abandoned       int           `json:"abandoned"`
	SkippedBackoff  int           `json:"skipped_backoff"`
	SkippedLease    int           `json:"skipped_lease"`
	Errors          []RunError    `json:"errors,omitempty"`
}

// RunError records one profile's failure inside an otherwise continuing run
type RunError struct {
	ProfileID string `json:"profile_id"`
	Error     string `json:"error"`
}

// ProfileOutcome describes what happened to a single profile during sync
type ProfileOutcome struct {
	ProfileID  string            `json:"profile_id"`
	Drifted    bool              `json:"drifted"`
	Reimported bool              `json:"reimported"`
	Pushed     bool              `json:"pushed"`
	Abandoned  bool              `json:"abandoned"`
	Skipped    string            `json:"skipped,omitempty"`
	Status     models.SyncStatus `json:"status"`
	Error      error             `json:"-"`
}

// RunAll processes every profile in ledger order. A profile's failure is
// recorded and the run moves on; only a profile listing failure aborts the
// run itself.
func (o *Orchestrator) RunAll(ctx context.Context, trigger string) (*RunResult, error) {
	result := &RunResult{
		Trigger:   trigger,
		StartedAt: time.Now().UTC(),
	}

	forced := trigger == TriggerManual

	profiles, err := o.store.ListProfiles(ctx)
	if err != nil {
		o.recordRun(trigger, "error", result)
		return nil, err
	}

	o.logger.WithFields(logrus.Fields{
		"trigger":  trigger,
		"profiles": len(profiles),
	}).Info("Sync run started")

	for _, profile := range profiles {
		select {
		case <-ctx.Done():
			result.Duration = time.Since(result.StartedAt)
			o.recordRun(trigger, "cancelled", result)
			return result, ctx.Err()
		default:
		}

		result.ProfilesScanned++
		if o.metricsManager != nil {
			o.metricsManager.GetPrometheusMetrics().RecordProfileScanned()
		}

		outcome := o.syncProfile(ctx, profile.ProfileID, forced)
		o.tally(result, outcome)
	}

	result.Duration = time.Since(result.StartedAt)

	if err := o.store.SetSyncState(ctx, ledger.StateLastSyncTime,
		result.StartedAt.Format(time.RFC3339Nano)); err != nil {
		o.logger.WithError(err).Warn("Failed to record last sync time")
	}

	if err := o.store.AppendAudit(ctx, &models.AuditEntry{
		Timestamp: time.Now().UTC(),
		Action:    models.ActionSyncRun,
		Source:    models.StoreSyncEngine,
		Target:    models.StoreLedger,
		Status:    models.AuditSuccess,
		Detail: fmt.Sprintf("%s run: %d scanned, %d reimported, %d pushed, %d failed, %d abandoned",
			trigger, result.ProfilesScanned, result.Reimported, result.Pushed,
			result.Failed, result.Abandoned),
	}); err != nil {
		o.logger.WithError(err).Warn("Failed to append sync run audit entry")
	}

	o.recordRun(trigger, "success", result)

	o.logger.WithFields(logrus.Fields{
		"trigger":    trigger,
		"scanned":    result.ProfilesScanned,
		"reimported": result.Reimported,
		"pushed":     result.Pushed,
		"failed":     result.Failed,
		"duration":   result.Duration,
	}).Info("Sync run completed")

	return result, nil
}

// RunOne syncs a single profile on demand. Manual invocations are forced:
// they ignore the retry backoff window and revive abandoned profiles.
func (o *Orchestrator) RunOne(ctx context.Context, profileID string) (*ProfileOutcome, error) {
	profile, err := o.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Profile not found", profileID)
	}

	outcome := o.syncProfile(ctx, profileID, true)

	if outcome.Skipped == SkipLease {
		return outcome, utils.NewAppError(utils.ErrCodeLocked,
			"Profile is being synced by another worker", profileID)
	}
	return outcome, outcome.Error
}

// syncProfile runs the full pipeline for one profile: lease, drift check,
// reimport, eligibility, push. Always returns an outcome, never panics the
// run.
func (o *Orchestrator) syncProfile(ctx context.Context, profileID string, forced bool) *ProfileOutcome {
	outcome := &ProfileOutcome{ProfileID: profileID}

	pctx := ctx
	if o.config.ProfileTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, o.config.ProfileTimeout)
		defer cancel()
	}

	acquired, err := o.store.AcquireLease(pctx, profileID, o.workerID, o.config.LeaseTTL)
	if err != nil {
		outcome.Error = err
		return outcome
	}
	if !acquired {
		outcome.Skipped = SkipLease
		if o.metricsManager != nil {
			o.metricsManager.GetPrometheusMetrics().RecordLeaseContention()
		}
		o.logger.WithField("profile_id", profileID).Debug("Lease held elsewhere, skipping")
		return outcome
	}
	defer func() {
		if err := o.store.ReleaseLease(context.Background(), profileID, o.workerID); err != nil {
			o.logger.WithError(err).WithField("profile_id", profileID).Warn("Failed to release lease")
		}
	}()

	profile, err := o.store.GetProfile(pctx, profileID)
	if err != nil {
		outcome.Error = err
		return outcome
	}
	if profile == nil {
		outcome.Error = utils.NewAppError(utils.ErrCodeNotFound, "Profile not found", profileID)
		return outcome
	}

	// Step 1: drift detection and reimport. The document wins wholesale.
	// An unreadable document skips the profile this pass with its status
	// untouched: flipping a clean profile to sync_failed here would re-push
	// unchanged data once the document host recovers.
	drifted, docModifiedAt, err := o.detector.HasDrift(pctx, profile)
	if err != nil {
		o.auditError(pctx, profileID, models.ActionReimport,
			models.StoreCompanyDocument, models.StoreLedger,
			"drift check failed", err)
		outcome.Status = profile.SyncStatus
		outcome.Error = err
		return outcome
	}

	if drifted {
		outcome.Drifted = true
		if o.metricsManager != nil {
			o.metricsManager.GetPrometheusMetrics().RecordDriftDetected()
		}
		if err := o.reimport(pctx, profile, docModifiedAt); err != nil {
			outcome.Status = profile.SyncStatus
			outcome.Error = err
			return outcome
		}
		outcome.Reimported = true

		// Reload: the reimport moved last_updated and replaced children.
		profile, err = o.store.GetProfile(pctx, profileID)
		if err != nil || profile == nil {
			outcome.Error = err
			return outcome
		}
	}

	outcome.Status = profile.SyncStatus

	// Step 2: eligibility
	switch profile.SyncStatus {
	case models.StatusSynced:
		outcome.Skipped = SkipInSync
		return outcome
	case models.StatusSyncAbandoned:
		if !forced {
			outcome.Skipped = SkipAbandoned
			return outcome
		}
	case models.StatusSyncFailed:
		if !forced && o.inBackoff(profile) {
			outcome.Skipped = SkipBackoff
			return outcome
		}
	}

	// Step 3: push
	return o.push(pctx, profile, outcome)
}

// reimport reads the document back into the ledger: a transactional
// replacement of all four child collections, then the scalar merge. The
// scalar merge advances last_updated, so it must come last. A failure partway
// through leaves last_updated behind the document mtime and the next pass
// re-detects the drift and retries the whole reimport (child replacement is
// idempotent).
func (o *Orchestrator) reimport(ctx context.Context, profile *models.Profile, docModifiedAt time.Time) error {
	doc, err := o.documents.Fetch(ctx, profile.ClientDocumentRef)
	if err != nil {
		o.auditError(ctx, profile.ProfileID, models.ActionReimport,
			models.StoreCompanyDocument, models.StoreLedger,
			"document fetch failed", err)
		o.recordReimport("error")
		return err
	}

	if err := o.store.ReplaceAllChildren(ctx, profile.ProfileID, &doc.Children); err != nil {
		o.auditError(ctx, profile.ProfileID, models.ActionReimport,
			models.StoreCompanyDocument, models.StoreLedger,
			"child replacement failed", err)
		o.recordReimport("error")
		return err
	}

	if err := o.store.UpdateProfile(ctx, profile.ProfileID, doc.ProfileUpdate()); err != nil {
		o.auditError(ctx, profile.ProfileID, models.ActionReimport,
			models.StoreCompanyDocument, models.StoreLedger,
			"profile merge failed", err)
		o.recordReimport("error")
		return err
	}

	// Fresh ledger data means the remote copy is stale again. Attempts reset:
	// this is new content, not a retry of the old failure.
	if err := o.store.SetSyncStatus(ctx, profile.ProfileID,
		models.StatusPendingRemoteSync, 0, profile.LastPushAt); err != nil {
		return err
	}

	if err := o.store.AppendAudit(ctx, &models.AuditEntry{
		Timestamp: time.Now().UTC(),
		ProfileID: profile.ProfileID,
		Action:    models.ActionReimport,
		Source:    models.StoreCompanyDocument,
		Target:    models.StoreLedger,
		Status:    models.AuditSuccess,
		Detail: fmt.Sprintf("document modified at %s, %d child rows",
			docModifiedAt.Format(time.RFC3339), doc.Children.Total()),
	}); err != nil {
		o.logger.WithError(err).Warn("Failed to append reimport audit entry")
	}

	o.recordReimport("success")
	return nil
}

// push sends the profile to the remote content store and settles the new
// sync status.
func (o *Orchestrator) push(ctx context.Context, profile *models.Profile, outcome *ProfileOutcome) *ProfileOutcome {
	start := time.Now()
	result, err := o.remote.Push(ctx, profile)
	duration := time.Since(start)
	now := time.Now().UTC()

	if err != nil {
		attempts := profile.SyncAttempts + 1
		status := models.StatusSyncFailed
		detail := fmt.Sprintf("push attempt %d/%d failed", attempts, o.config.MaxPushAttempts)

		if attempts >= o.config.MaxPushAttempts {
			status = models.StatusSyncAbandoned
			detail = fmt.Sprintf("abandoned after %d push attempts", attempts)
			outcome.Abandoned = true
			if o.metricsManager != nil {
				o.metricsManager.GetPrometheusMetrics().RecordProfileAbandoned()
			}
		}

		if serr := o.store.SetSyncStatus(ctx, profile.ProfileID, status, attempts, &now); serr != nil {
			o.logger.WithError(serr).WithField("profile_id", profile.ProfileID).Warn("Failed to record push failure")
		}
		o.auditError(ctx, profile.ProfileID, models.ActionRemotePush,
			models.StoreLedger, models.StoreRemote, detail, err)
		o.recordPush("error", duration)

		outcome.Status = status
		outcome.Error = err
		return outcome
	}

	if err := o.store.SetRemoteRef(ctx, profile.ProfileID, result.RemoteRef, result.RemoteURL); err != nil {
		outcome.Error = err
		return outcome
	}
	if err := o.store.SetSyncStatus(ctx, profile.ProfileID, models.StatusSynced, 0, &now); err != nil {
		outcome.Error = err
		return outcome
	}

	if err := o.store.AppendAudit(ctx, &models.AuditEntry{
		Timestamp: now,
		ProfileID: profile.ProfileID,
		Action:    models.ActionRemotePush,
		Source:    models.StoreLedger,
		Target:    models.StoreRemote,
		Status:    models.AuditSuccess,
		Detail:    fmt.Sprintf("remote ref %s", result.RemoteRef),
	}); err != nil {
		o.logger.WithError(err).Warn("Failed to append push audit entry")
	}
	o.recordPush("success", duration)

	outcome.Pushed = true
	outcome.Status = models.StatusSynced
	return outcome
}

// inBackoff reports whether a failed profile is still inside its retry
// window: base_delay * 2^(attempts-1), capped at max_delay.
func (o *Orchestrator) inBackoff(profile *models.Profile) bool {
	if profile.LastPushAt == nil || profile.SyncAttempts == 0 {
		return false
	}

	delay := o.config.RetryBaseDelay << uint(profile.SyncAttempts-1)
	if delay > o.config.RetryMaxDelay || delay <= 0 {
		delay = o.config.RetryMaxDelay
	}

	return time.Since(*profile.LastPushAt) < delay
}

func (o *Orchestrator) tally(result *RunResult, outcome *ProfileOutcome) {
	if outcome.Drifted {
		result.DriftDetected++
	}
	if outcome.Reimported {
		result.Reimported++
	}
	if outcome.Pushed {
		result.Pushed++
	}
	if outcome.Abandoned {
		result.Abandoned++
	}
	switch outcome.Skipped {
	case SkipBackoff:
		result.SkippedBackoff++
	case SkipLease:
		result.SkippedLease++
	}
	if outcome.Error != nil {
		result.Failed++
		result.Errors = append(result.Errors, RunError{
			ProfileID: outcome.ProfileID,
			Error:     outcome.Error.Error(),
		})
		o.logger.WithError(outcome.Error).WithField("profile_id", outcome.ProfileID).Error("Profile sync failed")
	}
}

func (o *Orchestrator) auditError(ctx context.Context, profileID, action, source, target, detail string, err error) {
	if aerr := o.store.AppendAudit(ctx, &models.AuditEntry{
		Timestamp:    time.Now().UTC(),
		ProfileID:    profileID,
		Action:       action,
		Source:       source,
		Target:       target,
		Status:       models.AuditError,
		Detail:       detail,
		ErrorMessage: err.Error(),
	}); aerr != nil {
		o.logger.WithError(aerr).WithField("profile_id", profileID).Warn("Failed to append audit entry")
	}
}

func (o *Orchestrator) recordRun(trigger, status string, result *RunResult) {
	if o.metricsManager != nil {
		o.metricsManager.GetPrometheusMetrics().RecordSyncRun(trigger, status, result.Duration)
	}
}

func (o *Orchestrator) recordReimport(status string) {
	if o.metricsManager != nil {
		o.metricsManager.GetPrometheusMetrics().RecordReimport(status)
	}
}

func (o *Orchestrator) recordPush(status string, duration time.Duration) {
	if o.metricsManager != nil {
		o.metricsManager.GetPrometheusMetrics().RecordRemotePush(status, duration)
	}
}
