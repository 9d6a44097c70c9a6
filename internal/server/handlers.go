// File: internal/server/handlers.go
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/zakpestsos/call-center-profiles-sub000/internal/models"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/syncer"
)

// Health Handlers

// healthHandler returns basic health status
func (s *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":          "healthy",
		"timestamp":       time.Now().UTC().Format(time.RFC3339Nano),
		"metrics_enabled": s.config.EnableMetrics,
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// detailedHealthHandler returns per-component health status
func (s *HTTPServer) detailedHealthHandler(w http.ResponseWriter, r *http.Request) {
	ledgerHealth := s.store.GetHealth()

	status := "healthy"
	if !ledgerHealth.Healthy {
		status = "degraded"
	}

	health := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now(),
		"components": map[string]interface{}{
			"ledger":    ledgerHealth,
			"scheduler": s.scheduler.IsRunning(),
		},
	}

	s.writeJSON(w, http.StatusOK, health)
}

// statsHandler returns application statistics
func (s *HTTPServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	ledgerStats, err := s.store.GetStats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve ledger stats", err)
		return
	}

	stats := map[string]interface{}{
		"timestamp": time.Now(),
		"ledger":    ledgerStats,
		"scheduler": s.scheduler.GetStats(),
	}

	s.writeJSON(w, http.StatusOK, stats)
}

// Profile Handlers

// createProfileHandler handles intake submissions. Accepts either a form
// encoded body or a JSON object of flat bracket-path keys; both go through
// the same decoder.
func (s *HTTPServer) createProfileHandler(w http.ResponseWriter, r *http.Request) {
	input, err := s.decodeIntake(r)
	if err != nil {
		s.writeError(w, statusForError(err), "Invalid intake submission", err)
		return
	}

	profileID, err := s.store.CreateProfile(r.Context(), input)
	if err != nil {
		s.writeError(w, statusForError(err), "Failed to create profile", err)
		return
	}

	response := map[string]interface{}{
		"profile_id":  profileID,
		"sync_status": models.StatusPendingRemoteSync,
	}

	// Seed the company document. The profile row already exists; a document
	// host outage must not lose the intake, so failure is recorded and the
	// profile is returned without a document link.
	if docRef, editURL, err := s.seedDocument(r, profileID); err != nil {
		s.logger.WithError(err).WithField("profile_id", profileID).Error("Document seeding failed")
		response["document_error"] = err.Error()
	} else {
		response["document_ref"] = docRef
		response["edit_url"] = editURL
	}

	s.writeJSON(w, http.StatusCreated, response)
}

// decodeIntake parses the request body into a ProfileInput
func (s *HTTPServer) decodeIntake(r *http.Request) (*models.ProfileInput, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "application/json") {
		var form map[string]string
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			return nil, err
		}
		return s.decoder.Decode(form)
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return s.decoder.DecodeValues(r.PostForm)
}

// seedDocument creates the per-company document and links it to the profile
func (s *HTTPServer) seedDocument(r *http.Request, profileID string) (string, string, error) {
	profile, err := s.store.GetProfile(r.Context(), profileID)
	if err != nil {
		return "", "", err
	}

	result, err := s.documents.Create(r.Context(), profile, profile.Children())
	if err != nil {
		if aerr := s.store.AppendAudit(r.Context(), &models.AuditEntry{
			Timestamp:    time.Now().UTC(),
			ProfileID:    profileID,
			Action:       models.ActionDocumentSeed,
			Source:       models.StoreLedger,
			Target:       models.StoreCompanyDocument,
			Status:       models.AuditError,
			Detail:       "document seeding failed",
			ErrorMessage: err.Error(),
		}); aerr != nil {
			s.logger.WithError(aerr).Warn("Failed to append audit entry")
		}
		return "", "", err
	}

	if err := s.store.UpdateProfile(r.Context(), profileID, &models.ProfileUpdate{
		ClientDocumentRef: &result.DocumentRef,
		EditURL:           &result.EditURL,
	}); err != nil {
		return "", "", err
	}

	if err := s.store.AppendAudit(r.Context(), &models.AuditEntry{
		Timestamp: time.Now().UTC(),
		ProfileID: profileID,
		Action:    models.ActionDocumentSeed,
		Source:    models.StoreLedger,
		Target:    models.StoreCompanyDocument,
		Status:    models.AuditSuccess,
		Detail:    "document ref " + result.DocumentRef,
	}); err != nil {
		s.logger.WithError(err).Warn("Failed to append audit entry")
	}

	return result.DocumentRef, result.EditURL, nil
}

// listProfilesHandler lists all profiles without children
func (s *HTTPServer) listProfilesHandler(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.store.ListProfiles(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve profiles", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"profiles": profiles,
		"total":    len(profiles),
	})
}

// getProfileHandler gets a profile with all child collections
func (s *HTTPServer) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	profileID := mux.Vars(r)["id"]

	profile, err := s.store.GetProfile(r.Context(), profileID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve profile", err)
		return
	}
	if profile == nil {
		s.writeError(w, http.StatusNotFound, "Profile not found", nil)
		return
	}

	s.writeJSON(w, http.StatusOK, profile)
}

// updateProfileHandler merges a partial update into a profile
func (s *HTTPServer) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	profileID := mux.Vars(r)["id"]

	var update models.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if update.IsEmpty() {
		s.writeError(w, http.StatusBadRequest, "Update carries no fields", nil)
		return
	}

	if err := s.store.UpdateProfile(r.Context(), profileID, &update); err != nil {
		s.writeError(w, statusForError(err), "Failed to update profile", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Profile updated",
		"profile_id": profileID,
	})
}

// Sync Handlers

// syncProfileHandler manually syncs a single profile. Manual syncs are
// forced: they skip the retry backoff and revive abandoned profiles.
func (s *HTTPServer) syncProfileHandler(w http.ResponseWriter, r *http.Request) {
	profileID := mux.Vars(r)["id"]

	outcome, err := s.orchestrator.RunOne(r.Context(), profileID)
	if err != nil {
		s.writeError(w, statusForError(err), "Profile sync failed", err)
		return
	}

	s.writeJSON(w, http.StatusOK, outcome)
}

// runSyncHandler triggers a full manual sync run
func (s *HTTPServer) runSyncHandler(w http.ResponseWriter, r *http.Request) {
	result, err := s.orchestrator.RunAll(r.Context(), syncer.TriggerManual)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Sync run failed", err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"scanned": result.ProfilesScanned,
		"pushed":  result.Pushed,
		"failed":  result.Failed,
	}).Info("Manual sync run completed")

	s.writeJSON(w, http.StatusOK, result)
}

// syncStatusHandler returns scheduler state and per-status profile counts
func (s *HTTPServer) syncStatusHandler(w http.ResponseWriter, r *http.Request) {
	ledgerStats, err := s.store.GetStats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve ledger stats", err)
		return
	}

	status := map[string]interface{}{
		"running":            s.scheduler.IsRunning(),
		"scheduler":          s.scheduler.GetStats(),
		"profiles_by_status": ledgerStats.ProfilesByStatus,
		"last_sync_time":     ledgerStats.LastSyncTime,
		"timestamp":          time.Now(),
	}

	s.writeJSON(w, http.StatusOK, status)
}

// Audit Handlers

// listAuditHandler lists audit entries, newest first
func (s *HTTPServer) listAuditHandler(w http.ResponseWriter, r *http.Request) {
	filter := models.AuditFilter{Limit: 50}

	query := r.URL.Query()
	if v := query.Get("profile_id"); v != "" {
		filter.ProfileID = &v
	}
	if v := query.Get("action"); v != "" {
		filter.Action = &v
	}
	if v := query.Get("status"); v != "" {
		filter.Status = &v
	}
	if v := query.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if v := query.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Offset = n
		}
	}

	entries, err := s.store.GetAuditEntries(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve audit entries", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   len(entries),
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}
