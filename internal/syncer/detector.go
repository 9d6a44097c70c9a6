// File: internal/syncer/detector.go
package syncer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zakpestsos/call-center-profiles-sub000/internal/document"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/models"
	"github.com/zakpestsos/call-center-profiles-sub000/pkg/utils"
)

// Detector decides whether a profile's company document has drifted ahead of
// the ledger. The comparison is timestamp-only: content is never diffed, and
// an edit that merely re-saves the document still counts as drift.
type Detector struct {
	documents document.Store
	logger    *logrus.Entry
}

// NewDetector creates a new drift detector
func NewDetector(documents document.Store) *Detector {
	return &Detector{
		documents: documents,
		logger:    utils.ComponentLogger("drift_detector"),
	}
}

// HasDrift reports whether the profile's document was modified strictly after
// the ledger row. Profiles without a linked document never drift. The
// document's modification time is returned for logging.
func (d *Detector) HasDrift(ctx context.Context, profile *models.Profile) (bool, time.Time, error) {
	if profile.ClientDocumentRef == "" {
		return false, time.Time{}, nil
	}

	modifiedAt, err := d.documents.ModifiedAt(ctx, profile.ClientDocumentRef)
	if err != nil {
		return false, time.Time{}, err
	}

	drifted := modifiedAt.After(profile.LastUpdated)
	if drifted {
		d.logger.WithFields(logrus.Fields{
			"profile_id":   profile.ProfileID,
			"document_ref": profile.ClientDocumentRef,
			"document_at":  modifiedAt,
			"ledger_at":    profile.LastUpdated,
		}).Info("Document drift detected")
	}

	return drifted, modifiedAt, nil
}
