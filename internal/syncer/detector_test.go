// File: internal/syncer/detector_test.go
package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zakpestsos/call-center-profiles-sub000/internal/document"
	"github.com/zakpestsos/call-center-profiles-sub000/internal/models"
)

func TestHasDriftWithoutDocument(t *testing.T) {
	detector := NewDetector(document.NewMemoryStore())

	drifted, _, err := detector.HasDrift(context.Background(), &models.Profile{
		ProfileID:   "p1",
		LastUpdated: time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, drifted)
}

func TestHasDriftTimestampComparison(t *testing.T) {
	ctx := context.Background()
	docs := document.NewMemoryStore()
	detector := NewDetector(docs)

	profile := &models.Profile{ProfileID: "p1", CompanyName: "ACME"}
	created, err := docs.Create(ctx, profile, &models.ChildSet{})
	require.NoError(t, err)
	profile.ClientDocumentRef = created.DocumentRef

	base := time.Now().UTC()
	docs.Touch(created.DocumentRef, base)

	// Document at or behind the ledger: no drift
	profile.LastUpdated = base
	drifted, _, err := detector.HasDrift(ctx, profile)
	require.NoError(t, err)
	assert.False(t, drifted)

	profile.LastUpdated = base.Add(time.Minute)
	drifted, _, err = detector.HasDrift(ctx, profile)
	require.NoError(t, err)
	assert.False(t, drifted)

	// Document strictly ahead: drift
	docs.Touch(created.DocumentRef, base.Add(2*time.Minute))
	drifted, modifiedAt, err := detector.HasDrift(ctx, profile)
	require.NoError(t, err)
	assert.True(t, drifted)
	assert.True(t, modifiedAt.After(profile.LastUpdated))
}

func TestHasDriftUnreachableDocument(t *testing.T) {
	detector := NewDetector(document.NewMemoryStore())

	_, _, err := detector.HasDrift(context.Background(), &models.Profile{
		ProfileID:         "p1",
		ClientDocumentRef: "doc-missing",
		LastUpdated:       time.Now(),
	})
	require.Error(t, err)
}
