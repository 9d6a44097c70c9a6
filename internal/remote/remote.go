// File: internal/remote/remote.go
package remote

import (
	"context"

	"github.com/zakpestsos/call-center-profiles-sub000/internal/models"
)

// ContentStore is the one-way adapter to the remote content platform. The
// engine only writes: it never reads profile data back, and a push replaces
// the remote copy wholesale.
type ContentStore interface {
	// Push serializes the profile and its children into the remote payload
	// shape and sends it. A single attempt; retry policy lives with the
	// caller.
	Push(ctx context.Context, profile *models.Profile) (*PushResult, error)
}

// PushResult holds the identifiers the remote store assigned to the profile
type PushResult struct {
	RemoteRef string `json:"remote_ref"`
	RemoteURL string `json:"remote_url"`
}
