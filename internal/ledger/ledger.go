// File: internal/ledger/ledger.go
package ledger

import (
	"context"
	"time"

	"github.com/zakpestsos/call-center-profiles-sub000/internal/models"
)

// Store defines the interface for ledger operations. The ledger is the
// authoritative store: one row per profile, four child tables and an
// append-only audit table, all keyed by profile_id.
type Store interface {
	// Connection management
	Connect() error
	Close() error
	Ping() error
	Migrate() error

	// Profile operations
	CreateProfile(ctx context.Context, input *models.ProfileInput) (string, error)
	GetProfile(ctx context.Context, profileID string) (*models.Profile, error)
	ListProfiles(ctx context.Context) ([]*models.Profile, error)
	UpdateProfile(ctx context.Context, profileID string, update *models.ProfileUpdate) error

	// Control-field writes. These deliberately do not touch last_updated:
	// last_updated tracks business data only, otherwise every push would
	// re-trigger drift against the per-company document.
	SetSyncStatus(ctx context.Context, profileID string, status models.SyncStatus, attempts int, lastPushAt *time.Time) error
	SetRemoteRef(ctx context.Context, profileID, remoteRef, remoteURL string) error

	// Child operations. Replacement is delete-then-insert, never a diff.
	ReplaceChildren(ctx context.Context, profileID string, kind models.ChildKind, set *models.ChildSet) error
	ReplaceAllChildren(ctx context.Context, profileID string, set *models.ChildSet) error

	// Audit operations. Append-only; the engine never reads its own entries
	// for decision-making.
	AppendAudit(ctx context.Context, entry *models.AuditEntry) error
	GetAuditEntries(ctx context.Context, filter models.AuditFilter) ([]*models.AuditEntry, error)

	// Sync bookkeeping
	GetSyncState(ctx context.Context, key string) (string, error)
	SetSyncState(ctx context.Context, key, value string) error

	// Advisory per-profile leases serializing overlapping sync invocations
	AcquireLease(ctx context.Context, profileID, holder string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, profileID, holder string) error

	// Statistics and monitoring
	GetStats(ctx context.Context) (*LedgerStats, error)
	GetHealth() *LedgerHealth
}

// Sync state keys
const (
	StateLastSyncTime = "last_sync_time"
)

// LedgerStats provides ledger statistics
type LedgerStats struct {
	TotalProfiles     int64            `json:"total_profiles"`
	ProfilesByStatus  map[string]int64 `json:"profiles_by_status"`
	TotalAuditEntries int64            `json:"total_audit_entries"`
	LastSyncTime      *time.Time       `json:"last_sync_time,omitempty"`
}

// LedgerHealth provides health information
type LedgerHealth struct {
	StoreType string            `json:"store_type"`
	Healthy   bool              `json:"healthy"`
	Details   map[string]string `json:"details,omitempty"`
	LastPing  time.Time         `json:"last_ping"`
}

// StoreConfig holds ledger store configuration
type StoreConfig struct {
	Type             string        `json:"type"`
	ConnectionString string        `json:"connection_string"`
	MaxConnections   int           `json:"max_connections"`
	MaxIdleTime      time.Duration `json:"max_idle_time"`
}
