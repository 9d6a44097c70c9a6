package models

import "time"

// Audit outcomes
const (
	AuditSuccess = "SUCCESS"
	AuditError   = "ERROR"
)

// Audit actions
const (
	ActionCreateProfile   = "create_profile"
	ActionUpdateProfile   = "update_profile"
	ActionReplaceChildren = "replace_children"
	ActionReimport        = "reimport"
	ActionRemotePush      = "remote_push"
	ActionDocumentSeed    = "document_seed"
	ActionSyncRun         = "sync_run"
)

// Audit sources/targets
const (
	StoreIntakeForm      = "intake_form"
	StoreLedger          = "ledger"
	StoreCompanyDocument = "company_document"
	StoreRemote          = "remote_store"
	StoreSyncEngine      = "sync_engine"
)

// AuditEntry is one immutable, append-only record of a sync action. The engine
// never updates or deletes entries, and never reads them back for decisions.
type AuditEntry struct {
	ID           int64     `json:"id" db:"id"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
	ProfileID    string    `json:"profile_id" db:"profile_id"`
	Action       string    `json:"action" db:"action"`
	Source       string    `json:"source" db:"source"`
	Target       string    `json:"target" db:"target"`
	Status       string    `json:"status" db:"status"`
	Detail       string    `json:"detail" db:"detail"`
	ErrorMessage string    `json:"error_message,omitempty" db:"error_message"`
}

// AuditFilter narrows audit queries.
type AuditFilter struct {
	ProfileID *string `json:"profile_id,omitempty"`
	Action    *string `json:"action,omitempty"`
	Status    *string `json:"status,omitempty"`
	Limit     int     `json:"limit,omitempty"`
	Offset    int     `json:"offset,omitempty"`
}
