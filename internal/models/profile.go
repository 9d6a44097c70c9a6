package models

import (
	"time"
)

// SyncStatus is the control field deciding whether a profile is pushed to the
// remote content store on the next orchestrator pass.
type SyncStatus string

const (
	// StatusPendingRemoteSync marks a profile whose ledger state has not yet
	// reached the remote content store.
	StatusPendingRemoteSync SyncStatus = "pending_remote_sync"
	// StatusSynced marks a profile whose ledger state reached the remote store.
	// Not terminal: any future drift re-enters pending_remote_sync.
	StatusSynced SyncStatus = "synced"
	// StatusSyncFailed marks a profile whose last remote push failed. Retried
	// on later passes with exponential backoff.
	StatusSyncFailed SyncStatus = "sync_failed"
	// StatusSyncAbandoned is the dead-letter state after the push attempt cap.
	// Scheduled runs skip it; a manual sync or a new drift re-import revives it.
	StatusSyncAbandoned SyncStatus = "sync_abandoned"
)

// Valid reports whether s is one of the defined sync states.
func (s SyncStatus) Valid() bool {
	switch s {
	case StatusPendingRemoteSync, StatusSynced, StatusSyncFailed, StatusSyncAbandoned:
		return true
	}
	return false
}

// Profile is one row in the ledger plus its child collections.
type Profile struct {
	ProfileID       string            `json:"profile_id" db:"profile_id"`
	CompanyName     string            `json:"company_name" db:"company_name"`
	Location        string            `json:"location" db:"location"`
	Timezone        string            `json:"timezone" db:"timezone"`
	Phone           string            `json:"phone" db:"phone"`
	Email           string            `json:"email" db:"email"`
	Website         string            `json:"website" db:"website"`
	Address         string            `json:"address" db:"address"`
	Hours           string            `json:"hours" db:"hours"`
	Bulletin        string            `json:"bulletin" db:"bulletin"`
	PestsNotCovered string            `json:"pests_not_covered" db:"pests_not_covered"`
	Holidays        string            `json:"holidays" db:"holidays"`
	CustomFields    map[string]string `json:"custom_fields,omitempty" db:"custom_fields"`

	ClientDocumentRef string `json:"client_document_ref" db:"client_document_ref"`
	EditURL           string `json:"edit_url" db:"edit_url"`
	RemoteRef         string `json:"remote_ref" db:"remote_ref"`
	RemoteURL         string `json:"remote_url" db:"remote_url"`

	SyncStatus   SyncStatus `json:"sync_status" db:"sync_status"`
	SyncAttempts int        `json:"sync_attempts" db:"sync_attempts"`
	LastPushAt   *time.Time `json:"last_push_at,omitempty" db:"last_push_at"`
	LastUpdated  time.Time  `json:"last_updated" db:"last_updated"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`

	Services     []Service     `json:"services,omitempty"`
	Technicians  []Technician  `json:"technicians,omitempty"`
	Policies     []Policy      `json:"policies,omitempty"`
	ServiceAreas []ServiceArea `json:"service_areas,omitempty"`
}

// Children returns the profile's child collections as a ChildSet.
func (p *Profile) Children() *ChildSet {
	return &ChildSet{
		Services:     p.Services,
		Technicians:  p.Technicians,
		Policies:     p.Policies,
		ServiceAreas: p.ServiceAreas,
	}
}

// ProfileInput is the structure consumed by CreateProfile. Produced by the
// intake decoder; treated as already validated.
type ProfileInput struct {
	ProfileID       string            `json:"profile_id,omitempty"`
	CompanyName     string            `json:"company_name"`
	Location        string            `json:"location"`
	Timezone        string            `json:"timezone"`
	Phone           string            `json:"phone"`
	Email           string            `json:"email"`
	Website         string            `json:"website"`
	Address         string            `json:"address"`
	Hours           string            `json:"hours"`
	Bulletin        string            `json:"bulletin"`
	PestsNotCovered string            `json:"pests_not_covered"`
	Holidays        string            `json:"holidays"`
	CustomFields    map[string]string `json:"custom_fields,omitempty"`

	Children ChildSet `json:"children"`
}

// ProfileUpdate is a partial update: only non-nil fields are merged into the
// existing row. Every update advances last_updated.
type ProfileUpdate struct {
	CompanyName     *string `json:"company_name,omitempty"`
	Location        *string `json:"location,omitempty"`
	Timezone        *string `json:"timezone,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	Email           *string `json:"email,omitempty"`
	Website         *string `json:"website,omitempty"`
	Address         *string `json:"address,omitempty"`
	Hours           *string `json:"hours,omitempty"`
	Bulletin        *string `json:"bulletin,omitempty"`
	PestsNotCovered *string `json:"pests_not_covered,omitempty"`
	Holidays        *string `json:"holidays,omitempty"`

	CustomFields      map[string]string `json:"custom_fields,omitempty"`
	ClientDocumentRef *string           `json:"client_document_ref,omitempty"`
	EditURL           *string           `json:"edit_url,omitempty"`
}

// IsEmpty reports whether the update carries no fields at all.
func (u *ProfileUpdate) IsEmpty() bool {
	return u.CompanyName == nil && u.Location == nil && u.Timezone == nil &&
		u.Phone == nil && u.Email == nil && u.Website == nil &&
		u.Address == nil && u.Hours == nil && u.Bulletin == nil &&
		u.PestsNotCovered == nil && u.Holidays == nil &&
		u.CustomFields == nil && u.ClientDocumentRef == nil && u.EditURL == nil
}
