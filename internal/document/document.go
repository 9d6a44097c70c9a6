// File: internal/document/document.go
package document

import (
	"context"
	"time"

	"github.com/zakpestsos/call-center-profiles-sub000/internal/models"
)

// Store is the interface to the per-company document host. Each profile owns
// one externally editable document; the engine seeds it at intake, polls its
// modification time, and reads it back in full when it has drifted ahead of
// the ledger.
type Store interface {
	// Create seeds a new document from a freshly created profile and returns
	// its reference and edit URL.
	Create(ctx context.Context, profile *models.Profile, children *models.ChildSet) (*CreateResult, error)

	// ModifiedAt returns the document's last modification time as reported by
	// the host.
	ModifiedAt(ctx context.Context, ref string) (time.Time, error)

	// Fetch reads the full document content.
	Fetch(ctx context.Context, ref string) (*Document, error)
}

// CreateResult holds the identifiers of a newly seeded document
type CreateResult struct {
	DocumentRef string `json:"document_ref"`
	EditURL     string `json:"edit_url"`
}

// Document is the full content of a per-company document. Field values win
// over the ledger's during reimport; the ledger's sync control fields are
// never represented here.
type Document struct {
	DocumentRef string    `json:"document_ref"`
	ModifiedAt  time.Time `json:"modified_at"`

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

	Children models.ChildSet `json:"children"`
}

// ProfileUpdate converts the document's scalar fields into a ledger merge.
// Every field is written back; the document is authoritative once it drifts.
func (d *Document) ProfileUpdate() *models.ProfileUpdate {
	return &models.ProfileUpdate{
		CompanyName:     &d.CompanyName,
		Location:        &d.Location,
		Timezone:        &d.Timezone,
		Phone:           &d.Phone,
		Email:           &d.Email,
		Website:         &d.Website,
		Address:         &d.Address,
		Hours:           &d.Hours,
		Bulletin:        &d.Bulletin,
		PestsNotCovered: &d.PestsNotCovered,
		Holidays:        &d.Holidays,
		CustomFields:    d.CustomFields,
	}
}
