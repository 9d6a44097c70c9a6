// File: internal/document/memory.go
package document

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zakpestsos/call-center-profiles-sub000/internal/models"
	"github.com/zakpestsos/call-center-profiles-sub000/pkg/utils"
)

// MemoryStore is an in-process document host used in development mode and in
// tests. Documents are "edited" by calling Put or Touch directly.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[string]*Document
	nextID    int
}

// NewMemoryStore creates a new in-memory document store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[string]*Document),
	}
}

// Create seeds a new document from the profile
func (s *MemoryStore) Create(ctx context.Context, profile *models.Profile, children *models.ChildSet) (*CreateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	ref := fmt.Sprintf("doc-%06d", s.nextID)

	s.documents[ref] = &Document{
		DocumentRef:     ref,
		ModifiedAt:      time.Now().UTC(),
		CompanyName:     profile.CompanyName,
		Location:        profile.Location,
		Timezone:        profile.Timezone,
		Phone:           profile.Phone,
		Email:           profile.Email,
		Website:         profile.Website,
		Address:         profile.Address,
		Hours:           profile.Hours,
		Bulletin:        profile.Bulletin,
		PestsNotCovered: profile.PestsNotCovered,
		Holidays:        profile.Holidays,
		CustomFields:    profile.CustomFields,
		Children:        *children,
	}

	return &CreateResult{
		DocumentRef: ref,
		EditURL:     "memory://" + ref,
	}, nil
}

// ModifiedAt returns the document's last modification time
func (s *MemoryStore) ModifiedAt(ctx context.Context, ref string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[ref]
	if !ok {
		return time.Time{}, utils.NewAppError(utils.ErrCodeNotFound, "Document not found", ref)
	}
	return doc.ModifiedAt, nil
}

// Fetch reads the full document content
func (s *MemoryStore) Fetch(ctx context.Context, ref string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[ref]
	if !ok {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Document not found", ref)
	}

	copied := *doc
	return &copied, nil
}

// Put overwrites a document's content, simulating an external edit
func (s *MemoryStore) Put(ref string, doc *Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *doc
	copied.DocumentRef = ref
	if copied.ModifiedAt.IsZero() {
		copied.ModifiedAt = time.Now().UTC()
	}
	s.documents[ref] = &copied
}

// Touch bumps a document's modification time, simulating an edit without a
// content change
func (s *MemoryStore) Touch(ref string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.documents[ref]; ok {
		doc.ModifiedAt = at
	}
}
