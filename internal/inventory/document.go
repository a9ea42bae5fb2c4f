package inventory

import (
	"fmt"
	"strings"
	"time"

	apperrors "gcpanel/internal/errors"
)

type DocumentStatus string

const (
	DocumentDraft       DocumentStatus = "draft"
	DocumentUnderReview DocumentStatus = "under_review"
	DocumentApproved    DocumentStatus = "approved"
	DocumentSuperseded  DocumentStatus = "superseded"
	DocumentArchived    DocumentStatus = "archived"
)

func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentDraft, DocumentUnderReview, DocumentApproved, DocumentSuperseded, DocumentArchived:
		return true
	}
	return false
}

// Document is a controlled project file such as a drawing or permit.
type Document struct {
	ID               string         `json:"id"`
	Number           string         `json:"number"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	Category         string         `json:"category"`
	Discipline       string         `json:"discipline,omitempty"`
	Status           DocumentStatus `json:"status"`
	Filename         string         `json:"filename"`
	FileSize         int64          `json:"file_size"`
	Version          string         `json:"version"`
	RequiresApproval bool           `json:"requires_approval"`
	Keywords         []string       `json:"keywords,omitempty"`
	ExpiresAt        *time.Time     `json:"expires_at,omitempty"`
	CheckedOutBy     string         `json:"checked_out_by,omitempty"`
	CheckedOutAt     *time.Time     `json:"checked_out_at,omitempty"`
	CreatedBy        string         `json:"created_by,omitempty"`
	ModifiedAt       *time.Time     `json:"modified_at,omitempty"`
}

func (d Document) IsCheckedOut() bool {
	return d.CheckedOutBy != ""
}

func (d Document) IsExpired(now time.Time) bool {
	return d.ExpiresAt != nil && d.ExpiresAt.Before(now)
}

// NeedsReview reports whether the document is waiting on an approval.
func (d Document) NeedsReview() bool {
	return d.RequiresApproval && d.Status == DocumentUnderReview
}

func validateDocument(d *Document) error {
	if strings.TrimSpace(d.Title) == "" {
		return apperrors.Validation("document title is required")
	}
	if strings.TrimSpace(d.Filename) == "" {
		return apperrors.Validation("document filename is required")
	}
	if d.Status == "" {
		d.Status = DocumentDraft
	}
	if !d.Status.Valid() {
		return apperrors.Validation("unknown document status %q", d.Status)
	}
	if d.FileSize < 0 {
		return apperrors.Validation("file size must not be negative")
	}
	if d.Version == "" {
		d.Version = "1.0"
	}
	return nil
}

// DocumentStore is the document register.
type DocumentStore struct {
	*Store[Document]
}

// NewDocumentStore returns a register holding sample project documents.
func NewDocumentStore(now time.Time) *DocumentStore {
	s := &DocumentStore{NewStore("document", func(d *Document) *string { return &d.ID }, validateDocument)}
	permitExpiry := now.AddDate(0, 6, 0)
	lapsed := now.AddDate(0, 0, -14)
	s.mustSeed(
		Document{Number: "DOC-001", Title: "Structural drawings, Levels 1-5", Category: "drawings", Discipline: "structural",
			Status: DocumentApproved, Filename: "S-100_series.pdf", FileSize: 15_728_640, Version: "3.1",
			RequiresApproval: true, Keywords: []string{"structural", "framing", "foundation"}, CreatedBy: "sarah.chen"},
		Document{Number: "DOC-002", Title: "MEP coordination set", Category: "drawings", Discipline: "mep",
			Status: DocumentUnderReview, Filename: "MEP_coordination_r2.pdf", FileSize: 22_020_096, Version: "2.0",
			RequiresApproval: true, Keywords: []string{"mechanical", "electrical", "clash"}, CreatedBy: "mike.rodriguez"},
		Document{Number: "DOC-003", Title: "Building permit", Category: "permits",
			Status: DocumentApproved, Filename: "building_permit.pdf", FileSize: 1_048_576, Version: "1.0",
			ExpiresAt: &permitExpiry, CreatedBy: "jennifer.walsh"},
		Document{Number: "DOC-004", Title: "Temporary hoarding permit", Category: "permits",
			Status: DocumentApproved, Filename: "hoarding_permit.pdf", FileSize: 524_288, Version: "1.0",
			ExpiresAt: &lapsed, CreatedBy: "jennifer.walsh"},
	)
	return s
}

func (s *DocumentStore) ByStatus(status DocumentStatus) []Document {
	return s.Filter(func(d Document) bool { return d.Status == status })
}

func (s *DocumentStore) NeedingReview() []Document {
	return s.Filter(Document.NeedsReview)
}

func (s *DocumentStore) Expired(now time.Time) []Document {
	return s.Filter(func(d Document) bool { return d.IsExpired(now) })
}

// Search matches the query against title, description and keywords,
// ignoring case.
func (s *DocumentStore) Search(query string) []Document {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return s.List()
	}
	return s.Filter(func(d Document) bool {
		if strings.Contains(strings.ToLower(d.Title), q) || strings.Contains(strings.ToLower(d.Description), q) {
			return true
		}
		for _, k := range d.Keywords {
			if strings.Contains(strings.ToLower(k), q) {
				return true
			}
		}
		return false
	})
}

// Checkout locks the document for editing by user. A document already held
// by someone else is a conflict.
func (s *DocumentStore) Checkout(id, user string, now time.Time) (Document, error) {
	if strings.TrimSpace(user) == "" {
		return Document{}, apperrors.Validation("checkout needs a user")
	}
	return s.Modify(id, func(d *Document) error {
		if d.IsCheckedOut() && d.CheckedOutBy != user {
			return fmt.Errorf("document %s is checked out by %s: %w", d.Number, d.CheckedOutBy, apperrors.ErrConflict)
		}
		at := now.UTC()
		d.CheckedOutBy = user
		d.CheckedOutAt = &at
		return nil
	})
}

// Checkin releases the lock and stamps the modification time. Only the holder
// may check a document in.
func (s *DocumentStore) Checkin(id, user string, now time.Time) (Document, error) {
	return s.Modify(id, func(d *Document) error {
		if !d.IsCheckedOut() {
			return fmt.Errorf("document %s is not checked out: %w", d.Number, apperrors.ErrConflict)
		}
		if d.CheckedOutBy != user {
			return fmt.Errorf("document %s is checked out by %s: %w", d.Number, d.CheckedOutBy, apperrors.ErrForbidden)
		}
		at := now.UTC()
		d.CheckedOutBy = ""
		d.CheckedOutAt = nil
		d.ModifiedAt = &at
		return nil
	})
}
