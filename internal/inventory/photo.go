package inventory

import (
	"fmt"
	"strings"
	"time"

	apperrors "gcpanel/internal/errors"
)

type PhotoStatus string

const (
	PhotoUploaded    PhotoStatus = "uploaded"
	PhotoUnderReview PhotoStatus = "under_review"
	PhotoApproved    PhotoStatus = "approved"
	PhotoRejected    PhotoStatus = "rejected"
	PhotoArchived    PhotoStatus = "archived"
)

func (s PhotoStatus) Valid() bool {
	switch s {
	case PhotoUploaded, PhotoUnderReview, PhotoApproved, PhotoRejected, PhotoArchived:
		return true
	}
	return false
}

// Photo is a progress photo taken on site.
type Photo struct {
	ID          string      `json:"id"`
	Number      string      `json:"number"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Category    string      `json:"category"`
	Status      PhotoStatus `json:"status"`
	Location    string      `json:"location"`
	FloorLevel  string      `json:"floor_level,omitempty"`
	ViewAngle   string      `json:"view_angle,omitempty"`
	CapturedAt  time.Time   `json:"captured_at"`
	CapturedBy  string      `json:"captured_by"`
	Filename    string      `json:"filename"`
	FileSize    int64       `json:"file_size"`
	Tags        []string    `json:"tags,omitempty"`
	RelatedRfi  string      `json:"related_rfi,omitempty"`
	// Rating is the reviewer's 1-5 score, 0 when unrated.
	Rating     int        `json:"rating"`
	ReviewedBy string     `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	Comments   string     `json:"comments,omitempty"`
}

func validatePhoto(p *Photo) error {
	for _, f := range [][2]string{
		{"title", p.Title},
		{"location", p.Location},
		{"captured_by", p.CapturedBy},
		{"filename", p.Filename},
	} {
		if strings.TrimSpace(f[1]) == "" {
			return apperrors.Validation("photo %s is required", f[0])
		}
	}
	if p.Status == "" {
		p.Status = PhotoUploaded
	}
	if !p.Status.Valid() {
		return apperrors.Validation("unknown photo status %q", p.Status)
	}
	if p.Rating < 0 || p.Rating > 5 {
		return apperrors.Validation("rating must be between 1 and 5")
	}
	if p.FileSize < 0 {
		return apperrors.Validation("file size must not be negative")
	}
	return nil
}

// PhotoReview is a reviewer's decision on a photo.
type PhotoReview struct {
	Reviewer string `json:"reviewer"`
	Approved bool   `json:"approved"`
	Rating   int    `json:"rating"`
	Comments string `json:"comments"`
}

// PhotoStore is the progress photo register.
type PhotoStore struct {
	*Store[Photo]
}

// NewPhotoStore returns a register holding sample progress photos.
func NewPhotoStore(now time.Time) *PhotoStore {
	s := &PhotoStore{NewStore("photo", func(p *Photo) *string { return &p.ID }, validatePhoto)}
	day := func(n int) time.Time { return now.AddDate(0, 0, -n).Truncate(time.Hour) }
	s.mustSeed(
		Photo{Number: "PH-001", Title: "Foundation pour, grid A-C", Category: "progress", Status: PhotoApproved,
			Location: "Grid A-C", FloorLevel: "foundation", ViewAngle: "overview", CapturedAt: day(20),
			CapturedBy: "tom.wilson", Filename: "foundation_pour.jpg", FileSize: 4_194_304,
			Tags: []string{"concrete", "foundation"}, Rating: 5, ReviewedBy: "sarah.chen"},
		Photo{Number: "PH-002", Title: "Steel connection at L3 transfer beam", Category: "quality", Status: PhotoUnderReview,
			Location: "Level 3, grid D4", FloorLevel: "L3", ViewAngle: "detail", CapturedAt: day(4),
			CapturedBy: "mike.rodriguez", Filename: "l3_connection.jpg", FileSize: 3_145_728,
			Tags: []string{"steel", "connection"}, RelatedRfi: "RFI-0002"},
		Photo{Number: "PH-003", Title: "Edge protection, Level 7", Category: "safety", Status: PhotoUploaded,
			Location: "Level 7 perimeter", FloorLevel: "L7", ViewAngle: "exterior", CapturedAt: day(1),
			CapturedBy: "lisa.park", Filename: "l7_edge.jpg", FileSize: 2_621_440,
			Tags: []string{"safety", "guardrail"}},
	)
	return s
}

func (s *PhotoStore) ByStatus(status PhotoStatus) []Photo {
	return s.Filter(func(p Photo) bool { return p.Status == status })
}

func (s *PhotoStore) ByCategory(category string) []Photo {
	return s.Filter(func(p Photo) bool { return strings.EqualFold(p.Category, category) })
}

// PendingReview lists photos uploaded or under review.
func (s *PhotoStore) PendingReview() []Photo {
	return s.Filter(func(p Photo) bool { return p.Status == PhotoUploaded || p.Status == PhotoUnderReview })
}

// Review records a decision. Archived photos cannot be reviewed.
func (s *PhotoStore) Review(id string, review PhotoReview, now time.Time) (Photo, error) {
	if strings.TrimSpace(review.Reviewer) == "" {
		return Photo{}, apperrors.Validation("reviewer is required")
	}
	return s.Modify(id, func(p *Photo) error {
		if p.Status == PhotoArchived {
			return fmt.Errorf("photo %s is archived: %w", p.Number, apperrors.ErrInvalidTransition)
		}
		at := now.UTC()
		p.Status = PhotoRejected
		if review.Approved {
			p.Status = PhotoApproved
		}
		p.Rating = review.Rating
		p.ReviewedBy = review.Reviewer
		p.ReviewedAt = &at
		p.Comments = review.Comments
		return nil
	})
}

// ApprovalRate is the approved share of all photos, in percent.
func (s *PhotoStore) ApprovalRate() float64 {
	all := s.List()
	if len(all) == 0 {
		return 0
	}
	return float64(len(s.ByStatus(PhotoApproved))) / float64(len(all)) * 100
}
