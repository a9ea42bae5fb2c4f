package model

// Owner types for attachments.
const (
	OwnerRfi       = "rfis"
	OwnerSubmittal = "submittals"
)

// Attachment is a file reference owned by exactly one RFI or submittal.
type Attachment struct {
	Base
	OwnerID      uint   `json:"owner_id" gorm:"not null;index:idx_attachment_owner"`
	OwnerType    string `json:"owner_type" gorm:"size:32;not null;index:idx_attachment_owner"`
	Filename     string `json:"filename" gorm:"size:255;not null"`
	StoragePath  string `json:"storage_path" gorm:"size:512;not null"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mime_type,omitempty" gorm:"size:128"`
	UploadedByID *uint  `json:"uploaded_by_id,omitempty"`
}

func (Attachment) TableName() string { return "attachments" }
