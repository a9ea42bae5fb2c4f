package inventory

import (
	"fmt"
	"strings"
	"time"

	apperrors "gcpanel/internal/errors"
)

type TransmittalStatus string

const (
	TransmittalDraft        TransmittalStatus = "draft"
	TransmittalSent         TransmittalStatus = "sent"
	TransmittalReceived     TransmittalStatus = "received"
	TransmittalAcknowledged TransmittalStatus = "acknowledged"
	TransmittalRejected     TransmittalStatus = "rejected"
)

func (s TransmittalStatus) Valid() bool {
	switch s {
	case TransmittalDraft, TransmittalSent, TransmittalReceived, TransmittalAcknowledged, TransmittalRejected:
		return true
	}
	return false
}

type DeliveryMethod string

const (
	DeliveryEmail    DeliveryMethod = "email"
	DeliveryHand     DeliveryMethod = "hand_delivery"
	DeliveryCourier  DeliveryMethod = "courier"
	DeliveryMail     DeliveryMethod = "mail"
	DeliveryPlatform DeliveryMethod = "digital_platform"
)

func (m DeliveryMethod) Valid() bool {
	switch m {
	case DeliveryEmail, DeliveryHand, DeliveryCourier, DeliveryMail, DeliveryPlatform:
		return true
	}
	return false
}

// Recipient copy types. Only "to" recipients must acknowledge.
const (
	CopyTo = "to"
	CopyCC = "cc"
)

type Recipient struct {
	Name           string     `json:"name"`
	Company        string     `json:"company,omitempty"`
	Email          string     `json:"email"`
	CopyType       string     `json:"copy_type"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}

// Transmittal is a cover record for documents sent to outside parties.
type Transmittal struct {
	ID                     string            `json:"id"`
	Number                 string            `json:"number"`
	Subject                string            `json:"subject"`
	Type                   string            `json:"type"`
	Status                 TransmittalStatus `json:"status"`
	DeliveryMethod         DeliveryMethod    `json:"delivery_method"`
	SenderName             string            `json:"sender_name"`
	SenderCompany          string            `json:"sender_company,omitempty"`
	Recipients             []Recipient       `json:"recipients"`
	Documents              []string          `json:"documents"`
	Message                string            `json:"message,omitempty"`
	AcknowledgmentRequired bool              `json:"acknowledgment_required"`
	ReplyBy                *time.Time        `json:"reply_by,omitempty"`
	SentAt                 *time.Time        `json:"sent_at,omitempty"`
	TrackingNumber         string            `json:"tracking_number,omitempty"`
}

// AwaitingAcknowledgment reports whether a sent transmittal still needs replies.
func (t Transmittal) AwaitingAcknowledgment() bool {
	return t.AcknowledgmentRequired && (t.Status == TransmittalSent || t.Status == TransmittalReceived)
}

func validateTransmittal(t *Transmittal) error {
	if strings.TrimSpace(t.Subject) == "" {
		return apperrors.Validation("transmittal subject is required")
	}
	if strings.TrimSpace(t.SenderName) == "" {
		return apperrors.Validation("transmittal sender is required")
	}
	if t.Status == "" {
		t.Status = TransmittalDraft
	}
	if !t.Status.Valid() {
		return apperrors.Validation("unknown transmittal status %q", t.Status)
	}
	if t.DeliveryMethod == "" {
		t.DeliveryMethod = DeliveryEmail
	}
	if !t.DeliveryMethod.Valid() {
		return apperrors.Validation("unknown delivery method %q", t.DeliveryMethod)
	}
	if len(t.Recipients) == 0 {
		return apperrors.Validation("at least one recipient is required")
	}
	for i := range t.Recipients {
		r := &t.Recipients[i]
		if strings.TrimSpace(r.Email) == "" {
			return apperrors.Validation("recipient %d needs an email", i+1)
		}
		r.CopyType = strings.ToLower(r.CopyType)
		if r.CopyType == "" {
			r.CopyType = CopyTo
		}
		if r.CopyType != CopyTo && r.CopyType != CopyCC {
			return apperrors.Validation("unknown copy type %q", r.CopyType)
		}
	}
	if len(t.Documents) == 0 {
		return apperrors.Validation("at least one document is required")
	}
	return nil
}

// TransmittalStore is the transmittal log.
type TransmittalStore struct {
	*Store[Transmittal]
}

// NewTransmittalStore returns a log holding sample transmittals.
func NewTransmittalStore(now time.Time) *TransmittalStore {
	s := &TransmittalStore{NewStore("transmittal", func(t *Transmittal) *string { return &t.ID }, validateTransmittal)}
	sent := now.AddDate(0, 0, -5).UTC()
	acked := now.AddDate(0, 0, -4).UTC()
	replyBy := now.AddDate(0, 0, 9).UTC()
	s.mustSeed(
		Transmittal{Number: "TR-001", Subject: "Structural drawings for review", Type: "drawings",
			Status: TransmittalAcknowledged, DeliveryMethod: DeliveryEmail,
			SenderName: "Sarah Chen", SenderCompany: "Highland Construction",
			Recipients: []Recipient{{Name: "David Kim", Company: "Kim Structural", Email: "dkim@kimstructural.example",
				CopyType: CopyTo, AcknowledgedAt: &acked}},
			Documents: []string{"S-101 rev C", "S-102 rev C"}, AcknowledgmentRequired: true, SentAt: &sent,
			TrackingNumber: "EMA-" + sent.Format("20060102") + "-001"},
		Transmittal{Number: "TR-002", Subject: "Curtain wall shop drawings", Type: "shop_drawings",
			Status: TransmittalSent, DeliveryMethod: DeliveryPlatform,
			SenderName: "Mike Rodriguez", SenderCompany: "Highland Construction",
			Recipients: []Recipient{
				{Name: "Elena Ruiz", Company: "Ruiz Architects", Email: "eruiz@ruizarch.example", CopyType: CopyTo},
				{Name: "Owner's rep", Email: "owner@example.com", CopyType: CopyCC},
			},
			Documents: []string{"CW-201", "CW-202", "CW-203"}, AcknowledgmentRequired: true,
			ReplyBy: &replyBy, SentAt: &sent, TrackingNumber: "DIG-" + sent.Format("20060102") + "-002"},
		Transmittal{Number: "TR-003", Subject: "Concrete test certificates", Type: "certificates",
			Status: TransmittalDraft, DeliveryMethod: DeliveryCourier, SenderName: "Lisa Park",
			Recipients: []Recipient{{Name: "City inspector", Email: "inspections@city.example", CopyType: CopyTo}},
			Documents:  []string{"Cylinder breaks, pour 12"}},
	)
	return s
}

func (s *TransmittalStore) ByStatus(status TransmittalStatus) []Transmittal {
	return s.Filter(func(t Transmittal) bool { return t.Status == status })
}

func (s *TransmittalStore) PendingAcknowledgment() []Transmittal {
	return s.Filter(Transmittal.AwaitingAcknowledgment)
}

// Send dispatches a draft and assigns its tracking number.
func (s *TransmittalStore) Send(id string, now time.Time) (Transmittal, error) {
	return s.Modify(id, func(t *Transmittal) error {
		if t.Status != TransmittalDraft {
			return fmt.Errorf("transmittal %s is %s: %w", t.Number, t.Status, apperrors.ErrInvalidTransition)
		}
		at := now.UTC()
		t.Status = TransmittalSent
		t.SentAt = &at
		t.TrackingNumber = trackingNumber(t.DeliveryMethod, t.Number, at)
		return nil
	})
}

// Acknowledge records a recipient's acknowledgment. The transmittal is
// acknowledged once every "to" recipient has replied.
func (s *TransmittalStore) Acknowledge(id, email string, now time.Time) (Transmittal, error) {
	return s.Modify(id, func(t *Transmittal) error {
		if t.Status != TransmittalSent && t.Status != TransmittalReceived {
			return fmt.Errorf("transmittal %s is %s: %w", t.Number, t.Status, apperrors.ErrInvalidTransition)
		}
		found := false
		for i := range t.Recipients {
			r := &t.Recipients[i]
			if strings.EqualFold(r.Email, email) {
				if r.AcknowledgedAt == nil {
					at := now.UTC()
					r.AcknowledgedAt = &at
				}
				found = true
			}
		}
		if !found {
			return fmt.Errorf("recipient %s on transmittal %s: %w", email, t.Number, apperrors.ErrNotFound)
		}
		for _, r := range t.Recipients {
			if r.CopyType == CopyTo && r.AcknowledgedAt == nil {
				t.Status = TransmittalReceived
				return nil
			}
		}
		t.Status = TransmittalAcknowledged
		return nil
	})
}

// trackingNumber is METHOD-YYYYMMDD-NNN, e.g. COU-20250601-003.
func trackingNumber(method DeliveryMethod, number string, at time.Time) string {
	prefix := strings.ToUpper(strings.ReplaceAll(string(method), "_", ""))
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	suffix := number
	if len(suffix) > 3 {
		suffix = suffix[len(suffix)-3:]
	}
	return fmt.Sprintf("%s-%s-%s", prefix, at.Format("20060102"), suffix)
}
