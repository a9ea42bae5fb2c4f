package inventory

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "gcpanel/internal/errors"
)

type EquipmentStatus string

const (
	EquipmentActive       EquipmentStatus = "active"
	EquipmentMaintenance  EquipmentStatus = "maintenance"
	EquipmentIdle         EquipmentStatus = "idle"
	EquipmentOutOfService EquipmentStatus = "out_of_service"
	EquipmentRented       EquipmentStatus = "rented"
	EquipmentReturned     EquipmentStatus = "returned"
)

func (s EquipmentStatus) Valid() bool {
	switch s {
	case EquipmentActive, EquipmentMaintenance, EquipmentIdle, EquipmentOutOfService, EquipmentRented, EquipmentReturned:
		return true
	}
	return false
}

// Equipment is a tracked machine or tool.
type Equipment struct {
	ID              string          `json:"id"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	Type            string          `json:"type"`
	Status          EquipmentStatus `json:"status"`
	Location        string          `json:"location,omitempty"`
	Operator        string          `json:"operator,omitempty"`
	MaintenanceDue  *time.Time      `json:"maintenance_due,omitempty"`
	RentalRateDaily decimal.Decimal `json:"rental_rate_daily"`
	TotalHours      float64         `json:"total_hours"`
}

// MaintenanceOverdue reports whether service is past due.
func (e Equipment) MaintenanceOverdue(now time.Time) bool {
	return e.MaintenanceDue != nil && now.After(*e.MaintenanceDue)
}

func validateEquipment(e *Equipment) error {
	if strings.TrimSpace(e.Name) == "" {
		return apperrors.Validation("equipment name is required")
	}
	if e.Status == "" {
		e.Status = EquipmentIdle
	}
	if !e.Status.Valid() {
		return apperrors.Validation("unknown equipment status %q", e.Status)
	}
	if e.RentalRateDaily.IsNegative() {
		return apperrors.Validation("rental rate must not be negative")
	}
	return nil
}

// EquipmentStore is the equipment register.
type EquipmentStore struct {
	*Store[Equipment]
}

// NewEquipmentStore returns a register holding the sample fleet.
func NewEquipmentStore(now time.Time) *EquipmentStore {
	s := &EquipmentStore{NewStore("equipment", func(e *Equipment) *string { return &e.ID }, validateEquipment)}
	soon := now.AddDate(0, 0, 10)
	late := now.AddDate(0, 0, -3)
	s.mustSeed(
		Equipment{Code: "EQ-001", Name: "Tower Crane TC-1", Type: "lifting", Status: EquipmentActive,
			Location: "Core, Level 12", Operator: "M. Alvarez", MaintenanceDue: &soon,
			RentalRateDaily: decimal.RequireFromString("2850.00"), TotalHours: 1240},
		Equipment{Code: "EQ-002", Name: "Excavator CAT 320", Type: "heavy_machinery", Status: EquipmentMaintenance,
			Location: "Laydown yard", MaintenanceDue: &late,
			RentalRateDaily: decimal.RequireFromString("950.00"), TotalHours: 3120},
		Equipment{Code: "EQ-003", Name: "Concrete Pump 42m", Type: "heavy_machinery", Status: EquipmentRented,
			Location: "North podium", Operator: "J. Chen",
			RentalRateDaily: decimal.RequireFromString("1450.00"), TotalHours: 410},
		Equipment{Code: "EQ-004", Name: "Diesel Generator 150kVA", Type: "generators", Status: EquipmentIdle,
			Location: "Site compound", RentalRateDaily: decimal.RequireFromString("210.00"), TotalHours: 880},
	)
	return s
}

func (s *EquipmentStore) ByStatus(status EquipmentStatus) []Equipment {
	return s.Filter(func(e Equipment) bool { return e.Status == status })
}

// MaintenanceOverdue lists equipment whose service date has passed.
func (s *EquipmentStore) MaintenanceOverdue(now time.Time) []Equipment {
	return s.Filter(func(e Equipment) bool { return e.MaintenanceOverdue(now) })
}

// DailyRentalCost totals the daily rate of rented equipment.
func (s *EquipmentStore) DailyRentalCost() decimal.Decimal {
	total := decimal.Zero
	for _, e := range s.ByStatus(EquipmentRented) {
		total = total.Add(e.RentalRateDaily)
	}
	return total
}
