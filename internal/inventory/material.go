package inventory

import (
	"strings"

	"github.com/shopspring/decimal"

	apperrors "gcpanel/internal/errors"
)

type MaterialStatus string

const (
	MaterialPlanned   MaterialStatus = "planned"
	MaterialOrdered   MaterialStatus = "ordered"
	MaterialInTransit MaterialStatus = "in_transit"
	MaterialDelivered MaterialStatus = "delivered"
	MaterialInstalled MaterialStatus = "installed"
	MaterialReturned  MaterialStatus = "returned"
)

func (s MaterialStatus) Valid() bool {
	switch s {
	case MaterialPlanned, MaterialOrdered, MaterialInTransit, MaterialDelivered, MaterialInstalled, MaterialReturned:
		return true
	}
	return false
}

// Material is a stocked construction material.
type Material struct {
	ID           string          `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Quantity     float64         `json:"quantity"`
	Used         float64         `json:"used"`
	MinimumStock float64         `json:"minimum_stock"`
	Unit         string          `json:"unit"`
	Status       MaterialStatus  `json:"status"`
	Supplier     string          `json:"supplier,omitempty"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
}

// Remaining is the quantity not yet used.
func (m Material) Remaining() float64 {
	return m.Quantity - m.Used
}

func (m Material) IsLowStock() bool {
	return m.Remaining() <= m.MinimumStock
}

// UsageRate is the used share of the quantity, in percent.
func (m Material) UsageRate() float64 {
	if m.Quantity <= 0 {
		return 0
	}
	return m.Used / m.Quantity * 100
}

// Value is quantity times unit cost.
func (m Material) Value() decimal.Decimal {
	return m.UnitCost.Mul(decimal.NewFromFloat(m.Quantity))
}

func validateMaterial(m *Material) error {
	if strings.TrimSpace(m.Name) == "" {
		return apperrors.Validation("material name is required")
	}
	if m.Status == "" {
		m.Status = MaterialPlanned
	}
	if !m.Status.Valid() {
		return apperrors.Validation("unknown material status %q", m.Status)
	}
	if m.Quantity < 0 || m.Used < 0 || m.MinimumStock < 0 {
		return apperrors.Validation("quantities must not be negative")
	}
	if m.Used > m.Quantity {
		return apperrors.Validation("used quantity exceeds quantity")
	}
	if m.UnitCost.IsNegative() {
		return apperrors.Validation("unit cost must not be negative")
	}
	return nil
}

// MaterialStore is the material register.
type MaterialStore struct {
	*Store[Material]
}

// NewMaterialStore returns a register holding sample materials.
func NewMaterialStore() *MaterialStore {
	s := &MaterialStore{NewStore("material", func(m *Material) *string { return &m.ID }, validateMaterial)}
	s.mustSeed(
		Material{Code: "MAT-001", Name: "Ready-mix concrete 5000 psi", Category: "concrete", Quantity: 850, Used: 620,
			MinimumStock: 50, Unit: "CY", Status: MaterialDelivered, Supplier: "Cascade Ready Mix",
			UnitCost: decimal.RequireFromString("165.00")},
		Material{Code: "MAT-002", Name: "Rebar #5 Grade 60", Category: "steel", Quantity: 120, Used: 112,
			MinimumStock: 10, Unit: "TON", Status: MaterialDelivered, Supplier: "Pacific Steel Supply",
			UnitCost: decimal.RequireFromString("1180.00")},
		Material{Code: "MAT-003", Name: "Curtain wall units", Category: "finishes", Quantity: 240,
			Unit: "EA", Status: MaterialOrdered, Supplier: "Northglass Facades",
			UnitCost: decimal.RequireFromString("3400.00")},
		Material{Code: "MAT-004", Name: "Mineral wool insulation", Category: "insulation", Quantity: 18000, Used: 4000,
			MinimumStock: 2000, Unit: "SF", Status: MaterialInstalled, Supplier: "BuildRight Supply",
			UnitCost: decimal.RequireFromString("1.85")},
	)
	return s
}

func (s *MaterialStore) ByStatus(status MaterialStatus) []Material {
	return s.Filter(func(m Material) bool { return m.Status == status })
}

// LowStock lists materials at or below their minimum stock that are on site.
func (s *MaterialStore) LowStock() []Material {
	return s.Filter(func(m Material) bool {
		return (m.Status == MaterialDelivered || m.Status == MaterialInstalled) && m.IsLowStock()
	})
}

// TotalValue sums the value of every material.
func (s *MaterialStore) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, m := range s.List() {
		total = total.Add(m.Value())
	}
	return total
}
