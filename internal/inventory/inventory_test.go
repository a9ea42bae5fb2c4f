package inventory

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gcpanel/internal/errors"
)

func TestStore_CRUD(t *testing.T) {
	s := NewMaterialStore()
	seeded := s.Len()
	require.Equal(t, 4, seeded)

	created, err := s.Create(Material{Name: "Drywall 5/8", Quantity: 500, Unit: "SF", UnitCost: decimal.RequireFromString("0.65")})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, MaterialPlanned, created.Status)

	got, err := s.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Drywall 5/8", got.Name)

	list := s.List()
	require.Len(t, list, seeded+1)
	assert.Equal(t, created.ID, list[len(list)-1].ID, "insertion order")

	updated, err := s.Update(created.ID, map[string]any{"status": "ordered", "used": 0, "id": "hijack"})
	require.NoError(t, err)
	assert.Equal(t, MaterialOrdered, updated.Status)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Drywall 5/8", updated.Name)

	require.NoError(t, s.Delete(created.ID))
	_, err = s.Get(created.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, s.Delete(created.ID), apperrors.ErrNotFound)
	_, err = s.Update(created.ID, map[string]any{"name": "x"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, seeded, s.Len())
}

func TestStore_Validation(t *testing.T) {
	s := NewMaterialStore()
	id := s.List()[0].ID

	tests := []struct {
		name   string
		fields map[string]any
	}{
		{"unknown status", map[string]any{"status": "lost"}},
		{"used above quantity", map[string]any{"used": 1e9}},
		{"negative cost", map[string]any{"unit_cost": "-1"}},
		{"blank name", map[string]any{"name": " "}},
		{"wrong type", map[string]any{"quantity": "lots"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Update(id, tt.fields)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}

	unchanged, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, MaterialDelivered, unchanged.Status)

	_, err = s.Create(Material{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestStore_UpdateDoesNotAliasPointers(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := NewEquipmentStore(now)
	crane := s.List()[0]
	before := *crane.MaintenanceDue

	_, err := s.Update(crane.ID, map[string]any{"maintenance_due": "2030-01-01T00:00:00Z"})
	require.NoError(t, err)
	assert.True(t, before.Equal(*crane.MaintenanceDue), "caller copy untouched")
}

func TestStore_UpdateMatchesKeysCaseInsensitively(t *testing.T) {
	s := NewMaterialStore()
	id := s.List()[0].ID

	updated, err := s.Update(id, map[string]any{"Name": "Renamed", "STATUS": "ordered", "Unit": "EA"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, MaterialOrdered, updated.Status)
	assert.Equal(t, "EA", updated.Unit)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
}

func TestEquipmentStore_Queries(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := NewEquipmentStore(now)

	overdue := s.MaintenanceOverdue(now)
	require.Len(t, overdue, 1)
	assert.Equal(t, "EQ-002", overdue[0].Code)

	assert.Len(t, s.ByStatus(EquipmentRented), 1)
	assert.Equal(t, "1450", s.DailyRentalCost().String())

	_, err := s.Create(Equipment{Name: "Scissor lift", Status: "flying"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestMaterialStore_Queries(t *testing.T) {
	s := NewMaterialStore()

	low := s.LowStock()
	require.Len(t, low, 1)
	assert.Equal(t, "MAT-002", low[0].Code)

	m := low[0]
	assert.InDelta(t, 8, m.Remaining(), 0.001)
	assert.InDelta(t, 93.33, m.UsageRate(), 0.01)
	assert.True(t, s.TotalValue().IsPositive())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewMaterialStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Create(Material{Name: "Bolt", Quantity: 10})
		}()
		go func() {
			defer wg.Done()
			_ = s.List()
		}()
	}
	wg.Wait()
	assert.Equal(t, 24, s.Len())
}
