package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"gcpanel/internal/inventory"
)

// InventoryHandler serves CRUD over an in-memory inventory store.
type InventoryHandler[T any] struct {
	store *inventory.Store[T]
	// filter narrows List by query parameters; nil lists everything.
	filter func(c echo.Context) func(T) bool
}

func NewEquipmentHandler(store *inventory.EquipmentStore) *InventoryHandler[inventory.Equipment] {
	return &InventoryHandler[inventory.Equipment]{
		store: store.Store,
		filter: func(c echo.Context) func(inventory.Equipment) bool {
			status := inventory.EquipmentStatus(c.QueryParam("status"))
			if status == "" {
				return nil
			}
			return func(e inventory.Equipment) bool { return e.Status == status }
		},
	}
}

func NewMaterialHandler(store *inventory.MaterialStore) *InventoryHandler[inventory.Material] {
	return &InventoryHandler[inventory.Material]{
		store: store.Store,
		filter: func(c echo.Context) func(inventory.Material) bool {
			if c.QueryParam("low_stock") == "true" {
				return func(m inventory.Material) bool { return m.IsLowStock() }
			}
			status := inventory.MaterialStatus(c.QueryParam("status"))
			if status == "" {
				return nil
			}
			return func(m inventory.Material) bool { return m.Status == status }
		},
	}
}

func NewDocumentHandler(store *inventory.DocumentStore) *InventoryHandler[inventory.Document] {
	return &InventoryHandler[inventory.Document]{
		store: store.Store,
		filter: func(c echo.Context) func(inventory.Document) bool {
			q := strings.ToLower(strings.TrimSpace(c.QueryParam("q")))
			status := inventory.DocumentStatus(c.QueryParam("status"))
			if q == "" && status == "" {
				return nil
			}
			matches := map[string]bool{}
			if q != "" {
				for _, d := range store.Search(q) {
					matches[d.ID] = true
				}
			}
			return func(d inventory.Document) bool {
				return (q == "" || matches[d.ID]) && (status == "" || d.Status == status)
			}
		},
	}
}

func NewPhotoHandler(store *inventory.PhotoStore) *InventoryHandler[inventory.Photo] {
	return &InventoryHandler[inventory.Photo]{
		store: store.Store,
		filter: func(c echo.Context) func(inventory.Photo) bool {
			status := inventory.PhotoStatus(c.QueryParam("status"))
			category := c.QueryParam("category")
			if status == "" && category == "" {
				return nil
			}
			return func(p inventory.Photo) bool {
				return (status == "" || p.Status == status) && (category == "" || strings.EqualFold(p.Category, category))
			}
		},
	}
}

func NewTransmittalHandler(store *inventory.TransmittalStore) *InventoryHandler[inventory.Transmittal] {
	return &InventoryHandler[inventory.Transmittal]{
		store: store.Store,
		filter: func(c echo.Context) func(inventory.Transmittal) bool {
			if c.QueryParam("pending") == "true" {
				return inventory.Transmittal.AwaitingAcknowledgment
			}
			status := inventory.TransmittalStatus(c.QueryParam("status"))
			if status == "" {
				return nil
			}
			return func(t inventory.Transmittal) bool { return t.Status == status }
		},
	}
}

// NewDailyReportHandler filters by status and by an inclusive from/to date
// range given as YYYY-MM-DD. Unparseable dates are ignored.
func NewDailyReportHandler(store *inventory.DailyReportStore) *InventoryHandler[inventory.DailyReport] {
	return &InventoryHandler[inventory.DailyReport]{
		store: store.Store,
		filter: func(c echo.Context) func(inventory.DailyReport) bool {
			status := inventory.ReportStatus(c.QueryParam("status"))
			from, _ := time.Parse(time.DateOnly, c.QueryParam("from"))
			to, _ := time.Parse(time.DateOnly, c.QueryParam("to"))
			if status == "" && from.IsZero() && to.IsZero() {
				return nil
			}
			return func(r inventory.DailyReport) bool {
				day := r.Date.Format(time.DateOnly)
				return (status == "" || r.Status == status) &&
					(from.IsZero() || day >= from.Format(time.DateOnly)) &&
					(to.IsZero() || day <= to.Format(time.DateOnly))
			}
		},
	}
}

// List godoc
// @Summary List inventory records
// @Tags inventory
// @Produce json
// @Security BearerAuth
// @Param kind path string true "equipment, materials, documents, photos, transmittals or daily-reports"
// @Param status query string false "Status filter"
// @Param low_stock query bool false "Materials at or under minimum stock"
// @Success 200 {array} object
// @Router /{kind} [get]
func (h *InventoryHandler[T]) List(c echo.Context) error {
	var keep func(T) bool
	if h.filter != nil {
		keep = h.filter(c)
	}
	return c.JSON(http.StatusOK, h.store.Filter(keep))
}

// Create godoc
// @Summary Create an inventory record
// @Tags inventory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "equipment, materials, documents, photos, transmittals or daily-reports"
// @Param record body object true "Record"
// @Success 201 {object} object
// @Failure 400 {object} errors.ErrorResponse
// @Router /{kind} [post]
func (h *InventoryHandler[T]) Create(c echo.Context) error {
	var item T
	if err := c.Bind(&item); err != nil {
		return badRequest("invalid request body")
	}
	created, err := h.store.Create(item)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// Get godoc
// @Summary Get an inventory record
// @Tags inventory
// @Produce json
// @Security BearerAuth
// @Param kind path string true "equipment, materials, documents, photos, transmittals or daily-reports"
// @Param id path string true "Record ID"
// @Success 200 {object} object
// @Failure 404 {object} errors.ErrorResponse
// @Router /{kind}/{id} [get]
func (h *InventoryHandler[T]) Get(c echo.Context) error {
	item, err := h.store.Get(c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// Update godoc
// @Summary Update inventory fields
// @Tags inventory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "equipment, materials, documents, photos, transmittals or daily-reports"
// @Param id path string true "Record ID"
// @Param fields body object true "Fields to change"
// @Success 200 {object} object
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /{kind}/{id} [patch]
func (h *InventoryHandler[T]) Update(c echo.Context) error {
	fields, err := bindFields(c)
	if err != nil {
		return err
	}
	item, err := h.store.Update(c.Param("id"), fields)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// Delete godoc
// @Summary Delete an inventory record
// @Tags inventory
// @Security BearerAuth
// @Param kind path string true "equipment, materials, documents, photos, transmittals or daily-reports"
// @Param id path string true "Record ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /{kind}/{id} [delete]
func (h *InventoryHandler[T]) Delete(c echo.Context) error {
	if err := h.store.Delete(c.Param("id")); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
