package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"gcpanel/internal/service"
)

// AdminHandler exposes maintenance, settings and the audit trail.
type AdminHandler struct {
	admin    service.AdminService
	settings service.SettingsService
	audit    service.AuditService
}

func NewAdminHandler(admin service.AdminService, settings service.SettingsService, audit service.AuditService) *AdminHandler {
	return &AdminHandler{admin: admin, settings: settings, audit: audit}
}

// SettingRequest sets a configuration value.
type SettingRequest struct {
	Value string `json:"value"`
}

// SettingResponse is one configuration entry.
type SettingResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Entities godoc
// @Summary Entity types that support hard delete and restore
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} string
// @Router /admin/entities [get]
func (h *AdminHandler) Entities(c echo.Context) error {
	return c.JSON(http.StatusOK, h.admin.Entities())
}

// HardDelete godoc
// @Summary Permanently delete a record
// @Tags admin
// @Security BearerAuth
// @Param entity path string true "Entity type"
// @Param id path int true "Record ID"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/{entity}/{id} [delete]
func (h *AdminHandler) HardDelete(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.admin.HardDelete(c.Request().Context(), actor, c.Param("entity"), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Restore godoc
// @Summary Restore a soft-deleted record
// @Tags admin
// @Security BearerAuth
// @Param entity path string true "Entity type"
// @Param id path int true "Record ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/{entity}/{id}/restore [post]
func (h *AdminHandler) Restore(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.admin.Restore(c.Request().Context(), actor, c.Param("entity"), id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Settings godoc
// @Summary List settings
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.AppConfig
// @Router /settings [get]
func (h *AdminHandler) Settings(c echo.Context) error {
	all, err := h.settings.All(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, all)
}

// Setting godoc
// @Summary Get a setting
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param key path string true "Setting key"
// @Success 200 {object} SettingResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /settings/{key} [get]
func (h *AdminHandler) Setting(c echo.Context) error {
	key := c.Param("key")
	value, err := h.settings.Get(c.Request().Context(), key)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, SettingResponse{Key: key, Value: value})
}

// PutSetting godoc
// @Summary Set a setting
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param key path string true "Setting key"
// @Param request body SettingRequest true "Value"
// @Success 200 {object} SettingResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /settings/{key} [put]
func (h *AdminHandler) PutSetting(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req SettingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	key := c.Param("key")
	if err := h.settings.Set(c.Request().Context(), actor, key, req.Value); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, SettingResponse{Key: key, Value: req.Value})
}

// Audit godoc
// @Summary Audit trail
// @Description Recent entries, or the history of one record when entity and id are given.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param entity query string false "Entity type"
// @Param id query int false "Record ID"
// @Param limit query int false "Number of recent entries"
// @Success 200 {array} model.AuditLog
// @Router /audit [get]
func (h *AdminHandler) Audit(c echo.Context) error {
	ctx := c.Request().Context()
	if entity := c.QueryParam("entity"); entity != "" {
		id, err := strconv.ParseUint(c.QueryParam("id"), 10, 64)
		if err != nil {
			return badRequest("id is required with entity")
		}
		entries, err := h.audit.ListForEntity(ctx, entity, uint(id))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, entries)
	}

	_, limit := pagination(c)
	entries, err := h.audit.Recent(ctx, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}
