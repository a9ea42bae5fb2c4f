package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"gcpanel/internal/model"
	"gcpanel/internal/service"
)

// UserHandler handles user administration.
type UserHandler struct {
	users service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(users service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param skip query int false "Offset"
// @Param limit query int false "Page size"
// @Param status query string false "Only users in this status"
// @Success 200 {array} model.User
// @Failure 403 {object} errors.ErrorResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		users []model.User
		err   error
	)
	if status := c.QueryParam("status"); status != "" {
		users, err = h.users.ListByStatus(ctx, model.UserStatus(status))
	} else {
		skip, limit := pagination(c)
		users, err = h.users.ListUsers(ctx, skip, limit)
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// GetUser godoc
// @Summary Get user by id
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} model.User
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.users.GetUser(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// SetStatus godoc
// @Summary Set user status
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body StatusRequest true "Status"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Router /users/{id}/status [put]
func (h *UserHandler) SetStatus(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req StatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.users.SetStatus(c.Request().Context(), actor, id, model.UserStatus(req.Status))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// AssignRole godoc
// @Summary Grant a role
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param role path string true "Role name"
// @Success 200 {object} model.User
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id}/roles/{role} [post]
func (h *UserHandler) AssignRole(c echo.Context) error {
	return h.role(c, h.users.AssignRole)
}

// RevokeRole godoc
// @Summary Revoke a role
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param role path string true "Role name"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Router /users/{id}/roles/{role} [delete]
func (h *UserHandler) RevokeRole(c echo.Context) error {
	return h.role(c, h.users.RevokeRole)
}

func (h *UserHandler) role(c echo.Context, apply func(ctx context.Context, actor *model.User, id uint, role string) (*model.User, error)) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	user, err := apply(c.Request().Context(), actor, id, c.Param("role"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, user)
}
