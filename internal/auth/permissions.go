package auth

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	apperrors "gcpanel/internal/errors"
	"gcpanel/internal/model"
)

// Permission is an action a role may perform.
type Permission string

const (
	PermCreate Permission = "create"
	PermRead   Permission = "read"
	PermUpdate Permission = "update"
	PermDelete Permission = "delete"
	PermAdmin  Permission = "admin"
)

// RolePermissions maps each bootstrap role to what it may do.
var RolePermissions = map[string][]Permission{
	model.RoleAdmin:          {PermCreate, PermRead, PermUpdate, PermDelete, PermAdmin},
	model.RoleProjectManager: {PermCreate, PermRead, PermUpdate, PermDelete},
	model.RoleEngineer:       {PermCreate, PermRead, PermUpdate},
	model.RoleField:          {PermCreate, PermRead},
	model.RoleViewer:         {PermRead},
}

// HasPermission reports whether any of roles grants p.
func HasPermission(roles []string, p Permission) bool {
	for _, r := range roles {
		if slices.Contains(RolePermissions[r], p) {
			return true
		}
	}
	return false
}

// PermissionsFor returns the union of permissions granted by roles, in a stable order.
func PermissionsFor(roles []string) []Permission {
	var out []Permission
	for _, p := range []Permission{PermCreate, PermRead, PermUpdate, PermDelete, PermAdmin} {
		if HasPermission(roles, p) {
			out = append(out, p)
		}
	}
	return out
}

// UserCan reports whether an active, loaded user holds p.
func UserCan(u *model.User, p Permission) bool {
	return u != nil && HasPermission(u.RoleNames(), p)
}

const (
	userContextKey  = "gcpanel.user"
	tokenContextKey = "gcpanel.token"
)

// SetUser stores the authenticated user on the request context.
func SetUser(c echo.Context, u *model.User) {
	c.Set(userContextKey, u)
}

// UserFromContext returns the authenticated user set by the JWT middleware.
func UserFromContext(c echo.Context) (*model.User, bool) {
	u, ok := c.Get(userContextKey).(*model.User)
	return u, ok && u != nil
}

// SetToken stores the raw bearer token the user was resolved from.
func SetToken(c echo.Context, token string) {
	c.Set(tokenContextKey, token)
}

func TokenFromContext(c echo.Context) string {
	token, _ := c.Get(tokenContextKey).(string)
	return token
}

// RequirePermission rejects requests whose user lacks p.
func RequirePermission(p Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := UserFromContext(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
					Error: apperrors.ErrInvalidToken.Error(),
					Code:  "INVALID_TOKEN",
				})
			}
			if !UserCan(u, p) {
				return echo.NewHTTPError(http.StatusForbidden, apperrors.ErrorResponse{
					Error: "missing permission: " + string(p),
					Code:  "FORBIDDEN",
				})
			}
			return next(c)
		}
	}
}
