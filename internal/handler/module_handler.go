package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"gcpanel/internal/app"
	"gcpanel/internal/auth"
)

// ModuleHandler serves navigation and module views.
type ModuleHandler struct {
	dispatcher *app.Dispatcher
	sessions   *app.SessionStore
}

func NewModuleHandler(dispatcher *app.Dispatcher, sessions *app.SessionStore) *ModuleHandler {
	return &ModuleHandler{dispatcher: dispatcher, sessions: sessions}
}

// SessionResponse is the navigation state of the signed-in user.
type SessionResponse struct {
	CurrentModule string             `json:"current_module"`
	Menu          []app.MenuItem     `json:"menu"`
	Notifications []app.Notification `json:"notifications"`
	// View is omitted when the current module can no longer be built,
	// for example after the user lost the permission for it.
	View *app.View `json:"view,omitempty"`
}

func (h *ModuleHandler) session(c echo.Context) (*app.Session, error) {
	user, err := currentUser(c)
	if err != nil {
		return nil, err
	}
	return h.sessions.Load(c.Request().Context(), user, auth.TokenFromContext(c)), nil
}

// Menu godoc
// @Summary Modules the user may open
// @Tags modules
// @Produce json
// @Security BearerAuth
// @Success 200 {array} app.MenuItem
// @Router /modules [get]
func (h *ModuleHandler) Menu(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.dispatcher.Menu(s))
}

// Open godoc
// @Summary Open a module
// @Description Builds the module view and makes it the current module.
// @Tags modules
// @Produce json
// @Security BearerAuth
// @Param name path string true "Module name"
// @Success 200 {object} app.View
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /modules/{name} [get]
func (h *ModuleHandler) Open(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	view, err := h.dispatcher.Dispatch(c.Request().Context(), s, c.Param("name"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// Session godoc
// @Summary Navigation state
// @Description Returns the menu, pending notifications and the view of the current module.
// @Tags modules
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SessionResponse
// @Router /session [get]
func (h *ModuleHandler) Session(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	res := SessionResponse{
		CurrentModule: s.CurrentModule,
		Menu:          h.dispatcher.Menu(s),
		Notifications: s.Notifications,
	}
	if view, err := h.dispatcher.Current(c.Request().Context(), s); err == nil {
		res.View = view
	}
	return c.JSON(http.StatusOK, res)
}

// ClearNotifications godoc
// @Summary Dismiss all notifications
// @Tags modules
// @Security BearerAuth
// @Success 204
// @Router /session/notifications [delete]
func (h *ModuleHandler) ClearNotifications(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	if err := h.sessions.ClearNotifications(c.Request().Context(), s); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
