package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"gcpanel/internal/model"
	"gcpanel/internal/service"
)

// ProjectHandler handles project endpoints.
type ProjectHandler struct {
	projects service.ProjectService
}

func NewProjectHandler(projects service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// StatusRequest sets a status on any entity.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// MilestoneRequest adds a milestone to a project.
type MilestoneRequest struct {
	Name    string     `json:"name" validate:"required,max=255"`
	DueDate *time.Time `json:"due_date"`
}

// List godoc
// @Summary List projects
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param skip query int false "Offset"
// @Param limit query int false "Page size"
// @Param q query string false "Search name, code and location"
// @Success 200 {array} model.Project
// @Router /projects [get]
func (h *ProjectHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		projects []model.Project
		err      error
	)
	if q := c.QueryParam("q"); q != "" {
		projects, err = h.projects.Search(ctx, q)
	} else {
		skip, limit := pagination(c)
		projects, err = h.projects.List(ctx, skip, limit)
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, projects)
}

// Create godoc
// @Summary Create project
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param project body object true "Project fields"
// @Success 201 {object} model.Project
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /projects [post]
func (h *ProjectHandler) Create(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	fields, err := bindFields(c)
	if err != nil {
		return err
	}
	project, err := h.projects.Create(c.Request().Context(), user, fields)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, project)
}

// Get godoc
// @Summary Get project by id
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 200 {object} model.Project
// @Failure 404 {object} errors.ErrorResponse
// @Router /projects/{id} [get]
func (h *ProjectHandler) Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	project, err := h.projects.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, project)
}

// GetByCode godoc
// @Summary Get project by code
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param code path string true "Project code"
// @Success 200 {object} model.Project
// @Failure 404 {object} errors.ErrorResponse
// @Router /projects/code/{code} [get]
func (h *ProjectHandler) GetByCode(c echo.Context) error {
	project, err := h.projects.GetByCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, project)
}

// Update godoc
// @Summary Update project fields
// @Description Unknown keys are ignored.
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param fields body object true "Fields to change"
// @Success 200 {object} model.Project
// @Failure 404 {object} errors.ErrorResponse
// @Router /projects/{id} [patch]
func (h *ProjectHandler) Update(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	fields, err := bindFields(c)
	if err != nil {
		return err
	}
	project, err := h.projects.Update(c.Request().Context(), user, id, fields)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, project)
}

// Delete godoc
// @Summary Soft delete project
// @Tags projects
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /projects/{id} [delete]
func (h *ProjectHandler) Delete(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.projects.Delete(c.Request().Context(), user, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetStatus godoc
// @Summary Set project status
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param request body StatusRequest true "Status"
// @Success 200 {object} model.Project
// @Failure 400 {object} errors.ErrorResponse
// @Router /projects/{id}/status [put]
func (h *ProjectHandler) SetStatus(c echo.Context) error {
	user, err := currentUser(c)
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
	project, err := h.projects.SetStatus(c.Request().Context(), user, id, model.ProjectStatus(req.Status))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, project)
}

// Members godoc
// @Summary List project team
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 200 {array} model.User
// @Router /projects/{id}/members [get]
func (h *ProjectHandler) Members(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	members, err := h.projects.Members(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, members)
}

// AddMember godoc
// @Summary Add a user to the project team
// @Tags projects
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param userID path int true "User ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /projects/{id}/members/{userID} [post]
func (h *ProjectHandler) AddMember(c echo.Context) error {
	return h.member(c, h.projects.AddMember)
}

// RemoveMember godoc
// @Summary Remove a user from the project team
// @Tags projects
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param userID path int true "User ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /projects/{id}/members/{userID} [delete]
func (h *ProjectHandler) RemoveMember(c echo.Context) error {
	return h.member(c, h.projects.RemoveMember)
}

func (h *ProjectHandler) member(c echo.Context, apply func(ctx context.Context, actor *model.User, projectID, userID uint) error) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	projectID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	userID, err := paramID(c, "userID")
	if err != nil {
		return err
	}
	if err := apply(c.Request().Context(), user, projectID, userID); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Milestones godoc
// @Summary List project milestones
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Success 200 {array} model.Milestone
// @Router /projects/{id}/milestones [get]
func (h *ProjectHandler) Milestones(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	milestones, err := h.projects.Milestones(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, milestones)
}

// AddMilestone godoc
// @Summary Add a milestone
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param request body MilestoneRequest true "Milestone"
// @Success 201 {object} model.Milestone
// @Failure 404 {object} errors.ErrorResponse
// @Router /projects/{id}/milestones [post]
func (h *ProjectHandler) AddMilestone(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req MilestoneRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	milestone, err := h.projects.AddMilestone(c.Request().Context(), user, id, service.MilestoneInput{
		Name:    req.Name,
		DueDate: req.DueDate,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, milestone)
}

// CompleteMilestone godoc
// @Summary Mark a milestone complete
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param id path int true "Milestone ID"
// @Success 200 {object} model.Milestone
// @Failure 404 {object} errors.ErrorResponse
// @Router /milestones/{id}/complete [put]
func (h *ProjectHandler) CompleteMilestone(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	milestone, err := h.projects.CompleteMilestone(c.Request().Context(), user, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, milestone)
}
