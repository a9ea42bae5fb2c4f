package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"gcpanel/internal/model"
	"gcpanel/internal/service"
)

// DocumentHandler serves the endpoints RFIs and submittals share.
type DocumentHandler[T model.Entity, S ~string] struct {
	docs service.DocumentService[T, S]
}

// AttachmentRequest registers an uploaded file against a document.
type AttachmentRequest struct {
	Filename string `json:"filename" validate:"required,max=255"`
	Size     int64  `json:"size" validate:"gte=0"`
	MimeType string `json:"mime_type" validate:"max=127"`
}

// RespondRequest answers an RFI.
type RespondRequest struct {
	Response string `json:"response" validate:"required"`
}

// ReviewRequest records a submittal review decision.
type ReviewRequest struct {
	Decision string `json:"decision" validate:"required"`
	Comments string `json:"comments"`
}

// List godoc
// @Summary List documents
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param kind path string true "rfis or submittals"
// @Param skip query int false "Offset"
// @Param limit query int false "Page size"
// @Success 200 {array} object
// @Router /{kind} [get]
func (h *DocumentHandler[T, S]) List(c echo.Context) error {
	skip, limit := pagination(c)
	docs, err := h.docs.List(c.Request().Context(), skip, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, docs)
}

// Mine godoc
// @Summary Documents assigned to or created by the caller
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param kind path string true "rfis or submittals"
// @Success 200 {array} object
// @Router /{kind}/mine [get]
func (h *DocumentHandler[T, S]) Mine(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	docs, err := h.docs.ListForUser(c.Request().Context(), user.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, docs)
}

// Overdue godoc
// @Summary Open documents past their due date
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param kind path string true "rfis or submittals"
// @Success 200 {array} object
// @Router /{kind}/overdue [get]
func (h *DocumentHandler[T, S]) Overdue(c echo.Context) error {
	docs, err := h.docs.ListOverdue(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, docs)
}

// ListByProject godoc
// @Summary Documents of a project
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param kind path string true "rfis or submittals"
// @Success 200 {array} object
// @Failure 404 {object} errors.ErrorResponse
// @Router /projects/{id}/{kind} [get]
func (h *DocumentHandler[T, S]) ListByProject(c echo.Context) error {
	projectID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	docs, err := h.docs.ListByProject(c.Request().Context(), projectID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, docs)
}

// Create godoc
// @Summary Create a document on a project
// @Description The number is assigned when omitted. Status is always draft.
// @Tags documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Project ID"
// @Param kind path string true "rfis or submittals"
// @Param fields body object true "Document fields"
// @Success 201 {object} object
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /projects/{id}/{kind} [post]
func (h *DocumentHandler[T, S]) Create(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	projectID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	fields, err := bindFields(c)
	if err != nil {
		return err
	}
	doc, err := h.docs.Create(c.Request().Context(), user, projectID, fields)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, doc)
}

// Get godoc
// @Summary Get a document
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param kind path string true "rfis or submittals"
// @Param id path int true "Document ID"
// @Success 200 {object} object
// @Failure 404 {object} errors.ErrorResponse
// @Router /{kind}/{id} [get]
func (h *DocumentHandler[T, S]) Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	doc, err := h.docs.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// Update godoc
// @Summary Update document fields
// @Description Unknown keys are ignored. Lifecycle fields are rejected.
// @Tags documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "rfis or submittals"
// @Param id path int true "Document ID"
// @Param fields body object true "Fields to change"
// @Success 200 {object} object
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /{kind}/{id} [patch]
func (h *DocumentHandler[T, S]) Update(c echo.Context) error {
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
	doc, err := h.docs.Update(c.Request().Context(), user, id, fields)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// Delete godoc
// @Summary Soft delete a document
// @Tags documents
// @Security BearerAuth
// @Param kind path string true "rfis or submittals"
// @Param id path int true "Document ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /{kind}/{id} [delete]
func (h *DocumentHandler[T, S]) Delete(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.docs.Delete(c.Request().Context(), user, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateStatus godoc
// @Summary Move a document through its lifecycle
// @Tags documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "rfis or submittals"
// @Param id path int true "Document ID"
// @Param request body StatusRequest true "Target status"
// @Success 200 {object} object
// @Failure 404 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /{kind}/{id}/status [put]
func (h *DocumentHandler[T, S]) UpdateStatus(c echo.Context) error {
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
	doc, err := h.docs.UpdateStatus(c.Request().Context(), user, id, S(req.Status))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// Transitions godoc
// @Summary Statuses reachable from the current one
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param kind path string true "rfis or submittals"
// @Param id path int true "Document ID"
// @Success 200 {object} object
// @Failure 404 {object} errors.ErrorResponse
// @Router /{kind}/{id}/transitions [get]
func (h *DocumentHandler[T, S]) Transitions(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	tr, err := h.docs.Transitions(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, tr)
}

// Attachments godoc
// @Summary List attachments
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param kind path string true "rfis or submittals"
// @Param id path int true "Document ID"
// @Success 200 {array} model.Attachment
// @Router /{kind}/{id}/attachments [get]
func (h *DocumentHandler[T, S]) Attachments(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	list, err := h.docs.Attachments(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// AddAttachment godoc
// @Summary Register an attachment
// @Tags documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "rfis or submittals"
// @Param id path int true "Document ID"
// @Param request body AttachmentRequest true "File metadata"
// @Success 201 {object} model.Attachment
// @Failure 404 {object} errors.ErrorResponse
// @Router /{kind}/{id}/attachments [post]
func (h *DocumentHandler[T, S]) AddAttachment(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req AttachmentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	att, err := h.docs.AddAttachment(c.Request().Context(), user, id, service.AttachmentInput{
		Filename: req.Filename,
		Size:     req.Size,
		MimeType: req.MimeType,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, att)
}

// RemoveAttachment godoc
// @Summary Remove an attachment
// @Tags documents
// @Security BearerAuth
// @Param kind path string true "rfis or submittals"
// @Param id path int true "Document ID"
// @Param attachmentID path int true "Attachment ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /{kind}/{id}/attachments/{attachmentID} [delete]
func (h *DocumentHandler[T, S]) RemoveAttachment(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	attachmentID, err := paramID(c, "attachmentID")
	if err != nil {
		return err
	}
	if err := h.docs.RemoveAttachment(c.Request().Context(), user, id, attachmentID); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RfiHandler handles RFI endpoints.
type RfiHandler struct {
	*DocumentHandler[model.Rfi, model.RfiStatus]
	rfis service.RfiService
}

func NewRfiHandler(rfis service.RfiService) *RfiHandler {
	return &RfiHandler{DocumentHandler: &DocumentHandler[model.Rfi, model.RfiStatus]{docs: rfis}, rfis: rfis}
}

// Respond godoc
// @Summary Answer an RFI
// @Tags rfis
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "RFI ID"
// @Param request body RespondRequest true "Answer"
// @Success 200 {object} model.Rfi
// @Failure 422 {object} errors.ErrorResponse
// @Router /rfis/{id}/respond [post]
func (h *RfiHandler) Respond(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req RespondRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	rfi, err := h.rfis.Respond(c.Request().Context(), user, id, req.Response)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rfi)
}

// SubmittalHandler handles submittal endpoints.
type SubmittalHandler struct {
	*DocumentHandler[model.Submittal, model.SubmittalStatus]
	submittals service.SubmittalService
}

func NewSubmittalHandler(submittals service.SubmittalService) *SubmittalHandler {
	return &SubmittalHandler{
		DocumentHandler: &DocumentHandler[model.Submittal, model.SubmittalStatus]{docs: submittals},
		submittals:      submittals,
	}
}

// Review godoc
// @Summary Record a review decision
// @Tags submittals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Submittal ID"
// @Param request body ReviewRequest true "Decision"
// @Success 200 {object} model.Submittal
// @Failure 400 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /submittals/{id}/review [post]
func (h *SubmittalHandler) Review(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req ReviewRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	sub, err := h.submittals.Review(c.Request().Context(), user, id, model.SubmittalStatus(req.Decision), req.Comments)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sub)
}
