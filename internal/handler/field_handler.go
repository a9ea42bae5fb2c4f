package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"gcpanel/internal/inventory"
)

// FieldHandler serves the workflow actions of the field registers that
// plain CRUD does not cover.
type FieldHandler struct {
	documents    *inventory.DocumentStore
	photos       *inventory.PhotoStore
	transmittals *inventory.TransmittalStore
	now          func() time.Time
}

func NewFieldHandler(documents *inventory.DocumentStore, photos *inventory.PhotoStore, transmittals *inventory.TransmittalStore) *FieldHandler {
	return &FieldHandler{documents: documents, photos: photos, transmittals: transmittals, now: time.Now}
}

// PhotoReviewRequest records a decision on a progress photo.
type PhotoReviewRequest struct {
	Approved bool   `json:"approved"`
	Rating   int    `json:"rating" validate:"gte=0,lte=5"`
	Comments string `json:"comments"`
}

// AcknowledgeRequest names the recipient acknowledging a transmittal.
type AcknowledgeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Checkout godoc
// @Summary Check a document out for editing
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 200 {object} inventory.Document
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /documents/{id}/checkout [post]
func (h *FieldHandler) Checkout(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	doc, err := h.documents.Checkout(c.Param("id"), user.Username, h.now())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// Checkin godoc
// @Summary Check a document back in
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Document ID"
// @Success 200 {object} inventory.Document
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /documents/{id}/checkin [post]
func (h *FieldHandler) Checkin(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	doc, err := h.documents.Checkin(c.Param("id"), user.Username, h.now())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// ReviewPhoto godoc
// @Summary Approve or reject a progress photo
// @Tags photos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Photo ID"
// @Param request body PhotoReviewRequest true "Decision"
// @Success 200 {object} inventory.Photo
// @Failure 422 {object} errors.ErrorResponse
// @Router /photos/{id}/review [post]
func (h *FieldHandler) ReviewPhoto(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req PhotoReviewRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	photo, err := h.photos.Review(c.Param("id"), inventory.PhotoReview{
		Reviewer: user.Username,
		Approved: req.Approved,
		Rating:   req.Rating,
		Comments: req.Comments,
	}, h.now())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, photo)
}

// SendTransmittal godoc
// @Summary Send a draft transmittal
// @Tags transmittals
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transmittal ID"
// @Success 200 {object} inventory.Transmittal
// @Failure 422 {object} errors.ErrorResponse
// @Router /transmittals/{id}/send [post]
func (h *FieldHandler) SendTransmittal(c echo.Context) error {
	tr, err := h.transmittals.Send(c.Param("id"), h.now())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, tr)
}

// AcknowledgeTransmittal godoc
// @Summary Record a recipient's acknowledgment
// @Tags transmittals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transmittal ID"
// @Param request body AcknowledgeRequest true "Recipient"
// @Success 200 {object} inventory.Transmittal
// @Failure 404 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /transmittals/{id}/acknowledge [post]
func (h *FieldHandler) AcknowledgeTransmittal(c echo.Context) error {
	var req AcknowledgeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	tr, err := h.transmittals.Acknowledge(c.Param("id"), req.Email, h.now())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, tr)
}
