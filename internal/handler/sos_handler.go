package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/civicnet/civicconnect-api/internal/models"
	"github.com/civicnet/civicconnect-api/internal/service"
	appErrors "github.com/civicnet/civicconnect-api/pkg/errors"
	"github.com/civicnet/civicconnect-api/pkg/response"
)

// SOSHandler exposes district emergency directory endpoints.
type SOSHandler struct {
	contacts *service.SOSService
}

// NewSOSHandler constructs SOSHandler.
func NewSOSHandler(contacts *service.SOSService) *SOSHandler {
	return &SOSHandler{contacts: contacts}
}

// List godoc
// @Summary List a district's emergency contacts
// @Tags SOS
// @Produce json
// @Param districtId query string true "District ID"
// @Param type query string false "Filter by contact type"
// @Param level query string false "Filter by emergency level"
// @Success 200 {object} response.Envelope
// @Router /sos [get]
func (h *SOSHandler) List(c *gin.Context) {
	filter := models.SOSFilter{
		DistrictID:     c.Query("districtId"),
		Type:           models.SOSContactType(c.Query("type")),
		EmergencyLevel: models.EmergencyLevel(c.Query("level")),
		ActiveOnly:     c.DefaultQuery("active", "true") == "true",
	}

	contacts, err := h.contacts.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contacts, nil)
}

// Get godoc
// @Summary Get an emergency contact
// @Tags SOS
// @Produce json
// @Param id path string true "Contact ID"
// @Success 200 {object} response.Envelope
// @Router /sos/{id} [get]
func (h *SOSHandler) Get(c *gin.Context) {
	contact, err := h.contacts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contact, nil)
}

// Create godoc
// @Summary Add an emergency contact
// @Description District admins manage their own directory; the super admin manages any
// @Tags SOS
// @Accept json
// @Produce json
// @Param payload body models.SOSContact true "Contact payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /sos [post]
func (h *SOSHandler) Create(c *gin.Context) {
	var contact models.SOSContact
	if err := c.ShouldBindJSON(&contact); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contact payload"))
		return
	}

	created, err := h.contacts.Create(c.Request.Context(), &contact, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update godoc
// @Summary Update an emergency contact
// @Tags SOS
// @Accept json
// @Produce json
// @Param id path string true "Contact ID"
// @Param payload body models.SOSContact true "Contact fields"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /sos/{id} [put]
func (h *SOSHandler) Update(c *gin.Context) {
	var contact models.SOSContact
	if err := c.ShouldBindJSON(&contact); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contact payload"))
		return
	}
	contact.ID = c.Param("id")

	updated, err := h.contacts.Update(c.Request.Context(), &contact, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Delete godoc
// @Summary Remove an emergency contact
// @Tags SOS
// @Produce json
// @Param id path string true "Contact ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /sos/{id} [delete]
func (h *SOSHandler) Delete(c *gin.Context) {
	if err := h.contacts.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
