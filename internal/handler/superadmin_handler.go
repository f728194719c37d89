package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/civicnet/civicconnect-api/internal/models"
	"github.com/civicnet/civicconnect-api/internal/service"
	appErrors "github.com/civicnet/civicconnect-api/pkg/errors"
	"github.com/civicnet/civicconnect-api/pkg/response"
)

// SuperAdminHandler exposes the super admin profile and the district
// application decision endpoints.
type SuperAdminHandler struct {
	superAdmin   *service.SuperAdminService
	applications *service.ApplicationService
}

// NewSuperAdminHandler constructs SuperAdminHandler.
func NewSuperAdminHandler(superAdmin *service.SuperAdminService, applications *service.ApplicationService) *SuperAdminHandler {
	return &SuperAdminHandler{superAdmin: superAdmin, applications: applications}
}

// Exists godoc
// @Summary Check whether the super admin account exists
// @Tags SuperAdmin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /super-admin/exists [get]
func (h *SuperAdminHandler) Exists(c *gin.Context) {
	exists, err := h.superAdmin.Exists(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"exists": exists}, nil)
}

// Profile godoc
// @Summary Get the super admin profile
// @Tags SuperAdmin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /super-admin/profile [get]
func (h *SuperAdminHandler) Profile(c *gin.Context) {
	profile, err := h.superAdmin.Profile(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// UpdateProfile godoc
// @Summary Update the super admin profile
// @Tags SuperAdmin
// @Accept json
// @Produce json
// @Param payload body object true "Profile fields"
// @Success 200 {object} response.Envelope
// @Router /super-admin/profile [put]
func (h *SuperAdminHandler) UpdateProfile(c *gin.Context) {
	var payload struct {
		Name        *string  `json:"name"`
		PhoneNumber *string  `json:"phoneNumber"`
		Latitude    *float64 `json:"latitude"`
		Longitude   *float64 `json:"longitude"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	profile, err := h.superAdmin.UpdateProfile(c.Request.Context(), payload.Name, payload.PhoneNumber, payload.Latitude, payload.Longitude)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// ListApplications godoc
// @Summary List district applications
// @Tags Applications
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /super-admin/applications [get]
func (h *SuperAdminHandler) ListApplications(c *gin.Context) {
	var filter models.ApplicationFilter
	filter.Status = models.ApprovalStatus(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	apps, pagination, err := h.applications.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apps, pagination)
}

// GetApplication godoc
// @Summary Get district application detail
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /super-admin/applications/{id} [get]
func (h *SuperAdminHandler) GetApplication(c *gin.Context) {
	app, err := h.applications.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// ApproveApplication godoc
// @Summary Approve a district application
// @Description Create a verified district with the applicant as embedded admin; replays return the existing district
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /super-admin/applications/{id}/approve [post]
func (h *SuperAdminHandler) ApproveApplication(c *gin.Context) {
	district, err := h.applications.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, district, nil)
}

// DecideApplication godoc
// @Summary Decide a district application
// @Description Approve or reject a district application in one call
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body models.ApplicationDecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /superadmin/district-applications/{id}/decision [put]
func (h *SuperAdminHandler) DecideApplication(c *gin.Context) {
	var req models.ApplicationDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	switch req.Action {
	case models.DecisionApprove:
		district, err := h.applications.Approve(c.Request.Context(), c.Param("id"))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, district, nil)
	case models.DecisionReject:
		app, err := h.applications.Reject(c.Request.Context(), c.Param("id"), req.Reason)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, app, nil)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "action must be approve or reject"))
	}
}

// RejectApplication godoc
// @Summary Reject a district application
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body models.ApplicationDecisionRequest false "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /super-admin/applications/{id}/reject [post]
func (h *SuperAdminHandler) RejectApplication(c *gin.Context) {
	var req models.ApplicationDecisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}

	app, err := h.applications.Reject(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}
