package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/civicnet/civicconnect-api/internal/models"
	"github.com/civicnet/civicconnect-api/internal/service"
	appErrors "github.com/civicnet/civicconnect-api/pkg/errors"
	"github.com/civicnet/civicconnect-api/pkg/response"
)

// IssueHandler exposes issue reporting endpoints.
type IssueHandler struct {
	issues *service.IssueService
}

// NewIssueHandler constructs IssueHandler.
func NewIssueHandler(issues *service.IssueService) *IssueHandler {
	return &IssueHandler{issues: issues}
}

// Create godoc
// @Summary Report a new issue
// @Tags Issues
// @Accept json
// @Produce json
// @Param payload body models.Issue true "Issue payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /issues [post]
func (h *IssueHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var issue models.Issue
	if err := c.ShouldBindJSON(&issue); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid issue payload"))
		return
	}
	issue.ReporterID = claims.UserID

	created, err := h.issues.Create(c.Request.Context(), &issue)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// List godoc
// @Summary List issues
// @Tags Issues
// @Produce json
// @Param status query string false "Filter by status"
// @Param category query string false "Filter by category"
// @Param districtId query string false "Filter by district"
// @Param reporterId query string false "Filter by reporter"
// @Param search query string false "Search in title and description"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /issues [get]
func (h *IssueHandler) List(c *gin.Context) {
	var filter models.IssueFilter
	filter.Status = models.IssueStatus(c.Query("status"))
	filter.Category = models.IssueCategory(c.Query("category"))
	filter.Priority = models.IssuePriority(c.Query("priority"))
	filter.DistrictID = c.Query("districtId")
	filter.ReporterID = c.Query("reporterId")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	issues, pagination, err := h.issues.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, issues, pagination)
}

// Get godoc
// @Summary Get issue detail
// @Tags Issues
// @Produce json
// @Param id path string true "Issue ID"
// @Success 200 {object} response.Envelope
// @Router /issues/{id} [get]
func (h *IssueHandler) Get(c *gin.Context) {
	issue, err := h.issues.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, issue, nil)
}

// UpdateStatus godoc
// @Summary Update issue status
// @Description Move an issue along its lifecycle; resolving pays out points
// @Tags Issues
// @Accept json
// @Produce json
// @Param id path string true "Issue ID"
// @Param payload body object true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /issues/{id}/status [put]
func (h *IssueHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Status models.IssueStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "status is required"))
		return
	}

	issue, err := h.issues.UpdateStatus(c.Request.Context(), c.Param("id"), payload.Status, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, issue, nil)
}

// Upvote godoc
// @Summary Upvote an issue
// @Tags Issues
// @Produce json
// @Param id path string true "Issue ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /issues/{id}/upvote [post]
func (h *IssueHandler) Upvote(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	issue, err := h.issues.Upvote(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, issue, nil)
}

// Delete godoc
// @Summary Delete an issue
// @Description Reporters can delete their own issues; admins can delete any
// @Tags Issues
// @Produce json
// @Param id path string true "Issue ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /issues/{id} [delete]
func (h *IssueHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.issues.Delete(c.Request.Context(), c.Param("id"), claims.UserID, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Issue status counts
// @Tags Issues
// @Produce json
// @Param districtId query string false "Scope to a district"
// @Success 200 {object} response.Envelope
// @Router /issues/stats [get]
func (h *IssueHandler) Stats(c *gin.Context) {
	stats, err := h.issues.Stats(c.Request.Context(), c.Query("districtId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
