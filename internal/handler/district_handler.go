package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/civicnet/civicconnect-api/internal/models"
	"github.com/civicnet/civicconnect-api/internal/service"
	appErrors "github.com/civicnet/civicconnect-api/pkg/errors"
	"github.com/civicnet/civicconnect-api/pkg/response"
)

// DistrictHandler exposes district endpoints.
type DistrictHandler struct {
	districts *service.DistrictService
}

// NewDistrictHandler constructs DistrictHandler.
func NewDistrictHandler(districts *service.DistrictService) *DistrictHandler {
	return &DistrictHandler{districts: districts}
}

// List godoc
// @Summary List districts
// @Tags Districts
// @Produce json
// @Param search query string false "Search by name"
// @Param state query string false "Filter by state"
// @Param verified query bool false "Filter by verification"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /districts [get]
func (h *DistrictHandler) List(c *gin.Context) {
	var filter models.DistrictFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.State = c.Query("state")
	if verified := c.Query("verified"); verified != "" {
		if v, err := strconv.ParseBool(verified); err == nil {
			filter.Verified = &v
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	districts, pagination, err := h.districts.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, districts, pagination)
}

// Get godoc
// @Summary Get district detail
// @Tags Districts
// @Produce json
// @Param id path string true "District ID"
// @Success 200 {object} response.Envelope
// @Router /districts/{id} [get]
func (h *DistrictHandler) Get(c *gin.Context) {
	district, err := h.districts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, district, nil)
}

// Resolve godoc
// @Summary Resolve coordinates to a district
// @Description Reverse geocode a coordinate pair and attach the nearest registered district
// @Tags Districts
// @Produce json
// @Param lat query number true "Latitude"
// @Param lng query number true "Longitude"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /districts/resolve [get]
func (h *DistrictHandler) Resolve(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "lat is required"))
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "lng is required"))
		return
	}

	resolved, err := h.districts.ResolveByCoordinates(c.Request.Context(), lat, lng)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resolved, nil)
}

// Create godoc
// @Summary Register a district
// @Tags Districts
// @Accept json
// @Produce json
// @Param payload body models.District true "District fields"
// @Success 201 {object} response.Envelope
// @Router /districts [post]
func (h *DistrictHandler) Create(c *gin.Context) {
	var district models.District
	if err := c.ShouldBindJSON(&district); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid district payload"))
		return
	}

	created, err := h.districts.Create(c.Request.Context(), &district)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update godoc
// @Summary Update a district
// @Tags Districts
// @Accept json
// @Produce json
// @Param id path string true "District ID"
// @Param payload body models.District true "District fields"
// @Success 200 {object} response.Envelope
// @Router /districts/{id} [put]
func (h *DistrictHandler) Update(c *gin.Context) {
	var district models.District
	if err := c.ShouldBindJSON(&district); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid district payload"))
		return
	}
	district.ID = c.Param("id")

	updated, err := h.districts.Update(c.Request.Context(), &district)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Verify godoc
// @Summary Mark a district verified or unverified
// @Tags Districts
// @Accept json
// @Produce json
// @Param id path string true "District ID"
// @Param payload body object true "Verified flag"
// @Success 200 {object} response.Envelope
// @Router /districts/{id}/verify [put]
func (h *DistrictHandler) Verify(c *gin.Context) {
	var payload struct {
		Verified bool `json:"verified"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	district, err := h.districts.Verify(c.Request.Context(), c.Param("id"), payload.Verified)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, district, nil)
}

// Delete godoc
// @Summary Delete a district
// @Tags Districts
// @Produce json
// @Param id path string true "District ID"
// @Success 204 {object} response.Envelope
// @Router /districts/{id} [delete]
func (h *DistrictHandler) Delete(c *gin.Context) {
	if err := h.districts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Get district activity stats
// @Tags Districts
// @Produce json
// @Param id path string true "District ID"
// @Success 200 {object} response.Envelope
// @Router /districts/{id}/stats [get]
func (h *DistrictHandler) Stats(c *gin.Context) {
	stats, err := h.districts.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// IssueReport godoc
// @Summary Download a district issue report
// @Description Export the district's issues as CSV or PDF
// @Tags Districts
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "District ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /districts/{id}/report [get]
func (h *DistrictHandler) IssueReport(c *gin.Context) {
	id := c.Param("id")
	format := c.DefaultQuery("format", "pdf")

	payload, contentType, err := h.districts.IssueReport(c.Request.Context(), id, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	ext := "pdf"
	if contentType == "text/csv" {
		ext = "csv"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=district-%s-issues.%s", id, ext))
	c.Data(http.StatusOK, contentType, payload)
}
