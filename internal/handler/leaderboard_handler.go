package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/civicnet/civicconnect-api/internal/middleware"
	"github.com/civicnet/civicconnect-api/internal/models"
	"github.com/civicnet/civicconnect-api/internal/service"
	appErrors "github.com/civicnet/civicconnect-api/pkg/errors"
	"github.com/civicnet/civicconnect-api/pkg/response"
)

// LeaderboardHandler exposes ranked point listings.
type LeaderboardHandler struct {
	leaderboard *service.LeaderboardService
}

// NewLeaderboardHandler constructs LeaderboardHandler.
func NewLeaderboardHandler(leaderboard *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// Top godoc
// @Summary Get the leaderboard
// @Tags Leaderboard
// @Produce json
// @Param period query string false "all, monthly or yearly"
// @Param districtId query string false "Scope to a district"
// @Param limit query int false "Number of entries"
// @Success 200 {object} response.Envelope
// @Router /leaderboard [get]
func (h *LeaderboardHandler) Top(c *gin.Context) {
	var filter models.LeaderboardFilter
	filter.Period = c.DefaultQuery("period", "all")
	filter.DistrictID = c.Query("districtId")
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "10")); err == nil {
		filter.Limit = limit
	}

	entries, fromCache, err := h.leaderboard.Top(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, fromCache)
	response.JSON(c, http.StatusOK, entries, nil, middleware.ExtractMeta(c))
}

// Rank godoc
// @Summary Get the current user's leaderboard entry
// @Tags Leaderboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /leaderboard/me [get]
func (h *LeaderboardHandler) Rank(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	entry, err := h.leaderboard.Rank(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Award godoc
// @Summary Grant a manual point award
// @Tags Leaderboard
// @Accept json
// @Produce json
// @Param payload body object true "Award payload"
// @Success 200 {object} response.Envelope
// @Router /leaderboard/award [post]
func (h *LeaderboardHandler) Award(c *gin.Context) {
	var payload struct {
		UserID string `json:"userId" binding:"required"`
		Points int    `json:"points" binding:"required"`
		Badge  string `json:"badge"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid award payload"))
		return
	}

	entry, err := h.leaderboard.AwardPoints(c.Request.Context(), payload.UserID, payload.Points, payload.Badge)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Recompute godoc
// @Summary Recompute leaderboard ranks
// @Tags Leaderboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leaderboard/recompute [post]
func (h *LeaderboardHandler) Recompute(c *gin.Context) {
	if err := h.leaderboard.RecomputeRanks(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "leaderboard ranks recomputed")
}
