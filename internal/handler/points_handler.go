package handler

import (
	"net/http"
	"strconv"

	"tresesenta/internal/middleware"
	"tresesenta/internal/service"

	"github.com/gin-gonic/gin"
)

type PointsHandler struct {
	catalog     *service.Catalog
	points      *service.PointsService
	login       *service.LoginService
	leaderboard *service.LeaderboardService
}

func NewPointsHandler(catalog *service.Catalog, points *service.PointsService, login *service.LoginService, leaderboard *service.LeaderboardService) *PointsHandler {
	return &PointsHandler{catalog: catalog, points: points, login: login, leaderboard: leaderboard}
}

// Actions handles GET /points/actions: the active catalog.
func (h *PointsHandler) Actions(c *gin.Context) {
	list, err := h.catalog.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// Leaderboard handles GET /points/leaderboard?period=all|week|month.
func (h *PointsHandler) Leaderboard(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(c, "invalid limit")
			return
		}
		limit = n
	}
	lb, err := h.leaderboard.Get(c.Request.Context(), c.DefaultQuery("period", "all"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lb)
}

// MyTransactions handles GET /points/my-transactions.
func (h *PointsHandler) MyTransactions(c *gin.Context) {
	page, limit := parsePagination(c)
	list, total, err := h.points.History(c.Request.Context(), middleware.GetUserID(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paged(list, total, page, limit))
}

// MyStats handles GET /points/my-stats.
func (h *PointsHandler) MyStats(c *gin.Context) {
	st, err := h.points.MyStats(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// DailyLogin handles POST /points/daily-login.
func (h *PointsHandler) DailyLogin(c *gin.Context) {
	claim, err := h.login.ClaimDailyLogin(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claim)
}
