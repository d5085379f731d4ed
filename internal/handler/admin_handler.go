package handler

import (
	"net/http"
	"strconv"

	"tresesenta/internal/domain"
	"tresesenta/internal/middleware"
	"tresesenta/internal/repository"
	"tresesenta/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	admin        *service.AdminService
	verification *service.Verification
	settings     *service.SettingsService
	catalog      *service.Catalog
	ledger       *service.Ledger
	leaderboard  *service.LeaderboardService
}

func NewAdminHandler(
	admin *service.AdminService,
	verification *service.Verification,
	settings *service.SettingsService,
	catalog *service.Catalog,
	ledger *service.Ledger,
	leaderboard *service.LeaderboardService,
) *AdminHandler {
	return &AdminHandler{
		admin:        admin,
		verification: verification,
		settings:     settings,
		catalog:      catalog,
		ledger:       ledger,
		leaderboard:  leaderboard,
	}
}

type reasonRequest struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

// bindReason accepts an empty body.
func bindReason(c *gin.Context) (reasonRequest, bool) {
	var req reasonRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return req, false
	}
	return req, true
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	st, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// PendingVerifications handles GET /admin/verification/pending.
func (h *AdminHandler) PendingVerifications(c *gin.Context) {
	h.listVerifications(c, domain.VerificationPending)
}

// Verifications handles GET /admin/verification/all?status=.
func (h *AdminHandler) Verifications(c *gin.Context) {
	h.listVerifications(c, c.Query("status"))
}

func (h *AdminHandler) listVerifications(c *gin.Context, status string) {
	page, limit := parsePagination(c)
	list, total, err := h.verification.List(c.Request.Context(), status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paged(list, total, page, limit))
}

// ApproveVerification handles POST /admin/verification/:id/approve.
func (h *AdminHandler) ApproveVerification(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	req, ok := bindReason(c)
	if !ok {
		return
	}
	res, err := h.verification.Approve(c.Request.Context(), middleware.GetUserID(c), id, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RejectVerification handles POST /admin/verification/:id/reject.
func (h *AdminHandler) RejectVerification(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	req, ok := bindReason(c)
	if !ok {
		return
	}
	out, err := h.verification.Reject(c.Request.Context(), middleware.GetUserID(c), id, req.Reason, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Settings handles GET /admin/settings.
func (h *AdminHandler) Settings(c *gin.Context) {
	rows, err := h.settings.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	snap, err := h.settings.Load(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "effective": snap})
}

// UpdateSetting handles PUT /admin/settings/:key.
func (h *AdminHandler) UpdateSetting(c *gin.Context) {
	var req struct {
		Value string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	snap, err := h.settings.Update(c.Request.Context(), middleware.GetUserID(c), c.Param("key"), req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// PointActions handles GET /admin/point-actions.
func (h *AdminHandler) PointActions(c *gin.Context) {
	list, err := h.catalog.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// UpdatePointAction handles PUT /admin/point-actions/:code.
func (h *AdminHandler) UpdatePointAction(c *gin.Context) {
	kind, err := domain.ParseActionKind(c.Param("code"))
	if err != nil {
		badRequest(c, "unknown action code")
		return
	}
	var req struct {
		Points          *int    `json:"points"`
		DailyLimit      *int    `json:"daily_limit"`
		ClearDailyLimit bool    `json:"clear_daily_limit"`
		CooldownSeconds *int    `json:"cooldown_seconds"`
		ClearCooldown   bool    `json:"clear_cooldown"`
		BonusPoints     *int    `json:"bonus_points"`
		IsActive        *bool   `json:"is_active"`
		Description     *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	out, err := h.catalog.Update(c.Request.Context(), middleware.GetUserID(c), kind, service.ActionUpdate{
		Points:          req.Points,
		DailyLimit:      req.DailyLimit,
		ClearDailyLimit: req.ClearDailyLimit,
		CooldownSeconds: req.CooldownSeconds,
		ClearCooldown:   req.ClearCooldown,
		BonusPoints:     req.BonusPoints,
		IsActive:        req.IsActive,
		Description:     req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Users handles GET /admin/users?search=&banned=.
func (h *AdminHandler) Users(c *gin.Context) {
	page, limit := parsePagination(c)
	f := service.UserFilters{Search: c.Query("search"), Page: page, Limit: limit}
	if raw := c.Query("banned"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "invalid banned")
			return
		}
		f.Banned = &b
	}
	list, total, err := h.admin.ListUsers(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paged(list, total, page, limit))
}

// BanUser handles POST /admin/users/:id/ban.
func (h *AdminHandler) BanUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	req, ok := bindReason(c)
	if !ok {
		return
	}
	u, err := h.admin.BanUser(c.Request.Context(), middleware.GetUserID(c), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	h.leaderboard.Invalidate()
	c.JSON(http.StatusOK, u)
}

// UnbanUser handles POST /admin/users/:id/unban.
func (h *AdminHandler) UnbanUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	req, ok := bindReason(c)
	if !ok {
		return
	}
	u, err := h.admin.UnbanUser(c.Request.Context(), middleware.GetUserID(c), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	h.leaderboard.Invalidate()
	c.JSON(http.StatusOK, u)
}

// VerifyBuyer handles POST /admin/users/:id/verify-buyer {"verified": bool}.
func (h *AdminHandler) VerifyBuyer(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Verified *bool `json:"verified" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.admin.SetVerifiedBuyer(c.Request.Context(), middleware.GetUserID(c), id, *req.Verified)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// AdjustPoints handles POST /admin/users/:id/adjust {"points": n, "reason": "..."}.
func (h *AdminHandler) AdjustPoints(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Points int    `json:"points"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	t, err := h.ledger.Adjust(c.Request.Context(), middleware.GetUserID(c), id, req.Points, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// LedgerAudit handles GET /admin/users/:id/ledger-audit.
func (h *AdminHandler) LedgerAudit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	rep, err := h.ledger.VerifyChain(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// ReverseTransaction handles POST /admin/transactions/:id/reverse.
func (h *AdminHandler) ReverseTransaction(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	req, ok := bindReason(c)
	if !ok {
		return
	}
	t, err := h.ledger.Reverse(c.Request.Context(), middleware.GetUserID(c), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// SetAdmin handles POST /admin/users/:id/set-admin {"is_admin": bool, "reason": "..."}.
func (h *AdminHandler) SetAdmin(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		IsAdmin *bool  `json:"is_admin" binding:"required"`
		Reason  string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	u, err := h.admin.SetAdmin(c.Request.Context(), middleware.GetUserID(c), id, *req.IsAdmin, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// Pins handles GET /admin/pins?hidden=: every pin, hidden ones included.
func (h *AdminHandler) Pins(c *gin.Context) {
	f, ok := pinFilters(c)
	if !ok {
		return
	}
	if raw := c.Query("hidden"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "invalid hidden")
			return
		}
		f.Hidden = &b
	}
	list, total, err := h.admin.ListPins(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paged(list, total, f.Page, f.Limit))
}

// HidePin handles POST /admin/pins/:id/hide.
func (h *AdminHandler) HidePin(c *gin.Context) {
	h.setHidden(c, true)
}

// UnhidePin handles POST /admin/pins/:id/unhide.
func (h *AdminHandler) UnhidePin(c *gin.Context) {
	h.setHidden(c, false)
}

func (h *AdminHandler) setHidden(c *gin.Context, hidden bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	req, ok := bindReason(c)
	if !ok {
		return
	}
	adminID := middleware.GetUserID(c)
	var err error
	if hidden {
		err = h.admin.HidePin(c.Request.Context(), adminID, id, req.Reason)
	} else {
		err = h.admin.UnhidePin(c.Request.Context(), adminID, id, req.Reason)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pin_id": id, "hidden": hidden})
}

// ModerationLogs handles GET /admin/moderation-logs.
func (h *AdminHandler) ModerationLogs(c *gin.Context) {
	page, limit := parsePagination(c)
	f := repository.ModerationFilters{
		ActionType: c.Query("action_type"),
		TargetType: c.Query("target_type"),
		Page:       page,
		Limit:      limit,
	}
	var ok bool
	if f.AdminID, ok = optionalUint(c, "admin_id"); !ok {
		return
	}
	list, total, err := h.admin.ModerationLogs(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paged(list, total, page, limit))
}
