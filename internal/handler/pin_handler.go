package handler

import (
	"net/http"
	"strconv"

	"tresesenta/internal/middleware"
	"tresesenta/internal/repository"
	"tresesenta/internal/service"

	"github.com/gin-gonic/gin"
)

type PinHandler struct {
	pins *service.PinService
}

func NewPinHandler(pins *service.PinService) *PinHandler {
	return &PinHandler{pins: pins}
}

// Create handles POST /pins.
func (h *PinHandler) Create(c *gin.Context) {
	var req struct {
		Title          string   `json:"title" binding:"required"`
		Description    string   `json:"description"`
		ImageURLs      []string `json:"image_urls"`
		Latitude       *float64 `json:"latitude" binding:"required"`
		Longitude      *float64 `json:"longitude" binding:"required"`
		LocationName   string   `json:"location_name"`
		CategoryID     *uint    `json:"category_id"`
		CityID         *uint    `json:"city_id"`
		UsedTresesenta bool     `json:"used_tresesenta"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.pins.CreatePin(c.Request.Context(), middleware.GetUserID(c), service.CreatePinInput{
		Title:          req.Title,
		Description:    req.Description,
		ImageURLs:      req.ImageURLs,
		Latitude:       *req.Latitude,
		Longitude:      *req.Longitude,
		LocationName:   req.LocationName,
		CategoryID:     req.CategoryID,
		CityID:         req.CityID,
		UsedTresesenta: req.UsedTresesenta,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// List handles GET /pins.
func (h *PinHandler) List(c *gin.Context) {
	f, ok := pinFilters(c)
	if !ok {
		return
	}
	list, total, err := h.pins.ListPins(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paged(list, total, f.Page, f.Limit))
}

// pinFilters reads the list query shared by the public and admin pin lists.
func pinFilters(c *gin.Context) (repository.PinFilters, bool) {
	page, limit := parsePagination(c)
	f := repository.PinFilters{Page: page, Limit: limit, VerificationStatus: c.Query("verification_status")}
	var ok bool
	if f.CategoryID, ok = optionalUint(c, "category_id"); !ok {
		return f, false
	}
	if f.CityID, ok = optionalUint(c, "city_id"); !ok {
		return f, false
	}
	if f.UserID, ok = optionalUint(c, "user_id"); !ok {
		return f, false
	}
	return f, true
}

// Nearby handles GET /pins/nearby?lat=&lng=&radius_km=.
func (h *PinHandler) Nearby(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil {
		badRequest(c, "lat and lng are required")
		return
	}
	radius, err := strconv.ParseFloat(c.DefaultQuery("radius_km", "5"), 64)
	if err != nil {
		badRequest(c, "invalid radius_km")
		return
	}
	_, limit := parsePagination(c)
	list, err := h.pins.Nearby(c.Request.Context(), lat, lng, radius, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "count": len(list)})
}

// Get handles GET /pins/:id.
func (h *PinHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	pin, err := h.pins.GetPin(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pin)
}

// Like handles POST /pins/:id/like.
func (h *PinHandler) Like(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	res, err := h.pins.LikePin(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Unlike handles DELETE /pins/:id/like.
func (h *PinHandler) Unlike(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	likes, err := h.pins.UnlikePin(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"likes_count": likes})
}

// Comment handles POST /pins/:id/comments.
func (h *PinHandler) Comment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.pins.CommentPin(c.Request.Context(), middleware.GetUserID(c), id, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// Comments handles GET /pins/:id/comments.
func (h *PinHandler) Comments(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	page, limit := parsePagination(c)
	list, total, err := h.pins.ListComments(c.Request.Context(), id, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paged(list, total, page, limit))
}
