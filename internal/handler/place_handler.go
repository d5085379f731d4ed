package handler

import (
	"net/http"

	"tresesenta/internal/service"

	"github.com/gin-gonic/gin"
)

type PlaceHandler struct {
	places *service.PlaceService
}

func NewPlaceHandler(places *service.PlaceService) *PlaceHandler {
	return &PlaceHandler{places: places}
}

// Categories handles GET /categories.
func (h *PlaceHandler) Categories(c *gin.Context) {
	list, err := h.places.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// Cities handles GET /cities?state=.
func (h *PlaceHandler) Cities(c *gin.Context) {
	list, err := h.places.Cities(c.Request.Context(), c.Query("state"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// City handles GET /cities/:id.
func (h *PlaceHandler) City(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	city, err := h.places.City(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, city)
}
