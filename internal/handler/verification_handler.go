package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"tresesenta/internal/middleware"
	"tresesenta/internal/service"
	"tresesenta/pkg/apperr"
	"tresesenta/pkg/cloudinary"
	"tresesenta/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxEvidenceBytes = 10 << 20

type VerificationHandler struct {
	verification *service.Verification
	cloud        cloudinary.Client
	folder       string
}

func NewVerificationHandler(verification *service.Verification, cloud cloudinary.Client, folder string) *VerificationHandler {
	if folder == "" {
		folder = "tresesenta"
	}
	return &VerificationHandler{verification: verification, cloud: cloud, folder: folder}
}

// MyRequests handles GET /verification/my-requests.
func (h *VerificationHandler) MyRequests(c *gin.Context) {
	list, err := h.verification.ListMine(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

type evidenceRequest struct {
	ImageURLs []string `json:"image_urls"`
}

// AddImages handles POST /verification/:pinId/add-images.
func (h *VerificationHandler) AddImages(c *gin.Context) {
	pinID, ok := parseID(c, "pinId")
	if !ok {
		return
	}
	var req evidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	out, err := h.verification.AddEvidence(c.Request.Context(), middleware.GetUserID(c), pinID, req.ImageURLs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// UploadEvidence handles POST /verification/:pinId/evidence with a
// multipart "file" field; the image goes to Cloudinary and its URL is
// attached to the pending request.
func (h *VerificationHandler) UploadEvidence(c *gin.Context) {
	pinID, ok := parseID(c, "pinId")
	if !ok {
		return
	}
	userID := middleware.GetUserID(c)
	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file required")
		return
	}
	if file.Size > maxEvidenceBytes {
		badRequest(c, "file too large")
		return
	}
	if ct := file.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		badRequest(c, "only images are accepted")
		return
	}
	f, err := file.Open()
	if err != nil {
		badRequest(c, "could not read file")
		return
	}
	defer f.Close()

	folder := fmt.Sprintf("%s/verification/%d", h.folder, userID)
	publicID := "ev_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	url, err := h.cloud.UploadImage(c.Request.Context(), f, folder, publicID)
	if err != nil {
		if errors.Is(err, cloudinary.ErrNotConfigured) {
			respondError(c, apperr.Disabled(apperr.CodeFeatureDisabled, "image uploads are not configured"))
			return
		}
		logger.WithError(err).WithFields(logrus.Fields{"user_id": userID, "pin_id": pinID}).Error("evidence upload failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed", "code": "UPLOAD_FAILED"})
		return
	}
	out, err := h.verification.AddEvidence(c.Request.Context(), userID, pinID, []string{url})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url, "request": out})
}

// Resubmit handles POST /verification/:pinId/resubmit.
func (h *VerificationHandler) Resubmit(c *gin.Context) {
	pinID, ok := parseID(c, "pinId")
	if !ok {
		return
	}
	var req evidenceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	out, err := h.verification.Resubmit(c.Request.Context(), middleware.GetUserID(c), pinID, req.ImageURLs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}
