package handler

import (
	"net/http"
	"strconv"

	"tresesenta/pkg/apperr"
	"tresesenta/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(ae *apperr.AppError) int {
	switch ae.Kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindAuthorization, apperr.KindDisabled:
		return http.StatusForbidden
	case apperr.KindPersistence:
		if ae.Code == apperr.CodeStorageTimeout || apperr.IsTimeout(ae) {
			return http.StatusServiceUnavailable
		}
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error", "code", "details"}. Storage causes
// are logged, never echoed.
func respondError(c *gin.Context, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		ae = apperr.New(apperr.KindPersistence, apperr.CodeStorage, "internal error", err)
	}
	status := statusFor(ae)
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithFields(logrus.Fields{
			"path": c.FullPath(),
			"code": ae.Code,
		}).Error("request failed")
		_ = c.Error(err)
	}
	if status == http.StatusTooManyRequests {
		if secs, ok := ae.Meta["retry_after_seconds"].(int); ok && secs > 0 {
			c.Header("Retry-After", strconv.Itoa(secs))
		}
	}
	body := gin.H{"error": ae.Message, "code": ae.Code}
	if len(ae.Meta) > 0 {
		body["details"] = ae.Meta
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	respondError(c, apperr.Validation(apperr.CodeInvalidInput, msg))
}

func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func optionalUint(c *gin.Context, name string) (*uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return nil, false
	}
	id := uint(v)
	return &id, true
}

func paged(data any, total int64, page, limit int) gin.H {
	return gin.H{"data": data, "total": total, "page": page, "limit": limit}
}
