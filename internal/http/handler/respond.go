package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gideon-Phiri/secure-auth-service/internal/domain"
	"github.com/Gideon-Phiri/secure-auth-service/internal/service"
)

// respondError maps service errors onto HTTP responses. Taxonomy errors map
// to their own status; anything unexpected becomes a generic 500 with full
// context logged server-side only.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var rateErr *domain.RateLimitError
	if errors.As(err, &rateErr) {
		c.Header("Retry-After", strconv.Itoa(rateErr.RetryAfter))
		c.JSON(rateErr.Status, gin.H{"error": rateErr.Code, "error_description": rateErr.Description})
		return
	}

	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		c.JSON(authErr.Status, gin.H{"error": authErr.Code, "error_description": authErr.Description})
		return
	}

	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "error_description": validationDetail(err)})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "NOT_FOUND", "error_description": "User not found."})
	case errors.Is(err, service.ErrLastAdmin):
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "error_description": "Cannot remove or deactivate the last admin."})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "FORBIDDEN", "error_description": "Not enough permissions."})
	default:
		if logger == nil {
			logger = zap.L()
		}
		logger.Error("request failed", zap.Error(err))
		internal := domain.ErrInternal()
		c.JSON(internal.Status, gin.H{"error": internal.Code, "error_description": internal.Description})
	}
}

// validationDetail strips the sentinel prefix, leaving the user-facing rule.
func validationDetail(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, ": "); idx >= 0 {
		return msg[idx+2:]
	}
	return msg
}
