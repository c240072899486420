package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"saraban/internal/apperr"
	"saraban/pkg/logger"
	"saraban/pkg/util"
)

// Machine readable error codes sent next to the message.
const (
	CodeValidation    = "validation_failed"
	CodeUnauthorized  = "unauthorized"
	CodeForbidden     = "forbidden"
	CodeNotFound      = "not_found"
	CodeDuplicateCode = "duplicate_code"
	CodeUsernameTaken = "username_taken"
	CodeFileTooLarge  = "file_too_large"
	CodeAuditMissing  = "audit_not_recorded"
	CodeInternal      = "internal"
)

// ClaimsKey is the gin context key the auth middleware stores claims under.
const ClaimsKey = "claims"

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": code})
}

// respondError maps domain errors to HTTP. Anything unrecognised is a 500
// and is logged; the client only sees a generic message.
func respondError(c *gin.Context, log *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		abortWithError(c, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		abortWithError(c, http.StatusNotFound, CodeNotFound, "not found")
	case errors.Is(err, apperr.ErrDuplicateCode):
		abortWithError(c, http.StatusConflict, CodeDuplicateCode, err.Error())
	case errors.Is(err, apperr.ErrUsernameTaken):
		abortWithError(c, http.StatusConflict, CodeUsernameTaken, err.Error())
	case errors.Is(err, apperr.ErrInvalidCredentials):
		abortWithError(c, http.StatusUnauthorized, CodeUnauthorized, err.Error())
	case errors.Is(err, apperr.ErrFileTooLarge):
		abortWithError(c, http.StatusRequestEntityTooLarge, CodeFileTooLarge, err.Error())
	case errors.Is(err, apperr.ErrAuditNotRecorded):
		logger.WithTrace(c.Request.Context(), log).Error(op+" stored without audit entry",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		abortWithError(c, http.StatusInternalServerError, CodeAuditMissing, op+": change saved but audit entry not recorded; do not retry")
	default:
		logger.WithTrace(c.Request.Context(), log).Error(op+" failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		abortWithError(c, http.StatusInternalServerError, CodeInternal, op+" failed")
	}
}

func badRequest(c *gin.Context, message string) {
	abortWithError(c, http.StatusBadRequest, CodeValidation, message)
}

// idParam parses the :id path segment; it writes a 400 and returns false
// when the segment is not a positive integer.
func idParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// currentUser returns the claims the auth middleware stored.
func currentUser(c *gin.Context) util.Claims {
	v, _ := c.Get(ClaimsKey)
	claims, _ := v.(util.Claims)
	return claims
}

// actor is the display name written into audit rows.
func actor(c *gin.Context) string {
	claims := currentUser(c)
	if claims.Fullname != "" {
		return claims.Fullname
	}
	return claims.Username
}
