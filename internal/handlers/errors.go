package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/amkoya-stack/cycles-sub000/internal/apperrors"
	"github.com/gin-gonic/gin"
)

// statusFor maps an error kind to its HTTP status. Order matters: the more
// specific kinds are checked first.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrMaxRetriesExceeded):
		return http.StatusConflict, "max_retries_exceeded"
	case errors.Is(err, apperrors.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrDuplicate):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, "insufficient_funds"
	case errors.Is(err, apperrors.ErrUpstream):
		return http.StatusBadGateway, "upstream_failure"
	}
	return http.StatusInternalServerError, "internal_error"
}

// respondError writes err as JSON. Unclassified errors are logged and hidden
// behind fallback.
func respondError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(status, gin.H{"error": fallback, "code": code})
		return
	}

	logger.Warn("Request rejected", slog.String("code", code), slog.String("error", err.Error()))
	body := gin.H{"error": err.Error(), "code": code}
	if fields := apperrors.FieldsOf(err); len(fields) > 0 {
		body["details"] = fields
	}
	c.JSON(status, body)
}

func respondBindError(c *gin.Context, logger *slog.Logger, err error) {
	logger.Warn("Failed to bind request", slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error(), "code": "validation_error"})
}
