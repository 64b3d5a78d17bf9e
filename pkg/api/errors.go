package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/tarsy/pkg/apperrors"
)

// statusForKind maps an apperrors.Kind onto the HTTP status the failure
// should surface as, mirroring the teacher's mapServiceError switch over
// its services package's sentinel errors.
func statusForKind(k apperrors.Kind) int {
	switch k {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindSafetyDenied:
		return http.StatusForbidden
	case apperrors.KindProviderTransient:
		return http.StatusServiceUnavailable
	case apperrors.KindProviderFatal, apperrors.KindExecutorInit:
		return http.StatusBadGateway
	case apperrors.KindInterrupted:
		return http.StatusConflict
	case apperrors.KindCodeExecution, apperrors.KindFileIO:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err onto an HTTP status and writes the response
// envelope. An *apperrors.AppError drives the mapping; any other error is
// logged and surfaced as a 500 without leaking internals.
func writeError(c *gin.Context, err error) {
	var ae *apperrors.AppError
	if errors.As(err, &ae) {
		status := statusForKind(ae.Kind)
		if status >= http.StatusInternalServerError {
			slog.Error("request failed", "kind", ae.Kind, "error", ae.Err)
		}
		c.JSON(status, failed(ae.Message))
		return
	}
	slog.Error("request failed", "error", err)
	c.JSON(http.StatusInternalServerError, failed("internal error"))
}

func notFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, failed(message))
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, failed(message))
}
