package http

import (
	"net/http"

	domain "loan-engine/internal/domain/loan"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var statusByCode = map[string]int{
	"NotFound":               http.StatusNotFound,
	"InvalidInput":           http.StatusBadRequest,
	"InvalidStatus":          http.StatusConflict,
	"AlreadyAdmin":           http.StatusConflict,
	"InsufficientFunds":      http.StatusUnprocessableEntity,
	"InsufficientAllowance":  http.StatusUnprocessableEntity,
	"InsufficientCollateral": http.StatusUnprocessableEntity,
	"OracleUnavailable":      http.StatusServiceUnavailable,
	"StaleData":              http.StatusServiceUnavailable,
	"AdminGuard":             http.StatusForbidden,
}

// Map domain errors → HTTP codes. Internal errors are logged and hidden.
func writeError(c echo.Context, log zerolog.Logger, err error) error {
	code := domain.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		log.Error().Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("request failed")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: code})
	}
	return c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}
