package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"loan-engine/internal/adapter/middleware"
	"loan-engine/internal/domain/asset"
	domain "loan-engine/internal/domain/loan"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// bindValid binds the body into req and runs the validator. It writes the
// 400/422 response itself and reports whether the handler should go on.
func bindValid(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	return true, nil
}

func pathUint(c echo.Context, name string) (uint64, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("path param %s: %w", name, domain.ErrInvalidInput)
	}
	return v, nil
}

func queryUint(c echo.Context, name string) (uint64, error) {
	v, err := strconv.ParseUint(c.QueryParam(name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("query param %s: %w", name, domain.ErrInvalidInput)
	}
	return v, nil
}

// parseAddress accepts "native" for the chain's native asset.
func parseAddress(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "native") {
		return asset.Native, nil
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("address %q: %w", raw, domain.ErrInvalidInput)
	}
	return common.HexToAddress(raw), nil
}

func optAddress(raw string) (*common.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	a, err := parseAddress(raw)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// amountOrZero parses validated amount strings; empty means zero.
func amountOrZero(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	return decimal.RequireFromString(raw)
}

func callerOf(c echo.Context) (common.Address, error) {
	addr, ok := middleware.CallerFrom(c)
	if !ok {
		return common.Address{}, fmt.Errorf("missing %s header: %w", middleware.HeaderCaller, domain.ErrInvalidInput)
	}
	return addr, nil
}
