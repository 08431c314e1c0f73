package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
)

// HeaderCaller carries the hex address the request acts as.
const HeaderCaller = "Ax-Caller"

const callerKey = "ax.caller"

func parseCaller(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return common.Address{}, errors.New("missing " + HeaderCaller)
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, errors.New("invalid " + HeaderCaller)
	}
	addr := common.HexToAddress(raw)
	if addr == (common.Address{}) {
		return common.Address{}, errors.New("invalid " + HeaderCaller)
	}
	return addr, nil
}

// Caller resolves Ax-Caller into the request context. Mutating requests must
// carry it; reads may omit it.
func Caller() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(HeaderCaller)
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				if strings.TrimSpace(raw) == "" {
					return next(c)
				}
			}
			addr, err := parseCaller(raw)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}
			c.Set(callerKey, addr)
			return next(c)
		}
	}
}

// CallerFrom returns the address set by Caller.
func CallerFrom(c echo.Context) (common.Address, bool) {
	addr, ok := c.Get(callerKey).(common.Address)
	return addr, ok
}
