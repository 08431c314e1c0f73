package http

import (
	"net/http"
	"time"

	domain "loan-engine/internal/domain/loan"

	"github.com/labstack/echo/v4"
)

type Handler struct{ blocks domain.BlockSource }

func NewHandler(blocks domain.BlockSource) *Handler { return &Handler{blocks: blocks} }

// Health reports the block height the engine currently evaluates at. A
// failing height provider degrades the response but keeps it 200.
func (h *Handler) Health(c echo.Context) error {
	body := map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	}
	if h.blocks != nil {
		if block, err := h.blocks.CurrentBlock(c.Request().Context()); err != nil {
			body["status"] = "degraded"
			body["block_error"] = err.Error()
		} else {
			body["block"] = block
		}
	}
	return c.JSON(http.StatusOK, body)
}
