package http

import (
	"net/http"

	"loan-engine/internal/usecase/admin"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// AdminHandler serves the owner/admin routes plus the public pair, asset and
// fee reads.
type AdminHandler struct {
	uc  *admin.Usecase
	log zerolog.Logger
}

func NewAdminHandler(uc *admin.Usecase, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{uc: uc, log: log}
}

type addAdminReq struct {
	Address string `json:"address" validate:"required,address"`
}

type newPairReq struct {
	Name          string `json:"name"           validate:"required,max=32"`
	Value         string `json:"value"          validate:"required,amount"`
	PairDecimals  uint8  `json:"pair_decimals"  validate:"lte=36"`
	BaseAsset     string `json:"base_asset"     validate:"required"`
	BaseDecimals  uint8  `json:"base_decimals"  validate:"lte=36"`
	QuoteAsset    string `json:"quote_asset"    validate:"required"`
	QuoteDecimals uint8  `json:"quote_decimals" validate:"lte=36"`
}

type pairValueReq struct {
	Value        string `json:"value"         validate:"required,amount"`
	PairDecimals uint8  `json:"pair_decimals" validate:"lte=36"`
}

type mintReq struct {
	To     string `json:"to"     validate:"required,address"`
	Amount string `json:"amount" validate:"required,posamount"`
}

type approveReq struct {
	Spender string `json:"spender" validate:"omitempty,address"`
	Amount  string `json:"amount"  validate:"required,amount"`
}

func (h *AdminHandler) SetParams(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req admin.ParamsInput
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	p, err := h.uc.SetGeneralParams(c.Request().Context(), caller, req)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AdminHandler) GetParams(c echo.Context) error {
	p, err := h.uc.GetParams(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AdminHandler) AddAdmin(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req addAdminReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	dto, err := h.uc.AddAdmin(c.Request().Context(), caller, common.HexToAddress(req.Address))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *AdminHandler) ListAdmins(c echo.Context) error {
	list, err := h.uc.ListAdmins(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *AdminHandler) NewPair(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req newPairReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	base, err := parseAddress(req.BaseAsset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	quote, err := parseAddress(req.QuoteAsset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	p, err := h.uc.SetNewPair(c.Request().Context(), caller, admin.PairInput{
		Name:          req.Name,
		Value:         amountOrZero(req.Value),
		PairDecimals:  req.PairDecimals,
		BaseAsset:     base,
		BaseDecimals:  req.BaseDecimals,
		QuoteAsset:    quote,
		QuoteDecimals: req.QuoteDecimals,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *AdminHandler) SetPairValue(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	id, err := pathUint(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req pairValueReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	p, err := h.uc.SetPairValue(c.Request().Context(), caller, id, amountOrZero(req.Value), req.PairDecimals)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AdminHandler) GetPair(c echo.Context) error {
	id, err := pathUint(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	p, err := h.uc.GetPair(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AdminHandler) Mint(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	a, err := parseAddress(c.Param("asset"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req mintReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	to := common.HexToAddress(req.To)
	bal, err := h.uc.Mint(c.Request().Context(), caller, a, to, amountOrZero(req.Amount))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"asset": a, "holder": to, "balance": bal})
}

// Approve sets the caller's allowance; an omitted spender approves the engine.
func (h *AdminHandler) Approve(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	a, err := parseAddress(c.Param("asset"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req approveReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	var spender common.Address
	if req.Spender != "" {
		spender = common.HexToAddress(req.Spender)
	}
	amount := amountOrZero(req.Amount)
	if err := h.uc.Approve(c.Request().Context(), caller, a, spender, amount); err != nil {
		return writeError(c, h.log, err)
	}
	allowed, err := h.uc.Allowance(c.Request().Context(), a, caller, spender)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"asset": a, "owner": caller, "allowance": allowed})
}

func (h *AdminHandler) Balance(c echo.Context) error {
	a, err := parseAddress(c.Param("asset"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	holder, err := parseAddress(c.Param("holder"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	bal, err := h.uc.BalanceOf(c.Request().Context(), a, holder)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"asset": a, "holder": holder, "balance": bal})
}

func (h *AdminHandler) FeeBalance(c echo.Context) error {
	a, err := parseAddress(c.Param("asset"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	bal, err := h.uc.FeeBalance(c.Request().Context(), a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"asset": a, "balance": bal})
}
