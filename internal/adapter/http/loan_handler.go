package http

import (
	"context"
	"net/http"
	"strconv"

	domain "loan-engine/internal/domain/loan"
	"loan-engine/internal/usecase/loan"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type LoanHandler struct {
	uc  *loan.Usecase
	log zerolog.Logger
}

func NewLoanHandler(uc *loan.Usecase, log zerolog.Logger) *LoanHandler {
	return &LoanHandler{uc: uc, log: log}
}

type openLoanReq struct {
	PairID           uint64 `json:"pair_id"           validate:"required"`
	Principal        string `json:"principal"         validate:"required,posamount"`
	RatePerBlock     string `json:"rate_per_block"    validate:"required,amount"`
	CollateralAmount string `json:"collateral_amount" validate:"omitempty,amount"`
	Value            string `json:"value"             validate:"omitempty,amount"`
}

type depositReq struct {
	Asset  string `json:"asset"  validate:"omitempty"`
	Amount string `json:"amount" validate:"omitempty,amount"`
	Value  string `json:"value"  validate:"omitempty,amount"`
}

type fundReq struct {
	Asset  string `json:"asset"  validate:"required"`
	Amount string `json:"amount" validate:"omitempty,posamount"`
}

type addShareholdersReq struct {
	Holders []string `json:"holders" validate:"required,min=1,dive,address"`
	Shares  []uint32 `json:"shares"  validate:"required,min=1,dive,gte=1,lte=100"`
}

type massiveWithdrawReq struct {
	LoanIDs []uint64 `json:"loan_ids" validate:"required,min=1,dive,gt=0"`
}

func (h *LoanHandler) OpenLoan(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req openLoanReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	dto, err := h.uc.OpenNewLoan(c.Request().Context(), loan.OpenLoanInput{
		Caller:           caller,
		PairID:           req.PairID,
		Principal:        amountOrZero(req.Principal),
		RatePerBlock:     amountOrZero(req.RatePerBlock),
		CollateralAmount: amountOrZero(req.CollateralAmount),
		Value:            amountOrZero(req.Value),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	id, err := pathUint(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	dto, err := h.uc.GetLoan(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// ListLoans filters by ?borrower=, ?status= (numeric code) and ?limit=.
func (h *LoanHandler) ListLoans(c echo.Context) error {
	var f domain.Filter
	if raw := c.QueryParam("borrower"); raw != "" {
		addr, err := parseAddress(raw)
		if err != nil {
			return writeError(c, h.log, err)
		}
		f.Borrower = &addr
	}
	if c.QueryParam("status") != "" {
		n, err := queryUint(c, "status")
		if err != nil || n > 255 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid status", Code: "InvalidInput"})
		}
		s := domain.Status(n)
		f.Status = &s
	}
	if c.QueryParam("limit") != "" {
		n, err := strconv.Atoi(c.QueryParam("limit"))
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit", Code: "InvalidInput"})
		}
		f.Limit = n
	}
	list, err := h.uc.ListLoans(c.Request().Context(), f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *LoanHandler) GetRatio(c echo.Context) error {
	id, err := pathUint(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	ratio, err := h.uc.GetActualCollateralRatio(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"loan_id": id, "ratio": ratio})
}

func (h *LoanHandler) GetCollateralDiff(c echo.Context) error {
	id, err := pathUint(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	target, err := queryUint(c, "target")
	if err != nil {
		return writeError(c, h.log, err)
	}
	diff, err := h.uc.CalcDiffCollAmountForRatio(c.Request().Context(), id, target)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"loan_id": id, "target": target, "amount": diff})
}

func (h *LoanHandler) GetMinCollateral(c echo.Context) error {
	pairID, err := queryUint(c, "pair_id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	principal, err := decimal.NewFromString(c.QueryParam("principal"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid principal", Code: "InvalidInput"})
	}
	need, err := h.uc.CalcMinCollateralAmount(c.Request().Context(), pairID, principal)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"pair_id": pairID, "principal": principal, "amount": need})
}

func (h *LoanHandler) DepositCollateral(c echo.Context) error {
	caller, id, err := h.target(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req depositReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	a, err := optAddress(req.Asset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	dto, err := h.uc.DepositCollateral(c.Request().Context(), loan.DepositInput{
		Caller: caller,
		LoanID: id,
		Asset:  a,
		Amount: amountOrZero(req.Amount),
		Value:  amountOrZero(req.Value),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Fund(c echo.Context) error {
	caller, id, err := h.target(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req fundReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	a, err := parseAddress(req.Asset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	in := loan.FundInput{Caller: caller, LoanID: id, Asset: a}
	if req.Amount != "" {
		amt := amountOrZero(req.Amount)
		in.Amount = &amt
	}
	res, err := h.uc.LenderSendStableCoins(c.Request().Context(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *LoanHandler) InitiateForeclosure(c echo.Context) error {
	return h.transition(c, h.uc.InitiateLoanForeclose)
}

func (h *LoanHandler) Foreclose(c echo.Context) error {
	return h.transition(c, h.uc.SetLoanToForeclosed)
}

func (h *LoanHandler) Settle(c echo.Context) error {
	return h.transition(c, h.uc.LoanClosingByBorrower)
}

func (h *LoanHandler) Cancel(c echo.Context) error {
	return h.transition(c, h.uc.SetLoanCancelled)
}

func (h *LoanHandler) GetShareholders(c echo.Context) error {
	id, err := pathUint(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	list, err := h.uc.GetShareholders(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *LoanHandler) AddShareholders(c echo.Context) error {
	caller, id, err := h.target(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req addShareholdersReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	holders := make([]common.Address, 0, len(req.Holders))
	for _, raw := range req.Holders {
		holders = append(holders, common.HexToAddress(raw))
	}
	list, err := h.uc.AddShareholdersMassive(c.Request().Context(), loan.AddShareholdersInput{
		Caller:  caller,
		LoanID:  id,
		Holders: holders,
		Shares:  req.Shares,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// GetInterests reports every holder, or only ?holder= when given.
func (h *LoanHandler) GetInterests(c echo.Context) error {
	id, err := pathUint(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}
	holder, err := optAddress(c.QueryParam("holder"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out, err := h.uc.GetAccruedInterests(c.Request().Context(), id, holder)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *LoanHandler) WithdrawInterests(c echo.Context) error {
	caller, id, err := h.target(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	amount, err := h.uc.WithdrawInterests(c.Request().Context(), caller, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, loan.WithdrawResult{LoanID: id, Amount: amount})
}

// WithdrawInterestsMassive answers 200 with one result per loan; failed loans
// carry their reason code.
func (h *LoanHandler) WithdrawInterestsMassive(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var req massiveWithdrawReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	out, err := h.uc.WithdrawInterestsMassive(c.Request().Context(), caller, req.LoanIDs)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *LoanHandler) target(c echo.Context) (common.Address, uint64, error) {
	caller, err := callerOf(c)
	if err != nil {
		return common.Address{}, 0, err
	}
	id, err := pathUint(c, "id")
	return caller, id, err
}

func (h *LoanHandler) transition(c echo.Context, fn func(ctx context.Context, caller common.Address, loanID uint64) (*loan.LoanDTO, error)) error {
	caller, id, err := h.target(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	dto, err := fn(c.Request().Context(), caller, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dto)
}
