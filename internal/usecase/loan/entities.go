package loan

import (
	"time"

	domain "loan-engine/internal/domain/loan"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type OpenLoanInput struct {
	Caller           common.Address
	PairID           uint64
	Principal        decimal.Decimal
	RatePerBlock     decimal.Decimal
	CollateralAmount decimal.Decimal
	Value            decimal.Decimal // native value sent with the call
}

type DepositInput struct {
	Caller common.Address
	LoanID uint64
	Asset  *common.Address // nil means the loan's collateral asset
	Amount decimal.Decimal
	Value  decimal.Decimal
}

type FundInput struct {
	Caller common.Address
	LoanID uint64
	Asset  common.Address
	Amount *decimal.Decimal // nil funds whatever is left
}

type AddShareholdersInput struct {
	Caller  common.Address
	LoanID  uint64
	Holders []common.Address
	Shares  []uint32
}

type LoanDTO struct {
	ID                uint64          `json:"id"`
	PairID            uint64          `json:"pair_id"`
	Borrower          common.Address  `json:"borrower"`
	CollateralAsset   common.Address  `json:"collateral_asset"`
	LentAsset         common.Address  `json:"lent_asset"`
	Principal         decimal.Decimal `json:"principal"`
	RatePerBlock      decimal.Decimal `json:"rate_per_block"`
	Status            string          `json:"status"`
	StatusCode        uint8           `json:"status_code"`
	CollateralBalance decimal.Decimal `json:"collateral_balance"`
	FundedAmount      decimal.Decimal `json:"funded_amount"`
	OpenedBlock       uint64          `json:"opened_block"`
	ActivatedBlock    uint64          `json:"activated_block,omitempty"`
	ForeclosingBlock  uint64          `json:"foreclosing_block,omitempty"`
	ForeclosedBlock   uint64          `json:"foreclosed_block,omitempty"`
	ClosedBlock       uint64          `json:"closed_block,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

func toDTO(l *domain.Loan) *LoanDTO {
	return &LoanDTO{
		ID:                l.ID,
		PairID:            l.PairID,
		Borrower:          l.Borrower,
		CollateralAsset:   l.CollateralAsset,
		LentAsset:         l.LentAsset,
		Principal:         l.Principal,
		RatePerBlock:      l.RatePerBlock,
		Status:            l.Status.String(),
		StatusCode:        uint8(l.Status),
		CollateralBalance: l.CollateralAmount,
		FundedAmount:      l.FundedAmount,
		OpenedBlock:       l.OpenedBlock,
		ActivatedBlock:    l.ActivatedBlock,
		ForeclosingBlock:  l.ForeclosingBlock,
		ForeclosedBlock:   l.ForeclosedBlock,
		ClosedBlock:       l.ClosedBlock,
		CreatedAt:         l.CreatedAt,
	}
}

type ShareholderDTO struct {
	Holder              common.Address  `json:"holder"`
	Place               uint32          `json:"place"`
	Shares              uint32          `json:"shares"`
	Contributed         decimal.Decimal `json:"contributed"`
	LastCheckpointBlock uint64          `json:"last_checkpoint_block"`
}

func toShareholderDTO(s *domain.Shareholder) ShareholderDTO {
	return ShareholderDTO{
		Holder:              s.Holder,
		Place:               s.Place,
		Shares:              s.Shares,
		Contributed:         s.Contributed,
		LastCheckpointBlock: s.LastCheckpointBlock,
	}
}

type FundResult struct {
	Loan   *LoanDTO        `json:"loan"`
	Funded decimal.Decimal `json:"funded"`
	Shares uint32          `json:"shares"`
}

type AccruedInterest struct {
	Holder common.Address  `json:"holder"`
	Shares uint32          `json:"shares"`
	Amount decimal.Decimal `json:"amount"`
}

type InterestsDTO struct {
	LoanID  uint64            `json:"loan_id"`
	Block   uint64            `json:"block"`
	Total   decimal.Decimal   `json:"total"`
	Holders []AccruedInterest `json:"holders"`
}

// WithdrawResult reports one loan of a batch withdrawal. Err is nil on success.
type WithdrawResult struct {
	LoanID uint64          `json:"loan_id"`
	Amount decimal.Decimal `json:"amount"`
	Code   string          `json:"error,omitempty"`
	Err    error           `json:"-"`
}
