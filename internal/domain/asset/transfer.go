package asset

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Transferer moves value between external holders and the engine's custody
// address. TransferIn pulls native value directly from the sender and tokens
// through a prior allowance; both fail on insufficient balance or allowance.
type Transferer interface {
	TransferIn(ctx context.Context, a common.Address, from common.Address, amount decimal.Decimal) error
	TransferOut(ctx context.Context, a common.Address, to common.Address, amount decimal.Decimal) error
}

// Ledger is the full balance book behind the in-process Transferer.
type Ledger interface {
	Transferer
	BalanceOf(ctx context.Context, a common.Address, holder common.Address) (decimal.Decimal, error)
	Allowance(ctx context.Context, a common.Address, owner, spender common.Address) (decimal.Decimal, error)
	Approve(ctx context.Context, a common.Address, owner, spender common.Address, amount decimal.Decimal) error
	Mint(ctx context.Context, a common.Address, to common.Address, amount decimal.Decimal) error
}
