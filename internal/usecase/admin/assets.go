package admin

import (
	"context"
	"fmt"

	loanDomain "loan-engine/internal/domain/loan"
	"loan-engine/internal/domain/uow"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Mint credits test balances; it stands in for the external token contracts.
func (u *Usecase) Mint(ctx context.Context, caller, asset, to common.Address, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() || !amount.IsInteger() {
		return decimal.Zero, fmt.Errorf("mint amount %s: %w", amount, loanDomain.ErrInvalidInput)
	}
	var bal decimal.Decimal
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := u.guard(ctx, r, caller); err != nil {
			return err
		}
		if err := r.Assets.Mint(ctx, asset, to, amount); err != nil {
			return err
		}
		var err error
		bal, err = r.Assets.BalanceOf(ctx, asset, to)
		return err
	})
	return bal, err
}

// Approve sets owner's allowance for spender; a zero spender means the engine.
func (u *Usecase) Approve(ctx context.Context, owner, asset, spender common.Address, amount decimal.Decimal) error {
	if amount.IsNegative() || !amount.IsInteger() {
		return fmt.Errorf("allowance %s: %w", amount, loanDomain.ErrInvalidInput)
	}
	if spender == (common.Address{}) {
		spender = u.custody
	}
	return u.uow.WithinTx(ctx, func(r uow.Repos) error {
		return r.Assets.Approve(ctx, asset, owner, spender, amount)
	})
}

func (u *Usecase) BalanceOf(ctx context.Context, asset, holder common.Address) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		bal, err = r.Assets.BalanceOf(ctx, asset, holder)
		return err
	})
	return bal, err
}

func (u *Usecase) FeeBalance(ctx context.Context, asset common.Address) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		bal, err = r.Fees.Balance(ctx, asset)
		return err
	})
	return bal, err
}

// Allowance reads what spender may pull from owner; a zero spender means the
// engine.
func (u *Usecase) Allowance(ctx context.Context, asset, owner, spender common.Address) (decimal.Decimal, error) {
	if spender == (common.Address{}) {
		spender = u.custody
	}
	var amt decimal.Decimal
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		amt, err = r.Assets.Allowance(ctx, asset, owner, spender)
		return err
	})
	return amt, err
}
