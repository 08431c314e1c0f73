package mysql

import (
	"context"
	"errors"
	"fmt"

	assetDomain "loan-engine/internal/domain/asset"
	loanDomain "loan-engine/internal/domain/loan"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssetLedger keeps native and token balances in the database. Custody is the
// engine's own address: TransferIn credits it, TransferOut debits it.
type AssetLedger struct {
	db      *gorm.DB
	custody common.Address
}

func NewAssetLedger(db *gorm.DB, custody common.Address) *AssetLedger {
	return &AssetLedger{db: db, custody: custody}
}

func (r *AssetLedger) Custody() common.Address { return r.custody }

func (r *AssetLedger) TransferIn(ctx context.Context, a, from common.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	if !assetDomain.IsNative(a) {
		if err := r.spendAllowance(ctx, a, from, r.custody, amount); err != nil {
			return err
		}
	}
	return r.move(ctx, a, from, r.custody, amount)
}

func (r *AssetLedger) TransferOut(ctx context.Context, a, to common.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	return r.move(ctx, a, r.custody, to, amount)
}

func (r *AssetLedger) BalanceOf(ctx context.Context, a, holder common.Address) (decimal.Decimal, error) {
	b, err := r.balance(ctx, a, holder, false)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Amount, nil
}

func (r *AssetLedger) Allowance(ctx context.Context, a, owner, spender common.Address) (decimal.Decimal, error) {
	al, err := r.allowance(ctx, a, owner, spender, false)
	if err != nil {
		return decimal.Zero, err
	}
	return al.Amount, nil
}

// Approve overwrites the current allowance.
func (r *AssetLedger) Approve(ctx context.Context, a, owner, spender common.Address, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return loanDomain.ErrInvalidInput
	}
	al, err := r.allowance(ctx, a, owner, spender, true)
	if err != nil {
		return err
	}
	al.Amount = amount
	return r.db.WithContext(ctx).Save(al).Error
}

func (r *AssetLedger) Mint(ctx context.Context, a, to common.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return loanDomain.ErrInvalidInput
	}
	b, err := r.balance(ctx, a, to, true)
	if err != nil {
		return err
	}
	b.Amount = b.Amount.Add(amount)
	return r.db.WithContext(ctx).Save(b).Error
}

func (r *AssetLedger) move(ctx context.Context, a, from, to common.Address, amount decimal.Decimal) error {
	src, err := r.balance(ctx, a, from, true)
	if err != nil {
		return err
	}
	if src.Amount.LessThan(amount) {
		return fmt.Errorf("%s holds %s of %s, need %s: %w", from.Hex(), src.Amount, a.Hex(), amount, loanDomain.ErrInsufficientFunds)
	}
	if from == to {
		return nil
	}
	dst, err := r.balance(ctx, a, to, true)
	if err != nil {
		return err
	}
	src.Amount = src.Amount.Sub(amount)
	dst.Amount = dst.Amount.Add(amount)
	if err := r.db.WithContext(ctx).Save(src).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(dst).Error
}

func (r *AssetLedger) spendAllowance(ctx context.Context, a, owner, spender common.Address, amount decimal.Decimal) error {
	al, err := r.allowance(ctx, a, owner, spender, true)
	if err != nil {
		return err
	}
	if al.Amount.LessThan(amount) {
		return fmt.Errorf("allowance %s, need %s: %w", al.Amount, amount, loanDomain.ErrInsufficientAllowance)
	}
	al.Amount = al.Amount.Sub(amount)
	return r.db.WithContext(ctx).Save(al).Error
}

// balance returns the row, or an unsaved zero row when none exists yet.
func (r *AssetLedger) balance(ctx context.Context, a, holder common.Address, lock bool) (*assetDomain.Balance, error) {
	var out assetDomain.Balance
	q := r.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.Where("asset = ? AND holder = ?", a, holder).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &assetDomain.Balance{Asset: a, Holder: holder, Amount: decimal.Zero}, nil
	}
	return &out, err
}

func (r *AssetLedger) allowance(ctx context.Context, a, owner, spender common.Address, lock bool) (*assetDomain.Allowance, error) {
	var out assetDomain.Allowance
	q := r.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.Where("asset = ? AND owner = ? AND spender = ?", a, owner, spender).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &assetDomain.Allowance{Asset: a, Owner: owner, Spender: spender, Amount: decimal.Zero}, nil
	}
	return &out, err
}
