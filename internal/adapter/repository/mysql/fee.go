package mysql

import (
	"context"
	"errors"

	feeDomain "loan-engine/internal/domain/fee"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeeRepository moves fees out of custody to the sink address and keeps a
// running total per asset.
type FeeRepository struct {
	db     *gorm.DB
	ledger *AssetLedger
	sink   common.Address
}

func NewFeeRepository(db *gorm.DB, ledger *AssetLedger, sink common.Address) *FeeRepository {
	return &FeeRepository{db: db, ledger: ledger, sink: sink}
}

func (r *FeeRepository) DepositFee(ctx context.Context, a common.Address, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	if err := r.ledger.TransferOut(ctx, a, r.sink, amount); err != nil {
		return err
	}
	var b feeDomain.Balance
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("asset = ?", a).
		First(&b).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		b = feeDomain.Balance{Asset: a, Amount: amount}
		return r.db.WithContext(ctx).Create(&b).Error
	case err != nil:
		return err
	}
	b.Amount = b.Amount.Add(amount)
	return r.db.WithContext(ctx).Save(&b).Error
}

func (r *FeeRepository) Balance(ctx context.Context, a common.Address) (decimal.Decimal, error) {
	var b feeDomain.Balance
	err := r.db.WithContext(ctx).Where("asset = ?", a).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	return b.Amount, err
}
