package mysql

import (
	"context"

	loanDomain "loan-engine/internal/domain/loan"
	oracleDomain "loan-engine/internal/domain/oracle"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PairRepository is the stored oracle: admins write pair values, the engine
// reads them back through the oracle.Oracle surface.
type PairRepository struct{ db *gorm.DB }

func NewPairRepository(db *gorm.DB) *PairRepository { return &PairRepository{db: db} }

func (r *PairRepository) Create(ctx context.Context, p *oracleDomain.Pair) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PairRepository) Get(ctx context.Context, pairID uint64) (*oracleDomain.Pair, error) {
	var out oracleDomain.Pair
	res := r.db.WithContext(ctx).Where("id = ?", pairID).First(&out)
	return &out, notFound(res.Error, loanDomain.ErrOracleUnavailable)
}

func (r *PairRepository) SetValue(ctx context.Context, pairID uint64, value decimal.Decimal, pairDecimals uint8, block uint64) error {
	res := r.db.WithContext(ctx).
		Model(&oracleDomain.Pair{}).
		Where("id = ?", pairID).
		Updates(map[string]any{
			"value":         value,
			"pair_decimals": pairDecimals,
			"updated_block": block,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return loanDomain.ErrNotFound
	}
	return nil
}

func (r *PairRepository) GetPairValue(ctx context.Context, pairID uint64) (decimal.Decimal, uint8, error) {
	p, err := r.Get(ctx, pairID)
	if err != nil {
		return decimal.Zero, 0, err
	}
	return p.Value, p.PairDecimals, nil
}

func (r *PairRepository) GetPairBaseDecimals(ctx context.Context, pairID uint64) (uint8, error) {
	p, err := r.Get(ctx, pairID)
	if err != nil {
		return 0, err
	}
	return p.BaseDecimals, nil
}

func (r *PairRepository) GetPairQuoteDecimals(ctx context.Context, pairID uint64) (uint8, error) {
	p, err := r.Get(ctx, pairID)
	if err != nil {
		return 0, err
	}
	return p.QuoteDecimals, nil
}

func (r *PairRepository) GetPairBaseAddress(ctx context.Context, pairID uint64) (common.Address, error) {
	p, err := r.Get(ctx, pairID)
	if err != nil {
		return common.Address{}, err
	}
	return p.BaseAsset, nil
}

func (r *PairRepository) GetPairQuoteAddress(ctx context.Context, pairID uint64) (common.Address, error) {
	p, err := r.Get(ctx, pairID)
	if err != nil {
		return common.Address{}, err
	}
	return p.QuoteAsset, nil
}

func (r *PairRepository) GetPairUpdatedBlock(ctx context.Context, pairID uint64) (uint64, error) {
	p, err := r.Get(ctx, pairID)
	if err != nil {
		return 0, err
	}
	return p.UpdatedBlock, nil
}
