package oracle

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Pair quotes one unit of Base in Quote as Value / 10^PairDecimals.
type Pair struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Name          string          `gorm:"column:name;size:32;not null;uniqueIndex:ux_pairs_name" json:"name"`
	Value         decimal.Decimal `gorm:"column:value;type:varchar(80);not null" json:"value"`
	PairDecimals  uint8           `gorm:"column:pair_decimals;not null" json:"pair_decimals"`
	BaseAsset     common.Address  `gorm:"column:base_asset;type:binary(20);not null" json:"base_asset"`
	BaseDecimals  uint8           `gorm:"column:base_decimals;not null" json:"base_decimals"`
	QuoteAsset    common.Address  `gorm:"column:quote_asset;type:binary(20);not null" json:"quote_asset"`
	QuoteDecimals uint8           `gorm:"column:quote_decimals;not null" json:"quote_decimals"`
	UpdatedBlock  uint64          `gorm:"column:updated_block;not null" json:"updated_block"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Pair) TableName() string { return "oracle_pairs" }

// Oracle is the read surface the loan engine consumes.
type Oracle interface {
	GetPairValue(ctx context.Context, pairID uint64) (value decimal.Decimal, pairDecimals uint8, err error)
	GetPairBaseDecimals(ctx context.Context, pairID uint64) (uint8, error)
	GetPairQuoteDecimals(ctx context.Context, pairID uint64) (uint8, error)
	GetPairBaseAddress(ctx context.Context, pairID uint64) (common.Address, error)
	GetPairQuoteAddress(ctx context.Context, pairID uint64) (common.Address, error)
	GetPairUpdatedBlock(ctx context.Context, pairID uint64) (uint64, error)
}

// Registry is the administrative side of the pair store.
type Registry interface {
	Oracle
	Create(ctx context.Context, p *Pair) error
	Get(ctx context.Context, pairID uint64) (*Pair, error)
	SetValue(ctx context.Context, pairID uint64, value decimal.Decimal, pairDecimals uint8, block uint64) error
}
