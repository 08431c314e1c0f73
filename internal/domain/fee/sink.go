package fee

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type Balance struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement;column:id" json:"-"`
	Asset     common.Address  `gorm:"column:asset;type:binary(20);not null;uniqueIndex:ux_fee_balances_asset" json:"asset"`
	Amount    decimal.Decimal `gorm:"column:amount;type:varchar(80);not null" json:"amount"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Balance) TableName() string { return "fee_balances" }

// Sink accumulates origination and foreclosure fees per asset.
type Sink interface {
	DepositFee(ctx context.Context, a common.Address, amount decimal.Decimal) error
	Balance(ctx context.Context, a common.Address) (decimal.Decimal, error)
}
