package asset

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Native identifies the chain's native asset; every other address is a
// fungible token.
var Native = common.Address{}

func IsNative(a common.Address) bool { return a == Native }

type Balance struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement;column:id"`
	Asset     common.Address  `gorm:"column:asset;type:binary(20);not null;uniqueIndex:ux_balances_asset_holder,priority:1"`
	Holder    common.Address  `gorm:"column:holder;type:binary(20);not null;uniqueIndex:ux_balances_asset_holder,priority:2"`
	Amount    decimal.Decimal `gorm:"column:amount;type:varchar(80);not null"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Balance) TableName() string { return "asset_balances" }

type Allowance struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement;column:id"`
	Asset     common.Address  `gorm:"column:asset;type:binary(20);not null;uniqueIndex:ux_allowances_asset_owner_spender,priority:1"`
	Owner     common.Address  `gorm:"column:owner;type:binary(20);not null;uniqueIndex:ux_allowances_asset_owner_spender,priority:2"`
	Spender   common.Address  `gorm:"column:spender;type:binary(20);not null;uniqueIndex:ux_allowances_asset_owner_spender,priority:3"`
	Amount    decimal.Decimal `gorm:"column:amount;type:varchar(80);not null"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Allowance) TableName() string { return "asset_allowances" }
