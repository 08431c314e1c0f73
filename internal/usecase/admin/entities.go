package admin

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

type ParamsInput struct {
	MinCollateralRatio      uint64 `json:"min_collateral_ratio" validate:"required,gt=0"`
	ForeclosureFloorRatio   uint64 `json:"foreclosure_floor_ratio" validate:"required,gt=0"`
	ForeclosureWindowBlocks uint64 `json:"foreclosure_window_blocks" validate:"required,gt=0"`
	FeePercentage           uint64 `json:"fee_percentage" validate:"lte=100"`
	AgentRewardPercentage   uint64 `json:"agent_reward_percentage" validate:"lte=100"`
	MaxOracleAgeBlocks      uint64 `json:"max_oracle_age_blocks"`
}

type PairInput struct {
	Name          string
	Value         decimal.Decimal
	PairDecimals  uint8
	BaseAsset     common.Address
	BaseDecimals  uint8
	QuoteAsset    common.Address
	QuoteDecimals uint8
}

type AdminDTO struct {
	Address common.Address `json:"address"`
	AddedBy common.Address `json:"added_by"`
}
