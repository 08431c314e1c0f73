package loan

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Status codes are part of the public API; 2 and 3 are reserved
// and never assigned.
type Status uint8

const (
	StatusPending          Status = 0
	StatusActive           Status = 1
	StatusForeclosureGrace Status = 4
	StatusForeclosed       Status = 5
	StatusSettled          Status = 8
	StatusCancelled        Status = 9
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusForeclosureGrace:
		return "foreclosure_grace"
	case StatusForeclosed:
		return "foreclosed"
	case StatusSettled:
		return "settled"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusForeclosed || s == StatusSettled || s == StatusCancelled
}

// Accruing reports whether shareholders earn interest in this status.
func (s Status) Accruing() bool {
	return s == StatusActive || s == StatusForeclosureGrace
}

// AcceptsCollateral reports whether deposits are allowed.
func (s Status) AcceptsCollateral() bool {
	return s == StatusPending || s == StatusActive || s == StatusForeclosureGrace
}

type Loan struct {
	ID               uint64          `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	PairID           uint64          `gorm:"column:pair_id;not null;index" json:"pair_id"`
	Borrower         common.Address  `gorm:"column:borrower;type:binary(20);not null;index:idx_loans_borrower" json:"borrower"`
	CollateralAsset  common.Address  `gorm:"column:collateral_asset;type:binary(20);not null" json:"collateral_asset"`
	LentAsset        common.Address  `gorm:"column:lent_asset;type:binary(20);not null" json:"lent_asset"`
	Principal        decimal.Decimal `gorm:"column:principal;type:varchar(80);not null" json:"principal"`
	RatePerBlock     decimal.Decimal `gorm:"column:rate_per_block;type:varchar(80);not null" json:"rate_per_block"`
	Status           Status          `gorm:"column:status;not null;default:0;index" json:"status"`
	CollateralAmount decimal.Decimal `gorm:"column:collateral_balance;type:varchar(80);not null" json:"collateral_balance"`
	FundedAmount     decimal.Decimal `gorm:"column:funded_amount;type:varchar(80);not null" json:"funded_amount"`
	OpenedBlock      uint64          `gorm:"column:opened_block" json:"opened_block"`
	ActivatedBlock   uint64          `gorm:"column:activated_block" json:"activated_block"`
	ForeclosingBlock uint64          `gorm:"column:foreclosing_block" json:"foreclosing_block"`
	ForeclosedBlock  uint64          `gorm:"column:foreclosed_block" json:"foreclosed_block"`
	ForeclosingAgent common.Address  `gorm:"column:foreclosing_agent;type:binary(20)" json:"foreclosing_agent"`
	ClosedBlock      uint64          `gorm:"column:closed_block" json:"closed_block"`
	StatusUpdatedAt  time.Time       `gorm:"column:status_updated_at" json:"status_updated_at"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

// Remaining is the principal still waiting for lenders.
func (l *Loan) Remaining() decimal.Decimal {
	return l.Principal.Sub(l.FundedAmount)
}

type Shareholder struct {
	ID                  uint64          `gorm:"primaryKey;autoIncrement;column:id" json:"-"`
	LoanID              uint64          `gorm:"column:loan_id;not null;uniqueIndex:ux_shareholders_loan_holder,priority:1" json:"loan_id"`
	Holder              common.Address  `gorm:"column:holder;type:binary(20);not null;uniqueIndex:ux_shareholders_loan_holder,priority:2" json:"holder"`
	Place               uint32          `gorm:"column:place;not null" json:"place"`
	Shares              uint32          `gorm:"column:shares;not null" json:"shares"`
	Contributed         decimal.Decimal `gorm:"column:contributed;type:varchar(80);not null" json:"contributed"`
	LastCheckpointBlock uint64          `gorm:"column:last_checkpoint_block;not null" json:"last_checkpoint_block"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Shareholder) TableName() string { return "loan_shareholders" }

// GeneralParams is the single engine-wide parameter record. Loans read it at
// evaluation time; nothing is snapshotted per loan.
type GeneralParams struct {
	ID                      uint64    `gorm:"primaryKey;column:id" json:"-"`
	MinCollateralRatio      uint64    `gorm:"column:min_collateral_ratio;not null" json:"min_collateral_ratio"`
	ForeclosureFloorRatio   uint64    `gorm:"column:foreclosure_floor_ratio;not null" json:"foreclosure_floor_ratio"`
	ForeclosureWindowBlocks uint64    `gorm:"column:foreclosure_window_blocks;not null" json:"foreclosure_window_blocks"`
	FeePercentage           uint64    `gorm:"column:fee_percentage;not null" json:"fee_percentage"`
	AgentRewardPercentage   uint64    `gorm:"column:agent_reward_percentage;not null" json:"agent_reward_percentage"`
	MaxOracleAgeBlocks      uint64    `gorm:"column:max_oracle_age_blocks;not null" json:"max_oracle_age_blocks"`
	UpdatedAt               time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (GeneralParams) TableName() string { return "general_params" }

// DefaultParams mirrors the values the engine was deployed with.
func DefaultParams() GeneralParams {
	return GeneralParams{
		ID:                      1,
		MinCollateralRatio:      150,
		ForeclosureFloorRatio:   120,
		ForeclosureWindowBlocks: 50,
		FeePercentage:           1,
		AgentRewardPercentage:   50,
	}
}

// Validate checks the relations between thresholds.
func (p GeneralParams) Validate() error {
	switch {
	case p.ForeclosureFloorRatio == 0:
		return ErrInvalidInput
	case p.ForeclosureFloorRatio >= p.MinCollateralRatio:
		return ErrInvalidInput
	case p.ForeclosureWindowBlocks == 0:
		return ErrInvalidInput
	case p.FeePercentage > 100, p.AgentRewardPercentage > 100:
		return ErrInvalidInput
	}
	return nil
}

type EventKind string

const (
	EventCollateralReceived EventKind = "CollateralReceived"
	EventStatusChanged      EventKind = "LoanStatusChanged"
	EventLenderFunded       EventKind = "LenderFunded"
	EventInterestsWithdrawn EventKind = "InterestsWithdrawn"
	EventShareholdersAdded  EventKind = "ShareholdersAdded"
	EventFeePaid            EventKind = "FeePaid"
	EventCollateralReturned EventKind = "CollateralReturned"
)

type Event struct {
	ID        string          `gorm:"primaryKey;column:id;size:32" json:"id"`
	LoanID    uint64          `gorm:"column:loan_id;not null;index" json:"loan_id"`
	Kind      EventKind       `gorm:"column:kind;size:32;not null" json:"kind"`
	Actor     common.Address  `gorm:"column:actor;type:binary(20)" json:"actor"`
	Asset     common.Address  `gorm:"column:asset;type:binary(20)" json:"asset"`
	Amount    decimal.Decimal `gorm:"column:amount;type:varchar(80)" json:"amount"`
	Status    Status          `gorm:"column:status" json:"status"`
	Block     uint64          `gorm:"column:block" json:"block"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Event) TableName() string { return "loan_events" }
