package oracle

import (
	"context"
	"fmt"

	"loan-engine/internal/domain/loan"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Quote is a fresh read of every pair attribute needed for ratio math.
type Quote struct {
	PairID        uint64
	Value         decimal.Decimal
	PairDecimals  uint8
	BaseDecimals  uint8
	QuoteDecimals uint8
	Base          common.Address
	Quote         common.Address
	UpdatedBlock  uint64
}

// Client normalizes raw oracle values. It holds no state of its own; every
// call goes back to the oracle.
type Client struct{ o Oracle }

func NewClient(o Oracle) *Client { return &Client{o: o} }

// Read fails closed: a missing pair, a zero price or, when maxAge is set, a
// price older than maxAge blocks is an error.
func (c *Client) Read(ctx context.Context, pairID uint64, currentBlock, maxAge uint64) (Quote, error) {
	q := Quote{PairID: pairID}
	var err error
	if q.Value, q.PairDecimals, err = c.o.GetPairValue(ctx, pairID); err != nil {
		return q, fmt.Errorf("pair %d value: %w", pairID, loan.ErrOracleUnavailable)
	}
	if !q.Value.IsPositive() {
		return q, fmt.Errorf("pair %d has no price: %w", pairID, loan.ErrOracleUnavailable)
	}
	if q.BaseDecimals, err = c.o.GetPairBaseDecimals(ctx, pairID); err != nil {
		return q, fmt.Errorf("pair %d base decimals: %w", pairID, loan.ErrOracleUnavailable)
	}
	if q.QuoteDecimals, err = c.o.GetPairQuoteDecimals(ctx, pairID); err != nil {
		return q, fmt.Errorf("pair %d quote decimals: %w", pairID, loan.ErrOracleUnavailable)
	}
	if q.Base, err = c.o.GetPairBaseAddress(ctx, pairID); err != nil {
		return q, fmt.Errorf("pair %d base asset: %w", pairID, loan.ErrOracleUnavailable)
	}
	if q.Quote, err = c.o.GetPairQuoteAddress(ctx, pairID); err != nil {
		return q, fmt.Errorf("pair %d quote asset: %w", pairID, loan.ErrOracleUnavailable)
	}
	if q.UpdatedBlock, err = c.o.GetPairUpdatedBlock(ctx, pairID); err != nil {
		return q, fmt.Errorf("pair %d update block: %w", pairID, loan.ErrOracleUnavailable)
	}
	if maxAge > 0 && currentBlock > q.UpdatedBlock && currentBlock-q.UpdatedBlock > maxAge {
		return q, fmt.Errorf("pair %d last updated at block %d: %w", pairID, q.UpdatedBlock, loan.ErrStaleData)
	}
	return q, nil
}

// Ratio returns floor(collateralValueInQuote * 100 / debt) as a whole percent.
// debt must be positive.
func (q Quote) Ratio(collateral, debt decimal.Decimal) decimal.Decimal {
	num := collateral.Mul(q.Value).Mul(pow10(q.QuoteDecimals)).Mul(hundred)
	den := pow10(q.PairDecimals).Mul(pow10(q.BaseDecimals)).Mul(debt)
	return floorDiv(num, den)
}

// MinCollateral is the smallest collateral amount whose ratio against debt is
// at least ratioPct.
func (q Quote) MinCollateral(debt decimal.Decimal, ratioPct uint64) decimal.Decimal {
	num := debt.Mul(decimal.NewFromUint64(ratioPct)).Mul(pow10(q.PairDecimals)).Mul(pow10(q.BaseDecimals))
	den := q.Value.Mul(pow10(q.QuoteDecimals)).Mul(hundred)
	return ceilDiv(num, den)
}

// CollateralValue converts a collateral amount into quote units (floor).
func (q Quote) CollateralValue(collateral decimal.Decimal) decimal.Decimal {
	num := collateral.Mul(q.Value).Mul(pow10(q.QuoteDecimals))
	den := pow10(q.PairDecimals).Mul(pow10(q.BaseDecimals))
	return floorDiv(num, den)
}

func pow10(n uint8) decimal.Decimal { return decimal.New(1, int32(n)) }

func floorDiv(num, den decimal.Decimal) decimal.Decimal {
	q, _ := num.QuoRem(den, 0)
	return q
}

func ceilDiv(num, den decimal.Decimal) decimal.Decimal {
	q, r := num.QuoRem(den, 0)
	if r.IsPositive() {
		q = q.Add(decimal.NewFromInt(1))
	}
	return q
}
