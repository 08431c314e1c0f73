// Package collateral holds the per-loan collateral balance rules. The balance
// itself lives on the loan record; only the engine mutates it.
package collateral

import (
	"fmt"

	"loan-engine/internal/domain/asset"
	"loan-engine/internal/domain/loan"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ValidateDeposit resolves the amount actually pledged. Native collateral is
// the value sent with the call and must match a declared amount when one is
// given; token collateral must come with no native value attached.
func ValidateDeposit(collateralAsset common.Address, declared, value decimal.Decimal) (decimal.Decimal, error) {
	if declared.IsNegative() || value.IsNegative() {
		return decimal.Zero, loan.ErrInvalidInput
	}
	if asset.IsNative(collateralAsset) {
		if !declared.IsZero() && !declared.Equal(value) {
			return decimal.Zero, fmt.Errorf("declared %s, sent %s: %w", declared, value, loan.ErrValueMismatch)
		}
		if !value.IsPositive() {
			return decimal.Zero, fmt.Errorf("no value sent: %w", loan.ErrInvalidInput)
		}
		return value, nil
	}
	if !value.IsZero() {
		return decimal.Zero, fmt.Errorf("native value sent with token collateral: %w", loan.ErrValueMismatch)
	}
	if !declared.IsPositive() {
		return decimal.Zero, fmt.Errorf("collateral amount must be positive: %w", loan.ErrInvalidInput)
	}
	return declared, nil
}

func Balance(l *loan.Loan) decimal.Decimal { return l.CollateralAmount }

func Deposit(l *loan.Loan, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return loan.ErrInvalidInput
	}
	l.CollateralAmount = l.CollateralAmount.Add(amount)
	return nil
}

// Withdraw debits the loan; it never lets the balance go negative.
func Withdraw(l *loan.Loan, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return loan.ErrInvalidInput
	}
	if amount.GreaterThan(l.CollateralAmount) {
		return fmt.Errorf("loan %d holds %s, need %s: %w", l.ID, l.CollateralAmount, amount, loan.ErrInsufficientCollateral)
	}
	l.CollateralAmount = l.CollateralAmount.Sub(amount)
	return nil
}

// Drain empties the balance and returns what was held.
func Drain(l *loan.Loan) decimal.Decimal {
	out := l.CollateralAmount
	l.CollateralAmount = decimal.Zero
	return out
}
