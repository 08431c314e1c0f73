package loan

import (
	"context"
	"fmt"

	"loan-engine/internal/domain/collateral"
	domain "loan-engine/internal/domain/loan"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// InitiateLoanForeclose opens the grace window on an active loan whose ratio
// sits in [floor, min). The caller becomes the foreclosing agent and earns
// part of the foreclosure fee.
func (u *Usecase) InitiateLoanForeclose(ctx context.Context, caller common.Address, loanID uint64) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.mutate(ctx, caller, loanID, func(ctx context.Context, o *op, l *domain.Loan) error {
		if l.Status != domain.StatusActive {
			return fmt.Errorf("initiate foreclosure on %s loan: %w", l.Status, domain.ErrInvalidStatus)
		}
		p, err := o.params(ctx)
		if err != nil {
			return err
		}
		q, err := o.quote(ctx, l.PairID)
		if err != nil {
			return err
		}
		ratio := q.Ratio(l.CollateralAmount, l.Principal)
		floorRatio := decimal.NewFromUint64(p.ForeclosureFloorRatio)
		minRatio := decimal.NewFromUint64(p.MinCollateralRatio)
		if ratio.LessThan(floorRatio) || ratio.GreaterThanOrEqual(minRatio) {
			return fmt.Errorf("ratio %s outside [%s, %s): %w", ratio, floorRatio, minRatio, domain.ErrRatioOutOfBand)
		}

		if err := o.foreclosureFee(ctx, l, p); err != nil {
			return err
		}
		l.ForeclosingBlock = o.block
		l.ForeclosingAgent = caller
		if err := o.setStatus(ctx, l, domain.StatusForeclosureGrace); err != nil {
			return err
		}
		if err := o.r.Loans.Save(ctx, l); err != nil {
			return err
		}
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// SetLoanToForeclosed seizes the collateral. An active loan must be under the
// floor; a loan in grace must be under the floor or still under the minimum
// once the window has elapsed.
func (u *Usecase) SetLoanToForeclosed(ctx context.Context, caller common.Address, loanID uint64) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.mutate(ctx, caller, loanID, func(ctx context.Context, o *op, l *domain.Loan) error {
		if l.Status != domain.StatusActive && l.Status != domain.StatusForeclosureGrace {
			return fmt.Errorf("foreclose %s loan: %w", l.Status, domain.ErrInvalidStatus)
		}
		p, err := o.params(ctx)
		if err != nil {
			return err
		}
		q, err := o.quote(ctx, l.PairID)
		if err != nil {
			return err
		}
		ratio := q.Ratio(l.CollateralAmount, l.Principal)
		belowFloor := ratio.LessThan(decimal.NewFromUint64(p.ForeclosureFloorRatio))
		belowMin := ratio.LessThan(decimal.NewFromUint64(p.MinCollateralRatio))

		if !belowFloor {
			if l.Status == domain.StatusActive {
				return fmt.Errorf("ratio %s not below floor %d: %w", ratio, p.ForeclosureFloorRatio, domain.ErrRatioOutOfBand)
			}
			if deadline := l.ForeclosingBlock + p.ForeclosureWindowBlocks; o.block < deadline {
				return fmt.Errorf("window closes at block %d, now %d: %w", deadline, o.block, domain.ErrForeclosureWindowOpen)
			}
			if !belowMin {
				return fmt.Errorf("ratio %s restored above minimum %d: %w", ratio, p.MinCollateralRatio, domain.ErrRatioOutOfBand)
			}
		}

		if err := o.foreclosureFee(ctx, l, p); err != nil {
			return err
		}
		holders, err := o.r.Shareholders.ListByLoan(ctx, l.ID)
		if err != nil {
			return err
		}
		seized := collateral.Drain(l)
		for i, part := range splitByShares(seized, holders) {
			if !part.IsPositive() {
				continue
			}
			o.payOut(l.CollateralAsset, holders[i].Holder, part)
			if err := o.emit(ctx, l, domain.EventCollateralReturned, holders[i].Holder, l.CollateralAsset, part); err != nil {
				return err
			}
		}

		l.ForeclosedBlock = o.block
		l.ClosedBlock = o.block
		if l.ForeclosingAgent == (common.Address{}) {
			l.ForeclosingAgent = caller
		}
		if err := o.setStatus(ctx, l, domain.StatusForeclosed); err != nil {
			return err
		}
		if err := o.r.Loans.Save(ctx, l); err != nil {
			return err
		}
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// foreclosureFee takes feePct of the current collateral; the agent reward part
// goes to the caller and the rest to the fee sink.
func (o *op) foreclosureFee(ctx context.Context, l *domain.Loan, p *domain.GeneralParams) error {
	fee := pct(l.CollateralAmount, p.FeePercentage)
	if !fee.IsPositive() {
		return nil
	}
	if err := collateral.Withdraw(l, fee); err != nil {
		return err
	}
	reward := pct(fee, p.AgentRewardPercentage)
	o.payOut(l.CollateralAsset, o.caller, reward)
	o.payFee(l.CollateralAsset, fee.Sub(reward))
	return o.emit(ctx, l, domain.EventFeePaid, o.caller, l.CollateralAsset, fee)
}
