package loan

import (
	"context"
	"fmt"

	domain "loan-engine/internal/domain/loan"

	"github.com/shopspring/decimal"
)

// LenderSendStableCoins records a lender's contribution to a pending loan.
// The contribution that completes the principal activates the loan: the
// origination fee goes to the fee sink and the rest to the borrower.
func (u *Usecase) LenderSendStableCoins(ctx context.Context, in FundInput) (*FundResult, error) {
	if in.Amount != nil {
		if err := wholeAmount(*in.Amount, true); err != nil {
			return nil, err
		}
	}

	var res *FundResult
	err := u.mutate(ctx, in.Caller, in.LoanID, func(ctx context.Context, o *op, l *domain.Loan) error {
		if l.Status != domain.StatusPending {
			return fmt.Errorf("funding %s loan: %w", l.Status, domain.ErrInvalidStatus)
		}
		if in.Asset != l.LentAsset {
			return fmt.Errorf("lent asset is %s: %w", l.LentAsset.Hex(), domain.ErrAssetMismatch)
		}

		remaining := l.Remaining()
		amount := remaining
		if in.Amount != nil && in.Amount.LessThan(remaining) {
			amount = *in.Amount
		}
		completing := amount.Equal(remaining)

		list, err := o.r.Shareholders.ListByLoan(ctx, l.ID)
		if err != nil {
			return err
		}
		var mine *domain.Shareholder
		var others uint32
		for i := range list {
			if list[i].Holder == in.Caller {
				mine = &list[i]
				continue
			}
			others += list[i].Shares
		}
		var held uint32
		if mine != nil {
			held = mine.Shares
		}

		var gained uint32
		if completing {
			gained = 100 - others - held
		} else {
			g, _ := amount.Mul(hundred).QuoRem(l.Principal, 0)
			if g.LessThan(decimal.NewFromInt(1)) {
				return fmt.Errorf("contribution %s is below one share of %s: %w", amount, l.Principal, domain.ErrInvalidInput)
			}
			gained = uint32(g.IntPart())
		}

		if mine == nil {
			mine = &domain.Shareholder{
				LoanID:              l.ID,
				Holder:              in.Caller,
				Place:               uint32(len(list)) + 1,
				Shares:              gained,
				Contributed:         amount,
				LastCheckpointBlock: o.block,
			}
			if err := o.r.Shareholders.Create(ctx, mine); err != nil {
				return err
			}
			list = append(list, *mine)
		} else {
			mine.Shares += gained
			mine.Contributed = mine.Contributed.Add(amount)
			if err := o.r.Shareholders.Save(ctx, mine); err != nil {
				return err
			}
		}

		l.FundedAmount = l.FundedAmount.Add(amount)
		o.pullIn(l.LentAsset, in.Caller, amount)
		if err := o.emit(ctx, l, domain.EventLenderFunded, in.Caller, l.LentAsset, amount); err != nil {
			return err
		}

		if completing {
			if err := o.activate(ctx, l, list); err != nil {
				return err
			}
		}
		if err := o.r.Loans.Save(ctx, l); err != nil {
			return err
		}
		res = &FundResult{Loan: toDTO(l), Funded: amount, Shares: mine.Shares}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// activate starts accrual for every shareholder at the current block and
// releases the principal.
func (o *op) activate(ctx context.Context, l *domain.Loan, holders []domain.Shareholder) error {
	p, err := o.params(ctx)
	if err != nil {
		return err
	}
	var total uint32
	for i := range holders {
		total += holders[i].Shares
		holders[i].LastCheckpointBlock = o.block
		if err := o.r.Shareholders.Save(ctx, &holders[i]); err != nil {
			return err
		}
	}
	if total != 100 {
		return fmt.Errorf("loan %d activates with %d shares", l.ID, total)
	}

	fee := pct(l.Principal, p.FeePercentage)
	l.ActivatedBlock = o.block
	if err := o.setStatus(ctx, l, domain.StatusActive); err != nil {
		return err
	}
	o.payFee(l.LentAsset, fee)
	o.payOut(l.LentAsset, l.Borrower, l.Principal.Sub(fee))
	if fee.IsPositive() {
		if err := o.emit(ctx, l, domain.EventFeePaid, o.caller, l.LentAsset, fee); err != nil {
			return err
		}
	}
	return nil
}
