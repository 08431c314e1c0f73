package loan

import (
	"context"
	"fmt"

	"loan-engine/internal/domain/collateral"
	domain "loan-engine/internal/domain/loan"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// LoanClosingByBorrower settles the loan: the principal is pulled from the
// borrower and split between shareholders, accrued interest is paid out of
// collateral and whatever collateral is left goes back to the borrower.
func (u *Usecase) LoanClosingByBorrower(ctx context.Context, caller common.Address, loanID uint64) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.mutate(ctx, caller, loanID, func(ctx context.Context, o *op, l *domain.Loan) error {
		if l.Borrower != caller {
			return domain.ErrNotBorrower
		}
		if !l.Status.Accruing() {
			return fmt.Errorf("settle %s loan: %w", l.Status, domain.ErrInvalidStatus)
		}
		holders, err := o.r.Shareholders.ListByLoan(ctx, l.ID)
		if err != nil {
			return err
		}

		o.pullIn(l.LentAsset, caller, l.Principal)
		parts := splitByShares(l.Principal, holders)
		for i := range holders {
			if _, err := o.payInterest(ctx, l, &holders[i]); err != nil {
				return err
			}
			if err := o.r.Shareholders.Save(ctx, &holders[i]); err != nil {
				return err
			}
			o.payOut(l.LentAsset, holders[i].Holder, parts[i])
		}

		refund := collateral.Drain(l)
		o.payOut(l.CollateralAsset, caller, refund)
		if refund.IsPositive() {
			if err := o.emit(ctx, l, domain.EventCollateralReturned, caller, l.CollateralAsset, refund); err != nil {
				return err
			}
		}
		l.ClosedBlock = o.block
		if err := o.setStatus(ctx, l, domain.StatusSettled); err != nil {
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

// SetLoanCancelled withdraws a pending loan. Collateral goes back to the
// borrower and any partial funding back to its lenders.
func (u *Usecase) SetLoanCancelled(ctx context.Context, caller common.Address, loanID uint64) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.mutate(ctx, caller, loanID, func(ctx context.Context, o *op, l *domain.Loan) error {
		if l.Borrower != caller {
			return domain.ErrNotBorrower
		}
		if l.Status != domain.StatusPending {
			return fmt.Errorf("cancel %s loan: %w", l.Status, domain.ErrInvalidStatus)
		}
		holders, err := o.r.Shareholders.ListByLoan(ctx, l.ID)
		if err != nil {
			return err
		}
		// a refunded lender keeps its place but holds nothing
		for i := range holders {
			back := holders[i].Contributed
			if !back.IsPositive() && holders[i].Shares == 0 {
				continue
			}
			holders[i].Contributed = decimal.Zero
			holders[i].Shares = 0
			if err := o.r.Shareholders.Save(ctx, &holders[i]); err != nil {
				return err
			}
			if !back.IsPositive() {
				continue
			}
			o.payOut(l.LentAsset, holders[i].Holder, back)
			if err := o.emit(ctx, l, domain.EventCollateralReturned, holders[i].Holder, l.LentAsset, back); err != nil {
				return err
			}
		}
		l.FundedAmount = decimal.Zero

		refund := collateral.Drain(l)
		o.payOut(l.CollateralAsset, caller, refund)
		if err := o.emit(ctx, l, domain.EventCollateralReturned, caller, l.CollateralAsset, refund); err != nil {
			return err
		}
		l.ClosedBlock = o.block
		if err := o.setStatus(ctx, l, domain.StatusCancelled); err != nil {
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
