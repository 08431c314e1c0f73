package loan

import (
	"context"
	"fmt"

	"loan-engine/internal/domain/collateral"
	domain "loan-engine/internal/domain/loan"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// accrued is rpb * elapsed * shares / 100, in collateral units. Nothing
// accrues outside active and grace.
func accrued(l *domain.Loan, s *domain.Shareholder, block uint64) decimal.Decimal {
	if !l.Status.Accruing() || s.Shares == 0 || block <= s.LastCheckpointBlock {
		return decimal.Zero
	}
	elapsed := decimal.NewFromUint64(block - s.LastCheckpointBlock)
	return pct(l.RatePerBlock.Mul(elapsed), uint64(s.Shares))
}

// payInterest debits the loan and queues the payout; the caller saves both
// records.
func (o *op) payInterest(ctx context.Context, l *domain.Loan, s *domain.Shareholder) (decimal.Decimal, error) {
	amount := accrued(l, s, o.block)
	if l.Status.Accruing() {
		s.LastCheckpointBlock = o.block
	}
	if !amount.IsPositive() {
		return decimal.Zero, nil
	}
	if err := collateral.Withdraw(l, amount); err != nil {
		return decimal.Zero, fmt.Errorf("interest for %s: %w", s.Holder.Hex(), err)
	}
	o.payOut(l.CollateralAsset, s.Holder, amount)
	if err := o.emit(ctx, l, domain.EventInterestsWithdrawn, s.Holder, l.CollateralAsset, amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// GetAccruedInterests reports what each shareholder (or only holder, when
// given) could withdraw at the current block.
func (u *Usecase) GetAccruedInterests(ctx context.Context, loanID uint64, holder *common.Address) (*InterestsDTO, error) {
	var out *InterestsDTO
	err := u.view(ctx, func(ctx context.Context, o *op) error {
		l, err := o.r.Loans.GetByID(ctx, loanID)
		if err != nil {
			return err
		}
		var list []domain.Shareholder
		if holder != nil {
			s, err := o.r.Shareholders.Get(ctx, loanID, *holder)
			if err != nil {
				return err
			}
			list = []domain.Shareholder{*s}
		} else if list, err = o.r.Shareholders.ListByLoan(ctx, loanID); err != nil {
			return err
		}

		out = &InterestsDTO{LoanID: l.ID, Block: o.block, Total: decimal.Zero, Holders: make([]AccruedInterest, 0, len(list))}
		for i := range list {
			amt := accrued(l, &list[i], o.block)
			out.Total = out.Total.Add(amt)
			out.Holders = append(out.Holders, AccruedInterest{Holder: list[i].Holder, Shares: list[i].Shares, Amount: amt})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WithdrawInterests pays the caller's accrued interest out of collateral.
// It fails rather than pay part of it.
func (u *Usecase) WithdrawInterests(ctx context.Context, caller common.Address, loanID uint64) (decimal.Decimal, error) {
	paid := decimal.Zero
	err := u.mutate(ctx, caller, loanID, func(ctx context.Context, o *op, l *domain.Loan) error {
		s, err := o.r.Shareholders.Get(ctx, l.ID, caller)
		if err != nil {
			return err
		}
		amount, err := o.payInterest(ctx, l, s)
		if err != nil {
			return err
		}
		if err := o.r.Shareholders.Save(ctx, s); err != nil {
			return err
		}
		if amount.IsPositive() {
			if err := o.r.Loans.Save(ctx, l); err != nil {
				return err
			}
		}
		paid = amount
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return paid, nil
}

// WithdrawInterestsMassive withdraws from each loan in its own transaction. A
// failing loan is reported in its result and does not stop the others.
func (u *Usecase) WithdrawInterestsMassive(ctx context.Context, caller common.Address, loanIDs []uint64) ([]WithdrawResult, error) {
	if len(loanIDs) == 0 {
		return nil, fmt.Errorf("no loans given: %w", domain.ErrInvalidInput)
	}
	out := make([]WithdrawResult, 0, len(loanIDs))
	for _, id := range loanIDs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		amount, err := u.WithdrawInterests(ctx, caller, id)
		res := WithdrawResult{LoanID: id, Amount: amount, Err: err}
		if err != nil {
			res.Code = domain.Code(err)
			u.log.Debug().Err(err).Uint64("loan_id", id).Msg("batch interest withdrawal skipped loan")
		}
		out = append(out, res)
	}
	return out, nil
}

// AddShareholdersMassive moves part of the caller's shares to new or existing
// holders. Interest accrued so far is settled first for everyone whose share
// changes, so new shares earn from the current block only.
func (u *Usecase) AddShareholdersMassive(ctx context.Context, in AddShareholdersInput) ([]ShareholderDTO, error) {
	if len(in.Holders) == 0 || len(in.Holders) != len(in.Shares) {
		return nil, fmt.Errorf("holders and shares must be non-empty and equal length: %w", domain.ErrInvalidInput)
	}
	var total uint64
	for i, h := range in.Holders {
		if in.Shares[i] == 0 {
			return nil, fmt.Errorf("zero shares for %s: %w", h.Hex(), domain.ErrInvalidInput)
		}
		if h == in.Caller || h == (common.Address{}) {
			return nil, fmt.Errorf("invalid holder %s: %w", h.Hex(), domain.ErrInvalidInput)
		}
		total += uint64(in.Shares[i])
	}

	var out []ShareholderDTO
	err := u.mutate(ctx, in.Caller, in.LoanID, func(ctx context.Context, o *op, l *domain.Loan) error {
		if !l.Status.Accruing() {
			return fmt.Errorf("share transfer on %s loan: %w", l.Status, domain.ErrInvalidStatus)
		}
		list, err := o.r.Shareholders.ListByLoan(ctx, l.ID)
		if err != nil {
			return err
		}
		byHolder := make(map[common.Address]*domain.Shareholder, len(list))
		for i := range list {
			byHolder[list[i].Holder] = &list[i]
		}
		from, ok := byHolder[in.Caller]
		if !ok || from.Shares == 0 {
			return domain.ErrNotShareholder
		}
		if total > uint64(from.Shares) {
			return fmt.Errorf("transferring %d shares, holding %d: %w", total, from.Shares, domain.ErrInvalidInput)
		}

		if _, err := o.payInterest(ctx, l, from); err != nil {
			return err
		}
		from.Shares -= uint32(total)
		if err := o.r.Shareholders.Save(ctx, from); err != nil {
			return err
		}

		next := uint32(len(list)) + 1
		for i, h := range in.Holders {
			s, ok := byHolder[h]
			if ok {
				if _, err := o.payInterest(ctx, l, s); err != nil {
					return err
				}
				s.Shares += in.Shares[i]
				if err := o.r.Shareholders.Save(ctx, s); err != nil {
					return err
				}
			} else {
				s = &domain.Shareholder{
					LoanID:              l.ID,
					Holder:              h,
					Place:               next,
					Shares:              in.Shares[i],
					Contributed:         decimal.Zero,
					LastCheckpointBlock: o.block,
				}
				next++
				if err := o.r.Shareholders.Create(ctx, s); err != nil {
					return err
				}
				byHolder[h] = s
			}
			if err := o.emit(ctx, l, domain.EventShareholdersAdded, h, common.Address{}, decimal.NewFromInt(int64(in.Shares[i]))); err != nil {
				return err
			}
		}
		if err := o.r.Loans.Save(ctx, l); err != nil {
			return err
		}

		fresh, err := o.r.Shareholders.ListByLoan(ctx, l.ID)
		if err != nil {
			return err
		}
		out = make([]ShareholderDTO, 0, len(fresh))
		for i := range fresh {
			out = append(out, toShareholderDTO(&fresh[i]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
