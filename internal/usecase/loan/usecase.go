package loan

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"loan-engine/internal/domain/collateral"
	domain "loan-engine/internal/domain/loan"
	"loan-engine/internal/domain/uow"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Metrics receives every committed event.
type Metrics interface {
	Observe(e domain.Event)
}

// Usecase drives the loan lifecycle. Mutations are serialized by mu and each
// one runs inside a single transaction with the loan row locked.
type Usecase struct {
	mu     sync.Mutex
	uow    uow.UnitOfWork
	blocks domain.BlockSource
	pub    domain.Publisher
	met    Metrics
	log    zerolog.Logger
}

// NewUsecase: pub and met may be nil.
func NewUsecase(tx uow.UnitOfWork, blocks domain.BlockSource, pub domain.Publisher, met Metrics, log zerolog.Logger) *Usecase {
	return &Usecase{uow: tx, blocks: blocks, pub: pub, met: met, log: log.With().Str("component", "loan").Logger()}
}

func (u *Usecase) OpenNewLoan(ctx context.Context, in OpenLoanInput) (*LoanDTO, error) {
	if err := wholeAmount(in.Principal, true); err != nil {
		return nil, fmt.Errorf("principal: %w", err)
	}
	if err := wholeAmount(in.RatePerBlock, false); err != nil {
		return nil, fmt.Errorf("rate per block: %w", err)
	}
	if err := wholeAmount(in.CollateralAmount, false); err != nil {
		return nil, fmt.Errorf("collateral: %w", err)
	}
	if err := wholeAmount(in.Value, false); err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}

	var dto *LoanDTO
	err := u.mutateTx(ctx, in.Caller, func(ctx context.Context, o *op) error {
		p, err := o.params(ctx)
		if err != nil {
			return err
		}
		q, err := o.quote(ctx, in.PairID)
		if err != nil {
			return err
		}
		amount, err := collateral.ValidateDeposit(q.Base, in.CollateralAmount, in.Value)
		if err != nil {
			return err
		}
		if need := q.MinCollateral(in.Principal, p.MinCollateralRatio); amount.LessThan(need) {
			return fmt.Errorf("collateral %s below minimum %s: %w", amount, need, domain.ErrInsufficientCollateral)
		}

		l := &domain.Loan{
			PairID:          in.PairID,
			Borrower:        in.Caller,
			CollateralAsset: q.Base,
			LentAsset:       q.Quote,
			Principal:       in.Principal,
			RatePerBlock:    in.RatePerBlock,
			Status:          domain.StatusPending,
			FundedAmount:    decimal.Zero,
			OpenedBlock:     o.block,
			StatusUpdatedAt: now(),
		}
		if err := collateral.Deposit(l, amount); err != nil {
			return err
		}
		if err := o.r.Loans.Create(ctx, l); err != nil {
			return err
		}
		o.pullIn(l.CollateralAsset, in.Caller, amount)
		if err := o.emit(ctx, l, domain.EventStatusChanged, in.Caller, common.Address{}, decimal.Zero); err != nil {
			return err
		}
		if err := o.emit(ctx, l, domain.EventCollateralReceived, in.Caller, l.CollateralAsset, amount); err != nil {
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

// DepositCollateral tops up a loan. A loan in grace returns to active once the
// new balance meets the minimum ratio.
func (u *Usecase) DepositCollateral(ctx context.Context, in DepositInput) (*LoanDTO, error) {
	if err := wholeAmount(in.Amount, false); err != nil {
		return nil, err
	}
	if err := wholeAmount(in.Value, false); err != nil {
		return nil, err
	}

	var dto *LoanDTO
	err := u.mutate(ctx, in.Caller, in.LoanID, func(ctx context.Context, o *op, l *domain.Loan) error {
		if !l.Status.AcceptsCollateral() {
			return fmt.Errorf("deposit on %s loan: %w", l.Status, domain.ErrInvalidStatus)
		}
		if in.Asset != nil && *in.Asset != l.CollateralAsset {
			return fmt.Errorf("collateral is %s: %w", l.CollateralAsset.Hex(), domain.ErrAssetMismatch)
		}
		amount, err := collateral.ValidateDeposit(l.CollateralAsset, in.Amount, in.Value)
		if err != nil {
			return err
		}
		if err := collateral.Deposit(l, amount); err != nil {
			return err
		}

		if l.Status == domain.StatusForeclosureGrace {
			p, err := o.params(ctx)
			if err != nil {
				return err
			}
			q, err := o.quote(ctx, l.PairID)
			if err != nil {
				return err
			}
			if q.Ratio(l.CollateralAmount, l.Principal).GreaterThanOrEqual(decimal.NewFromUint64(p.MinCollateralRatio)) {
				l.ForeclosingBlock = 0
				l.ForeclosingAgent = common.Address{}
				if err := o.setStatus(ctx, l, domain.StatusActive); err != nil {
					return err
				}
			}
		}

		if err := o.r.Loans.Save(ctx, l); err != nil {
			return err
		}
		o.pullIn(l.CollateralAsset, in.Caller, amount)
		if err := o.emit(ctx, l, domain.EventCollateralReceived, in.Caller, l.CollateralAsset, amount); err != nil {
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

func (u *Usecase) GetLoan(ctx context.Context, loanID uint64) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByID(ctx, loanID)
		if err != nil {
			return err
		}
		dto = toDTO(l)
		return nil
	})
	return dto, err
}

func (u *Usecase) GetLoanStatus(ctx context.Context, loanID uint64) (domain.Status, error) {
	dto, err := u.GetLoan(ctx, loanID)
	if err != nil {
		return 0, err
	}
	return domain.Status(dto.StatusCode), nil
}

func (u *Usecase) GetLoanBalance(ctx context.Context, loanID uint64) (decimal.Decimal, error) {
	dto, err := u.GetLoan(ctx, loanID)
	if err != nil {
		return decimal.Zero, err
	}
	return dto.CollateralBalance, nil
}

func (u *Usecase) ListLoans(ctx context.Context, f domain.Filter) ([]LoanDTO, error) {
	var out []LoanDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		loans, err := r.Loans.List(ctx, f)
		if err != nil {
			return err
		}
		out = make([]LoanDTO, 0, len(loans))
		for i := range loans {
			out = append(out, *toDTO(&loans[i]))
		}
		return nil
	})
	return out, err
}

// GetActualCollateralRatio is the whole-percent ratio of collateral value to
// principal at the current price.
func (u *Usecase) GetActualCollateralRatio(ctx context.Context, loanID uint64) (decimal.Decimal, error) {
	var ratio decimal.Decimal
	err := u.view(ctx, func(ctx context.Context, o *op) error {
		l, err := o.r.Loans.GetByID(ctx, loanID)
		if err != nil {
			return err
		}
		q, err := o.quote(ctx, l.PairID)
		if err != nil {
			return err
		}
		ratio = q.Ratio(l.CollateralAmount, l.Principal)
		return nil
	})
	return ratio, err
}

// CalcDiffCollAmountForRatio returns the extra collateral needed to reach
// targetPct, or zero when the loan already meets it.
func (u *Usecase) CalcDiffCollAmountForRatio(ctx context.Context, loanID uint64, targetPct uint64) (decimal.Decimal, error) {
	if targetPct == 0 {
		return decimal.Zero, fmt.Errorf("target ratio must be positive: %w", domain.ErrInvalidInput)
	}
	var diff decimal.Decimal
	err := u.view(ctx, func(ctx context.Context, o *op) error {
		l, err := o.r.Loans.GetByID(ctx, loanID)
		if err != nil {
			return err
		}
		q, err := o.quote(ctx, l.PairID)
		if err != nil {
			return err
		}
		diff = q.MinCollateral(l.Principal, targetPct).Sub(l.CollateralAmount)
		if diff.IsNegative() {
			diff = decimal.Zero
		}
		return nil
	})
	return diff, err
}

// CalcMinCollateralAmount is the smallest collateral that opens a loan of
// principal on pairID under the current minimum ratio.
func (u *Usecase) CalcMinCollateralAmount(ctx context.Context, pairID uint64, principal decimal.Decimal) (decimal.Decimal, error) {
	if err := wholeAmount(principal, true); err != nil {
		return decimal.Zero, err
	}
	var need decimal.Decimal
	err := u.view(ctx, func(ctx context.Context, o *op) error {
		p, err := o.params(ctx)
		if err != nil {
			return err
		}
		q, err := o.quote(ctx, pairID)
		if err != nil {
			return err
		}
		need = q.MinCollateral(principal, p.MinCollateralRatio)
		return nil
	})
	return need, err
}

func (u *Usecase) GetShareholders(ctx context.Context, loanID uint64) ([]ShareholderDTO, error) {
	var out []ShareholderDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if _, err := r.Loans.GetByID(ctx, loanID); err != nil {
			return err
		}
		list, err := r.Shareholders.ListByLoan(ctx, loanID)
		if err != nil {
			return err
		}
		out = make([]ShareholderDTO, 0, len(list))
		for i := range list {
			out = append(out, toShareholderDTO(&list[i]))
		}
		return nil
	})
	return out, err
}

// GetShareholderPlace returns the 1-based funding order of holder.
func (u *Usecase) GetShareholderPlace(ctx context.Context, loanID uint64, holder common.Address) (uint32, error) {
	var place uint32
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		s, err := r.Shareholders.Get(ctx, loanID, holder)
		if err != nil {
			return err
		}
		place = s.Place
		return nil
	})
	return place, err
}

// IsShareholder is true while holder keeps at least one share.
func (u *Usecase) IsShareholder(ctx context.Context, loanID uint64, holder common.Address) (bool, error) {
	var ok bool
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		s, err := r.Shareholders.Get(ctx, loanID, holder)
		switch {
		case errors.Is(err, domain.ErrNotShareholder):
			return nil
		case err != nil:
			return err
		}
		ok = s.Shares > 0
		return nil
	})
	return ok, err
}
