package loanmock

import (
	"context"

	domain "loan-engine/internal/domain/loan"

	"github.com/ethereum/go-ethereum/common"
)

var (
	_ domain.Repository            = (*Repo)(nil)
	_ domain.ShareholderRepository = (*Shareholders)(nil)
	_ domain.ParamsRepository      = (*Params)(nil)
	_ domain.EventRepository       = (*Events)(nil)
)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset writes are no-ops; unset reads return context.Canceled.
type Repo struct {
	CreateFn           func(ctx context.Context, l *domain.Loan) error
	GetByIDFn          func(ctx context.Context, id uint64) (*domain.Loan, error)
	GetByIDForUpdateFn func(ctx context.Context, id uint64) (*domain.Loan, error)
	ListFn             func(ctx context.Context, f domain.Filter) ([]domain.Loan, error)
	SaveFn             func(ctx context.Context, l *domain.Loan) error
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}
func (m *Repo) GetByID(ctx context.Context, id uint64) (*domain.Loan, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, context.Canceled
}
func (m *Repo) GetByIDForUpdate(ctx context.Context, id uint64) (*domain.Loan, error) {
	if m.GetByIDForUpdateFn != nil {
		return m.GetByIDForUpdateFn(ctx, id)
	}
	return nil, context.Canceled
}
func (m *Repo) List(ctx context.Context, f domain.Filter) ([]domain.Loan, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, f)
	}
	return nil, context.Canceled
}
func (m *Repo) Save(ctx context.Context, l *domain.Loan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}

type Shareholders struct {
	ListByLoanFn func(ctx context.Context, loanID uint64) ([]domain.Shareholder, error)
	GetFn        func(ctx context.Context, loanID uint64, holder common.Address) (*domain.Shareholder, error)
	CreateFn     func(ctx context.Context, s *domain.Shareholder) error
	SaveFn       func(ctx context.Context, s *domain.Shareholder) error
}

func (m *Shareholders) ListByLoan(ctx context.Context, loanID uint64) ([]domain.Shareholder, error) {
	if m.ListByLoanFn != nil {
		return m.ListByLoanFn(ctx, loanID)
	}
	return nil, nil
}
func (m *Shareholders) Get(ctx context.Context, loanID uint64, holder common.Address) (*domain.Shareholder, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, loanID, holder)
	}
	return nil, domain.ErrNotShareholder
}
func (m *Shareholders) Create(ctx context.Context, s *domain.Shareholder) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, s)
	}
	return nil
}
func (m *Shareholders) Save(ctx context.Context, s *domain.Shareholder) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, s)
	}
	return nil
}

// Params returns DefaultParams unless GetFn is set.
type Params struct {
	GetFn  func(ctx context.Context) (*domain.GeneralParams, error)
	SaveFn func(ctx context.Context, p *domain.GeneralParams) error
}

func (m *Params) Get(ctx context.Context) (*domain.GeneralParams, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx)
	}
	p := domain.DefaultParams()
	return &p, nil
}
func (m *Params) Save(ctx context.Context, p *domain.GeneralParams) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, p)
	}
	return nil
}

// Events records appended events in Appended.
type Events struct {
	Appended []domain.Event
	AppendFn func(ctx context.Context, e *domain.Event) error
}

func (m *Events) Append(ctx context.Context, e *domain.Event) error {
	if m.AppendFn != nil {
		if err := m.AppendFn(ctx, e); err != nil {
			return err
		}
	}
	m.Appended = append(m.Appended, *e)
	return nil
}
func (m *Events) ListByLoan(ctx context.Context, loanID uint64) ([]domain.Event, error) {
	var out []domain.Event
	for _, e := range m.Appended {
		if e.LoanID == loanID {
			out = append(out, e)
		}
	}
	return out, nil
}
