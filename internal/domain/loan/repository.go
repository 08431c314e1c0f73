package loan

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type Filter struct {
	Borrower *common.Address
	Status   *Status
	Limit    int
}

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByID(ctx context.Context, id uint64) (*Loan, error)
	// GetByIDForUpdate locks the row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id uint64) (*Loan, error)
	List(ctx context.Context, f Filter) ([]Loan, error)
	Save(ctx context.Context, l *Loan) error
}

type ShareholderRepository interface {
	// ListByLoan returns shareholders ordered by place.
	ListByLoan(ctx context.Context, loanID uint64) ([]Shareholder, error)
	Get(ctx context.Context, loanID uint64, holder common.Address) (*Shareholder, error)
	Create(ctx context.Context, s *Shareholder) error
	Save(ctx context.Context, s *Shareholder) error
}

type ParamsRepository interface {
	Get(ctx context.Context) (*GeneralParams, error)
	Save(ctx context.Context, p *GeneralParams) error
}

type EventRepository interface {
	Append(ctx context.Context, e *Event) error
	ListByLoan(ctx context.Context, loanID uint64) ([]Event, error)
}
