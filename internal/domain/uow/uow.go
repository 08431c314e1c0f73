package uow

import (
	"context"

	"loan-engine/internal/domain/admin"
	"loan-engine/internal/domain/asset"
	"loan-engine/internal/domain/fee"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/domain/oracle"
)

// Repos are bound to one transaction; anything written through them commits
// or rolls back together.
type Repos struct {
	Loans        loan.Repository
	Shareholders loan.ShareholderRepository
	Params       loan.ParamsRepository
	Events       loan.EventRepository
	Admins       admin.Repository
	Pairs        oracle.Registry
	Assets       asset.Ledger
	Fees         fee.Sink
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock loan first, then pass it in
	WithinLoanTx(ctx context.Context, loanID uint64, fn func(r Repos, l *loan.Loan) error) error
}
