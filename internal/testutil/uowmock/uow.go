// Package uowmock provides a function-backed uow.UnitOfWork that records
// every transaction it was asked to run.
package uowmock

import (
	"context"
	"errors"
	"sync"

	"loan-engine/internal/domain/loan"
	"loan-engine/internal/domain/uow"
)

var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW runs the configured functions. Unset ones return errUnimplemented.
type UoW struct {
	WithinTxFn     func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinLoanTxFn func(ctx context.Context, loanID uint64, fn func(r uow.Repos, l *loan.Loan) error) error

	mu        sync.Mutex
	loanTxs   []uint64
	plainTxs  int
	rollbacks int
}

func New() *UoW { return &UoW{} }

func (m *UoW) WithWithinTx(fn func(context.Context, func(uow.Repos) error) error) *UoW {
	m.WithinTxFn = fn
	return m
}

func (m *UoW) WithWithinLoanTx(fn func(context.Context, uint64, func(uow.Repos, *loan.Loan) error) error) *UoW {
	m.WithinLoanTxFn = fn
	return m
}

// WithRepos runs every callback against r without locking. WithinLoanTx
// fetches the loan through r.Loans.GetByIDForUpdate.
func (m *UoW) WithRepos(r uow.Repos) *UoW {
	m.WithinTxFn = func(_ context.Context, fn func(uow.Repos) error) error { return fn(r) }
	m.WithinLoanTxFn = func(ctx context.Context, id uint64, fn func(uow.Repos, *loan.Loan) error) error {
		l, err := r.Loans.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		return fn(r, l)
	}
	return m
}

// LoanTxs lists the loan ids passed to WithinLoanTx, in call order.
func (m *UoW) LoanTxs() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint64(nil), m.loanTxs...)
}

// Counts reports plain transactions run and how many of all transactions
// returned an error.
func (m *UoW) Counts() (plain, rollbacks int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plainTxs, m.rollbacks
}

func (m *UoW) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WithinTxFn, m.WithinLoanTxFn = nil, nil
	m.loanTxs, m.plainTxs, m.rollbacks = nil, 0, 0
}

func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	m.mu.Lock()
	m.plainTxs++
	run := m.WithinTxFn
	m.mu.Unlock()
	if run == nil {
		return errUnimplemented
	}
	return m.done(run(ctx, fn))
}

func (m *UoW) WithinLoanTx(ctx context.Context, loanID uint64, fn func(r uow.Repos, l *loan.Loan) error) error {
	m.mu.Lock()
	m.loanTxs = append(m.loanTxs, loanID)
	run := m.WithinLoanTxFn
	m.mu.Unlock()
	if run == nil {
		return errUnimplemented
	}
	return m.done(run(ctx, loanID, fn))
}

func (m *UoW) done(err error) error {
	if err != nil {
		m.mu.Lock()
		m.rollbacks++
		m.mu.Unlock()
	}
	return err
}
