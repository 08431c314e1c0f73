package uowmock

import (
	"context"
	"errors"
	"testing"

	"loan-engine/internal/domain/loan"
	"loan-engine/internal/domain/uow"
	"loan-engine/internal/testutil/adminmock"
	"loan-engine/internal/testutil/loanmock"
)

func TestUoW_WithinTx_Happy(t *testing.T) {
	ctx := context.Background()

	loans := &loanmock.Repo{}
	admins := &adminmock.Repo{}
	repos := uow.Repos{Loans: loans, Admins: admins}

	innerCalled := false
	m := &UoW{
		WithinTxFn: func(gotCtx context.Context, fn func(r uow.Repos) error) error {
			if gotCtx != ctx {
				t.Fatalf("WithinTx: ctx mismatch")
			}
			if fn == nil {
				t.Fatalf("WithinTx: fn is nil")
			}
			// simulate transaction body
			return fn(repos)
		},
	}

	err := m.WithinTx(ctx, func(r uow.Repos) error {
		innerCalled = true
		if r.Loans != loans || r.Admins != admins {
			t.Fatalf("WithinTx: repos not forwarded correctly")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx: unexpected err: %v", err)
	}
	if !innerCalled {
		t.Fatalf("WithinTx: inner fn not called")
	}
}

func TestUoW_WithinTx_PropagatesError(t *testing.T) {
	ctx := context.Background()
	sentinel := errors.New("boom")

	m := &UoW{
		WithinTxFn: func(context.Context, func(uow.Repos) error) error {
			return sentinel
		},
	}
	if err := m.WithinTx(ctx, func(uow.Repos) error { return nil }); !errors.Is(err, sentinel) {
		t.Fatalf("WithinTx: want %v, got %v", sentinel, err)
	}
}

func TestUoW_WithinTx_Default_Unimplemented(t *testing.T) {
	ctx := context.Background()
	m := &UoW{} // no funcs set
	if err := m.WithinTx(ctx, func(uow.Repos) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinTx default: want errUnimplemented, got %v", err)
	}
}

func TestUoW_WithinLoanTx_Happy(t *testing.T) {
	ctx := context.Background()

	loans := &loanmock.Repo{}
	repos := uow.Repos{Loans: loans}
	lock := &loan.Loan{ID: 7}

	innerCalled := false
	m := &UoW{
		WithinLoanTxFn: func(gotCtx context.Context, loanID uint64, fn func(r uow.Repos, l *loan.Loan) error) error {
			if gotCtx != ctx {
				t.Fatalf("WithinLoanTx: ctx mismatch")
			}
			if loanID != 7 {
				t.Fatalf("WithinLoanTx: loanID mismatch, got %d", loanID)
			}
			return fn(repos, lock)
		},
	}

	err := m.WithinLoanTx(ctx, 7, func(r uow.Repos, l *loan.Loan) error {
		innerCalled = true
		if r.Loans != loans {
			t.Fatalf("WithinLoanTx: repos not forwarded")
		}
		if l != lock {
			t.Fatalf("WithinLoanTx: loan not forwarded correctly: %+v", l)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinLoanTx: unexpected err: %v", err)
	}
	if !innerCalled {
		t.Fatalf("WithinLoanTx: inner fn not called")
	}
}

func TestUoW_WithRepos_LocksThroughLoanRepo(t *testing.T) {
	ctx := context.Background()
	want := &loan.Loan{ID: 3}
	loans := &loanmock.Repo{
		GetByIDForUpdateFn: func(_ context.Context, id uint64) (*loan.Loan, error) {
			if id != 3 {
				t.Fatalf("id mismatch: %d", id)
			}
			return want, nil
		},
	}
	m := New().WithRepos(uow.Repos{Loans: loans})

	var got *loan.Loan
	if err := m.WithinLoanTx(ctx, 3, func(_ uow.Repos, l *loan.Loan) error { got = l; return nil }); err != nil {
		t.Fatalf("WithinLoanTx: %v", err)
	}
	if got != want {
		t.Fatalf("loan not forwarded")
	}

	// lookup failure short-circuits the body
	called := false
	err := New().WithRepos(uow.Repos{Loans: &loanmock.Repo{}}).
		WithinLoanTx(ctx, 3, func(uow.Repos, *loan.Loan) error { called = true; return nil })
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("want context.Canceled without body call, got %v (called=%v)", err, called)
	}
}

func TestUoW_WithinLoanTx_PropagatesError(t *testing.T) {
	ctx := context.Background()
	sentinel := errors.New("stop")

	m := &UoW{
		WithinLoanTxFn: func(context.Context, uint64, func(uow.Repos, *loan.Loan) error) error {
			return sentinel
		},
	}
	if err := m.WithinLoanTx(ctx, 9, func(uow.Repos, *loan.Loan) error { return nil }); !errors.Is(err, sentinel) {
		t.Fatalf("WithinLoanTx: want %v, got %v", sentinel, err)
	}
}

func TestUoW_Default_Unimplemented_WithinLoanTx(t *testing.T) {
	ctx := context.Background()
	m := &UoW{} // no funcs set
	if err := m.WithinLoanTx(ctx, 9, func(uow.Repos, *loan.Loan) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinLoanTx default: want errUnimplemented, got %v", err)
	}
}

func TestUoW_FluentSetters_And_Reset(t *testing.T) {
	m := New()
	if m.WithinTxFn != nil || m.WithinLoanTxFn != nil {
		t.Fatalf("New should start with nil funcs")
	}

	// set via fluent setters
	m.WithWithinTx(func(context.Context, func(uow.Repos) error) error { return nil }).
		WithWithinLoanTx(func(context.Context, uint64, func(uow.Repos, *loan.Loan) error) error { return nil })

	if m.WithinTxFn == nil || m.WithinLoanTxFn == nil {
		t.Fatalf("fluent setters didn't assign funcs")
	}

	// reset clears funcs
	m.Reset()
	if m.WithinTxFn != nil || m.WithinLoanTxFn != nil {
		t.Fatalf("Reset should clear function fields")
	}
}

func TestUoW_RecordsTransactions(t *testing.T) {
	ctx := context.Background()
	loans := &loanmock.Repo{
		GetByIDForUpdateFn: func(_ context.Context, id uint64) (*loan.Loan, error) {
			if id == 2 {
				return nil, loan.ErrNotFound
			}
			return &loan.Loan{ID: id}, nil
		},
	}
	m := New().WithRepos(uow.Repos{Loans: loans})

	for _, id := range []uint64{1, 2, 3} {
		_ = m.WithinLoanTx(ctx, id, func(uow.Repos, *loan.Loan) error { return nil })
	}
	_ = m.WithinTx(ctx, func(uow.Repos) error { return errors.New("abort") })

	got := m.LoanTxs()
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("LoanTxs = %v, want [1 2 3]", got)
	}
	plain, rollbacks := m.Counts()
	if plain != 1 || rollbacks != 2 {
		t.Fatalf("Counts = (%d, %d), want (1, 2)", plain, rollbacks)
	}

	m.Reset()
	if len(m.LoanTxs()) != 0 {
		t.Fatal("Reset should clear recorded calls")
	}
	if err := m.WithinTx(ctx, func(uow.Repos) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("after Reset: want errUnimplemented, got %v", err)
	}
}
