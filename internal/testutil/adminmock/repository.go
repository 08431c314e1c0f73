package adminmock

import (
	"context"

	"loan-engine/internal/domain/admin"

	"github.com/ethereum/go-ethereum/common"
)

var _ admin.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies admin.Repository.
// Unset funcs behave like an empty allowlist.
type Repo struct {
	CreateFn func(ctx context.Context, a *admin.Admin) error
	ExistsFn func(ctx context.Context, addr common.Address) (bool, error)
	ListFn   func(ctx context.Context) ([]admin.Admin, error)
}

func (m *Repo) Create(ctx context.Context, a *admin.Admin) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	return nil
}

func (m *Repo) Exists(ctx context.Context, addr common.Address) (bool, error) {
	if m.ExistsFn != nil {
		return m.ExistsFn(ctx, addr)
	}
	return false, nil
}

func (m *Repo) List(ctx context.Context) ([]admin.Admin, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	return nil, nil
}
