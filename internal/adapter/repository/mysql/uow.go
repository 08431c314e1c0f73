package mysql

import (
	"context"

	adminDomain "loan-engine/internal/domain/admin"
	assetDomain "loan-engine/internal/domain/asset"
	feeDomain "loan-engine/internal/domain/fee"
	loanDomain "loan-engine/internal/domain/loan"
	oracleDomain "loan-engine/internal/domain/oracle"
	"loan-engine/internal/domain/uow"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

// Accounts are the fixed addresses the ledger moves value between.
type Accounts struct {
	Custody common.Address
	FeeSink common.Address
}

type GormUoW struct {
	db       *gorm.DB
	accounts Accounts
	defaults loanDomain.GeneralParams
}

func NewGormUoW(db *gorm.DB, accounts Accounts, defaults loanDomain.GeneralParams) *GormUoW {
	return &GormUoW{db: db, accounts: accounts, defaults: defaults}
}

// Repos returns repositories bound to the plain connection, for reads.
func (u *GormUoW) Repos() uow.Repos { return u.bind(u.db) }

func (u *GormUoW) bind(tx *gorm.DB) uow.Repos {
	ledger := NewAssetLedger(tx, u.accounts.Custody)
	return uow.Repos{
		Loans:        NewLoanRepository(tx),
		Shareholders: NewShareholderRepository(tx),
		Params:       NewParamsRepository(tx, u.defaults),
		Events:       NewEventRepository(tx),
		Admins:       NewAdminRepository(tx),
		Pairs:        NewPairRepository(tx),
		Assets:       ledger,
		Fees:         NewFeeRepository(tx, ledger, u.accounts.FeeSink),
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(u.bind(tx))
	})
}

func (u *GormUoW) WithinLoanTx(ctx context.Context, loanID uint64, fn func(r uow.Repos, l *loanDomain.Loan) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := u.bind(tx)
		// lock the loan row up-front to prevent races
		l, err := r.Loans.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		return fn(r, l)
	})
}

// Models lists every table the engine persists, in migration order.
func Models() []any {
	return []any{
		&loanDomain.Loan{},
		&loanDomain.Shareholder{},
		&loanDomain.GeneralParams{},
		&loanDomain.Event{},
		&adminDomain.Admin{},
		&oracleDomain.Pair{},
		&assetDomain.Balance{},
		&assetDomain.Allowance{},
		&feeDomain.Balance{},
	}
}

func Migrate(db *gorm.DB) error { return db.AutoMigrate(Models()...) }

var (
	_ loanDomain.Repository            = (*LoanRepository)(nil)
	_ loanDomain.ShareholderRepository = (*ShareholderRepository)(nil)
	_ loanDomain.ParamsRepository      = (*ParamsRepository)(nil)
	_ loanDomain.EventRepository       = (*EventRepository)(nil)
	_ adminDomain.Repository           = (*AdminRepository)(nil)
	_ oracleDomain.Registry            = (*PairRepository)(nil)
	_ assetDomain.Ledger               = (*AssetLedger)(nil)
	_ feeDomain.Sink                   = (*FeeRepository)(nil)
	_ uow.UnitOfWork                   = (*GormUoW)(nil)
)
