package mysql

import (
	"context"

	loanDomain "loan-engine/internal/domain/loan"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

type ShareholderRepository struct{ db *gorm.DB }

func NewShareholderRepository(db *gorm.DB) *ShareholderRepository {
	return &ShareholderRepository{db: db}
}

func (r *ShareholderRepository) ListByLoan(ctx context.Context, loanID uint64) ([]loanDomain.Shareholder, error) {
	var out []loanDomain.Shareholder
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("place ASC").
		Find(&out).Error
	return out, err
}

func (r *ShareholderRepository) Get(ctx context.Context, loanID uint64, holder common.Address) (*loanDomain.Shareholder, error) {
	var out loanDomain.Shareholder
	res := r.db.WithContext(ctx).
		Where("loan_id = ? AND holder = ?", loanID, holder).
		First(&out)
	return &out, notFound(res.Error, loanDomain.ErrNotShareholder)
}

func (r *ShareholderRepository) Create(ctx context.Context, s *loanDomain.Shareholder) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *ShareholderRepository) Save(ctx context.Context, s *loanDomain.Shareholder) error {
	return r.db.WithContext(ctx).Save(s).Error
}
