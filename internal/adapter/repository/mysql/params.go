package mysql

import (
	"context"
	"errors"

	loanDomain "loan-engine/internal/domain/loan"

	"gorm.io/gorm"
)

type ParamsRepository struct {
	db       *gorm.DB
	defaults loanDomain.GeneralParams
}

// NewParamsRepository falls back to defaults until an admin stores a record.
func NewParamsRepository(db *gorm.DB, defaults loanDomain.GeneralParams) *ParamsRepository {
	return &ParamsRepository{db: db, defaults: defaults}
}

func (r *ParamsRepository) Get(ctx context.Context) (*loanDomain.GeneralParams, error) {
	var out loanDomain.GeneralParams
	err := r.db.WithContext(ctx).Where("id = ?", 1).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p := r.defaults
		p.ID = 1
		return &p, nil
	}
	return &out, err
}

func (r *ParamsRepository) Save(ctx context.Context, p *loanDomain.GeneralParams) error {
	p.ID = 1
	return r.db.WithContext(ctx).Save(p).Error
}
