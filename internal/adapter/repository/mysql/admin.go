package mysql

import (
	"context"

	adminDomain "loan-engine/internal/domain/admin"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

type AdminRepository struct{ db *gorm.DB }

func NewAdminRepository(db *gorm.DB) *AdminRepository { return &AdminRepository{db: db} }

func (r *AdminRepository) Create(ctx context.Context, a *adminDomain.Admin) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AdminRepository) Exists(ctx context.Context, addr common.Address) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&adminDomain.Admin{}).
		Where("address = ?", addr).
		Count(&n).Error
	return n > 0, err
}

func (r *AdminRepository) List(ctx context.Context) ([]adminDomain.Admin, error) {
	var out []adminDomain.Admin
	err := r.db.WithContext(ctx).Order("id ASC").Find(&out).Error
	return out, err
}
