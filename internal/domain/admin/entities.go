package admin

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Admin struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement;column:id"`
	Address   common.Address `gorm:"column:address;type:binary(20);not null;uniqueIndex:ux_admins_address"`
	AddedBy   common.Address `gorm:"column:added_by;type:binary(20);not null"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (Admin) TableName() string { return "admins" }

type Repository interface {
	Create(ctx context.Context, a *Admin) error
	// Exists is false with a nil error when the address is not an admin.
	Exists(ctx context.Context, addr common.Address) (bool, error)
	List(ctx context.Context) ([]Admin, error)
}
