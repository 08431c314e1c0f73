package admin

import (
	"context"
	"fmt"

	adminDomain "loan-engine/internal/domain/admin"
	loanDomain "loan-engine/internal/domain/loan"
	oracleDomain "loan-engine/internal/domain/oracle"
	"loan-engine/internal/domain/uow"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Usecase is the owner/admin surface: engine parameters, the admin allowlist,
// oracle pairs and the asset faucet.
type Usecase struct {
	uow     uow.UnitOfWork
	blocks  loanDomain.BlockSource
	owner   common.Address
	custody common.Address
	log     zerolog.Logger
}

func NewUsecase(tx uow.UnitOfWork, blocks loanDomain.BlockSource, owner, custody common.Address, log zerolog.Logger) *Usecase {
	return &Usecase{uow: tx, blocks: blocks, owner: owner, custody: custody, log: log.With().Str("component", "admin").Logger()}
}

// guard lets the owner and listed admins through.
func (u *Usecase) guard(ctx context.Context, r uow.Repos, caller common.Address) error {
	if caller == u.owner {
		return nil
	}
	ok, err := r.Admins.Exists(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return loanDomain.ErrAdminGuard
	}
	return nil
}

func (u *Usecase) SetGeneralParams(ctx context.Context, caller common.Address, in ParamsInput) (*loanDomain.GeneralParams, error) {
	p := &loanDomain.GeneralParams{
		MinCollateralRatio:      in.MinCollateralRatio,
		ForeclosureFloorRatio:   in.ForeclosureFloorRatio,
		ForeclosureWindowBlocks: in.ForeclosureWindowBlocks,
		FeePercentage:           in.FeePercentage,
		AgentRewardPercentage:   in.AgentRewardPercentage,
		MaxOracleAgeBlocks:      in.MaxOracleAgeBlocks,
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("floor %d, min %d, window %d: %w", p.ForeclosureFloorRatio, p.MinCollateralRatio, p.ForeclosureWindowBlocks, err)
	}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := u.guard(ctx, r, caller); err != nil {
			return err
		}
		return r.Params.Save(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().
		Str("caller", caller.Hex()).
		Uint64("min_ratio", p.MinCollateralRatio).
		Uint64("floor_ratio", p.ForeclosureFloorRatio).
		Uint64("window", p.ForeclosureWindowBlocks).
		Msg("general params updated")
	return p, nil
}

func (u *Usecase) GetParams(ctx context.Context) (*loanDomain.GeneralParams, error) {
	var p *loanDomain.GeneralParams
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		p, err = r.Params.Get(ctx)
		return err
	})
	return p, err
}

// AddAdmin is owner only and refuses an address that already has rights.
func (u *Usecase) AddAdmin(ctx context.Context, caller, addr common.Address) (*AdminDTO, error) {
	if caller != u.owner {
		return nil, loanDomain.ErrAdminGuard
	}
	if addr == (common.Address{}) {
		return nil, fmt.Errorf("zero address: %w", loanDomain.ErrInvalidInput)
	}
	if addr == u.owner {
		return nil, loanDomain.ErrAlreadyAdmin
	}
	a := &adminDomain.Admin{Address: addr, AddedBy: caller}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		ok, err := r.Admins.Exists(ctx, addr)
		if err != nil {
			return err
		}
		if ok {
			return loanDomain.ErrAlreadyAdmin
		}
		return r.Admins.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("admin", addr.Hex()).Msg("admin added")
	return &AdminDTO{Address: a.Address, AddedBy: a.AddedBy}, nil
}

func (u *Usecase) ListAdmins(ctx context.Context) ([]AdminDTO, error) {
	var out []AdminDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		list, err := r.Admins.List(ctx)
		if err != nil {
			return err
		}
		out = append(out, AdminDTO{Address: u.owner})
		for _, a := range list {
			out = append(out, AdminDTO{Address: a.Address, AddedBy: a.AddedBy})
		}
		return nil
	})
	return out, err
}

func (u *Usecase) SetNewPair(ctx context.Context, caller common.Address, in PairInput) (*oracleDomain.Pair, error) {
	switch {
	case in.Name == "":
		return nil, fmt.Errorf("pair name required: %w", loanDomain.ErrInvalidInput)
	case in.BaseAsset == in.QuoteAsset:
		return nil, fmt.Errorf("base and quote are both %s: %w", in.BaseAsset.Hex(), loanDomain.ErrInvalidInput)
	case in.Value.IsNegative():
		return nil, fmt.Errorf("negative price: %w", loanDomain.ErrInvalidInput)
	}
	block, err := u.blocks.CurrentBlock(ctx)
	if err != nil {
		return nil, err
	}
	p := &oracleDomain.Pair{
		Name:          in.Name,
		Value:         in.Value,
		PairDecimals:  in.PairDecimals,
		BaseAsset:     in.BaseAsset,
		BaseDecimals:  in.BaseDecimals,
		QuoteAsset:    in.QuoteAsset,
		QuoteDecimals: in.QuoteDecimals,
		UpdatedBlock:  block,
	}
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := u.guard(ctx, r, caller); err != nil {
			return err
		}
		return r.Pairs.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Uint64("pair_id", p.ID).Str("name", p.Name).Msg("pair registered")
	return p, nil
}

// SetPairValue stamps the new price with the current block.
func (u *Usecase) SetPairValue(ctx context.Context, caller common.Address, pairID uint64, value decimal.Decimal, pairDecimals uint8) (*oracleDomain.Pair, error) {
	if value.IsNegative() {
		return nil, fmt.Errorf("negative price: %w", loanDomain.ErrInvalidInput)
	}
	block, err := u.blocks.CurrentBlock(ctx)
	if err != nil {
		return nil, err
	}
	var p *oracleDomain.Pair
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := u.guard(ctx, r, caller); err != nil {
			return err
		}
		if err := r.Pairs.SetValue(ctx, pairID, value, pairDecimals, block); err != nil {
			return err
		}
		p, err = r.Pairs.Get(ctx, pairID)
		return err
	})
	if err != nil {
		return nil, err
	}
	u.log.Debug().Uint64("pair_id", pairID).Str("value", value.String()).Uint64("block", block).Msg("pair value set")
	return p, nil
}

func (u *Usecase) GetPair(ctx context.Context, pairID uint64) (*oracleDomain.Pair, error) {
	var p *oracleDomain.Pair
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		var err error
		p, err = r.Pairs.Get(ctx, pairID)
		return err
	})
	return p, err
}
