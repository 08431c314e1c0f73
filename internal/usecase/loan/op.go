package loan

import (
	"context"
	"fmt"
	"time"

	domain "loan-engine/internal/domain/loan"
	"loan-engine/internal/domain/oracle"
	"loan-engine/internal/domain/uow"
	"loan-engine/pkg/id"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type transferKind uint8

const (
	transferIn transferKind = iota
	transferOut
	transferFee
)

type transfer struct {
	kind   transferKind
	asset  common.Address
	party  common.Address
	amount decimal.Decimal
}

// op is the state of one call: the tx-bound repos, the block it runs at, the
// events it emitted and the transfers it still owes.
type op struct {
	r         uow.Repos
	block     uint64
	caller    common.Address
	p         *domain.GeneralParams
	events    []domain.Event
	transfers []transfer
}

func (u *Usecase) mutate(ctx context.Context, caller common.Address, loanID uint64, fn func(ctx context.Context, o *op, l *domain.Loan) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	block, err := u.blocks.CurrentBlock(ctx)
	if err != nil {
		return fmt.Errorf("current block: %w", err)
	}
	var events []domain.Event
	err = u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		o := &op{r: r, block: block, caller: caller}
		if err := fn(ctx, o, l); err != nil {
			return err
		}
		if err := o.flush(ctx); err != nil {
			return err
		}
		events = o.events
		return nil
	})
	if err != nil {
		return err
	}
	u.afterCommit(ctx, events)
	return nil
}

func (u *Usecase) mutateTx(ctx context.Context, caller common.Address, fn func(ctx context.Context, o *op) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	block, err := u.blocks.CurrentBlock(ctx)
	if err != nil {
		return fmt.Errorf("current block: %w", err)
	}
	var events []domain.Event
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		o := &op{r: r, block: block, caller: caller}
		if err := fn(ctx, o); err != nil {
			return err
		}
		if err := o.flush(ctx); err != nil {
			return err
		}
		events = o.events
		return nil
	})
	if err != nil {
		return err
	}
	u.afterCommit(ctx, events)
	return nil
}

// view runs a read at the current block without taking the engine lock.
func (u *Usecase) view(ctx context.Context, fn func(ctx context.Context, o *op) error) error {
	block, err := u.blocks.CurrentBlock(ctx)
	if err != nil {
		return fmt.Errorf("current block: %w", err)
	}
	return u.uow.WithinTx(ctx, func(r uow.Repos) error {
		return fn(ctx, &op{r: r, block: block})
	})
}

func (u *Usecase) afterCommit(ctx context.Context, events []domain.Event) {
	for _, e := range events {
		if u.met != nil {
			u.met.Observe(e)
		}
		if e.Kind == domain.EventStatusChanged {
			u.log.Info().
				Uint64("loan_id", e.LoanID).
				Str("status", e.Status.String()).
				Uint64("block", e.Block).
				Str("actor", e.Actor.Hex()).
				Msg("loan status changed")
		}
	}
	if u.pub == nil || len(events) == 0 {
		return
	}
	if err := u.pub.Publish(ctx, events); err != nil {
		u.log.Warn().Err(err).Int("events", len(events)).Msg("publish events")
	}
}

// params is read once per call and reused.
func (o *op) params(ctx context.Context) (*domain.GeneralParams, error) {
	if o.p != nil {
		return o.p, nil
	}
	p, err := o.r.Params.Get(ctx)
	if err != nil {
		return nil, err
	}
	o.p = p
	return p, nil
}

func (o *op) quote(ctx context.Context, pairID uint64) (oracle.Quote, error) {
	p, err := o.params(ctx)
	if err != nil {
		return oracle.Quote{}, err
	}
	return oracle.NewClient(o.r.Pairs).Read(ctx, pairID, o.block, p.MaxOracleAgeBlocks)
}

func (o *op) emit(ctx context.Context, l *domain.Loan, kind domain.EventKind, actor, asset common.Address, amount decimal.Decimal) error {
	e := domain.Event{
		ID:     id.Event(),
		LoanID: l.ID,
		Kind:   kind,
		Actor:  actor,
		Asset:  asset,
		Amount: amount,
		Status: l.Status,
		Block:  o.block,
	}
	if err := o.r.Events.Append(ctx, &e); err != nil {
		return err
	}
	o.events = append(o.events, e)
	return nil
}

func (o *op) setStatus(ctx context.Context, l *domain.Loan, to domain.Status) error {
	l.Status = to
	l.StatusUpdatedAt = now()
	return o.emit(ctx, l, domain.EventStatusChanged, o.caller, common.Address{}, decimal.Zero)
}

func (o *op) pullIn(asset, from common.Address, amount decimal.Decimal) {
	o.transfers = append(o.transfers, transfer{kind: transferIn, asset: asset, party: from, amount: amount})
}

func (o *op) payOut(asset, to common.Address, amount decimal.Decimal) {
	o.transfers = append(o.transfers, transfer{kind: transferOut, asset: asset, party: to, amount: amount})
}

func (o *op) payFee(asset common.Address, amount decimal.Decimal) {
	o.transfers = append(o.transfers, transfer{kind: transferFee, asset: asset, amount: amount})
}

// flush runs queued transfers once the ledger state is written. Pulls go
// first so payouts can be funded by them.
func (o *op) flush(ctx context.Context) error {
	for _, t := range o.transfers {
		if t.kind != transferIn {
			continue
		}
		if err := o.r.Assets.TransferIn(ctx, t.asset, t.party, t.amount); err != nil {
			return err
		}
	}
	for _, t := range o.transfers {
		if !t.amount.IsPositive() {
			continue
		}
		var err error
		switch t.kind {
		case transferOut:
			err = o.r.Assets.TransferOut(ctx, t.asset, t.party, t.amount)
		case transferFee:
			err = o.r.Fees.DepositFee(ctx, t.asset, t.amount)
		}
		if err != nil {
			return err
		}
	}
	o.transfers = nil
	return nil
}

// wholeAmount accepts integer base-unit amounts only.
func wholeAmount(d decimal.Decimal, positive bool) error {
	switch {
	case d.IsNegative():
		return fmt.Errorf("negative amount %s: %w", d, domain.ErrInvalidInput)
	case !d.IsInteger():
		return fmt.Errorf("fractional amount %s: %w", d, domain.ErrInvalidInput)
	case positive && d.IsZero():
		return fmt.Errorf("amount must be positive: %w", domain.ErrInvalidInput)
	}
	return nil
}

// pct is floor(amount * p / 100).
func pct(amount decimal.Decimal, p uint64) decimal.Decimal {
	q, _ := amount.Mul(decimal.NewFromUint64(p)).QuoRem(hundred, 0)
	return q
}

// splitByShares divides total pro rata; rounding dust goes to the first holder
// that still has shares.
func splitByShares(total decimal.Decimal, holders []domain.Shareholder) []decimal.Decimal {
	parts := make([]decimal.Decimal, len(holders))
	paid := decimal.Zero
	first := -1
	for i := range holders {
		parts[i] = pct(total, uint64(holders[i].Shares))
		paid = paid.Add(parts[i])
		if first < 0 && holders[i].Shares > 0 {
			first = i
		}
	}
	if first >= 0 {
		parts[first] = parts[first].Add(total.Sub(paid))
	}
	return parts
}

func now() time.Time { return time.Now().UTC() }
