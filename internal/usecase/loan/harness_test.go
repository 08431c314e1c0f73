package loan

import (
	"context"
	"sync"
	"testing"

	"loan-engine/internal/adapter/repository/mysql"
	"loan-engine/internal/domain/asset"
	domain "loan-engine/internal/domain/loan"
	"loan-engine/internal/domain/oracle"
	"loan-engine/internal/infrastructure/chain"
	"loan-engine/internal/testutil/sqlitedb"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	custody  = common.HexToAddress("0x00000000000000000000000000000000000c0de0")
	feeSink  = common.HexToAddress("0x00000000000000000000000000000000000fee00")
	borrower = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	lenderA  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	lenderB  = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	lenderC  = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	agent    = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	usd      = common.HexToAddress("0x0000000000000000000000000000000000005d00")
	wbtc     = common.HexToAddress("0x0000000000000000000000000000000000000b7c")
	native   = asset.Native
)

type recPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *recPublisher) Publish(_ context.Context, events []domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

func (p *recPublisher) kinds() []domain.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventKind, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

type recMetrics struct{ observed int }

func (m *recMetrics) Observe(domain.Event) { m.observed++ }

// engine wires the usecase to an in-memory database. The pair quotes one
// hundredth of the native asset at 2000 usd, so with principal 10000 the
// collateral ratio is collateral / 5.
type engine struct {
	t      *testing.T
	db     *gorm.DB
	uow    *mysql.GormUoW
	chain  *chain.Manual
	pub    *recPublisher
	met    *recMetrics
	uc     *Usecase
	ledger *mysql.AssetLedger
	pairID uint64
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	db := sqlitedb.Open(t)
	e := &engine{
		t:      t,
		db:     db,
		uow:    mysql.NewGormUoW(db, mysql.Accounts{Custody: custody, FeeSink: feeSink}, domain.DefaultParams()),
		chain:  chain.NewManual(1),
		pub:    &recPublisher{},
		met:    &recMetrics{},
		ledger: mysql.NewAssetLedger(db, custody),
	}
	e.uc = NewUsecase(e.uow, e.chain, e.pub, e.met, zerolog.Nop())

	p := &oracle.Pair{
		Name:          "ETH/USD",
		Value:         decimal.NewFromInt(2000),
		PairDecimals:  0,
		BaseAsset:     native,
		BaseDecimals:  2,
		QuoteAsset:    usd,
		QuoteDecimals: 0,
		UpdatedBlock:  1,
	}
	require.NoError(t, mysql.NewPairRepository(db).Create(context.Background(), p))
	e.pairID = p.ID
	return e
}

func (e *engine) mint(a, to common.Address, amount int64) {
	e.t.Helper()
	require.NoError(e.t, e.ledger.Mint(context.Background(), a, to, decimal.NewFromInt(amount)))
}

func (e *engine) approve(owner common.Address, amount int64) {
	e.t.Helper()
	e.approveAsset(usd, owner, amount)
}

func (e *engine) approveAsset(a, owner common.Address, amount int64) {
	e.t.Helper()
	require.NoError(e.t, e.ledger.Approve(context.Background(), a, owner, custody, decimal.NewFromInt(amount)))
}

// tokenPair registers a wbtc/usd pair priced like the native one, so token
// collateral gives the same ratios.
func (e *engine) tokenPair() uint64 {
	e.t.Helper()
	p := &oracle.Pair{
		Name:         "WBTC/USD",
		Value:        decimal.NewFromInt(2000),
		BaseAsset:    wbtc,
		BaseDecimals: 2,
		QuoteAsset:   usd,
		UpdatedBlock: 1,
	}
	require.NoError(e.t, mysql.NewPairRepository(e.db).Create(context.Background(), p))
	return p.ID
}

func (e *engine) balance(a, holder common.Address) decimal.Decimal {
	e.t.Helper()
	b, err := e.ledger.BalanceOf(context.Background(), a, holder)
	require.NoError(e.t, err)
	return b
}

func (e *engine) setPrice(v int64) {
	e.t.Helper()
	block, _ := e.chain.CurrentBlock(context.Background())
	require.NoError(e.t, mysql.NewPairRepository(e.db).SetValue(context.Background(), e.pairID, decimal.NewFromInt(v), 0, block))
}

func (e *engine) setParams(fn func(p *domain.GeneralParams)) {
	e.t.Helper()
	p := domain.DefaultParams()
	fn(&p)
	require.NoError(e.t, mysql.NewParamsRepository(e.db, domain.DefaultParams()).Save(context.Background(), &p))
}

func (e *engine) loan(id uint64) *LoanDTO {
	e.t.Helper()
	dto, err := e.uc.GetLoan(context.Background(), id)
	require.NoError(e.t, err)
	return dto
}

// open creates a pending loan of 10000 usd against collateral native units.
func (e *engine) open(collateral int64) *LoanDTO {
	e.t.Helper()
	e.mint(native, borrower, collateral)
	dto, err := e.uc.OpenNewLoan(context.Background(), OpenLoanInput{
		Caller:       borrower,
		PairID:       e.pairID,
		Principal:    decimal.NewFromInt(10000),
		RatePerBlock: decimal.NewFromInt(2),
		Value:        decimal.NewFromInt(collateral),
	})
	require.NoError(e.t, err)
	return dto
}

func (e *engine) fund(lender common.Address, loanID uint64, amount int64) (*FundResult, error) {
	e.t.Helper()
	e.mint(usd, lender, amount)
	e.approve(lender, amount)
	amt := decimal.NewFromInt(amount)
	return e.uc.LenderSendStableCoins(context.Background(), FundInput{Caller: lender, LoanID: loanID, Asset: usd, Amount: &amt})
}

// active opens a loan with 1000 collateral and funds it 40/60 by lenders A
// and B; activation happens at block 12.
func (e *engine) active() *LoanDTO {
	e.t.Helper()
	l := e.open(1000)
	e.chain.Set(10)
	_, err := e.fund(lenderA, l.ID, 4000)
	require.NoError(e.t, err)
	e.chain.Set(12)
	_, err = e.fund(lenderB, l.ID, 6000)
	require.NoError(e.t, err)
	return e.loan(l.ID)
}

func requireDec(t *testing.T, want int64, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, got.Equal(decimal.NewFromInt(want)), "want %d, got %s %v", want, got, msgAndArgs)
}
