package http

import (
	"bytes"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"loan-engine/internal/adapter/middleware"
	"loan-engine/internal/adapter/repository/mysql"
	domain "loan-engine/internal/domain/loan"
	"loan-engine/internal/infrastructure/chain"
	"loan-engine/internal/infrastructure/metrics"
	"loan-engine/internal/testutil/sqlitedb"
	"loan-engine/internal/usecase/admin"
	"loan-engine/internal/usecase/loan"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// -------- helpers --------

var (
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	custody  = common.HexToAddress("0x00000000000000000000000000000000000c0de0")
	feeSink  = common.HexToAddress("0x00000000000000000000000000000000000fee00")
	borrower = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	lender   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	stranger = common.HexToAddress("0x00000000000000000000000000000000000000e3")
	usd      = common.HexToAddress("0x0000000000000000000000000000000000005d00")
)

func newEchoWithValidator() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func mustJSON(v any) *bytes.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

type testServer struct {
	t      *testing.T
	e      *echo.Echo
	blocks *chain.Manual
	met    *metrics.Engine
}

// newTestServer wires the full route table over an in-memory database. mw
// wraps the mutating routes.
func newTestServer(t *testing.T, mw ...echo.MiddlewareFunc) *testServer {
	t.Helper()
	db := sqlitedb.Open(t)
	tx := mysql.NewGormUoW(db, mysql.Accounts{Custody: custody, FeeSink: feeSink}, domain.DefaultParams())
	blocks := chain.NewManual(1)
	met := metrics.New()

	loans := loan.NewUsecase(tx, blocks, nil, met, zerolog.Nop())
	admins := admin.NewUsecase(tx, blocks, owner, custody, zerolog.Nop())

	e := newEchoWithValidator()
	e.Use(middleware.Caller())
	Register(e, NewHandler(blocks), NewLoanHandler(loans, zerolog.Nop()), NewAdminHandler(admins, zerolog.Nop()), met.Handler(), mw...)
	return &testServer{t: t, e: e, blocks: blocks, met: met}
}

func (s *testServer) do(method, path string, caller common.Address, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *stdhttp.Request
	if body != nil {
		req = httptest.NewRequest(method, path, mustJSON(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if caller != (common.Address{}) {
		req.Header.Set(middleware.HeaderCaller, caller.Hex())
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

// expect asserts the status and decodes the body into out when given.
func (s *testServer) expect(rec *httptest.ResponseRecorder, status int, out any) {
	s.t.Helper()
	if rec.Code != status {
		s.t.Fatalf("status = %d, want %d; body=%s", rec.Code, status, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			s.t.Fatalf("bad json: %v; raw=%s", err, rec.Body.String())
		}
	}
}

// seedPair registers a native/usd pair where ratio = collateral / 5 for a
// principal of 10000.
func (s *testServer) seedPair() uint64 {
	s.t.Helper()
	var p struct {
		ID uint64 `json:"id"`
	}
	s.expect(s.do(stdhttp.MethodPost, "/admin/pairs", owner, map[string]any{
		"name": "ETH/USD", "value": "2000", "pair_decimals": 0,
		"base_asset": "native", "base_decimals": 2,
		"quote_asset": usd.Hex(), "quote_decimals": 0,
	}), stdhttp.StatusCreated, &p)
	return p.ID
}

func (s *testServer) mint(asset string, to common.Address, amount string) {
	s.t.Helper()
	s.expect(s.do(stdhttp.MethodPost, "/admin/assets/"+asset+"/mint", owner, map[string]any{
		"to": to.Hex(), "amount": amount,
	}), stdhttp.StatusOK, nil)
}
