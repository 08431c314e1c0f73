package http

import (
	stdhttp "net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"loan-engine/internal/adapter/middleware"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func TestMintRetriedUnderSameRequestIDCreditsOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s := newTestServer(t, middleware.IdempotencyMiddleware(rdb, time.Minute, zerolog.Nop()))

	mint := func(reqID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(stdhttp.MethodPost, "/admin/assets/native/mint", mustJSON(map[string]any{"to": lender.Hex(), "amount": "5"}))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(middleware.HeaderCaller, owner.Hex())
		req.Header.Set(middleware.HeaderRequestID, reqID)
		req.Header.Set(middleware.HeaderRequestAt, strconv.FormatInt(time.Now().Unix(), 10))
		rec := httptest.NewRecorder()
		s.e.ServeHTTP(rec, req)
		return rec
	}

	first := mint("11111111111111111111111111111111")
	s.expect(first, stdhttp.StatusOK, nil)
	retry := mint("11111111111111111111111111111111")
	s.expect(retry, stdhttp.StatusOK, nil)
	if retry.Body.String() != first.Body.String() {
		t.Fatalf("retry body %s, want %s", retry.Body.String(), first.Body.String())
	}

	var bal struct {
		Balance decimal.Decimal `json:"balance"`
	}
	s.expect(s.do(stdhttp.MethodGet, "/assets/native/balances/"+lender.Hex(), [20]byte{}, nil), stdhttp.StatusOK, &bal)
	if !bal.Balance.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("balance after retry = %s, want 5", bal.Balance)
	}

	s.expect(mint("22222222222222222222222222222222"), stdhttp.StatusOK, nil)
	s.expect(s.do(stdhttp.MethodGet, "/assets/native/balances/"+lender.Hex(), [20]byte{}, nil), stdhttp.StatusOK, &bal)
	if !bal.Balance.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("balance after new request = %s, want 10", bal.Balance)
	}
}

func TestMutationsRequireRequestID(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	s := newTestServer(t, middleware.IdempotencyMiddleware(rdb, time.Minute, zerolog.Nop()))

	rec := s.do(stdhttp.MethodPost, "/admin/assets/native/mint", owner, map[string]any{"to": lender.Hex(), "amount": "5"})
	var body map[string]string
	s.expect(rec, stdhttp.StatusBadRequest, &body)
	if body["code"] != "InvalidInput" {
		t.Fatalf("code = %q", body["code"])
	}

	// reads are not gated
	s.expect(s.do(stdhttp.MethodGet, "/admin/params", [20]byte{}, nil), stdhttp.StatusOK, nil)
}
