package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const reqID = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func setupEcho(rdb *redis.Client, ttl time.Duration, handler echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(Caller())
	idem := IdempotencyMiddleware(rdb, ttl, zerolog.Nop())
	e.POST("/loans/:id/fund", handler, idem)
	e.GET("/loans/:id", handler, idem)
	return e
}

func headers() map[string]string {
	return map[string]string{
		HeaderRequestID: reqID,
		HeaderRequestAt: time.Now().UTC().Format(time.RFC3339),
		HeaderCaller:    testCaller.Hex(),
	}
}

func doReq(e *echo.Echo, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func counting(status int) (*int, echo.HandlerFunc) {
	n := 0
	return &n, func(c echo.Context) error {
		n++
		return c.JSON(status, map[string]int{"call": n})
	}
}

func Test_ReadsBypass(t *testing.T) {
	_, rdb := newMiniRedis(t)
	calls, h := counting(http.StatusOK)
	e := setupEcho(rdb, time.Minute, h)

	doReq(e, http.MethodGet, "/loans/1", "", nil)
	rec := doReq(e, http.MethodGet, "/loans/1", "", nil)
	if rec.Code != http.StatusOK || *calls != 2 {
		t.Fatalf("reads must not be replayed: code=%d calls=%d", rec.Code, *calls)
	}
}

func Test_ValidationFailures(t *testing.T) {
	_, rdb := newMiniRedis(t)
	calls, h := counting(http.StatusOK)
	e := setupEcho(rdb, time.Minute, h)

	cases := []struct {
		name  string
		apply func(map[string]string)
	}{
		{"missing request id", func(m map[string]string) { delete(m, HeaderRequestID) }},
		{"bad request id", func(m map[string]string) { m[HeaderRequestID] = "NOT-VALID" }},
		{"bad request at", func(m map[string]string) { m[HeaderRequestAt] = "not-a-time" }},
		{"skewed past", func(m map[string]string) {
			m[HeaderRequestAt] = time.Now().UTC().Add(-maxClockSkew - time.Minute).Format(time.RFC3339)
		}},
		{"skewed future", func(m map[string]string) {
			m[HeaderRequestAt] = time.Now().UTC().Add(maxClockSkew + time.Minute).Format(time.RFC3339)
		}},
		{"missing caller", func(m map[string]string) { delete(m, HeaderCaller) }},
		{"zero caller", func(m map[string]string) { m[HeaderCaller] = "0x0000000000000000000000000000000000000000" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hdr := headers()
			tc.apply(hdr)
			rec := doReq(e, http.MethodPost, "/loans/1/fund", `{}`, hdr)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("want 400, got %d body=%s", rec.Code, rec.Body.String())
			}
		})
	}
	if *calls != 0 {
		t.Fatalf("handler ran %d times on rejected requests", *calls)
	}
}

func Test_ReplaysRecordedResponse(t *testing.T) {
	_, rdb := newMiniRedis(t)
	calls, h := counting(http.StatusOK)
	e := setupEcho(rdb, 2*time.Minute, h)

	hdr := headers()
	first := doReq(e, http.MethodPost, "/loans/1/fund", `{"amount":"400"}`, hdr)
	second := doReq(e, http.MethodPost, "/loans/1/fund", `{"amount":"400"}`, hdr)

	if *calls != 1 {
		t.Fatalf("handler ran %d times, want 1", *calls)
	}
	if second.Code != first.Code || second.Body.String() != first.Body.String() {
		t.Fatalf("replay mismatch: %d %q vs %d %q", first.Code, first.Body.String(), second.Code, second.Body.String())
	}
	if second.Header().Get("Ax-Replayed") != "true" {
		t.Fatal("replayed response must be marked")
	}
}

func Test_ClientErrorsAreRecorded(t *testing.T) {
	_, rdb := newMiniRedis(t)
	calls, h := counting(http.StatusUnprocessableEntity)
	e := setupEcho(rdb, time.Minute, h)

	doReq(e, http.MethodPost, "/loans/1/fund", `{}`, headers())
	rec := doReq(e, http.MethodPost, "/loans/1/fund", `{}`, headers())
	if *calls != 1 || rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("4xx should replay: calls=%d code=%d", *calls, rec.Code)
	}
}

func Test_ServerErrorsReleaseTheKey(t *testing.T) {
	_, rdb := newMiniRedis(t)
	calls, h := counting(http.StatusServiceUnavailable)
	e := setupEcho(rdb, time.Minute, h)

	doReq(e, http.MethodPost, "/loans/1/fund", `{}`, headers())
	doReq(e, http.MethodPost, "/loans/1/fund", `{}`, headers())
	if *calls != 2 {
		t.Fatalf("5xx must allow a retry, handler ran %d times", *calls)
	}
	key := replayKey(http.MethodPost, "/loans/:id/fund", testCaller, reqID)
	if n := rdb.Exists(context.Background(), key).Val(); n != 0 {
		t.Fatalf("key should be gone after 5xx, exists=%d", n)
	}
}

func Test_HandlerErrorGoesThroughEchoErrorHandler(t *testing.T) {
	_, rdb := newMiniRedis(t)
	e := setupEcho(rdb, time.Minute, func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "taken")
	})

	first := doReq(e, http.MethodPost, "/loans/1/fund", `{}`, headers())
	second := doReq(e, http.MethodPost, "/loans/1/fund", `{}`, headers())
	if first.Code != http.StatusConflict || second.Code != http.StatusConflict {
		t.Fatalf("codes = %d, %d", first.Code, second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body %q, want %q", second.Body.String(), first.Body.String())
	}
}

func Test_ConflictWhileInProgress(t *testing.T) {
	_, rdb := newMiniRedis(t)
	calls, h := counting(http.StatusOK)
	e := setupEcho(rdb, time.Minute, h)

	body := `{"amount":"1"}`
	s := replayStore{rdb: rdb, ttl: time.Minute}
	key := replayKey(http.MethodPost, "/loans/:id/fund", testCaller, reqID)
	if ok, err := s.reserve(context.Background(), key, replayEntry{InProgress: true, BodySHA256: bodyHash([]byte(body))}); err != nil || !ok {
		t.Fatalf("seed reservation: ok=%v err=%v", ok, err)
	}

	rec := doReq(e, http.MethodPost, "/loans/1/fund", body, headers())
	if rec.Code != http.StatusConflict || *calls != 0 {
		t.Fatalf("in-progress => want 409 without running, got %d calls=%d", rec.Code, *calls)
	}
}

func Test_ConflictOnDifferentBody(t *testing.T) {
	_, rdb := newMiniRedis(t)
	calls, h := counting(http.StatusOK)
	e := setupEcho(rdb, time.Minute, h)

	doReq(e, http.MethodPost, "/loans/1/fund", `{"amount":"1"}`, headers())
	rec := doReq(e, http.MethodPost, "/loans/1/fund", `{"amount":"2"}`, headers())
	if rec.Code != http.StatusConflict || *calls != 1 {
		t.Fatalf("reused id with new body => want 409, got %d calls=%d", rec.Code, *calls)
	}
}

func Test_KeysAreScopedByRouteAndCaller(t *testing.T) {
	_, rdb := newMiniRedis(t)
	calls, h := counting(http.StatusOK)
	e := setupEcho(rdb, time.Minute, h)

	doReq(e, http.MethodPost, "/loans/1/fund", `{}`, headers())

	other := headers()
	other[HeaderCaller] = "0x00000000000000000000000000000000000000c2"
	doReq(e, http.MethodPost, "/loans/1/fund", `{}`, other)

	// same route template, so /loans/2 under the same id replays
	doReq(e, http.MethodPost, "/loans/2/fund", `{}`, headers())

	if *calls != 2 {
		t.Fatalf("handler ran %d times, want 2", *calls)
	}
}

func Test_CallerCaseDoesNotSplitKeys(t *testing.T) {
	_, rdb := newMiniRedis(t)
	calls, h := counting(http.StatusCreated)
	e := setupEcho(rdb, time.Minute, h)

	hdr := headers()
	hdr[HeaderCaller] = "0x00000000000000000000000000000000000000AB"
	doReq(e, http.MethodPost, "/loans/1/fund", `{}`, hdr)
	hdr[HeaderCaller] = "0x00000000000000000000000000000000000000ab"
	rec := doReq(e, http.MethodPost, "/loans/1/fund", `{}`, hdr)

	if *calls != 1 || rec.Code != http.StatusCreated {
		t.Fatalf("want one run and a 201 replay, got calls=%d code=%d", *calls, rec.Code)
	}
}

func Test_StoreUnavailable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = rdb.Close() })
	calls, h := counting(http.StatusOK)
	e := setupEcho(rdb, time.Minute, h)

	rec := doReq(e, http.MethodPost, "/loans/1/fund", `{}`, headers())
	if rec.Code != http.StatusServiceUnavailable || *calls != 0 {
		t.Fatalf("want 503 without running, got %d calls=%d", rec.Code, *calls)
	}
}

func Test_BodyIsRestoredForHandler(t *testing.T) {
	_, rdb := newMiniRedis(t)
	var seen string
	e := setupEcho(rdb, time.Minute, func(c echo.Context) error {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(c.Request().Body)
		seen = buf.String()
		return c.NoContent(http.StatusNoContent)
	})
	doReq(e, http.MethodPost, "/loans/1/fund", `{"amount":"7"}`, headers())
	if seen != `{"amount":"7"}` {
		t.Fatalf("handler saw body %q", seen)
	}
}
