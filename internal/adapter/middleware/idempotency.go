package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	HeaderRequestID = "Ax-Request-Id"
	HeaderRequestAt = "Ax-Request-At"
)

const (
	// reservationTTL bounds how long a crashed handler can block its request id.
	reservationTTL = 60 * time.Second
	maxClockSkew   = 10 * time.Minute
	storeTimeout   = 2 * time.Second
)

type replayEntry struct {
	InProgress  bool      `json:"in_progress"`
	Code        int       `json:"code"`
	Body        []byte    `json:"body"`
	BodySHA256  string    `json:"body_sha256"`
	RequestID   string    `json:"request_id"`
	RequestAtMS int64     `json:"request_at_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

type respRecorder struct {
	w    http.ResponseWriter
	buf  bytes.Buffer
	code int
}

func (r *respRecorder) Header() http.Header { return r.w.Header() }
func (r *respRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.w.Write(b)
}
func (r *respRecorder) WriteHeader(statusCode int) { r.code = statusCode; r.w.WriteHeader(statusCode) }

func reject(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, map[string]string{"error": msg, "code": code})
}

// IdempotencyMiddleware makes mutating loan operations safe to retry. A
// request is identified by method, route, caller and Ax-Request-Id; a repeat
// with the same body replays the recorded response instead of moving funds
// twice. Server errors are not recorded, so a request that failed on an
// unavailable oracle can be retried under the same id.
func IdempotencyMiddleware(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) echo.MiddlewareFunc {
	store := replayStore{rdb: rdb, ttl: ttl}
	log = log.With().Str("component", "idempotency").Logger()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			reqID := strings.TrimSpace(req.Header.Get(HeaderRequestID))
			if reqID == "" {
				return reject(c, http.StatusBadRequest, "InvalidInput", "missing "+HeaderRequestID)
			}
			if !validReqID(reqID) {
				return reject(c, http.StatusBadRequest, "InvalidInput", "invalid "+HeaderRequestID+" format")
			}
			reqAt, err := parseRequestAt(req.Header.Get(HeaderRequestAt))
			if err != nil {
				return reject(c, http.StatusBadRequest, "InvalidInput", err.Error())
			}
			now := nowUTC()
			if reqAt.Before(now.Add(-maxClockSkew)) || reqAt.After(now.Add(maxClockSkew)) {
				return reject(c, http.StatusBadRequest, "InvalidInput", HeaderRequestAt+" too skewed")
			}

			caller, ok := CallerFrom(c)
			if !ok {
				if caller, err = parseCaller(req.Header.Get(HeaderCaller)); err != nil {
					return reject(c, http.StatusBadRequest, "InvalidInput", err.Error())
				}
			}

			var body []byte
			if req.Body != nil {
				if body, err = io.ReadAll(req.Body); err != nil {
					return reject(c, http.StatusBadRequest, "InvalidInput", "unreadable body")
				}
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
			hash := bodyHash(body)

			key := replayKey(req.Method, c.Path(), caller, reqID)
			ctx, cancel := context.WithTimeout(req.Context(), storeTimeout)
			defer cancel()

			entry := replayEntry{
				InProgress:  true,
				BodySHA256:  hash,
				RequestID:   reqID,
				RequestAtMS: reqAt.UnixMilli(),
				CreatedAt:   now,
			}
			fresh, err := store.reserve(ctx, key, entry)
			if err != nil {
				log.Error().Err(err).Str("key", key).Msg("reserve")
				return reject(c, http.StatusServiceUnavailable, "Internal", "idempotency store unavailable")
			}
			if !fresh {
				cur, err := store.load(ctx, key)
				switch {
				case errors.Is(err, redis.Nil):
					// expired between SETNX and GET
					return reject(c, http.StatusConflict, "InvalidStatus", "request is already in progress")
				case err != nil:
					log.Warn().Err(err).Str("key", key).Msg("load entry")
				}
				if cur.BodySHA256 != "" && cur.BodySHA256 != hash {
					return reject(c, http.StatusConflict, "InvalidInput", HeaderRequestID+" reused with different body")
				}
				if !cur.InProgress && cur.Code != 0 {
					c.Response().Header().Set("Ax-Replayed", "true")
					return c.Blob(cur.Code, echo.MIMEApplicationJSON, cur.Body)
				}
				return reject(c, http.StatusConflict, "InvalidStatus", "request is already in progress")
			}

			rec := &respRecorder{w: c.Response().Writer, code: http.StatusOK}
			c.Response().Writer = rec
			if err := next(c); err != nil {
				c.Error(err)
			}

			// the request context may already be cancelled by now
			bg, done := context.WithTimeout(context.Background(), storeTimeout)
			defer done()
			if rec.code >= http.StatusInternalServerError {
				if err := store.release(bg, key); err != nil {
					log.Warn().Err(err).Str("key", key).Msg("release")
				}
				return nil
			}
			entry.InProgress = false
			entry.Code = rec.code
			entry.Body = rec.buf.Bytes()
			entry.CreatedAt = nowUTC()
			if err := store.record(bg, key, entry); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("record")
			}
			return nil
		}
	}
}
