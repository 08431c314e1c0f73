package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"loan-engine/internal/adapter/events"
	httpadp "loan-engine/internal/adapter/http"
	"loan-engine/internal/adapter/middleware"
	"loan-engine/internal/adapter/repository/mysql"
	"loan-engine/internal/config"
	loanDomain "loan-engine/internal/domain/loan"
	"loan-engine/internal/infrastructure/cache"
	"loan-engine/internal/infrastructure/chain"
	"loan-engine/internal/infrastructure/db"
	"loan-engine/internal/infrastructure/logging"
	"loan-engine/internal/infrastructure/metrics"
	"loan-engine/internal/usecase/admin"
	"loan-engine/internal/usecase/loan"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", false)
		boot.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogPretty)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := openDB(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("database")
	}
	if err := mysql.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	rdb, err := cache.OpenRedis(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("redis")
	}
	defer rdb.Close()

	blocks, closeBlocks, err := blockSource(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("block source")
	}
	defer closeBlocks()

	met := metrics.New()
	tx := mysql.NewGormUoW(gdb, mysql.Accounts{Custody: cfg.Engine(), FeeSink: cfg.FeeSink()}, cfg.Params())
	loans := loan.NewUsecase(tx, blocks, events.NewRedisPublisher(rdb), met, log)
	admins := admin.NewUsecase(tx, blocks, cfg.Owner(), cfg.Engine(), log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.RequestID(), echomw.Recover(), requestLogger(log), middleware.Caller())

	httpadp.Register(e,
		httpadp.NewHandler(blocks),
		httpadp.NewLoanHandler(loans, log),
		httpadp.NewAdminHandler(admins, log),
		met.Handler(),
		middleware.IdempotencyMiddleware(rdb, cfg.IdempotencyTTL(), log),
	)

	addr := ":" + cfg.AppPort
	go func() {
		log.Info().Str("addr", addr).Str("owner", cfg.Owner().Hex()).Str("engine", cfg.Engine().Hex()).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("stopped")
}

func openDB(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	if cfg.DBDriver == "sqlite" {
		return db.OpenSQLite(cfg.SQLitePath, log)
	}
	return db.OpenGorm(cfg.MySQLDSN(), log)
}

// blockSource follows a real chain when an RPC endpoint is configured and
// falls back to a wall-clock height otherwise.
func blockSource(ctx context.Context, cfg *config.Config, log zerolog.Logger) (loanDomain.BlockSource, func(), error) {
	if cfg.ChainRPCURL != "" {
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		eth, err := chain.DialEth(dialCtx, cfg.ChainRPCURL)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("rpc", cfg.ChainRPCURL).Msg("block source: chain head")
		return eth, eth.Close, nil
	}
	wc, err := chain.NewWallClock(cfg.ChainGenesis, cfg.BlockInterval)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Time("genesis", cfg.ChainGenesis).Dur("interval", cfg.BlockInterval).Msg("block source: wall clock")
	return wc, func() {}, nil
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).
				Dur("latency", v.Latency).Str("request_id", v.RequestID).Msg("request")
			return nil
		},
	})
}
