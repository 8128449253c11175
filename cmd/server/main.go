package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/formation-market/internal/config"
	"github.com/iliyamo/formation-market/internal/database"
	"github.com/iliyamo/formation-market/internal/handler"
	"github.com/iliyamo/formation-market/internal/logger"
	"github.com/iliyamo/formation-market/internal/middleware"
	"github.com/iliyamo/formation-market/internal/payment"
	"github.com/iliyamo/formation-market/internal/queue"
	"github.com/iliyamo/formation-market/internal/repository"
	"github.com/iliyamo/formation-market/internal/router"
	"github.com/iliyamo/formation-market/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := openDB(cfg)
	if err != nil {
		zl.Fatal("open database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db, zl); err != nil {
		zl.Fatal("migrate", zap.Error(err))
	}

	gw, err := payment.New(cfg.Payment)
	if err != nil {
		zl.Fatal("payment gateway", zap.Error(err))
	}

	var events service.EventPublisher = queue.NopPublisher{}
	if cfg.AMQP.Enabled {
		events = queue.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, zl)
	}

	ledger := repository.NewLedger(db)
	settlement := service.NewSettlementEngine(ledger, cfg.Settlement, events, zl)
	queries := service.NewQueries(ledger, zl)
	sales := handler.NewSalesHandler(
		service.NewSaleRecorder(ledger, gw, settlement, cfg.Settlement, cfg.Payment.Timeout, zl),
		settlement,
		service.NewReversalEngine(ledger, events, zl),
		queries,
	)
	seller := router.SellerHandlers{
		Products:    handler.NewProductHandler(service.NewCatalog(ledger)),
		Dashboard:   handler.NewDashboardHandler(queries),
		Withdrawals: handler.NewWithdrawalHandler(service.NewPayoutEngine(ledger, cfg.Withdrawal, zl), queries),
	}
	auth := handler.NewAuthHandler(cfg, ledger.Users, repository.NewTokenRepo(db))

	rdb := config.NewRedisClient(config.LoadRedisConfig(), zl)
	if rdb != nil {
		defer rdb.Close()
	}
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, zl)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb, zl)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(zl)
	e.Use(echomw.RequestID(), echomw.Recover(), middleware.RequestLogger(zl), middleware.Metrics())

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, auth, cfg.JWTSecret)
	router.RegisterSales(e, sales, cfg.JWTSecret, cfg.Payment.CallbackToken, limit)
	router.RegisterSeller(e, seller, cfg.JWTSecret, limit, cache)

	addr := ":" + cfg.Port
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("gateway", gw.Name()))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
}

func openDB(cfg config.Config) (*sql.DB, error) {
	if cfg.DBDriver == "sqlite" {
		return database.OpenSQLite(cfg.DBPath)
	}
	return database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
}
