package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/app"
	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/chain"
	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/clock"
	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/config"
	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/kafka"
	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/metrics"
	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/storage/postgres"
	"github.com/LOG795-Equipe-2/NFTicket-Backend/internal/storage/redis"
	transporthttp "github.com/LOG795-Equipe-2/NFTicket-Backend/internal/transport/http"
	"github.com/LOG795-Equipe-2/NFTicket-Backend/migrations"
)

const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	bootLog := zap.Must(zap.NewDevelopment())
	cfg, err := config.Load(os.Args[1:], bootLog)
	if err != nil {
		bootLog.Fatal("load config", zap.Error(err))
	}
	_ = bootLog.Sync()

	log := setupLogger(cfg.Env)
	defer func() { _ = log.Sync() }()

	if cfg.PlatformPrivateKey == "" {
		log.Fatal("PLATFORM_PRIVATE_KEY is required to sign platform transactions")
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("connect to db", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatal("db ping", zap.Error(err))
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatal("apply migrations", zap.Error(err))
	}

	rpc := chain.NewClient(cfg.ChainNodeURL)
	if cfg.ChainID == "" {
		info, err := rpc.GetInfo(startupCtx)
		if err != nil {
			log.Fatal("read chain id from node", zap.String("node", cfg.ChainNodeURL), zap.Error(err))
		}
		cfg.ChainID = info.ChainID
		log.Info("chain id read from node", zap.String("chain_id", cfg.ChainID))
	}

	recoverer, err := chain.NewRecoverer(cfg.ChainID)
	if err != nil {
		log.Fatal("chain id", zap.Error(err))
	}
	signer, err := chain.NewKeySigner(cfg.PlatformPrivateKey)
	if err != nil {
		log.Fatal("platform key", zap.Error(err))
	}
	submitter := chain.NewSubmitter(chain.NewTransactionBuilder(rpc, cfg.TxExpiration), signer, rpc, cfg.PlatformAccount)
	atomic := chain.NewAtomicAssets(rpc, cfg.AtomicAssetsContract)

	clk := clock.NewSystem()
	ticketRepo := postgres.NewTicketRepository(pool)
	reservations := app.NewReservationService(ticketRepo, clk, app.WithReservationHold(cfg.ReservationHold))

	deps := app.TransactionDeps{
		Pending:      postgres.NewPendingRepository(pool),
		Catalog:      ticketRepo,
		Reservations: reservations,
		Ledger:       atomic,
		Decoder:      rpc,
		Recoverer:    recoverer,
		Verifier:     app.NewIdentityVerifier(rpc, log.Named("identity")),
		Broadcaster:  rpc,
		Platform:     submitter,
		Clock:        clk,
		Log:          log.Named("transactions"),
	}
	healthChecks := []transporthttp.HealthCheck{
		{Name: "postgres", Ping: pool.Ping},
		{Name: "chain", Ping: func(ctx context.Context) error {
			_, err := rpc.GetInfo(ctx)
			return err
		}},
	}

	if cfg.RedisAddr != "" {
		locker := redis.New(cfg.RedisAddr)
		defer func() { _ = locker.Stop() }()
		deps.Locker = locker
		healthChecks = append(healthChecks, transporthttp.HealthCheck{Name: "redis", Ping: locker.Ping})
	} else {
		log.Warn("REDIS_ADDR not set, concurrent validations of one proposal are not serialized across instances")
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() { _ = producer.Close() }()
		deps.Events = producer
	}

	routerCfg := transporthttp.RouterConfig{
		Init: transporthttp.InitParams{
			ChainID:              cfg.ChainID,
			NodeURL:              cfg.ChainNodeURL,
			AppName:              cfg.PlatformAccount,
			PlatformContract:     cfg.PlatformContract,
			AtomicAssetsContract: cfg.AtomicAssetsContract,
			TokenContract:        cfg.TokenContract,
			TokenSymbol:          cfg.TokenSymbol,
			TokenPrecision:       cfg.TokenPrecision,
		},
		JWTSecret:   []byte(cfg.AdminJWTSecret),
		CORSOrigins: cfg.CORSOrigins,
		Health:      healthChecks,
		Log:         log.Named("http"),
	}
	if cfg.MetricsEnabled {
		m := metrics.New()
		deps.Metrics = m
		routerCfg.Metrics = m.Handler()
		routerCfg.Observer = m
	}

	txSvc := app.NewTransactionService(deps, app.TransactionConfig{
		PlatformAccount:  cfg.PlatformAccount,
		PlatformContract: cfg.PlatformContract,
		CollectionPrefix: cfg.CollectionPrefix,
		Atomic:           atomic.Actions(),
		Token: chain.Token{
			Contract:  cfg.TokenContract,
			Symbol:    cfg.TokenSymbol,
			Precision: cfg.TokenPrecision,
		},
		ProposalTTL: cfg.ProposalTTL,
		LockTTL:     cfg.LockTTL,
	})
	adminSvc := app.NewAdminService(postgres.NewAdminRepository(pool), clk, cfg.CollectionPrefix, app.WithPricePlaces(cfg.TokenPrecision))

	handler := transporthttp.NewRouter(transporthttp.Services{
		Proposer:   txSvc,
		Validator:  txSvc,
		Cleaner:    txSvc,
		Tickets:    txSvc,
		Events:     adminSvc,
		Categories: adminSvc,
	}, routerCfg)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("api listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env), zap.String("platform", cfg.PlatformAccount))

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		log.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server shutdown error", zap.Error(err))
	}
	log.Info("server stopped")
}

func setupLogger(env string) *zap.Logger {
	switch env {
	case config.EnvLocal:
		return zap.Must(zap.NewDevelopment())
	default:
		return zap.Must(zap.NewProduction())
	}
}
