package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collateral-ledger/config"
	httpHandler "collateral-ledger/internal/adapter/http/handler"
	"collateral-ledger/internal/adapter/storage/memory"
	pgStorage "collateral-ledger/internal/adapter/storage/postgres"
	redisStorage "collateral-ledger/internal/adapter/storage/redis"
	"collateral-ledger/internal/core/domain"
	"collateral-ledger/internal/core/ports"
	"collateral-ledger/internal/service"
	"collateral-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ./config.yaml or ./config/config.yaml)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("backend", cfg.Ledger.Backend).
		Msg("Starting Collateral Loan Ledger")

	ctx := context.Background()
	custody := domain.Principal(cfg.Ledger.CustodyPrincipal)

	var (
		registry ports.AssetRegistry
		rail     ports.ValueRail
		journal  ports.EventJournal
		sinks    []ports.EventSink
		checkers []ports.HealthChecker
		pool     *pgxpool.Pool
	)

	// Collaborators
	switch cfg.Ledger.Backend {
	case config.BackendPostgres:
		pool, err = pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		log.Info().Msg("PostgreSQL connected")

		registry = pgStorage.NewRegistryRepo(pool, custody)
		rail = pgStorage.NewRailRepo(pool)
		journal = pgStorage.NewJournalRepo(pool)
		sinks = append(sinks, journal)
		checkers = append(checkers, pgStorage.NewHealthCheck(pool))
	case config.BackendMemory:
		log.Warn().Msg("Using in-memory registry and rail, state is lost on restart")
		memRegistry := memory.NewRegistry(custody)
		memRail := memory.NewRail()
		if err := seedMemory(memRegistry, memRail, cfg.Ledger.Seed); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed in-memory registry and rail")
		}
		log.Info().
			Int("tokens", len(cfg.Ledger.Seed.Tokens)).
			Int("balances", len(cfg.Ledger.Seed.Balances)).
			Msg("In-memory registry and rail seeded")
		registry = memRegistry
		rail = memRail
	}

	// Redis is optional: without it there is no rate limiting and no event
	// stream, and Idempotency-Key falls back to PostgreSQL when available.
	var rdb *goredis.Client
	rdb, err = redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, continuing without rate limiting and event stream")
		rdb = nil
	} else {
		defer rdb.Close()
		log.Info().Msg("Redis connected")
		sinks = append(sinks, redisStorage.NewEventStream(rdb, cfg.Ledger.EventStream))
		checkers = append(checkers, redisStorage.NewHealthCheck(rdb))
	}

	var notifier *service.WebhookNotifier
	if cfg.Webhook.URL != "" {
		var opts []service.WebhookOption
		if pool != nil {
			opts = append(opts, service.WithDeliveryLog(pgStorage.NewWebhookRepo(pool)))
		}
		notifier = service.NewWebhookNotifier(
			cfg.Webhook.URL,
			cfg.Webhook.Secret,
			service.NewHMACSignatureService(),
			&http.Client{Timeout: cfg.Webhook.Timeout},
			logger.Component(log, "webhook"),
			opts...,
		)
		sinks = append(sinks, notifier)
	}

	// Ledger
	ledger := service.NewLedger(registry, rail, custody, logger.Component(log, "ledger"), service.WithEventSinks(sinks...))
	if journal != nil && cfg.Ledger.ReplayOnStart {
		n, err := ledger.ReplayJournal(ctx, journal)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to replay ledger journal")
		}
		log.Info().Int("events", n).Msg("Ledger state restored from journal")
	}
	if notifier != nil {
		n, err := notifier.ResumePending(ctx, 100)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to resume pending webhook deliveries")
		} else if n > 0 {
			log.Info().Int("deliveries", n).Msg("Resumed pending webhook deliveries")
		}
	}
	desk := service.NewValueIntake(ledger, rail, custody, logger.Component(log, "intake"))

	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	deps := httpHandler.RouterDeps{
		Ledger:         desk,
		TokenSvc:       tokenSvc,
		HealthCheckers: checkers,
		Logger:         log,
	}
	switch {
	case rdb != nil:
		if cfg.RateLimit.Enabled {
			deps.RateLimitStore = redisStorage.NewRateLimitStore(rdb)
		}
		deps.IdempotencyStore = redisStorage.NewIdempotencyCache(rdb)
	case pool != nil:
		deps.IdempotencyStore = pgStorage.NewIdempotencyRepo(pool)
		log.Info().Msg("Idempotency-Key responses stored in PostgreSQL")
	}

	router := httpHandler.SetupRouter(deps)

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func seedMemory(reg *memory.Registry, rail *memory.Rail, seed config.SeedConfig) error {
	tokens := make([]memory.SeedToken, 0, len(seed.Tokens))
	for _, t := range seed.Tokens {
		tokens = append(tokens, memory.SeedToken{
			Key:          domain.CollateralKey{CollectionID: t.CollectionID, TokenID: t.TokenID},
			Owner:        domain.Principal(t.Owner),
			ApproveMover: t.ApproveCustody,
		})
	}
	balances := make(map[domain.Principal]int64, len(seed.Balances))
	for _, b := range seed.Balances {
		balances[domain.Principal(b.Principal)] += b.Amount
	}
	return memory.Seed(reg, rail, tokens, balances)
}
