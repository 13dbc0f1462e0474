package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/ticketmint/event-program/internal/adapters/primary/http"
	mw "github.com/ticketmint/event-program/internal/adapters/primary/http/middleware"
	"github.com/ticketmint/event-program/internal/adapters/primary/websocket"
	"github.com/ticketmint/event-program/internal/adapters/secondary/cache"
	"github.com/ticketmint/event-program/internal/adapters/secondary/email"
	"github.com/ticketmint/event-program/internal/adapters/secondary/memory"
	"github.com/ticketmint/event-program/internal/adapters/secondary/postgres"
	"github.com/ticketmint/event-program/internal/auth"
	"github.com/ticketmint/event-program/internal/config"
	"github.com/ticketmint/event-program/internal/core/domain"
	"github.com/ticketmint/event-program/internal/core/ports"
	"github.com/ticketmint/event-program/internal/core/program"
	"github.com/ticketmint/event-program/internal/core/services"
	"github.com/ticketmint/event-program/internal/infrastructure/logging"
	"github.com/ticketmint/event-program/internal/infrastructure/metrics"
)

// ledger is what start-up needs from either ledger backend.
type ledger interface {
	ports.Ledger
	ports.Faucet
}

// backend bundles the storage chosen by LEDGER_BACKEND.
type backend struct {
	ledger  ledger
	store   ports.ProgramStore
	events  ports.EventRepository
	tickets ports.TicketRepository
	health  map[string]httpAdapter.HealthChecker
	close   func()
}

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"ledger", cfg.Ledger.Backend,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("service stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server shutdown complete")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	m := metrics.New()

	// 3. Storage
	store, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()

	ticketCache, err := openCache(cfg, store.health)
	if err != nil {
		return err
	}

	// 4. Event program
	organizer := domain.AccountID(cfg.Event.Organizer)
	deps := program.Deps{
		Account: domain.DeriveProgramAccount(cfg.Event.ProgramSeed),
		Ledger:  store.ledger,
		Store:   store.store,
		Logger:  logger,
		Metrics: m,
	}
	p, fresh, err := openProgram(ctx, cfg, deps, store.ledger, organizer)
	if err != nil {
		return err
	}
	logger.Info("event program ready",
		"program_account", p.ProgramAccount().String(),
		"fresh", fresh,
	)

	signer, err := domain.NewTicketSigner([]byte(cfg.Ticket.CodeKey))
	if err != nil {
		return fmt.Errorf("ticket signer: %w", err)
	}

	// 5. Real-time components
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	// 6. Dependency Injection (Wiring the Hexagon)
	svc := services.NewBookkeepingService(services.BookkeepingDeps{
		Program:     p,
		Events:      store.events,
		Tickets:     store.tickets,
		Cache:       ticketCache,
		Notifier:    email.NewReceiptNotifier(logger),
		Broadcaster: hub,
		Signer:      signer,
		Metrics:     m,
		Logger:      logger,
	})
	defer svc.Shutdown()

	listing, err := svc.EnsureListing(ctx, ports.RegisterEventParams{
		Description: cfg.Event.Description,
		ImageURL:    cfg.Event.ImageURL,
	})
	if err != nil {
		return fmt.Errorf("mirror event listing: %w", err)
	}
	logger.Info("event listing mirrored",
		"event_id", listing.ID.String(),
		"metadata_url", cfg.Server.PublicURL+"/api/v1/events/"+listing.ID.String()+"/metadata",
	)

	if fresh && cfg.Event.InitialFunding > 0 {
		if err := svc.Fund(ctx, organizer, cfg.Event.InitialFunding); err != nil {
			return fmt.Errorf("initial program funding: %w", err)
		}
	}

	// 7. Rate Limiters
	var generalRateLimiter, callRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})
		defer generalRateLimiter.Stop()

		callRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.CallRPS,
			BurstSize:         cfg.RateLimit.CallBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		})
		defer callRateLimiter.Stop()
	}

	// 8. Setup Router
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	router := httpAdapter.NewRouter(httpAdapter.RouterDeps{
		Service:        svc,
		TokenManager:   tokenManager,
		Logger:         logger,
		Health:         httpAdapter.NewHealthHandler(cfg.App.Version, store.health),
		WebSocket:      httpAdapter.NewWebSocketHandler(hub, tokenManager, svc, cfg, logger),
		Metrics:        m.Handler(),
		Observer:       m,
		GeneralLimiter: generalRateLimiter,
		CallLimiter:    callRateLimiter,
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
	})

	// 9. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a failed listener
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// openBackend connects the configured ledger backend and its mirror
// repositories.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	reserve := domain.Reserve{
		Base:     cfg.Ledger.BaseReserve,
		PerAsset: cfg.Ledger.PerAssetReserve,
	}

	if cfg.Ledger.Backend == config.LedgerMemory {
		l := memory.NewLedger(reserve)
		return &backend{
			ledger:  l,
			events:  memory.NewEventRepository(),
			tickets: memory.NewTicketRepository(),
			health: map[string]httpAdapter.HealthChecker{
				"ledger": httpAdapter.HealthCheckFunc(func(ctx context.Context) error {
					_, err := l.Balance(ctx, domain.AccountID(cfg.Event.Organizer))
					return err
				}),
			},
			close: func() {},
		}, nil
	}

	applied, err := postgres.Migrate(cfg.Database.URL, cfg.Database.MigrationsPath)
	if err != nil {
		return nil, err
	}
	logger.Info("database migrations checked", "applied", applied)

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	// Apply database configuration
	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}
	logger.Info("database connection established")

	return &backend{
		ledger:  postgres.NewLedger(pool, reserve),
		store:   postgres.NewProgramStore(pool),
		events:  postgres.NewEventRepository(pool),
		tickets: postgres.NewTicketRepository(pool),
		health:  map[string]httpAdapter.HealthChecker{"database": pool},
		close:   pool.Close,
	}, nil
}

// openCache returns the redis ticket cache when REDIS_URL is set and a no-op
// cache otherwise.
func openCache(cfg *config.Config, health map[string]httpAdapter.HealthChecker) (ports.TicketCache, error) {
	if cfg.Redis.URL == "" {
		return cache.Noop{}, nil
	}
	client, err := cache.NewClient(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}
	health["redis"] = httpAdapter.HealthCheckFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	return cache.NewTicketCache(client, cfg.Redis.TicketTTL), nil
}

// genesisGrants lists the wallets a fresh program starts with: the organizer's
// genesis balance followed by LEDGER_GENESIS_ACCOUNTS.
func genesisGrants(cfg *config.Config, organizer domain.AccountID) []ports.WalletGrant {
	grants := []ports.WalletGrant{{Account: organizer, Amount: cfg.Ledger.GenesisBalance}}
	for _, g := range cfg.Ledger.GenesisAccounts {
		grants = append(grants, ports.WalletGrant{Account: domain.AccountID(g.Account), Amount: g.Amount})
	}
	return grants
}

// openProgram restores the program from its store, or instantiates it when
// none exists yet. Genesis wallets are seeded before a fresh program is created.
func openProgram(ctx context.Context, cfg *config.Config, deps program.Deps, l ledger, organizer domain.AccountID) (*program.Program, bool, error) {
	if deps.Store != nil {
		p, err := program.Open(ctx, deps)
		if err == nil {
			return p, false, nil
		}
		if !errors.Is(err, program.ErrProgramNotFound) {
			return nil, false, fmt.Errorf("restore program: %w", err)
		}
	}

	if err := services.SeedWallets(ctx, l, genesisGrants(cfg, organizer), deps.Logger); err != nil {
		return nil, false, fmt.Errorf("genesis deposit: %w", err)
	}

	p, err := program.New(ctx, deps, organizer, domain.EventParams{
		Name:   cfg.Event.Name,
		Date:   cfg.Event.Date,
		Venue:  cfg.Event.Venue,
		Supply: cfg.Event.Supply,
		Price:  cfg.Event.Price,
	})
	if err != nil {
		return nil, false, fmt.Errorf("instantiate program: %w", err)
	}
	return p, true, nil
}
