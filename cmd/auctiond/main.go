package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/muktadirmaashif/itcf-2026/internal/api"
	"github.com/muktadirmaashif/itcf-2026/internal/audit"
	"github.com/muktadirmaashif/itcf-2026/internal/auction"
	"github.com/muktadirmaashif/itcf-2026/internal/bot"
	"github.com/muktadirmaashif/itcf-2026/internal/bot/commands"
	"github.com/muktadirmaashif/itcf-2026/internal/clock"
	"github.com/muktadirmaashif/itcf-2026/internal/config"
	"github.com/muktadirmaashif/itcf-2026/internal/coordinator"
	"github.com/muktadirmaashif/itcf-2026/internal/health"
	"github.com/muktadirmaashif/itcf-2026/internal/leader"
	"github.com/muktadirmaashif/itcf-2026/internal/replica"
	"github.com/muktadirmaashif/itcf-2026/internal/store"
	"github.com/muktadirmaashif/itcf-2026/internal/telemetry"

	// Register store drivers so they are available via store.Open.
	_ "github.com/muktadirmaashif/itcf-2026/internal/store/memory"
	_ "github.com/muktadirmaashif/itcf-2026/internal/store/postgres"
	_ "github.com/muktadirmaashif/itcf-2026/internal/store/sqlite"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("loading .env file", slog.Any("error", err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider()
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	logger := tp.Logger
	clk := clock.Real{}

	repos, err := store.Open(ctx, cfg.Database, clk)
	if err != nil {
		return fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	defer repos.Closer.Close()

	logger.InfoContext(ctx, "connected to database", slog.String("driver", cfg.Database.Driver))

	rules := cfg.Rules.AuctionRules()
	cache := replica.New(repos.Snapshots, logger, clk)
	mgr, err := coordinator.NewManager(repos.Snapshots, auction.NewEngine(rules, clk), logger, tp.TracerProvider, tp.MeterProvider,
		coordinator.WithMaxRetries(cfg.Coordinator.MaxConflictRetries),
		coordinator.WithCommitHook(cache.Offer),
	)
	if err != nil {
		return fmt.Errorf("creating coordinator: %w", err)
	}
	auditor, err := audit.NewAuditor(repos.Snapshots, rules, logger, tp.MeterProvider)
	if err != nil {
		return fmt.Errorf("creating auditor: %w", err)
	}

	healthHandler := health.NewHandler(clk,
		health.Checker{Name: "database", Check: repos.Ping},
		health.Checker{Name: "replica", Check: cache.Check},
	)
	healthHandler.ReportVersion(cache.Version)

	// The API is served by every replica.
	apiServer := api.NewServer(mgr, cache, repos.Events, healthHandler, logger, tp.TracerProvider)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cache.Run(gctx)
	})
	g.Go(func() error {
		logger.InfoContext(gctx, "starting http server", slog.Int("port", cfg.Server.Port))
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", listenErr)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		healthHandler.SetReady(false)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error("http server shutdown error", slog.Any("error", shutdownErr))
		}
		return nil
	})

	handlers := commands.NewHandlers(mgr, cache, logger, tp.TracerProvider)
	// lead is the work only the leader should run.
	lead := func(ctx context.Context) {
		healthHandler.SetLeader(true)
		defer healthHandler.SetLeader(false)
		runLeader(ctx, cfg, auditor, handlers, logger)
	}

	healthHandler.SetReady(true)
	logger.InfoContext(ctx, "auctiond is running", slog.String("version", version))

	if cfg.LeaderElection.Enabled {
		logger.InfoContext(ctx, "leader election enabled, waiting for leadership...")
		g.Go(func() error {
			if leaderErr := leader.Run(gctx, cfg.LeaderElection, logger, lead, func() {}); leaderErr != nil {
				return fmt.Errorf("leader election: %w", leaderErr)
			}
			return nil
		})
	} else {
		g.Go(func() error {
			lead(gctx)
			return nil
		})
	}

	err = g.Wait()
	logger.Info("shutdown complete")
	return err
}

// runLeader starts the scheduled audit and the Discord bot and blocks until
// ctx is done.
func runLeader(ctx context.Context, cfg *config.Config, auditor *audit.Auditor, handlers *commands.Handlers, logger *slog.Logger) {
	scheduler, err := audit.NewScheduler(auditor, cfg.Audit.Interval, logger)
	if err != nil {
		logger.ErrorContext(ctx, "creating audit scheduler failed", slog.Any("error", err))
	} else if err = scheduler.Start(); err != nil {
		logger.ErrorContext(ctx, "starting audit scheduler failed", slog.Any("error", err))
	} else {
		defer func() {
			if stopErr := scheduler.Stop(); stopErr != nil {
				logger.Error("audit scheduler shutdown error", slog.Any("error", stopErr))
			}
		}()
	}

	discordBot, err := bot.New(cfg.Discord, handlers, logger)
	switch {
	case errors.Is(err, bot.ErrNoToken):
		logger.InfoContext(ctx, "discord bot disabled, no token configured")
	case err != nil:
		logger.ErrorContext(ctx, "creating bot failed", slog.Any("error", err))
	default:
		if err = discordBot.Start(ctx); err != nil {
			logger.ErrorContext(ctx, "starting bot failed", slog.Any("error", err))
			break
		}
		defer func() {
			if stopErr := discordBot.Stop(); stopErr != nil {
				logger.Error("bot shutdown error", slog.Any("error", stopErr))
			}
		}()
	}

	<-ctx.Done()
}
