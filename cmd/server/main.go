package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/questboard/internal/config"
	"github.com/playperu/questboard/internal/database"
	"github.com/playperu/questboard/internal/daygrade"
	"github.com/playperu/questboard/internal/docstore"
	"github.com/playperu/questboard/internal/feedback"
	"github.com/playperu/questboard/internal/handler/health"
	"github.com/playperu/questboard/internal/identity"
	"github.com/playperu/questboard/internal/inbox"
	"github.com/playperu/questboard/internal/leaderboard"
	"github.com/playperu/questboard/internal/logging"
	"github.com/playperu/questboard/internal/migrations"
	"github.com/playperu/questboard/internal/mission"
	"github.com/playperu/questboard/internal/notify"
	"github.com/playperu/questboard/internal/player"
	"github.com/playperu/questboard/internal/progression"
	"github.com/playperu/questboard/internal/quest"
	"github.com/playperu/questboard/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, logCloser, err := logging.New(stdout, logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer logCloser.Close()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	policy, err := progression.ParsePolicy(cfg.ProgressionPolicy)
	if err != nil {
		return err
	}

	// --- SQLite ---
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("creating database dir: %w", err)
		}
	}
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	version, err := migrations.Run(ctx, db, logger)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath, "schema_version", version)
	store := docstore.New(db)

	checks := map[string]health.Checker{
		"sqlite": health.CheckerFunc(store.Ping),
	}

	// --- Notifications ---
	ready := &atomic.Bool{}
	broker := notify.NewBroker()
	notifiers := notify.Multi{broker}
	var ranking server.Ranking

	// --- Redis (optional) ---
	var board *leaderboard.Board
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")

		board = leaderboard.New(rdb, logger)
		defer board.Close()
		publisher := notify.NewRedisPublisher(rdb, cfg.EventChannel, logger)
		defer publisher.Close()

		notifiers = append(notifiers, board, publisher)
		ranking = board
		checks["redis"] = health.CheckerFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	} else {
		logger.Info("redis not configured, leaderboard served from sqlite")
	}
	checks["init"] = health.Ready(ready)

	// --- Services ---
	players := player.NewService(store, notifiers, policy, logger)
	admins := identity.NewAdmins(db, store, cfg.SessionTTL, logger)
	grades := daygrade.NewService(store, loc, logger)

	deps := server.Deps{
		Players:    players,
		Quests:     quest.NewService(store, notifiers, policy, logger),
		Feedback:   feedback.NewService(store, notifiers, policy, logger),
		DayGrades:  grades,
		Missions:   mission.NewService(store, loc, logger),
		Inbox:      inbox.NewService(store, logger),
		Admins:     admins,
		Tokens:     identity.NewTokens(cfg.JWTSecret, cfg.PlayerTokenTTL),
		Broker:     broker,
		Ranking:    ranking,
		Ready:      ready,
		ConsoleDir: cfg.ConsoleDir,
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, deps, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, checks).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		if err := initialize(gctx, logger, cfg, admins, players, board); err != nil {
			return err
		}
		ready.Store(true)
		logger.Info("initialization complete", "policy", policy.String(), "timezone", loc.String())
		return grades.RunMidnightReset(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

// initialize seeds the admin account and primes the leaderboard mirror.
// The game API answers 503 until it returns.
func initialize(ctx context.Context, logger *slog.Logger, cfg *config.Config, admins *identity.Admins, players *player.Service, board *leaderboard.Board) error {
	if _, err := admins.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}
	if board == nil {
		return nil
	}
	all, err := players.List(ctx)
	if err != nil {
		return fmt.Errorf("loading players: %w", err)
	}
	if err := board.Rebuild(ctx, all); err != nil {
		return fmt.Errorf("rebuilding leaderboard: %w", err)
	}
	logger.Info("leaderboard rebuilt", "players", len(all))
	return nil
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
