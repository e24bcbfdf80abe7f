package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/seamark/seamark/internal/config"
	"github.com/seamark/seamark/internal/httpserver"
	"github.com/seamark/seamark/internal/httpserver/deps"
	"github.com/seamark/seamark/internal/index"
	"github.com/seamark/seamark/internal/logger"
	"github.com/seamark/seamark/internal/redis"
	"github.com/seamark/seamark/internal/registry"
	"github.com/seamark/seamark/internal/scheduler"
	"github.com/seamark/seamark/internal/sources/seedfile"
	redisstore "github.com/seamark/seamark/internal/store/redis"
	"github.com/seamark/seamark/internal/version"
	"github.com/seamark/seamark/internal/view"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	registry    *registry.Registry
	harvester   *scheduler.Harvester
	pinger      *scheduler.Pinger
	pruner      *scheduler.RetentionPruner
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Initialize Redis early - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")

	// Store, memory index and registry
	store := redisstore.NewStoreWithLimits(redisClient,
		int64(cfg.HarvestLogLimit), int64(cfg.PingKeepCount))
	memIndex := index.NewMemoryIndex()
	reg := registry.New(store, memIndex, loggerClient)

	// Warm the index from Redis before anything reads it
	if err := reg.Load(context.Background()); err != nil {
		loggerClient.Errorf("Failed to load registry from Redis: %v", err)
		os.Exit(1)
	}

	// Seed the registry from the operator file (if configured)
	if cfg.SeedFile != "" {
		seeder := seedfile.NewSeeder(cfg.SeedFile, reg, loggerClient)
		added, err := seeder.Seed(context.Background())
		if err != nil {
			loggerClient.Errorf("Failed to seed services from %s: %v", cfg.SeedFile, err)
			os.Exit(1)
		}
		loggerClient.Info("seed file processed",
			logger.String("file", cfg.SeedFile),
			logger.Int("added", added))
	} else {
		loggerClient.Info("seed file not configured, registry managed via API only")
	}

	// Schedulers
	harvester := scheduler.NewHarvester(reg, store, loggerClient, scheduler.HarvesterOptions{
		Interval:      cfg.HarvestInterval,
		Timeout:       cfg.HarvestTimeout,
		MaxConcurrent: cfg.HarvestWorkers,
	})
	pinger := scheduler.NewPinger(reg, store, loggerClient,
		cfg.PingInterval, cfg.PingTimeout, cfg.PingConcurrency)
	pruner := scheduler.NewRetentionPruner(reg, store, loggerClient,
		cfg.PruneInterval, cfg.PingMaxAge)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:      loggerClient,
		StartTime:   time.Now(),
		Version:     version.Version,
		Commit:      version.Commit,
		BuildDate:   version.BuildDate,
		GoVersion:   version.GoVersion,
		TimeNow:     time.Now,
		RedisClient: redisClient,
		MemoryIndex: memIndex,
		Registry:    reg,
		Harvester:   harvester,
		Aggregator:  view.NewAggregator(reg, store),
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		registry:    reg,
		harvester:   harvester,
		pinger:      pinger,
		pruner:      pruner,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Seamark v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Seamark %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start harvest scheduler
	if err := a.harvester.Start(ctx); err != nil {
		return fmt.Errorf("failed to start harvester: %w", err)
	}
	a.logger.Info("harvester started",
		logger.Duration("interval", a.cfg.HarvestInterval),
		logger.Duration("timeout", a.cfg.HarvestTimeout))

	// Start ping monitor
	if err := a.pinger.Start(ctx); err != nil {
		return fmt.Errorf("failed to start pinger: %w", err)
	}
	a.logger.Info("pinger started",
		logger.Duration("interval", a.cfg.PingInterval))

	// Start ping retention pruner
	if err := a.pruner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start retention pruner: %w", err)
	}
	a.logger.Info("retention pruner started",
		logger.Duration("interval", a.cfg.PruneInterval),
		logger.Duration("max_age", a.cfg.PingMaxAge))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	// Stop schedulers; in-flight harvests finish on their own
	a.harvester.Stop()
	a.pinger.Stop()
	a.pruner.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ Seamark stopped cleanly")
	return nil
}
