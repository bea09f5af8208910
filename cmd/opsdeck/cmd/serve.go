package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/opsdeck/opsdeck/internal/adapter/inbound/rest"
	"github.com/opsdeck/opsdeck/internal/adapter/outbound/groq"
	"github.com/opsdeck/opsdeck/internal/adapter/outbound/memory"
	redisstore "github.com/opsdeck/opsdeck/internal/adapter/outbound/redis"
	"github.com/opsdeck/opsdeck/internal/adapter/outbound/sqlite"
	"github.com/opsdeck/opsdeck/internal/config"
	"github.com/opsdeck/opsdeck/internal/domain/alert"
	"github.com/opsdeck/opsdeck/internal/domain/auth"
	"github.com/opsdeck/opsdeck/internal/domain/cache"
	"github.com/opsdeck/opsdeck/internal/domain/monitor"
	"github.com/opsdeck/opsdeck/internal/domain/ratelimit"
	"github.com/opsdeck/opsdeck/internal/metrics"
	"github.com/opsdeck/opsdeck/internal/port/outbound"
	"github.com/opsdeck/opsdeck/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the opsdeck API server.

The server persists to SQLite and coordinates rate limits and cache
entries through Redis. Without a Redis address it falls back to an
in-process store, which is fine for a single instance.

Examples:
  # Start with config file settings
  opsdeck serve

  # Start with a specific config file
  opsdeck --config /path/to/opsdeck.yaml serve

  # Development mode (debug logging, generated token secret)
  opsdeck serve --dev`,
	RunE: runServe,
}

var devMode bool

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (debug logging, generated token secret)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load without validation so the --dev flag can apply first.
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// stop() restores default signal handling so a second Ctrl+C is a
	// hard kill.
	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	go func() {
		<-ctx.Done()
		stop()
	}()

	logger := newLogger(cfg)
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	// Write PID file so "opsdeck stop" can find us.
	pidPath := pidFilePath()
	if err := writePIDFile(pidPath); err != nil {
		logger.Warn("failed to write PID file", "path", pidPath, "error", err)
	} else {
		defer os.Remove(pidPath)
	}

	if err := run(ctx, cfg, logger); err != nil {
		return err
	}
	logger.Info("opsdeck stopped")
	return nil
}

// run wires all components together and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.DevMode {
		logger.Warn("development mode is enabled; do not expose this instance")
	}

	db, err := sqlite.Open(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	logger.Info("database ready", "path", cfg.Database.Path)

	kv := newKVStore(ctx, cfg, logger)
	defer kv.Close()

	// A disabled cache still runs the same code paths, just against a
	// process-local store.
	cacheKV := kv
	if !cfg.Cache.Enabled {
		cacheKV = memory.NewKVStore()
		logger.Info("shared cache disabled, caching in process memory")
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	stats := service.NewStatsService()

	c := cache.New(cacheKV,
		cache.WithLogger(logger),
		cache.WithHitHook(func(string) {
			m.CacheHitsTotal.Inc()
			stats.RecordCacheHit()
		}),
		cache.WithMissHook(func(string) {
			m.CacheMissesTotal.Inc()
			stats.RecordCacheMiss()
		}),
	)

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewLimiter(kv, ratelimit.WithLogger(logger))
	} else {
		logger.Warn("rate limiting is disabled")
	}

	engine, err := newAlertEngine(cfg)
	if err != nil {
		return err
	}
	if engine != nil {
		logger.Info("alert rules compiled", "rules", len(cfg.Alerts.Rules))
	}

	serviceStore := sqlite.NewServiceStore(db)
	incidentStore := sqlite.NewIncidentStore(db)
	deploymentStore := sqlite.NewDeploymentStore(db)
	logStore := sqlite.NewLogStore(db)
	actionStore := sqlite.NewActionStore(db)
	userStore := sqlite.NewUserStore(db)

	catalog := service.NewCatalogService(serviceStore, c, logger)
	incidents := service.NewIncidentService(incidentStore, serviceStore, c, logger)
	deployments := service.NewDeploymentService(deploymentStore, serviceStore, c, logger)
	logs := service.NewLogService(logStore, serviceStore, incidents, engine, c, logger)
	actions := service.NewActionService(actionStore, incidentStore, c, logger)

	tokens := auth.NewTokenService(cfg.Auth.TokenSecret, config.Duration(cfg.Auth.TokenTTL, 24*time.Hour))
	authSvc := service.NewAuthService(userStore, tokens, c, logger)

	llm := groq.NewClient(groq.Config{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
	}, groq.WithLogger(logger))
	if !llm.Configured() {
		logger.Info("no Groq API key configured, AI analysis degraded to data-only responses")
	}
	analysis := service.NewAnalysisService(serviceStore, incidentStore, deploymentStore, logStore, actionStore, llm, m, logger)

	if cfg.Prober.Enabled {
		prober := service.NewProber(catalog, logs,
			config.Duration(cfg.Prober.Interval, 30*time.Second), m, logger)
		go prober.Run(ctx)
	}

	handler := rest.NewHandler(limiter, stats, m, registry, logger,
		rest.WithCatalogService(catalog),
		rest.WithIncidentService(incidents),
		rest.WithDeploymentService(deployments),
		rest.WithLogService(logs),
		rest.WithActionService(actions),
		rest.WithAuthService(authSvc),
		rest.WithAnalysisService(analysis),
		rest.WithHealthChecks(db, kv, llm.Configured),
	)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("opsdeck listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		config.Duration(cfg.Server.ShutdownTimeout, 10*time.Second))
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newKVStore connects to Redis when configured, falling back to the
// in-process store otherwise. Redis being down at startup is logged, not
// fatal: the limiter fails open and the cache computes through.
func newKVStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) outbound.KVStore {
	if cfg.Redis.Addr == "" {
		logger.Info("no Redis address configured, using in-process store")
		return memory.NewKVStore()
	}

	kv := redisstore.NewKVStore(redisstore.Config{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: config.Duration(cfg.Redis.DialTimeout, 5*time.Second),
		OpTimeout:   config.Duration(cfg.Redis.OpTimeout, 2*time.Second),
	})

	pingCtx, cancel := context.WithTimeout(ctx, config.Duration(cfg.Redis.DialTimeout, 5*time.Second))
	defer cancel()
	if err := kv.Ping(pingCtx); err != nil {
		logger.Warn("Redis unreachable at startup, continuing degraded",
			"addr", cfg.Redis.Addr, "error", err)
	} else {
		logger.Info("connected to Redis", "addr", cfg.Redis.Addr)
	}
	return kv
}

// newAlertEngine compiles the configured alert rules. Returns nil when no
// rules are configured.
func newAlertEngine(cfg *config.Config) (*alert.Engine, error) {
	if len(cfg.Alerts.Rules) == 0 {
		return nil, nil
	}
	rules := make([]alert.Rule, 0, len(cfg.Alerts.Rules))
	for _, r := range cfg.Alerts.Rules {
		rules = append(rules, alert.Rule{
			Name:      r.Name,
			Condition: r.Condition,
			Severity:  monitor.Severity(r.Severity),
		})
	}
	engine, err := alert.NewEngine(rules)
	if err != nil {
		return nil, fmt.Errorf("compile alert rules: %w", err)
	}
	return engine, nil
}

// newLogger builds the process logger. Logs go to stderr so stdout stays
// clean for the MCP transport in mcp mode.
func newLogger(cfg *config.Config) *slog.Logger {
	level := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// pidFilePath returns the standard location for the opsdeck PID file.
func pidFilePath() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".opsdeck", "server.pid")
	}
	return filepath.Join(os.TempDir(), "opsdeck-server.pid")
}

// writePIDFile writes the current process PID to the given path, creating
// parent directories as needed.
func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}
