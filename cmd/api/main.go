package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"pagefeed/internal/cache"
	"pagefeed/internal/config"
	"pagefeed/internal/infra/assembler"
	"pagefeed/internal/infra/discovery"
	"pagefeed/internal/infra/extractor"
	"pagefeed/internal/infra/feedparser"
	"pagefeed/internal/infra/fetcher"
	"pagefeed/internal/observability/tracing"
	feedUC "pagefeed/internal/usecase/feed"

	hhttp "pagefeed/internal/handler/http"
	hfeed "pagefeed/internal/handler/http/feed"
	"pagefeed/internal/handler/http/requestid"
	"pagefeed/internal/handler/http/respond"
)

// serverTimeout caps one request end to end. A cold feed build does real
// origin I/O (page fetch plus candidate probes), so this sits well above the
// per-fetch timeout.
const serverTimeout = 30 * time.Second

func main() {
	logger := initLogger()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration invalid", slog.Any("error", err))
		os.Exit(1)
	}
	respond.Development = cfg.Env == "development"

	components := setupServer(cfg, logger)

	runServer(cfg, logger, components)
}

// initLogger initializes and returns a structured logger based on environment configuration.
func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// ServerComponents bundles the wired pipeline with the handles the runtime
// loop needs for cleanup.
type ServerComponents struct {
	Handler     http.Handler
	Service     *feedUC.Service
	RateLimiter *hhttp.RateLimiter
}

// setupServer wires the pipeline and routes.
func setupServer(cfg config.Config, logger *slog.Logger) *ServerComponents {
	rules := loadRules(cfg, logger)

	fetchCfg := fetcher.DefaultConfig()
	fetchCfg.Timeout = cfg.RequestTimeout
	fetchCfg.DiscoveryTimeout = cfg.DiscoveryTimeout
	fetchCfg.MinGap = cfg.FetchMinGap
	fetchCfg.DiscoveryMinGap = cfg.DiscoveryMinGap
	fetchCfg.UserAgent = cfg.UserAgent
	if err := fetchCfg.Validate(); err != nil {
		logger.Error("fetch configuration invalid", slog.Any("error", err))
		os.Exit(1)
	}

	f := fetcher.New(fetchCfg, logger)
	parser := feedparser.New()
	ext := extractor.New(extractor.NewProfileTable(rules.SiteProfiles), logger)
	disc := discovery.New(f, rules.DomainRules, cfg.ExtraStrategies, logger)
	asm := assembler.New()
	results := cache.New(cfg.CacheDuration, cfg.CacheMaxEntries)

	svc := feedUC.New(f, disc, parser, ext, asm, results, feedUC.Settings{
		BaseURL:            cfg.BaseURL,
		Generator:          cfg.Generator,
		MaxArticlesPerFeed: cfg.MaxArticlesPerFeed,
		CacheDuration:      cfg.CacheDuration,
	}, logger)

	mux := http.NewServeMux()
	hfeed.Register(mux, svc, cfg.CacheDurationSeconds())

	// 運用エンドポイント
	mux.Handle("GET    /health", &hhttp.HealthHandler{
		Version:         cfg.Version,
		CacheStats:      results.Stats,
		OpenCircuits:    f.OpenCircuits,
		TrackedCircuits: f.TrackedCircuits,
	})
	mux.Handle("GET    /ready", &hhttp.ReadyHandler{})
	mux.Handle("GET    /live", &hhttp.LiveHandler{})
	mux.Handle("GET    /metrics", hhttp.MetricsHandler())

	var limiter *hhttp.RateLimiter
	if cfg.RateLimitEnabled {
		limiter = hhttp.NewRateLimiter(cfg.RateLimitCeiling, cfg.RateLimitWindow)
		logger.Info("rate limiting initialized",
			slog.Int("ceiling", cfg.RateLimitCeiling),
			slog.Duration("window", cfg.RateLimitWindow))
	} else {
		logger.Warn("rate limiting is DISABLED - not recommended for production")
	}

	return &ServerComponents{
		Handler:     applyMiddleware(logger, mux, limiter),
		Service:     svc,
		RateLimiter: limiter,
	}
}

// loadRules reads the optional YAML overlay named by RULES_FILE. Without the
// variable the built-in rule tables serve alone.
func loadRules(cfg config.Config, logger *slog.Logger) *config.Rules {
	if cfg.RulesFile == "" {
		return &config.Rules{}
	}
	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		logger.Error("failed to load rules overlay",
			slog.String("path", cfg.RulesFile),
			slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("rules overlay loaded",
		slog.String("path", cfg.RulesFile),
		slog.Int("domain_rules", len(rules.DomainRules)),
		slog.Int("site_profiles", len(rules.SiteProfiles)))
	return rules
}

// applyMiddleware wraps the handler with the middleware chain.
// Order (outermost first): Request ID → Rate Limit → Recovery → Logging →
// Input Validation → Timeout → Tracing → Metrics.
func applyMiddleware(logger *slog.Logger, handler http.Handler, limiter *hhttp.RateLimiter) http.Handler {
	chain := handler

	// Apply in reverse order (innermost to outermost)
	chain = hhttp.MetricsMiddleware(chain)
	chain = tracing.Middleware(chain)
	chain = hhttp.Timeout(serverTimeout)(chain)
	chain = hhttp.InputValidation()(chain)
	chain = hhttp.Logging(logger)(chain)
	chain = hhttp.Recover(logger)(chain)

	if limiter != nil {
		chain = limiter.Limit(chain)
	}

	chain = requestid.Middleware(chain)

	return chain
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(cfg config.Config, logger *slog.Logger, components *ServerComponents) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 期限切れキャッシュエントリの定期削除
	sweeper := cron.New()
	if _, err := sweeper.AddFunc(fmt.Sprintf("@every %s", cfg.CacheSweepInterval), func() {
		if removed := components.Service.Cache().Sweep(); removed > 0 {
			logger.Debug("cache sweep completed", slog.Int("removed", removed))
		}
	}); err != nil {
		logger.Error("failed to schedule cache sweep", slog.Any("error", err))
		os.Exit(1)
	}
	sweeper.Start()

	if components.RateLimiter != nil {
		go hhttp.StartRateLimitCleanup(ctx, components.RateLimiter, hhttp.LoadCleanupInterval())
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           components.Handler,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("version", cfg.Version),
			slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	// Stop the sweep schedule and background goroutines
	sweeperCtx := sweeper.Stop()
	<-sweeperCtx.Done()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
