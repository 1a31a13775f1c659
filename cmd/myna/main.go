// Myna - Old vs new regime tax comparison in 60 seconds.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opensource-finance/myna/internal/advice"
	"github.com/opensource-finance/myna/internal/api"
	"github.com/opensource-finance/myna/internal/bus"
	"github.com/opensource-finance/myna/internal/cache"
	"github.com/opensource-finance/myna/internal/domain"
	"github.com/opensource-finance/myna/internal/engine"
	"github.com/opensource-finance/myna/internal/ratelimit"
	"github.com/opensource-finance/myna/internal/repository"
	"github.com/opensource-finance/myna/internal/rules"
	"github.com/opensource-finance/myna/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("MYNA_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting myna",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("MYNA_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	if dir := os.Getenv("MYNA_RULESETS_DIR"); dir != "" {
		cfg.Rules.Dir = dir
	}
	if year := os.Getenv("MYNA_ASSESSMENT_YEAR"); year != "" {
		cfg.Rules.DefaultAssessmentYear = year
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"assessment_year", cfg.Rules.DefaultAssessmentYear,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Load regime rule sets (builtins plus optional YAML overrides)
	registry, err := rules.Load(cfg.Rules)
	if err != nil {
		slog.Error("failed to load rule sets", "error", err)
		os.Exit(1)
	}
	slog.Info("rule sets loaded",
		"count", registry.Count(),
		"dir", cfg.Rules.Dir,
	)

	// Initialize Advice Engine (CEL-based tax-saving suggestions)
	advisor, err := advice.NewEngine(100)
	if err != nil {
		slog.Error("failed to initialize advice engine", "error", err)
		os.Exit(1)
	}
	if err := advisor.LoadRules(advice.BuiltinRules()); err != nil {
		slog.Error("failed to load advice rules", "error", err)
		os.Exit(1)
	}
	slog.Info("advice engine initialized", "rules_count", advisor.RulesCount())

	// Initialize Comparison Engine
	eng := engine.New(repo, cacheImpl, busImpl, registry, advisor, cfg.Rules)

	// Initialize Rate Limiter
	limiter := ratelimit.NewLimiter(cacheImpl, cfg.RateLimit)

	// Initialize async recompute Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("MYNA_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, eng)

		// Restrict to specific users via environment, default is all users
		userIDs := []string{}
		if envUsers := os.Getenv("MYNA_USERS"); envUsers != "" {
			for _, id := range strings.Split(envUsers, ",") {
				if id = strings.TrimSpace(id); id != "" {
					userIDs = append(userIDs, id)
				}
			}
		}

		workerCfg := worker.Config{
			UserIDs: userIDs,
		}

		if err := asyncWorker.Start(workerCfg); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "user_count", len(userIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, eng, registry, limiter, cfg.Rules, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("myna is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("myna shutdown complete")
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🐦 MYNA                     ║")
	fmt.Println("  ║     Tax Regime Comparison Engine          ║")
	fmt.Println("  ║      Old or new, know before you file.    ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    PUT    /v1/records/{category}      - Upsert a financial record")
	fmt.Println("    GET    /v1/records                 - List financial records")
	fmt.Println("    GET    /v1/records/{category}      - Get a financial record")
	fmt.Println("    DELETE /v1/records/{category}      - Delete a financial record")
	fmt.Println("    POST   /v1/comparisons             - Generate a regime comparison")
	fmt.Println("    GET    /v1/comparisons/latest      - Get the latest comparison")
	fmt.Println("    GET    /v1/rulesets                - List regime rule sets")
	fmt.Println("    GET    /v1/rulesets/{regime}/{year} - Get a regime rule set")
	fmt.Println("    POST   /v1/rulesets/reload         - Hot-reload rule sets")
	fmt.Println("    GET    /health                     - Health check")
	fmt.Println()
}
