// Kestrel - Hybrid fraud decisioning for reviews and transactions.
// Copyright (c) 2025 ecomtrust
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecomtrust/kestrel/internal/api"
	"github.com/ecomtrust/kestrel/internal/auth"
	"github.com/ecomtrust/kestrel/internal/bus"
	"github.com/ecomtrust/kestrel/internal/cache"
	"github.com/ecomtrust/kestrel/internal/domain"
	"github.com/ecomtrust/kestrel/internal/features"
	"github.com/ecomtrust/kestrel/internal/model"
	"github.com/ecomtrust/kestrel/internal/repository"
	"github.com/ecomtrust/kestrel/internal/rules"
	"github.com/ecomtrust/kestrel/internal/scoring"
	"github.com/ecomtrust/kestrel/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load configuration first so the logger honors KESTREL_LOG_*
	cfg, err := domain.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	initLogger(cfg.Logging)

	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	slog.Info("configuration loaded",
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"review_threshold", cfg.Scoring.ReviewThreshold,
		"tx_threshold", cfg.Scoring.TransactionThreshold,
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

	// Built-in rule sets, with optional literal overrides from disk
	limits, err := loadRuleLimits(cfg.Scoring.RuleLimitsPath)
	if err != nil {
		slog.Error("failed to load rule limits", "error", err)
		os.Exit(1)
	}
	reviewRules := rules.ReviewRules(limits.Review)
	transactionRules := rules.TransactionRules(limits.Transaction)
	slog.Info("rule sets initialized",
		"review_rules", reviewRules.Len(),
		"transaction_rules", transactionRules.Len(),
	)

	// Initialize CEL engine for operator-defined rules
	custom, err := rules.NewCustomEngine()
	if err != nil {
		slog.Error("failed to initialize custom rule engine", "error", err)
		os.Exit(1)
	}

	// Load custom rules from database (configure via POST /rules API)
	if err := loadRulesFromDatabase(ctx, repo, custom); err != nil {
		slog.Error("failed to load custom rules", "error", err)
		os.Exit(1)
	}
	slog.Info("custom rule engine initialized", "rules_count", custom.RulesCount())

	// Model scorers; a missing artifact path means rules-only scoring
	reviewScorer, err := loadScorer(cfg.Scoring.ReviewModelPath, domain.ReviewFeatureKeys())
	if err != nil {
		slog.Error("failed to load review model", "error", err)
		os.Exit(1)
	}
	transactionScorer, err := loadScorer(cfg.Scoring.TransactionModelPath, domain.TransactionFeatureKeys())
	if err != nil {
		slog.Error("failed to load transaction model", "error", err)
		os.Exit(1)
	}

	// Initialize Scoring Service
	scorer := scoring.New(
		features.NewReviewAggregator(repo.Reviews()),
		features.NewTransactionAggregator(repo.Transactions()),
		reviewRules, transactionRules,
		custom,
		reviewScorer, transactionScorer,
		scoring.Thresholds{
			Review:      cfg.Scoring.ReviewThreshold,
			Transaction: cfg.Scoring.TransactionThreshold,
		},
	)
	slog.Info("scoring service initialized")

	// Initialize token manager
	tokens := auth.NewManager(cfg.Auth)
	if cfg.Auth.JWTSecret == "change_me_in_production" {
		slog.Warn("using default JWT secret; set KESTREL_AUTH_JWT_SECRET")
	}

	// Initialize async Worker
	var asyncWorker *worker.Worker
	if cfg.AsyncWorker {
		asyncWorker = worker.NewWorker(busImpl, repo, scorer)
		if err := asyncWorker.Start(); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started")
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, cfg.RateLimit, repo, cacheImpl, cfg.Cache.LocalTTL, busImpl, scorer, custom, tokens, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
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

	slog.Info("kestrel shutdown complete")
}

func initLogger(cfg domain.LoggingConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// loadRuleLimits returns the built-in rule literals, overridden by the JSON
// file at path when one is configured.
func loadRuleLimits(path string) (rules.Limits, error) {
	limits := rules.DefaultLimits()
	if path == "" {
		return limits, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return limits, fmt.Errorf("failed to read rule limits %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &limits); err != nil {
		return limits, fmt.Errorf("failed to parse rule limits %s: %w", path, err)
	}
	slog.Info("rule limits overridden", "path", path)
	return limits, nil
}

// loadScorer loads a logistic artifact, or falls back to a zero static
// scorer when no path is configured.
func loadScorer(path string, featureKeys []string) (model.Scorer, error) {
	if path == "" {
		return model.StaticScorer(0), nil
	}
	scorer, err := model.LoadLogistic(path, featureKeys)
	if err != nil {
		return nil, err
	}
	slog.Info("model artifact loaded", "path", path)
	return scorer, nil
}

// loadRulesFromDatabase loads custom rules from the database into the engine.
// Custom rules are configured via POST /rules API - no hardcoded defaults.
func loadRulesFromDatabase(ctx context.Context, repo *repository.SQLRepository, custom *rules.CustomEngine) error {
	configs, err := repo.ListRuleConfigs(ctx)
	if err != nil {
		slog.Warn("failed to list rules from database", "error", err)
		return nil // Start with empty rules - they can be added via API
	}

	if len(configs) > 0 {
		slog.Info("loading custom rules from database", "count", len(configs))
		return custom.ReloadRules(configs)
	}

	slog.Info("no custom rules in database - configure via POST /rules API")
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🪶 KESTREL                  ║")
	fmt.Println("  ║     Hybrid Fraud Decision Engine          ║")
	fmt.Println("  ║      Hover. Watch. Decide.                ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /auth/token           - Exchange admin secret for a token")
	fmt.Println("    POST /predict/review       - Score a review")
	fmt.Println("    POST /predict/transaction  - Score a transaction")
	fmt.Println("    GET  /reviews/{id}         - Get a scored review")
	fmt.Println("    GET  /transactions/{id}    - Get a scored transaction")
	fmt.Println("    GET  /rules                - List custom rules")
	fmt.Println("    POST /rules                - Create a custom rule")
	fmt.Println("    POST /rules/reload         - Hot-reload custom rules")
	fmt.Println("    GET  /health               - Health check")
	fmt.Println()
}
