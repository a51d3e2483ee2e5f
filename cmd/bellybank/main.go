// Package main is the entry point for the bellybank API service.
//
// Startup is migrate-then-serve: the process applies pending schema
// migrations first and exits non-zero if any fail, so a broken schema never
// receives traffic.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bellybank/bellybank/internal/bootstrap"
	"github.com/bellybank/bellybank/internal/config"
	"github.com/bellybank/bellybank/internal/engines/accounts"
	"github.com/bellybank/bellybank/internal/engines/assistant"
	"github.com/bellybank/bellybank/internal/engines/deposits"
	"github.com/bellybank/bellybank/internal/engines/insurance"
	"github.com/bellybank/bellybank/internal/engines/loans"
	"github.com/bellybank/bellybank/internal/engines/security"
	"github.com/bellybank/bellybank/internal/engines/services"
	"github.com/bellybank/bellybank/internal/engines/transfers"
	"github.com/bellybank/bellybank/internal/server"
	"github.com/bellybank/bellybank/pkg/events"
)

var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "Print version and exit")
	validateOnly := flag.Bool("validate", false, "Validate configuration and exit")
	skipMigrations := flag.Bool("skip-migrations", false, "Skip the schema migration phase")
	logLevel := flag.String("log-level", "", "Override the configured log level (debug, info, warn, error)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("bellybank-api %s\n", version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	if *validateOnly {
		logger.Info("Configuration is valid")
		return
	}

	logger.Info("Starting bellybank API",
		zap.String("version", version),
		zap.String("listen_address", cfg.ListenAddress()),
		zap.Bool("assistant_enabled", cfg.AssistantEnabled()),
		zap.Bool("events_enabled", cfg.EventsEnabled()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := bootstrap.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	// Migration phase. Failure here must stop the process before the HTTP
	// server binds.
	if *skipMigrations {
		logger.Warn("Skipping schema migrations")
	} else {
		runner := bootstrap.NewMigrationRunner(pool, cfg.MigrationsPath, logger)
		if err := runner.Run(ctx); err != nil {
			logger.Fatal("Schema migration failed", zap.Error(err))
		}
	}

	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	accountsEngine := accounts.NewEngine(pool, logger)
	tokenEngine := security.NewTokenEngine(cfg.SecretKey, cfg.TokenExpiry, logger)

	// Drop revocation records for tokens that have expired anyway.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tokenEngine.CleanupExpiredRevocations()
			}
		}
	}()

	engines := &server.Engines{
		Accounts:  accountsEngine,
		Tokens:    tokenEngine,
		Transfers: transfers.NewEngine(pool, publisher, logger),
		Services:  services.NewEngine(pool, publisher, logger),
		Loans:     loans.NewEngine(pool, publisher, logger),
		Deposits:  deposits.NewEngine(pool, publisher, logger),
		Insurance: insurance.NewEngine(pool, publisher, logger),
		Assistant: assistant.NewEngine(cfg.GroqAPIKey, cfg.GroqBaseURL, accountsEngine, logger),
	}

	srv, err := server.NewServer(cfg, engines, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	// Translate SIGINT/SIGTERM into context cancellation so Start shuts
	// down gracefully.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received signal", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := srv.Start(ctx); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}

	logger.Info("bellybank API stopped")
}

// initLogger builds the production logger with console-friendly encoding.
func initLogger(level string) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	zapConfig.Encoding = "console"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	return zapConfig.Build()
}

// newPublisher connects to the event broker when configured, otherwise
// events are discarded.
func newPublisher(cfg *config.Settings, logger *zap.Logger) events.Publisher {
	if !cfg.EventsEnabled() {
		logger.Info("Event publishing disabled, no broker configured")
		return events.NopPublisher{}
	}

	publisher, err := events.NewMQTTPublisher(&events.Config{
		BrokerURL:      cfg.EventBrokerURL,
		ClientID:       cfg.EventBrokerClientID,
		Username:       cfg.EventBrokerUsername,
		Password:       cfg.EventBrokerPassword,
		ConnectTimeout: 10 * time.Second,
	}, logger)
	if err != nil {
		// The broker is optional infrastructure; a banking API that cannot
		// emit events still serves customers.
		logger.Warn("Event broker unavailable, continuing without events", zap.Error(err))
		return events.NopPublisher{}
	}

	return publisher
}
