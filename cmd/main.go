package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"finwiz/internal/adapters/config"
	"finwiz/internal/adapters/errors/noop"
	"finwiz/internal/adapters/errors/sentry"
	"finwiz/internal/bootstrap"
	"finwiz/internal/metrics"
	"finwiz/pkg/errors"
	"finwiz/pkg/logger"
)

func main() {
	asset := flag.String("asset", "", "asset to research (e.g. AAPL, SPY, BTC)")
	serve := flag.Bool("serve", false, "keep running after the kickoff (metrics + retention sweep)")
	metricsAddr := flag.String("metrics-addr", ":9090", "prometheus metrics listen address")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := initLogger(cfg); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	// Initialize error tracker
	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wire the application
	container, err := bootstrap.New(ctx, cfg, errorTracker)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer container.Close()

	if err := container.Workers.Start(ctx); err != nil {
		log.Fatalf("Failed to start workers: %v", err)
	}
	defer func() {
		if err := container.Workers.Stop(); err != nil {
			log.Warnf("Worker shutdown: %v", err)
		}
	}()

	if *serve {
		srv := metrics.Serve(*metricsAddr)
		defer func() { _ = srv.Close() }()
		log.Infof("Metrics available on %s/metrics", *metricsAddr)
	}

	go handleSignals(cancel, log)

	if *asset == "" {
		flag.Usage()
		log.Fatal("An asset is required (-asset)")
	}

	result, err := container.Flow.Kickoff(ctx, *asset)
	if err != nil {
		var partial *errors.PartialRunFailure
		if errors.As(err, &partial) {
			log.Warnf("Research completed with failures: %v", partial)
		} else {
			log.Fatalf("Research failed: %v", err)
		}
	}

	if result != nil && result.ReportPath != "" {
		log.Infof("Report for %s written to %s", result.Asset, result.ReportPath)
	}

	if *serve {
		<-ctx.Done()
	}

	// Flush error tracker before exit
	if err := errorTracker.Flush(context.Background()); err != nil {
		log.Warnf("Failed to flush error tracker: %v", err)
	}
	log.Info("Shutdown complete")
}

// loadConfig loads application configuration from environment
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// initLogger initializes structured logging
func initLogger(cfg *config.Config) error {
	return logger.Init(cfg.App.LogLevel, cfg.App.Env)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// handleSignals cancels the run context on SIGINT/SIGTERM.
func handleSignals(cancel context.CancelFunc, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")
	cancel()
}
