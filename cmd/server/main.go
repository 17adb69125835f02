package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/nahid270/MovieHub-sub000/internal/application"
	"github.com/nahid270/MovieHub-sub000/internal/config"
	"github.com/nahid270/MovieHub-sub000/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	overrides, err := parseFlags(os.Args[1:])
	kingpin.FatalIfError(err, "invalid arguments")

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	if err := shutdown(app, cfg.ShutdownGracePeriod, logger); err != nil {
		logger.Error("shutdown incomplete", zap.Error(err))
	}
}

func parseFlags(args []string) (*config.CLIOverrides, error) {
	kingpinApp := kingpin.New("moviehub", "MovieHub web service")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	logLevel := kingpinApp.Flag("log-level", "Log level").Enum("", "debug", "info", "warn", "error")
	upstreamURL := kingpinApp.Flag("upstream-url", "Base URL of the upstream HTTP API").String()
	var rpsSet, burstSet bool
	rateLimitRPS := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").IsSetByUser(&rpsSet).Float64()
	rateLimitBurst := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (0 means 1)").IsSetByUser(&burstSet).Int()

	if _, err := kingpinApp.Parse(args); err != nil {
		return nil, err
	}

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
	}
	if *port != "" {
		overrides.Port = port
	}
	if *logLevel != "" {
		overrides.LogLevel = logLevel
	}
	if *upstreamURL != "" {
		overrides.UpstreamURL = upstreamURL
	}
	if rpsSet {
		overrides.RateLimitRPS = rateLimitRPS
	}
	if burstSet {
		overrides.RateLimitBurst = rateLimitBurst
	}
	return overrides, nil
}

type stopper interface {
	Shutdown(ctx context.Context) error
}

// shutdown blocks until SIGINT or SIGTERM, then stops app within timeout.
func shutdown(app stopper, timeout time.Duration, logger *zap.Logger) error {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logger.Info("shutting down server", zap.Stringer("signal", sig))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return app.Shutdown(ctx)
}
