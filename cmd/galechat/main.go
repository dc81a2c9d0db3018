package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andreiPopCatalin/gale-chat/internal/config"
	"github.com/andreiPopCatalin/gale-chat/internal/constants"
	"github.com/andreiPopCatalin/gale-chat/internal/database"
	"github.com/andreiPopCatalin/gale-chat/internal/models"
	"github.com/andreiPopCatalin/gale-chat/internal/retry"
	"github.com/andreiPopCatalin/gale-chat/internal/service"
	"github.com/andreiPopCatalin/gale-chat/internal/sound"
	"github.com/andreiPopCatalin/gale-chat/internal/tracing"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("GaleChat %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting GaleChat")

	cfg, haveConfigFile, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	applyLogLevel(logger, cfg.LogLevel)

	tracingManager := tracing.NewManager(tracing.Config{
		ServiceName:    "galechat",
		ServiceVersion: Version,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
		UseStdout:      cfg.Tracing.UseStdout,
	}, logger)

	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Open the store with exponential backoff; the database file may
	// live on storage that is briefly unavailable at boot.
	var store *database.Store
	backoff := retry.NewBackoff(retry.DefaultBackoffConfig())
	err = backoff.Retry(ctx, func() error {
		var openErr error
		store, openErr = database.New(cfg.Database.Path, cfg.Chat.WindowSize, logger)
		if openErr != nil {
			logger.Warnf("Failed to open message store: %v", openErr)
		}
		return openErr
	})
	if err != nil {
		return fmt.Errorf("failed to open message store after retries: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warnf("Failed to close message store: %v", err)
		}
	}()

	player := sound.NewPlayer(cfg.Sound.Enabled, cfg.Sound.Muted, logger)
	if err := player.Init(ctx); err != nil {
		logger.Warnf("Failed to initialize sound player: %v", err)
	}
	defer func() {
		if err := player.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown sound player: %v", err)
		}
	}()

	clock := service.SystemClock()
	factory := service.NewFactory(clock, service.UUIDGenerator(clock))
	session := service.NewSession(
		store,
		factory,
		service.NewScriptedReplies(),
		player,
		service.PacingFromConfig(cfg.Chat),
		cfg.Chat.EventBufferSize,
		logger,
	)
	defer session.Close()

	session.Initialize(ctx)

	if haveConfigFile {
		watcher := config.NewWatcher(*configPath, logger)
		watcher.OnChange(func(c *models.Config) {
			applyLogLevel(logger, c.LogLevel)
			player.SetMuted(c.Sound.Muted)
		})
		go func() {
			if err := watcher.Start(ctx); err != nil {
				logger.WithError(err).Warn("Configuration watcher stopped")
			}
		}()
	}

	if !cfg.Server.Enabled {
		logger.Info("Gateway server disabled, running headless")
		<-ctx.Done()
		return nil
	}

	server := NewServer(cfg, session, logger)
	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}

// loadConfig reads the configured file, falling back to built-in
// defaults when no file exists.
func loadConfig(logger *logrus.Logger) (*models.Config, bool, error) {
	if _, err := os.Stat(*configPath); err != nil {
		if os.IsNotExist(err) {
			logger.WithField("path", *configPath).Info("No configuration file, using defaults")
			return config.DefaultConfig(), false, nil
		}
		return nil, false, err
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

func applyLogLevel(logger *logrus.Logger, configured string) {
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		return
	}
	level, err := logrus.ParseLevel(configured)
	if err != nil {
		logger.Warnf("Invalid log level %q, defaulting to info", configured)
		logger.SetLevel(logrus.InfoLevel)
		return
	}
	logger.SetLevel(level)
}
