// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jadrxma/productfinder/internal/config"
	"github.com/jadrxma/productfinder/internal/logging"
	"github.com/jadrxma/productfinder/internal/notify"
	"github.com/jadrxma/productfinder/internal/storage"
	"github.com/jadrxma/productfinder/internal/storage/local"
)

// App holds all the shared, long-lived services for the application: the
// logger, the export archive, and the run-completion notifier. It is
// initialized once at startup and handed to the components that need it.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	storage  storage.Provider
	notifier notify.Provider
}

// GetConfig returns the validated service configuration.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetStorage exposes the configured export archive provider.
func (a *App) GetStorage() storage.Provider {
	return a.storage
}

// GetNotifier returns the provider used to publish run completions.
func (a *App) GetNotifier() notify.Provider {
	return a.notifier
}

// NewApp creates and initializes a new App from the global Viper
// configuration. It is the central point for service initialization and fails
// fast if any configured service cannot be reached.
func NewApp(ctx context.Context) (*App, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	logging.L = logger
	logger.Info("Initializing application services...")

	var archive storage.Provider
	switch cfg.Storage.Provider {
	case "gcs":
		logger.Info("Using GCS export archive", zap.String("bucket", cfg.Storage.GCSBucket))
		archive, err = storage.NewGCSProvider(ctx, cfg.Storage.GCSBucket, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize gcs archive: %w", err)
		}
	case "local":
		logger.Info("Using local filesystem export archive", zap.String("dir", cfg.Storage.LocalDir))
		archive, err = local.New(local.Config{BaseDir: cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("initialize local archive: %w", err)
		}
	case "noop":
		logger.Info("Using No-Op export archive. Exports are served from memory only.")
		archive = &storage.NoOpProvider{}
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Storage.Provider)
	}

	var notifier notify.Provider
	switch cfg.Notify.Provider {
	case "pubsub":
		logger.Info("Connecting to GCP Pub/Sub", zap.String("topic", cfg.Notify.TopicID))
		notifier, err = notify.NewPubSubProvider(ctx, cfg.Notify.ProjectID, cfg.Notify.TopicID, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize pubsub notifier: %w", err)
		}
	case "noop":
		logger.Info("Using No-Op notifier. No completion messages will be sent.")
		notifier = &notify.NoOpProvider{}
	default:
		return nil, fmt.Errorf("unknown notify provider: %s", cfg.Notify.Provider)
	}

	logger.Info("Application services initialized successfully.")
	return &App{
		cfg:      cfg,
		logger:   logger,
		storage:  archive,
		notifier: notifier,
	}, nil
}

// Close gracefully shuts down all services in the App container. It is called
// by a Cobra hook after the command finishes execution.
func (a *App) Close() {
	a.logger.Info("Shutting down application services...")
	if err := a.notifier.Close(); err != nil {
		a.logger.Warn("Error closing notifier", zap.Error(err))
	}
	if closer, ok := a.storage.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.logger.Warn("Error closing export archive", zap.Error(err))
		}
	}
	// Best-effort flush of buffered log entries.
	if err := a.logger.Sync(); err != nil {
		a.logger.Warn("Error syncing logger on shutdown", zap.Error(err))
	}
}
