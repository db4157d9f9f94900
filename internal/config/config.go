// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Collector CollectorConfig `mapstructure:"collector"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// CollectorConfig governs pagination and batching behavior.
type CollectorConfig struct {
	// PageTimeout bounds a single products.json request.
	PageTimeout time.Duration `mapstructure:"page_timeout"`
	// URLBudget caps the cumulative wall-clock time spent on one base URL.
	URLBudget time.Duration `mapstructure:"url_budget"`
	// NumBatches is how many batches the uploaded link list is split into.
	NumBatches int `mapstructure:"num_batches"`
	// IncludeRemainder appends leftover URLs to the last batch instead of
	// dropping them.
	IncludeRemainder bool   `mapstructure:"include_remainder"`
	UserAgent        string `mapstructure:"user_agent"`
}

// StorageConfig selects and parameterizes the export archive.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// NotifyConfig selects and parameterizes the run-completion notifier.
type NotifyConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from an initialized Viper instance.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Collector.PageTimeout <= 0 {
		return fmt.Errorf("collector.page_timeout must be > 0")
	}
	if c.Collector.URLBudget <= 0 {
		return fmt.Errorf("collector.url_budget must be > 0")
	}
	if c.Collector.NumBatches <= 0 {
		return fmt.Errorf("collector.num_batches must be > 0")
	}
	switch c.Storage.Provider {
	case "noop":
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir must be set when storage.provider is 'local'")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set when storage.provider is 'gcs'")
		}
	default:
		return fmt.Errorf("unknown storage provider: %s", c.Storage.Provider)
	}
	switch c.Notify.Provider {
	case "noop":
	case "pubsub":
		if c.Notify.ProjectID == "" || c.Notify.TopicID == "" {
			return fmt.Errorf("notify.project_id and notify.topic_id must be set when notify.provider is 'pubsub'")
		}
	default:
		return fmt.Errorf("unknown notify provider: %s", c.Notify.Provider)
	}
	return nil
}
