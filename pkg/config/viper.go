// Package config is responsible for initializing the application's
// configuration. It uses the Viper library to read settings from a config
// file and environment variables, providing a unified configuration system.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jadrxma/productfinder/internal/logging"
)

// InitConfig initializes the application's configuration using Viper.
// It sets up default values, defines configuration search paths, and enables
// reading from environment variables. Designed to be called once at startup.
func InitConfig() {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/productfinder/")
	viper.AddConfigPath("$HOME/.productfinder")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.request_timeout", "60s")

	const defaultUA = "ProductFinder/1.0 (+https://github.com/jadrxma/productfinder)"
	viper.SetDefault("collector.user_agent", defaultUA)
	viper.SetDefault("collector.page_timeout", "10s")
	viper.SetDefault("collector.url_budget", "35s")
	viper.SetDefault("collector.num_batches", 4)
	viper.SetDefault("collector.include_remainder", false)

	viper.SetDefault("storage.provider", "noop")
	viper.SetDefault("storage.local_dir", "data/exports")

	viper.SetDefault("notify.provider", "noop")

	viper.SetDefault("logging.development", true)

	viper.SetEnvPrefix("PRODUCTFINDER") // e.g., PRODUCTFINDER_SERVER_PORT=9090
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Not fatal; defaults and environment variables still apply.
			logging.L.Warn("Config file not found; using defaults and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logging.L.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}
