package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jadrxma/productfinder/internal/app"
	"github.com/jadrxma/productfinder/internal/config"
	"github.com/jadrxma/productfinder/internal/logging"
	"github.com/jadrxma/productfinder/internal/notify"
	"github.com/jadrxma/productfinder/internal/storage"
	cfginit "github.com/jadrxma/productfinder/pkg/config"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use. This allows us to
// inject a mock app during tests.
type App interface {
	Close()
	GetLogger() *zap.Logger
	GetStorage() storage.Provider
	GetNotifier() notify.Provider
	GetConfig() config.Config
}

// newApp is the application factory. It's a variable so tests can replace it
// with a mock factory.
var newApp func(ctx context.Context) (App, error) = func(ctx context.Context) (App, error) {
	return app.NewApp(ctx)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "productfinder",
		Short: "Collects product listings from storefront JSON endpoints.",
		Long: `productfinder paginates the products.json listing of each storefront in an
uploaded link file, aggregates the results in batches, and exports them as CSV.
Run it as an HTTP service with 'serve' or as a one-shot CLI with 'collect'.`,

		// Runs after config is loaded but before the subcommand's RunE; the
		// right place to build and inject the application services.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		// Ensures services are shut down gracefully.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cobra.OnInitialize(initConfig)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.productfinder/config.yaml)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCollectCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	cfginit.InitConfig()
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	// Bootstrap logger; NewApp replaces it once config is known.
	logging.InitLogger(true)

	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}
