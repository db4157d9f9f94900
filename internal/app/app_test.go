// Package app_test contains unit tests for the app package.
package app_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jadrxma/productfinder/internal/app"
	"github.com/jadrxma/productfinder/internal/notify"
	"github.com/jadrxma/productfinder/internal/storage"
)

// setupTest configures the global Viper with a minimal valid configuration.
func setupTest() {
	viper.Reset()
	viper.Set("server.port", 8080)
	viper.Set("server.request_timeout", "60s")
	viper.Set("collector.page_timeout", "10s")
	viper.Set("collector.url_budget", "35s")
	viper.Set("collector.num_batches", 4)
	viper.Set("collector.user_agent", "test-agent")
	viper.Set("storage.provider", "noop")
	viper.Set("notify.provider", "noop")
	viper.Set("logging.development", false)
}

func TestNewApp_Success(t *testing.T) {
	setupTest()

	a, err := app.NewApp(context.Background())
	require.NoError(t, err)
	require.NotNil(t, a)

	assert.NotNil(t, a.GetLogger())
	assert.IsType(t, &storage.NoOpProvider{}, a.GetStorage())
	assert.IsType(t, &notify.NoOpProvider{}, a.GetNotifier())
	assert.Equal(t, 4, a.GetConfig().Collector.NumBatches)

	a.Close()
}

func TestNewApp_LocalStorage(t *testing.T) {
	setupTest()
	viper.Set("storage.provider", "local")
	viper.Set("storage.local_dir", filepath.Join(t.TempDir(), "exports"))

	a, err := app.NewApp(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, a.GetStorage())
	a.Close()
}

func TestNewApp_ConfigErrors(t *testing.T) {
	testCases := []struct {
		name        string
		configSetup func()
	}{
		{
			name: "GCS storage missing bucket",
			configSetup: func() {
				viper.Set("storage.provider", "gcs")
				viper.Set("storage.gcs_bucket", "")
			},
		},
		{
			name: "Pub/Sub notifier missing project ID",
			configSetup: func() {
				viper.Set("notify.provider", "pubsub")
				viper.Set("notify.project_id", "")
				viper.Set("notify.topic_id", "test-topic")
			},
		},
		{
			name: "Unknown storage provider",
			configSetup: func() {
				viper.Set("storage.provider", "unknown")
			},
		},
		{
			name: "Unknown notify provider",
			configSetup: func() {
				viper.Set("notify.provider", "unknown")
			},
		},
		{
			name: "Invalid batch count",
			configSetup: func() {
				viper.Set("collector.num_batches", 0)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setupTest()
			tc.configSetup()

			a, err := app.NewApp(context.Background())
			require.Error(t, err)
			assert.Nil(t, a)
		})
	}
}
