package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("HTNADMIN_API_URL replaces base url", func(t *testing.T) {
		t.Setenv("HTNADMIN_API_URL", "https://staging.example.org/api")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "https://staging.example.org/api", cfg.API.BaseURL)
	})

	t.Run("HTNADMIN_DEBUG accepts 1 and true", func(t *testing.T) {
		for _, v := range []string{"1", "TRUE", "true"} {
			t.Setenv("HTNADMIN_DEBUG", v)
			cfg := DefaultConfig()
			cfg.applyEnvOverrides()
			assert.True(t, cfg.Logging.DebugMode, "value %q", v)
		}
		t.Setenv("HTNADMIN_DEBUG", "no")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.False(t, cfg.Logging.DebugMode)
	})

	t.Run("HTNADMIN_S3_BUCKET enables archiving", func(t *testing.T) {
		t.Setenv("HTNADMIN_S3_BUCKET", "htn-exports")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.True(t, cfg.Export.S3.Enabled)
		assert.Equal(t, "htn-exports", cfg.Export.S3.Bucket)
	})

	t.Run("HTNADMIN_KAFKA_BROKERS selects kafka", func(t *testing.T) {
		t.Setenv("HTNADMIN_KAFKA_BROKERS", "k1:9092, k2:9092,")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, EventsKafka, cfg.Events.Backend)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.Kafka.Brokers)
		require.NoError(t, cfg.Validate())
	})

	t.Run("Precedence: SQS overrides Kafka", func(t *testing.T) {
		t.Setenv("HTNADMIN_KAFKA_BROKERS", "k1:9092")
		t.Setenv("HTNADMIN_SQS_QUEUE_URL", "https://sqs.us-east-1.amazonaws.com/1/actions")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, EventsSQS, cfg.Events.Backend)
	})
}

func TestEnvOverrides_AppliedByLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HTNADMIN_DB", dir+"/override.db")

	cfg := DefaultConfig()
	cfg.Storage.DatabasePath = dir + "/file.db"
	require.NoError(t, cfg.Save(dir+"/config.yaml"))

	loaded, err := Load(dir + "/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, dir+"/override.db", loaded.Storage.DatabasePath)
	assert.Equal(t, 60*time.Second, loaded.GetBadgePollInterval())
}
