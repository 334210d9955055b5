package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://waterservices.usgs.gov", cfg.BaseURL)
	assert.Equal(t, "state_parquet_3yrs", cfg.OutputDir)
	assert.Equal(t, "usgs_all_sites.parquet", cfg.SiteIndexPath)
	assert.Equal(t, "00010,00095,00300,00400", cfg.ParameterCodes)
	assert.Equal(t, "ST", cfg.SiteType)
	assert.Equal(t, int64(30), cfg.MaxConcurrency)
	assert.Equal(t, 20*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 3, cfg.FetchAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, int64(1000), cfg.MinOutputBytes)
	assert.Equal(t, time.Date(2022, 11, 7, 0, 0, 0, 0, time.UTC), cfg.WindowStart)
	assert.Equal(t, time.Date(2025, 11, 7, 0, 0, 0, 0, time.UTC), cfg.WindowEnd)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "partition-completions", cfg.KafkaCompletionTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("NWIS_BASE_URL", "http://localhost:9191/")
	t.Setenv("OUTPUT_DIR", "/data/out")
	t.Setenv("SITE_INDEX_PATH", "/data/sites.parquet")
	t.Setenv("PARAMETER_CODES", "00010,00060")
	t.Setenv("SITE_TYPE", "LK")
	t.Setenv("MAX_CONCURRENCY", "8")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("FETCH_ATTEMPTS", "5")
	t.Setenv("RETRY_BASE_DELAY", "100ms")
	t.Setenv("MIN_OUTPUT_BYTES", "500")
	t.Setenv("WINDOW_START", "2024-01-01T00:00:00Z")
	t.Setenv("WINDOW_END", "2024-12-31T00:00:00Z")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_COMPLETION_TOPIC", "done-states")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9191", cfg.BaseURL) // trailing slash stripped
	assert.Equal(t, "/data/out", cfg.OutputDir)
	assert.Equal(t, "/data/sites.parquet", cfg.SiteIndexPath)
	assert.Equal(t, "00010,00060", cfg.ParameterCodes)
	assert.Equal(t, "LK", cfg.SiteType)
	assert.Equal(t, int64(8), cfg.MaxConcurrency)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 5, cfg.FetchAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, int64(500), cfg.MinOutputBytes)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.WindowStart)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "done-states", cfg.KafkaCompletionTopic)
}

func TestLoad_InvalidMaxConcurrency(t *testing.T) {
	t.Setenv("MAX_CONCURRENCY", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_CONCURRENCY")
}

func TestLoad_InvalidFetchTimeout(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FETCH_TIMEOUT")
}

func TestLoad_NegativeRetryBaseDelay(t *testing.T) {
	t.Setenv("RETRY_BASE_DELAY", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RETRY_BASE_DELAY")
}

func TestLoad_InvalidWindowStart(t *testing.T) {
	t.Setenv("WINDOW_START", "11/07/2022")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WINDOW_START")
}

func TestLoad_WindowEndBeforeStart(t *testing.T) {
	t.Setenv("WINDOW_START", "2024-06-01T00:00:00Z")
	t.Setenv("WINDOW_END", "2024-01-01T00:00:00Z")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WINDOW_END")
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}
