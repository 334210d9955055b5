package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Compiled defaults. The ingester is designed to run with no arguments;
// the environment only overrides these for operational tuning.
const (
	defaultBaseURL        = "https://waterservices.usgs.gov"
	defaultOutputDir      = "state_parquet_3yrs"
	defaultSiteIndexPath  = "usgs_all_sites.parquet"
	defaultParameterCodes = "00010,00095,00300,00400"
	defaultMaxConcurrency = 30
	defaultFetchTimeout   = 20 * time.Second
	defaultFetchAttempts  = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultMinOutputBytes = 1000
	defaultWindowStart    = "2022-11-07T00:00:00Z"
	defaultWindowEnd      = "2025-11-07T00:00:00Z"
)

// Config holds all service settings, populated from environment variables
// over compiled defaults.
type Config struct {
	BaseURL        string
	OutputDir      string
	SiteIndexPath  string
	ParameterCodes string
	SiteType       string

	MaxConcurrency int64
	FetchTimeout   time.Duration
	FetchAttempts  int
	RetryBaseDelay time.Duration
	MinOutputBytes int64

	WindowStart time.Time
	WindowEnd   time.Time

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Optional partition-completion announcements.
	KafkaEnabled         bool
	KafkaBrokers         []string
	KafkaCompletionTopic string
}

// Load reads configuration from environment variables (optionally .env),
// applying defaults where unset.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	maxConcurrency, err := parsePositiveInt("MAX_CONCURRENCY", defaultMaxConcurrency)
	if err != nil {
		return nil, err
	}

	fetchAttempts, err := parsePositiveInt("FETCH_ATTEMPTS", defaultFetchAttempts)
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", defaultFetchTimeout)
	if err != nil {
		return nil, err
	}

	retryBaseDelay, err := parseDuration("RETRY_BASE_DELAY", defaultRetryBaseDelay)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	minOutputBytes, err := parsePositiveInt("MIN_OUTPUT_BYTES", defaultMinOutputBytes)
	if err != nil {
		return nil, err
	}

	windowStart, err := parseTime("WINDOW_START", defaultWindowStart)
	if err != nil {
		return nil, err
	}

	windowEnd, err := parseTime("WINDOW_END", defaultWindowEnd)
	if err != nil {
		return nil, err
	}

	if !windowEnd.After(windowStart) {
		return nil, errors.New("WINDOW_END must be after WINDOW_START")
	}

	kafkaEnabled := false
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true" || v == "1"
	}

	cfg := &Config{
		BaseURL:        strings.TrimRight(envOrDefault("NWIS_BASE_URL", defaultBaseURL), "/"),
		OutputDir:      envOrDefault("OUTPUT_DIR", defaultOutputDir),
		SiteIndexPath:  envOrDefault("SITE_INDEX_PATH", defaultSiteIndexPath),
		ParameterCodes: envOrDefault("PARAMETER_CODES", defaultParameterCodes),
		SiteType:       envOrDefault("SITE_TYPE", "ST"),

		MaxConcurrency: maxConcurrency,
		FetchTimeout:   fetchTimeout,
		FetchAttempts:  int(fetchAttempts),
		RetryBaseDelay: retryBaseDelay,
		MinOutputBytes: minOutputBytes,

		WindowStart: windowStart,
		WindowEnd:   windowEnd,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled:         kafkaEnabled,
		KafkaBrokers:         splitList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaCompletionTopic: envOrDefault("KAFKA_COMPLETION_TOPIC", "partition-completions"),
	}

	if cfg.BaseURL == "" {
		return nil, errors.New("NWIS_BASE_URL must not be empty")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parsePositiveInt(key string, def int64) (int64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer, got %q", key, s)
	}
	return n, nil
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration, got %q", key, s)
	}
	return d, nil
}

func parseTime(key, def string) (time.Time, error) {
	s := os.Getenv(key)
	if s == "" {
		s = def
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: must be RFC 3339, got %q", key, s)
	}
	return t.UTC(), nil
}
