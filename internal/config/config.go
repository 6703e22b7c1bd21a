// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all settings for watch (service) mode, populated from
// environment variables. The one-shot CLI takes flags instead and only
// borrows the logging fields.
type Config struct {
	WatchDir  string
	OutputDir string

	PollInterval time.Duration
	SettlePeriod time.Duration

	SampleRates []float64

	ReceiverCalDir string
	SensorCalDir   string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	pollInterval, err := envDuration("POLL_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	settlePeriod, err := envDuration("SETTLE_PERIOD", 2*time.Minute)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	rates, err := ParseSampleRates(envOrDefault("SAMPLE_RATES", "150,24000"))
	if err != nil {
		return nil, err
	}

	brokers := splitList(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		WatchDir:        os.Getenv("WATCH_DIR"),
		OutputDir:       envOrDefault("OUTPUT_DIR", "."),
		PollInterval:    pollInterval,
		SettlePeriod:    settlePeriod,
		SampleRates:     rates,
		ReceiverCalDir:  os.Getenv("RXCAL_DIR"),
		SensorCalDir:    os.Getenv("SCAL_DIR"),
		KafkaBrokers:    brokers,
		KafkaTopic:      envOrDefault("KAFKA_TOPIC", "mth5-archives"),
		KafkaEnabled:    kafkaEnabled,
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.WatchDir == "" {
		return nil, errors.New("WATCH_DIR is required")
	}
	if len(cfg.SampleRates) == 0 {
		return nil, errors.New("SAMPLE_RATES must name at least one rate")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

// ParseSampleRates parses a comma-separated list of rates in samples per
// second, e.g. "150,24000".
func ParseSampleRates(s string) ([]float64, error) {
	var rates []float64
	for _, part := range splitList(s) {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid sample rate %q", part)
		}
		rates = append(rates, v)
	}
	return rates, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
