package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WATCH_DIR", "/data/incoming")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/incoming", cfg.WatchDir)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 2*time.Minute, cfg.SettlePeriod)
	assert.Equal(t, []float64{150, 24000}, cfg.SampleRates)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoadRequiresWatchDir(t *testing.T) {
	t.Setenv("WATCH_DIR", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WATCH_DIR", "/data/incoming")
	t.Setenv("OUTPUT_DIR", "/data/archives")
	t.Setenv("SAMPLE_RATES", "150")
	t.Setenv("POLL_INTERVAL", "5s")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	t.Setenv("KAFKA_TOPIC", "archives")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/archives", cfg.OutputDir)
	assert.Equal(t, []float64{150}, cfg.SampleRates)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, "archives", cfg.KafkaTopic)
}

func TestLoadKafkaToggle(t *testing.T) {
	t.Setenv("WATCH_DIR", "/data/incoming")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092")
	t.Setenv("KAFKA_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)

	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_ENABLED", "true")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("WATCH_DIR", "/data/incoming")

	t.Setenv("POLL_INTERVAL", "soon")
	_, err := Load()
	assert.Error(t, err)
	t.Setenv("POLL_INTERVAL", "")

	t.Setenv("SAMPLE_RATES", "150,-5")
	_, err = Load()
	assert.Error(t, err)
}

func TestParseSampleRates(t *testing.T) {
	rates, err := ParseSampleRates("150, 2400 ,24000")
	require.NoError(t, err)
	assert.Equal(t, []float64{150, 2400, 24000}, rates)

	_, err = ParseSampleRates("150,abc")
	assert.Error(t, err)
}
