//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/magnetotellurics/phx2mth5/internal/adapter/kafka"
	"github.com/magnetotellurics/phx2mth5/internal/config"
	"github.com/magnetotellurics/phx2mth5/internal/converter"
	"github.com/magnetotellurics/phx2mth5/internal/domain"
	"github.com/magnetotellurics/phx2mth5/internal/fixture"
	"github.com/magnetotellurics/phx2mth5/internal/mth5"
	"github.com/magnetotellurics/phx2mth5/internal/observability"
	"github.com/magnetotellurics/phx2mth5/internal/pipeline"
	"github.com/magnetotellurics/phx2mth5/internal/watch"
)

const testArchiveTopic = "test-mth5-archives"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node Kafka container and returns its broker
// address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("phx2mth5-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp",
		net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// writeTestStation drops one synthetic two-channel recording into watchDir.
func writeTestStation(t *testing.T, watchDir string) {
	t.Helper()

	start := time.Date(2021, time.April, 27, 3, 25, 0, 0, time.UTC)
	st := fixture.Station{
		Survey: "INTEG",
		Name:   "MT001",
		Serial: fixture.DefaultSerial,
		Start:  start,
		Channels: []fixture.Channel{
			{Index: 0, SensorType: "MTC-155", SensorSerial: "57001", Continuous: fixture.Sine(150, 1, 150, 1)},
			{Index: 3, SensorType: "dipole", DipoleLength: 100, Continuous: fixture.Sine(150, 1, 150, 1)},
		},
	}
	require.NoError(t, st.Write(filepath.Join(watchDir, "MT001")))
}

// TestWatchPipelineEndToEnd drops a station into a watch directory, runs the
// full pipeline against real Kafka, and verifies both the produced archive
// and the published archive event.
func TestWatchPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testArchiveTopic)

	watchDir := t.TempDir()
	outDir := t.TempDir()
	writeTestStation(t, watchDir)

	cfg := &config.Config{
		KafkaBrokers: []string{broker},
		KafkaTopic:   testArchiveTopic,
	}

	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()

	conv := converter.New(logger, metrics)
	stages := pipeline.NewStages(conv, converter.Options{
		OutputDir:   outDir,
		SampleRates: []float64{150},
	})

	// Fixture files are freshly written, so the settle check needs a clock
	// that is already past the settle window.
	clock := clockwork.NewFakeClockAt(time.Now().Add(time.Hour))
	watcher := watch.New(watchDir, time.Second, time.Minute, clock, logger)

	notifier := kafkaadapter.NewWriter(cfg, logger)
	t.Cleanup(func() { _ = notifier.Close() })

	p := pipeline.New(watcher, stages, stages, notifier, logger, metrics, 4)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	// Read the archive event from the topic.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testArchiveTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 60*time.Second)
	msg, err := consumer.ReadMessage(readCtx)
	readCancel()
	require.NoError(t, err, "read archive event")

	pipelineCancel()
	require.NoError(t, <-errCh)

	// Event shape.
	assert.Equal(t, []byte("MT001"), msg.Key)

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Contains(t, headers, "archive_path")
	_, err = time.Parse(time.RFC3339, headers["completed_at"])
	assert.NoError(t, err, "completed_at should be valid RFC3339")

	var result domain.ArchiveResult
	require.NoError(t, json.Unmarshal(msg.Value, &result))
	assert.Equal(t, "MT001", result.Station)
	assert.Equal(t, 1, result.Runs)
	assert.Equal(t, []float64{150}, result.SampleRates)

	// The archive itself.
	info, err := mth5.Summarize(result.Path)
	require.NoError(t, err)
	require.Len(t, info.Stations, 1)
	assert.Equal(t, "MT001", info.Stations[0].Name)
	require.Len(t, info.Stations[0].Runs, 1)
	assert.Equal(t, "sr150_0001", info.Stations[0].Runs[0].ID)
	assert.Len(t, info.Stations[0].Runs[0].Channels, 2)

	// The station was marked handled.
	_, err = os.Stat(filepath.Join(watchDir, "MT001", ".mth5_done"))
	assert.NoError(t, err)
}
