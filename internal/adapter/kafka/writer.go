// Package kafka publishes archive-completed events so downstream consumers
// (catalog indexers, processing queues) learn about new MTH5 files.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/magnetotellurics/phx2mth5/internal/config"
	"github.com/magnetotellurics/phx2mth5/internal/domain"
)

// Writer produces archive events to a Kafka topic.
// It implements pipeline.Notifier.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured archive topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Notify publishes one completed-archive event, keyed by station so that
// per-station ordering is preserved across partitions.
func (w *Writer) Notify(ctx context.Context, result domain.ArchiveResult) error {
	msg, err := serializeToMessage(result)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an ArchiveResult into a Kafka message.
func serializeToMessage(result domain.ArchiveResult) (kafkago.Message, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize archive result: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(result.Station),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "archive_path", Value: []byte(result.Path)},
			{Key: "completed_at", Value: []byte(result.CompletedAt.Format(time.RFC3339))},
		},
	}, nil
}
