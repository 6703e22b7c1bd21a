package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	httpadapter "github.com/magnetotellurics/phx2mth5/internal/adapter/http"
	kafkaadapter "github.com/magnetotellurics/phx2mth5/internal/adapter/kafka"
	"github.com/magnetotellurics/phx2mth5/internal/calibration"
	"github.com/magnetotellurics/phx2mth5/internal/config"
	"github.com/magnetotellurics/phx2mth5/internal/converter"
	"github.com/magnetotellurics/phx2mth5/internal/observability"
	"github.com/magnetotellurics/phx2mth5/internal/pipeline"
	"github.com/magnetotellurics/phx2mth5/internal/watch"
)

// watchBatchSize caps how many settled recordings one pipeline cycle claims.
const watchBatchSize = 4

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch a directory and convert recordings as they arrive",
		Long: `Watch runs as a service configured through the environment:
WATCH_DIR, OUTPUT_DIR, POLL_INTERVAL, SETTLE_PERIOD, SAMPLE_RATES,
RXCAL_DIR, SCAL_DIR, KAFKA_BROKERS, KAFKA_TOPIC, HTTP_ADDR.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runWatch(cmd.Context(), cfg)
		},
	}
}

func runWatch(parent context.Context, cfg *config.Config) error {
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	conv := converter.New(logger, metrics)
	stages := pipeline.NewStages(conv, converter.Options{
		OutputDir:   cfg.OutputDir,
		SampleRates: cfg.SampleRates,
		ReceiverCal: calibration.Source{Dir: cfg.ReceiverCalDir},
		SensorCal:   calibration.Source{Dir: cfg.SensorCalDir},
	})

	watcher := watch.New(cfg.WatchDir, cfg.PollInterval, cfg.SettlePeriod,
		clockwork.NewRealClock(), logger)

	history := pipeline.NewHistory(50)
	notifiers := pipeline.MultiNotifier{history}

	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		notifiers = append(notifiers, kafkaWriter)
		logger.Info("kafka notifications enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka notifications disabled")
	}

	p := pipeline.New(watcher, stages, stages, notifiers, logger, metrics, watchBatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, history, logger)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
