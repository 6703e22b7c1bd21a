// Package pipeline drives the extract-transform-load loop of watch mode:
// discovered recordings are assembled into archive jobs and written out,
// with retries and backpressure around the slow stages.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/magnetotellurics/phx2mth5/internal/domain"
	"github.com/magnetotellurics/phx2mth5/internal/observability"
)

// Extractor finds up to max recordings that are ready for conversion.
type Extractor interface {
	ExtractBatch(ctx context.Context, max int) ([]domain.Recording, error)
}

// Transformer assembles a discovered recording into an archive job.
type Transformer interface {
	Transform(ctx context.Context, rec domain.Recording) (domain.ArchiveJob, error)
}

// Loader writes an assembled job to its destination archive.
type Loader interface {
	Load(ctx context.Context, job domain.ArchiveJob) (domain.ArchiveResult, error)
}

// Notifier announces a completed archive to downstream consumers. Failures
// are logged but never fail the conversion.
type Notifier interface {
	Notify(ctx context.Context, result domain.ArchiveResult) error
}

// Pipeline orchestrates the discover-assemble-write loop.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loader      Loader
	notifier    Notifier // nil disables notifications
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability. notifier
// may be nil.
func New(e Extractor, t Transformer, l Loader, n Notifier, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		notifier:    n,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once the pipeline has completed at least one
// conversion, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not converted any recordings yet")
	}
	return nil
}

// Run executes the conversion loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.WatcherRunning.Set(1)
	defer p.metrics.WatcherRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one discover-assemble-write cycle. Returns false if the
// pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(batch) == 0 {
		return ctx.Err() == nil
	}
	*backoff = 200 * time.Millisecond

	for _, rec := range batch {
		if ctx.Err() != nil {
			return false
		}
		if !p.convert(ctx, rec, backoff, maxBackoff) {
			return false
		}
	}
	return true
}

// convert runs one recording through transform, load, and notify. A
// transform failure skips the recording permanently; a load failure leaves
// it unacknowledged for retry. Returns false if the pipeline should stop.
func (p *Pipeline) convert(ctx context.Context, rec domain.Recording, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	job, err := p.transformer.Transform(ctx, rec)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Warn("assembly failed, skipping recording",
			"error", err,
			"station_dir", rec.StationDir,
		)
		p.metrics.ConversionErrors.Inc()
		p.acknowledge(ctx, rec)
		return true
	}

	result, err := p.loader.Load(ctx, job)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("archive write failed", "error", err, "station", job.Station)
		p.metrics.ConversionErrors.Inc()
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	p.metrics.RecordingsConverted.Inc()
	p.metrics.ConversionDuration.Observe(time.Since(start).Seconds())
	p.acknowledge(ctx, rec)
	p.ready.Store(true)

	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, result); err != nil {
			p.logger.Warn("notify failed", "error", err, "station", result.Station)
		}
	}
	return true
}

// backoffOrStop checks for context cancellation, sleeps with the current
// backoff, and advances the backoff. Returns false if the pipeline should
// stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// acknowledge marks the recording handled at the source, if it supports it.
func (p *Pipeline) acknowledge(ctx context.Context, rec domain.Recording) {
	if rec.Ack == nil {
		return
	}
	if err := rec.Ack(ctx); err != nil {
		p.logger.Warn("acknowledge recording failed", "error", err, "station_dir", rec.StationDir)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
