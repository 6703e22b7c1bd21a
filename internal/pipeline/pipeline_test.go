package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnetotellurics/phx2mth5/internal/domain"
	"github.com/magnetotellurics/phx2mth5/internal/observability"
	"github.com/magnetotellurics/phx2mth5/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	recordings []domain.Recording
	index      atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.Recording, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.recordings) {
		// Block until cancelled, like a watcher waiting for its poll tick.
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return []domain.Recording{m.recordings[i]}, nil
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, rec domain.Recording) (domain.ArchiveJob, error) {
	if m.err != nil {
		return domain.ArchiveJob{}, m.err
	}
	return domain.ArchiveJob{
		Station:    "MT001",
		OutputPath: rec.StationDir + "/" + rec.ArchiveName,
	}, nil
}

type mockLoader struct {
	err    error
	loaded []domain.ArchiveJob
}

func (m *mockLoader) Load(_ context.Context, job domain.ArchiveJob) (domain.ArchiveResult, error) {
	if m.err != nil {
		return domain.ArchiveResult{}, m.err
	}
	m.loaded = append(m.loaded, job)
	return domain.ArchiveResult{Station: job.Station, Path: job.OutputPath, Runs: 2}, nil
}

type mockNotifier struct {
	results []domain.ArchiveResult
}

func (m *mockNotifier) Notify(_ context.Context, result domain.ArchiveResult) error {
	m.results = append(m.results, result)
	return nil
}

func newTestMetrics() *observability.Metrics {
	// Fresh metrics avoid "already registered" panics across tests.
	return observability.NewMetricsForTesting()
}

func makeRecording(dir string) domain.Recording {
	return domain.Recording{StationDir: dir, ArchiveName: domain.DefaultArchiveName}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ext := &mockExtractor{recordings: []domain.Recording{makeRecording("/data/MT001")}}
	tfm := &mockTransformer{}
	ldr := &mockLoader{}
	ntf := &mockNotifier{}

	p := pipeline.New(ext, tfm, ldr, ntf, slog.Default(), newTestMetrics(), 4)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)

	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, "MT001", ldr.loaded[0].Station)
	assert.NoError(t, p.CheckReadiness(context.Background()))

	require.Len(t, ntf.results, 1)
	want := domain.ArchiveResult{
		Station: "MT001",
		Path:    "/data/MT001/" + domain.DefaultArchiveName,
		Runs:    2,
	}
	if diff := cmp.Diff(want, ntf.results[0]); diff != "" {
		t.Fatalf("notified result mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{} // no recordings, blocks
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, nil, slog.Default(), newTestMetrics(), 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ldr.loaded)
}

func TestPipeline_Run_TransformErrorSkipsAndAcks(t *testing.T) {
	var acked atomic.Bool
	rec := makeRecording("/data/broken")
	rec.Ack = func(_ context.Context) error {
		acked.Store(true)
		return nil
	}

	ext := &mockExtractor{recordings: []domain.Recording{rec}}
	tfm := &mockTransformer{err: errors.New("no channel data")}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, nil, slog.Default(), newTestMetrics(), 4)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)

	assert.Empty(t, ldr.loaded)
	assert.True(t, acked.Load(), "broken recordings must be acked so they are not retried forever")
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_LoadErrorLeavesUnacked(t *testing.T) {
	var acked atomic.Bool
	rec := makeRecording("/data/MT001")
	rec.Ack = func(_ context.Context) error {
		acked.Store(true)
		return nil
	}

	ext := &mockExtractor{recordings: []domain.Recording{rec}}
	ldr := &mockLoader{err: errors.New("disk full")}

	p := pipeline.New(ext, &mockTransformer{}, ldr, nil, slog.Default(), newTestMetrics(), 4)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)

	assert.False(t, acked.Load(), "failed writes must stay unacked for retry")
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_AcksAfterLoad(t *testing.T) {
	var acked atomic.Bool
	rec := makeRecording("/data/MT001")
	rec.Ack = func(_ context.Context) error {
		acked.Store(true)
		return nil
	}

	ext := &mockExtractor{recordings: []domain.Recording{rec}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, nil, slog.Default(), newTestMetrics(), 4)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.True(t, acked.Load())
}
