package pipeline

import (
	"context"

	"github.com/magnetotellurics/phx2mth5/internal/converter"
	"github.com/magnetotellurics/phx2mth5/internal/domain"
)

// Stages adapts the converter into the pipeline's transform and load
// stages, applying the service's conversion options to every discovered
// recording.
type Stages struct {
	conv *converter.Converter
	opts converter.Options
}

// NewStages wraps a converter. opts supplies the output directory, sample
// rates, and calibration sources; the station directory and archive name
// come from each recording.
func NewStages(conv *converter.Converter, opts converter.Options) *Stages {
	return &Stages{conv: conv, opts: opts}
}

func (s *Stages) Transform(ctx context.Context, rec domain.Recording) (domain.ArchiveJob, error) {
	opts := s.opts
	opts.StationDir = rec.StationDir
	opts.ArchiveName = rec.ArchiveName
	return s.conv.Assemble(ctx, opts)
}

func (s *Stages) Load(_ context.Context, job domain.ArchiveJob) (domain.ArchiveResult, error) {
	return s.conv.Write(job)
}
