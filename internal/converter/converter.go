// Package converter turns Phoenix MTU-5C station directories into MTH5
// archive jobs: it scans the directory, decodes channel data, matches
// calibrations, assembles continuous runs, and hands the result to the
// archive writer.
package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/magnetotellurics/phx2mth5/internal/calibration"
	"github.com/magnetotellurics/phx2mth5/internal/domain"
	"github.com/magnetotellurics/phx2mth5/internal/mth5"
	"github.com/magnetotellurics/phx2mth5/internal/observability"
	"github.com/magnetotellurics/phx2mth5/internal/phoenix"
)

// ErrNoData reports that none of the requested sample rates had any
// decodable channel data.
var ErrNoData = errors.New("converter: no data at requested sample rates")

// Options selects what to convert and where the result goes.
type Options struct {
	StationDir  string
	OutputDir   string
	ArchiveName string // defaults to domain.DefaultArchiveName
	SampleRates []float64

	ReceiverCal calibration.Source
	SensorCal   calibration.Source
}

// Converter performs single-station conversions.
type Converter struct {
	writer  *mth5.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Converter.
func New(logger *slog.Logger, metrics *observability.Metrics) *Converter {
	return &Converter{
		writer:  mth5.NewWriter(logger),
		logger:  logger,
		metrics: metrics,
	}
}

// FromPhoenix converts one station directory into an MTH5 archive and
// returns the result, including the produced archive path. An existing
// archive at the target path is overwritten.
func (c *Converter) FromPhoenix(ctx context.Context, opts Options) (domain.ArchiveResult, error) {
	start := time.Now()

	job, err := c.Assemble(ctx, opts)
	if err != nil {
		return domain.ArchiveResult{}, err
	}

	result, err := c.Write(job)
	if err != nil {
		return domain.ArchiveResult{}, err
	}

	c.metrics.ConversionDuration.Observe(time.Since(start).Seconds())
	return result, nil
}

// Write persists an assembled job as an MTH5 archive.
func (c *Converter) Write(job domain.ArchiveJob) (domain.ArchiveResult, error) {
	result, err := c.writer.WriteArchive(job)
	if err != nil {
		return domain.ArchiveResult{}, err
	}

	c.metrics.SamplesWritten.Add(float64(result.Samples))
	c.metrics.RunsAssembled.Add(float64(result.Runs))
	c.metrics.ArchiveBytes.Add(float64(result.Bytes))

	c.logger.Info("conversion complete",
		"station", result.Station,
		"path", result.Path,
		"runs", result.Runs,
		"samples", result.Samples,
		"duration", result.Duration,
	)
	return result, nil
}

// Assemble builds the archive job for a station directory without writing
// anything.
func (c *Converter) Assemble(ctx context.Context, opts Options) (domain.ArchiveJob, error) {
	sd, err := phoenix.ScanStation(opts.StationDir)
	if err != nil {
		return domain.ArchiveJob{}, err
	}

	meta, err := phoenix.ReadRecMeta(sd.RecMetaPath)
	if err != nil {
		return domain.ArchiveJob{}, err
	}

	filters, filterNames := c.resolveCalibrations(meta, opts.ReceiverCal, opts.SensorCal)

	var runs []domain.Run
	for _, rate := range opts.SampleRates {
		channels, err := c.collectChannels(ctx, sd, meta, filterNames, rate)
		if err != nil {
			return domain.ArchiveJob{}, err
		}
		if len(channels) == 0 {
			c.logger.Warn("no channel data at requested rate", "station", meta.Station, "sample_rate", rate)
			continue
		}

		rateRuns, warnings := domain.AssembleRuns(rate, channels)
		for _, w := range warnings {
			c.logger.Warn("run assembly", "station", meta.Station, "detail", w)
		}
		runs = append(runs, rateRuns...)
	}

	if len(runs) == 0 {
		return domain.ArchiveJob{}, fmt.Errorf("%w: %v", ErrNoData, opts.SampleRates)
	}

	archiveName := opts.ArchiveName
	if archiveName == "" {
		archiveName = domain.DefaultArchiveName
	}
	outDir := opts.OutputDir
	if outDir == "" {
		outDir = opts.StationDir
	}

	return domain.ArchiveJob{
		Survey:           meta.Survey,
		Station:          meta.Station,
		OutputPath:       filepath.Join(outDir, archiveName),
		Latitude:         meta.Latitude,
		Longitude:        meta.Longitude,
		Elevation:        meta.Elevation,
		InstrumentType:   meta.InstrumentType,
		InstrumentSerial: meta.InstrumentSerial,
		DeclaredStart:    meta.Start,
		DeclaredStop:     meta.Stop,
		Runs:             runs,
		Filters:          filters,
		ProcessedAt:      domain.Now(),
	}, nil
}

// resolveCalibrations matches receiver and sensor calibration files to the
// recording and returns the archive filters plus the per-channel filter
// name lists. Missing calibrations degrade to warnings: the data is still
// archived, just without the response tables.
func (c *Converter) resolveCalibrations(meta *phoenix.RecMeta, rxSource, sensorSource calibration.Source) ([]domain.Filter, map[int][]string) {
	var filters []domain.Filter
	names := make(map[int][]string)

	if rxcal, err := rxSource.ResolveReceiver(meta.InstrumentSerial); err == nil {
		c.metrics.Calibrations.WithLabelValues("receiver", "matched").Inc()
		for channel, table := range rxcal.Channels {
			name := fmt.Sprintf("rxcal_%s_ch%d", rxcal.Serial, channel)
			filters = append(filters, domain.Filter{
				Name:        name,
				UnitsIn:     "V",
				UnitsOut:    "V",
				Gain:        1,
				Frequencies: table.Frequencies,
				Amplitudes:  table.Amplitudes,
				Phases:      table.Phases,
			})
			names[channel] = append(names[channel], name)
		}
	} else if !rxSource.IsZero() {
		c.metrics.Calibrations.WithLabelValues("receiver", "missing").Inc()
		c.logger.Warn("receiver calibration not found", "serial", meta.InstrumentSerial, "error", err)
	}

	found, missing, err := sensorSource.ResolveSensors(meta.SensorSerials())
	if err != nil {
		c.logger.Warn("sensor calibration lookup failed", "error", err)
	}
	for _, serial := range missing {
		c.metrics.Calibrations.WithLabelValues("sensor", "missing").Inc()
		c.logger.Warn("sensor calibration not found", "serial", serial)
	}
	for serial, scal := range found {
		c.metrics.Calibrations.WithLabelValues("sensor", "matched").Inc()
		name := "scal_" + serial
		filters = append(filters, domain.Filter{
			Name:        name,
			UnitsIn:     "nT",
			UnitsOut:    "V",
			Gain:        1,
			Frequencies: scal.Table.Frequencies,
			Amplitudes:  scal.Table.Amplitudes,
			Phases:      scal.Table.Phases,
		})
		for _, ch := range meta.Channels {
			if ch.SensorSerial == serial {
				names[ch.Index] = append(names[ch.Index], name)
			}
		}
	}

	return filters, names
}

// collectChannels decodes every channel group matching the rate into
// time-ordered blocks. Decimated td_* groups win over native .bin groups
// covering the same channel and rate.
func (c *Converter) collectChannels(
	ctx context.Context,
	sd *phoenix.StationDir,
	meta *phoenix.RecMeta,
	filterNames map[int][]string,
	rate float64,
) ([]domain.ChannelBlocks, error) {
	type chanRate struct {
		channel int
		rate    float64
	}
	covered := make(map[chanRate]struct{})
	var channels []domain.ChannelBlocks

	process := func(group phoenix.ChannelGroup, native bool) error {
		ch, err := c.decodeGroup(ctx, group, meta, filterNames, rate, native)
		if err != nil {
			return err
		}
		if ch != nil {
			covered[chanRate{group.Channel, rate}] = struct{}{}
			channels = append(channels, *ch)
		}
		return nil
	}

	for _, group := range sd.Groups {
		if group.Rate != rate {
			continue
		}
		if err := process(group, false); err != nil {
			return nil, err
		}
	}
	for _, group := range sd.Groups {
		if group.Rate != 0 {
			continue // native groups carry no rate in the extension
		}
		if _, ok := covered[chanRate{group.Channel, rate}]; ok {
			continue
		}
		if err := process(group, true); err != nil {
			return nil, err
		}
	}

	return channels, nil
}

// decodeGroup reads one channel's file sequence into blocks. Returns nil
// when a native group's header rate does not match the requested rate.
func (c *Converter) decodeGroup(
	ctx context.Context,
	group phoenix.ChannelGroup,
	meta *phoenix.RecMeta,
	filterNames map[int][]string,
	rate float64,
	native bool,
) (*domain.ChannelBlocks, error) {
	var blocks []domain.Block
	var header phoenix.Header

	for _, path := range group.Files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		pf, err := phoenix.Open(path)
		if err != nil {
			return nil, err
		}
		header = pf.Header

		if native && header.SampleRate() != rate {
			pf.Close()
			return nil, nil
		}

		fileBlocks, err := c.decodeFile(pf)
		pf.Close()
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, fileBlocks...)
		c.metrics.FilesParsed.Inc()
	}

	if len(blocks) == 0 {
		return nil, nil
	}

	component := header.Component()
	series := domain.ChannelSeries{
		Component:     component,
		ChannelNumber: group.Channel,
		Type:          domain.ChannelKind(component),
		SampleRate:    rate,
		Units:         "V",
		FilterNames:   filterNames[group.Channel],
	}
	if cfg, ok := meta.Channel(group.Channel); ok {
		series.SensorID = cfg.SensorSerial
		series.SensorType = cfg.SensorType
		series.DipoleLength = cfg.DipoleLength
		series.Azimuth = cfg.Azimuth
		series.Tilt = cfg.Tilt
	}

	return &domain.ChannelBlocks{Meta: series, Blocks: blocks}, nil
}

// decodeFile turns one open data file into blocks according to its type.
func (c *Converter) decodeFile(pf *phoenix.File) ([]domain.Block, error) {
	h := pf.Header

	// A fragment's first sample lands frag-period seconds per preceding
	// sequence number after the recording start.
	fragStart := h.RecordingStart().Add(
		time.Duration(h.FileSequence-1) * time.Duration(h.FragPeriod) * time.Second)

	switch h.FileType {
	case phoenix.FileTypeSegmented:
		segments, err := pf.ReadSegments()
		if err != nil {
			return nil, err
		}
		blocks := make([]domain.Block, 0, len(segments))
		for _, seg := range segments {
			blocks = append(blocks, domain.Block{
				Start:           seg.Header.Start(),
				Data:            seg.Data,
				SaturationCount: int(seg.Header.SaturationCount),
				MissingCount:    int(seg.Header.MissingCount),
			})
		}
		c.metrics.SegmentsRead.Add(float64(len(segments)))
		return blocks, nil

	case phoenix.FileTypeContinuous:
		data, err := pf.ReadTimeSeries()
		if err != nil {
			return nil, err
		}
		return []domain.Block{{Start: fragStart, Data: data}}, nil

	case phoenix.FileTypeNative:
		counts, stats, err := pf.ReadCounts()
		if err != nil {
			return nil, err
		}
		return []domain.Block{{
			Start:           fragStart,
			Data:            pf.ToVolts(counts),
			SaturationCount: stats.SaturatedFrames,
			MissingCount:    stats.MissingFrames,
		}}, nil

	default:
		return nil, fmt.Errorf("%q: unknown file type %d", pf.Path, h.FileType)
	}
}
