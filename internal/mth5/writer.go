// Package mth5 writes MTH5 archives: the HDF5-based archival layout for
// magnetotelluric time-series data.
//
// The layout written here follows MTH5 file version 0.2.0:
//
//	/Survey                           survey metadata, file version
//	/Survey/Stations/<station>        station location and instrument
//	/Survey/Stations/<station>/<run>  one group per continuous run
//	/Survey/Stations/<station>/<run>/<component>   float32 sample dataset
//	/Survey/Filters/fap/<name>        frequency/amplitude/phase tables
package mth5

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/scigolib/hdf5"

	"github.com/magnetotellurics/phx2mth5/internal/domain"
)

const (
	// FileVersion is the MTH5 schema version written to new archives.
	FileVersion = "0.2.0"

	// FileType identifies the archive flavor in the root group attributes.
	FileType = "MTH5"

	softwareName = "phx2mth5"
)

// Writer persists assembled archive jobs as MTH5 files.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates an archive writer.
func NewWriter(logger *slog.Logger) *Writer {
	return &Writer{logger: logger}
}

// WriteArchive writes one job to its output path. A pre-existing file at
// the target path is overwritten.
func (w *Writer) WriteArchive(job domain.ArchiveJob) (domain.ArchiveResult, error) {
	start := time.Now()

	if _, err := os.Stat(job.OutputPath); err == nil {
		w.logger.Warn("archive exists, overwriting in write mode", "path", job.OutputPath)
	}

	fw, err := hdf5.CreateForWrite(job.OutputPath, hdf5.CreateTruncate)
	if err != nil {
		return domain.ArchiveResult{}, fmt.Errorf("create archive %q: %w", job.OutputPath, err)
	}
	defer func() { _ = fw.Close() }()

	w.logger.Info("initialized MTH5 archive", "path", job.OutputPath, "file_version", FileVersion)

	if err := writeSurvey(fw, job); err != nil {
		return domain.ArchiveResult{}, err
	}

	samples, err := writeStation(fw, job)
	if err != nil {
		return domain.ArchiveResult{}, err
	}

	if err := writeFilters(fw, job.Filters); err != nil {
		return domain.ArchiveResult{}, err
	}

	if err := fw.Close(); err != nil {
		return domain.ArchiveResult{}, fmt.Errorf("close archive %q: %w", job.OutputPath, err)
	}

	result := domain.ArchiveResult{
		Station:     job.Station,
		Path:        job.OutputPath,
		Runs:        len(job.Runs),
		SampleRates: sampleRates(job.Runs),
		Samples:     samples,
		Duration:    time.Since(start),
		CompletedAt: domain.Now(),
	}
	if info, err := os.Stat(job.OutputPath); err == nil {
		result.Bytes = info.Size()
	}
	return result, nil
}

func writeSurvey(fw *hdf5.FileWriter, job domain.ArchiveJob) error {
	survey, err := fw.CreateGroup("/Survey")
	if err != nil {
		return fmt.Errorf("create survey group: %w", err)
	}

	attrs := map[string]any{
		"mth5.file_version": FileVersion,
		"mth5.file_type":    FileType,
		"mth5.software":     softwareName,
		"survey.id":         job.Survey,
	}
	if err := writeAttrs(survey, attrs); err != nil {
		return fmt.Errorf("survey attributes: %w", err)
	}

	if _, err := fw.CreateGroup("/Survey/Stations"); err != nil {
		return fmt.Errorf("create stations group: %w", err)
	}
	return nil
}

func writeStation(fw *hdf5.FileWriter, job domain.ArchiveJob) (int64, error) {
	stPath := "/Survey/Stations/" + job.Station
	station, err := fw.CreateGroup(stPath)
	if err != nil {
		return 0, fmt.Errorf("create station group %q: %w", stPath, err)
	}

	attrs := map[string]any{
		"id":                 job.Station,
		"location.latitude":  job.Latitude,
		"location.longitude": job.Longitude,
		"location.elevation": job.Elevation,
		"instrument.type":    job.InstrumentType,
		"instrument.serial":  job.InstrumentSerial,
	}
	if !job.DeclaredStart.IsZero() {
		attrs["time_period.start"] = job.DeclaredStart.Format(time.RFC3339)
	}
	if !job.DeclaredStop.IsZero() {
		attrs["time_period.end"] = job.DeclaredStop.Format(time.RFC3339)
	}
	if err := writeAttrs(station, attrs); err != nil {
		return 0, fmt.Errorf("station attributes: %w", err)
	}

	var samples int64
	for _, run := range job.Runs {
		n, err := writeRun(fw, stPath, run)
		if err != nil {
			return 0, err
		}
		samples += n
	}
	return samples, nil
}

func writeRun(fw *hdf5.FileWriter, stPath string, run domain.Run) (int64, error) {
	runPath := stPath + "/" + run.ID
	group, err := fw.CreateGroup(runPath)
	if err != nil {
		return 0, fmt.Errorf("create run group %q: %w", runPath, err)
	}

	attrs := map[string]any{
		"id":                run.ID,
		"sample_rate":       run.SampleRate,
		"time_period.start": run.Start.Format(time.RFC3339Nano),
		"time_period.end":   run.End.Format(time.RFC3339Nano),
		"components":        strings.Join(run.Components(), ","),
	}
	if err := writeAttrs(group, attrs); err != nil {
		return 0, fmt.Errorf("run %s attributes: %w", run.ID, err)
	}

	var samples int64
	for _, ch := range run.Channels {
		if err := writeChannel(fw, runPath, ch); err != nil {
			return 0, fmt.Errorf("run %s: %w", run.ID, err)
		}
		samples += int64(len(ch.Samples))
	}
	return samples, nil
}

func writeChannel(fw *hdf5.FileWriter, runPath string, ch domain.ChannelSeries) error {
	dsPath := runPath + "/" + ch.Component
	ds, err := fw.CreateDataset(dsPath, hdf5.Float32, []uint64{uint64(len(ch.Samples))})
	if err != nil {
		return fmt.Errorf("create channel dataset %q: %w", dsPath, err)
	}

	if err := ds.Write(ch.Samples); err != nil {
		return fmt.Errorf("write channel %s: %w", ch.Component, err)
	}

	attrs := map[string]any{
		"component":           ch.Component,
		"channel_number":      int32(ch.ChannelNumber),
		"type":                ch.Type,
		"units":               ch.Units,
		"sample_rate":         ch.SampleRate,
		"time_period.start":   ch.Start.Format(time.RFC3339Nano),
		"time_period.end":     ch.End().Format(time.RFC3339Nano),
		"measurement_azimuth": ch.Azimuth,
		"measurement_tilt":    ch.Tilt,
		"filter.name":         strings.Join(ch.FilterNames, ","),
		"saturation_count":    int32(ch.SaturationCount),
		"missing_count":       int32(ch.MissingCount),
	}
	if ch.SensorID != "" {
		attrs["sensor.id"] = ch.SensorID
		attrs["sensor.type"] = ch.SensorType
	}
	if ch.Type == "electric" {
		attrs["dipole_length"] = ch.DipoleLength
	}
	for name, value := range attrs {
		if err := ds.WriteAttribute(name, value); err != nil {
			return fmt.Errorf("channel %s attribute %q: %w", ch.Component, name, err)
		}
	}

	return ds.Close()
}

func writeFilters(fw *hdf5.FileWriter, filters []domain.Filter) error {
	if _, err := fw.CreateGroup("/Survey/Filters"); err != nil {
		return fmt.Errorf("create filters group: %w", err)
	}
	if _, err := fw.CreateGroup("/Survey/Filters/fap"); err != nil {
		return fmt.Errorf("create fap group: %w", err)
	}

	for _, f := range filters {
		path := "/Survey/Filters/fap/" + f.Name
		group, err := fw.CreateGroup(path)
		if err != nil {
			return fmt.Errorf("create filter group %q: %w", path, err)
		}

		attrs := map[string]any{
			"name":      f.Name,
			"type":      "frequency response table",
			"units_in":  f.UnitsIn,
			"units_out": f.UnitsOut,
			"gain":      f.Gain,
		}
		if err := writeAttrs(group, attrs); err != nil {
			return fmt.Errorf("filter %s attributes: %w", f.Name, err)
		}

		columns := []struct {
			name string
			data []float64
		}{
			{"frequency", f.Frequencies},
			{"amplitude", f.Amplitudes},
			{"phase", f.Phases},
		}
		for _, col := range columns {
			ds, err := fw.CreateDataset(path+"/"+col.name, hdf5.Float64, []uint64{uint64(len(col.data))})
			if err != nil {
				return fmt.Errorf("filter %s: create %s: %w", f.Name, col.name, err)
			}
			if err := ds.Write(col.data); err != nil {
				return fmt.Errorf("filter %s: write %s: %w", f.Name, col.name, err)
			}
			if err := ds.Close(); err != nil {
				return fmt.Errorf("filter %s: close %s: %w", f.Name, col.name, err)
			}
		}
	}

	return nil
}

func writeAttrs(group *hdf5.GroupWriter, attrs map[string]any) error {
	for name, value := range attrs {
		if err := group.WriteAttribute(name, value); err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
	}
	return nil
}

func sampleRates(runs []domain.Run) []float64 {
	seen := make(map[float64]struct{})
	var rates []float64
	for _, r := range runs {
		if _, ok := seen[r.SampleRate]; ok {
			continue
		}
		seen[r.SampleRate] = struct{}{}
		rates = append(rates, r.SampleRate)
	}
	return rates
}
