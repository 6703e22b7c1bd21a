package mth5

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnetotellurics/phx2mth5/internal/domain"
)

func testJob(path string) domain.ArchiveJob {
	start := time.Date(2021, 4, 27, 3, 25, 0, 0, time.UTC)

	hx := domain.ChannelSeries{
		Component:     "hx",
		ChannelNumber: 0,
		Type:          "magnetic",
		Start:         start,
		SampleRate:    150,
		Samples:       []float32{0.1, 0.2, 0.3, 0.4},
		Units:         "V",
		SensorID:      "53577",
		SensorType:    "MTC-155",
		FilterNames:   []string{"rxcal_10128_ch0", "scal_53577"},
	}
	ex := domain.ChannelSeries{
		Component:     "ex",
		ChannelNumber: 3,
		Type:          "electric",
		Start:         start,
		SampleRate:    150,
		Samples:       []float32{1, 2, 3, 4},
		Units:         "V",
		DipoleLength:  100,
	}

	return domain.ArchiveJob{
		Survey:           "CL2021",
		Station:          "MT_001",
		OutputPath:       path,
		Latitude:         43.696255,
		Longitude:        -79.393646,
		Elevation:        140.1,
		InstrumentType:   "MTU-5C",
		InstrumentSerial: "10128",
		Runs: []domain.Run{{
			ID:         "sr150_0001",
			SampleRate: 150,
			Start:      start,
			End:        start.Add(4 * time.Second / 150),
			Channels:   []domain.ChannelSeries{hx, ex},
		}},
		Filters: []domain.Filter{{
			Name:        "scal_53577",
			UnitsIn:     "nT",
			UnitsOut:    "V",
			Gain:        1,
			Frequencies: []float64{0.01, 0.1, 1},
			Amplitudes:  []float64{0.02, 0.2, 2},
			Phases:      []float64{89, 85, 45},
		}},
	}
}

func TestWriteArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "from_phoenix.h5")
	w := NewWriter(slog.Default())

	result, err := w.WriteArchive(testJob(path))
	require.NoError(t, err)

	assert.Equal(t, path, result.Path)
	assert.Equal(t, "MT_001", result.Station)
	assert.Equal(t, 1, result.Runs)
	assert.Equal(t, []float64{150}, result.SampleRates)
	assert.Equal(t, int64(8), result.Samples)
	assert.Positive(t, result.Bytes)

	info, err := Summarize(path)
	require.NoError(t, err)

	assert.Equal(t, FileVersion, info.FileVersion)
	require.Len(t, info.Stations, 1)
	assert.Equal(t, "MT_001", info.Stations[0].Name)

	require.Len(t, info.Stations[0].Runs, 1)
	run := info.Stations[0].Runs[0]
	assert.Equal(t, "sr150_0001", run.ID)
	require.Len(t, run.Channels, 2)
	// Walk order is alphabetical: ex before hx.
	assert.Equal(t, "ex", run.Channels[0].Component)
	assert.Equal(t, 4, run.Channels[0].Samples)
	assert.Equal(t, "hx", run.Channels[1].Component)

	assert.Equal(t, []string{"scal_53577"}, info.Filters)
	assert.Equal(t, int64(8), info.TotalSamples())
}

func TestWriteArchiveOverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "from_phoenix.h5")
	require.NoError(t, os.WriteFile(path, []byte("stale content"), 0o644))

	w := NewWriter(slog.Default())
	_, err := w.WriteArchive(testJob(path))
	require.NoError(t, err)

	// The stale file was truncated, not appended to.
	info, err := Summarize(path)
	require.NoError(t, err)
	assert.Equal(t, FileVersion, info.FileVersion)
}

func TestWriteArchiveBadPath(t *testing.T) {
	job := testJob(filepath.Join(t.TempDir(), "missing", "deep", "out.h5"))
	w := NewWriter(slog.Default())

	_, err := w.WriteArchive(job)
	assert.Error(t, err)
}
