package domain

import (
	"context"
	"fmt"
	"math"
	"time"
)

// DefaultArchiveName is the output file name used when the caller does not
// choose one.
const DefaultArchiveName = "from_phoenix.h5"

// Recording identifies a discovered station recording awaiting conversion.
// Ack, when set, marks the recording as handled at the source so it is not
// offered again.
type Recording struct {
	StationDir   string
	ArchiveName  string
	DiscoveredAt time.Time

	Ack func(ctx context.Context) error `json:"-"`
}

// ChannelSeries is one channel's samples within a run, plus the metadata
// that ends up on the archive dataset.
type ChannelSeries struct {
	Component     string
	ChannelNumber int
	Type          string // "electric", "magnetic", or "auxiliary"
	Start         time.Time
	SampleRate    float64
	Samples       []float32
	Units         string

	SensorID     string
	SensorType   string
	DipoleLength float64 // metres, electric channels only
	Azimuth      float64
	Tilt         float64

	FilterNames []string

	SaturationCount int
	MissingCount    int
}

// End is the time of the first sample after the series.
func (c ChannelSeries) End() time.Time {
	if c.SampleRate <= 0 || len(c.Samples) == 0 {
		return c.Start
	}
	d := float64(len(c.Samples)) / c.SampleRate * float64(time.Second)
	return c.Start.Add(time.Duration(d))
}

// ChannelKind maps a receiver channel type code to the archive channel type.
func ChannelKind(component string) string {
	switch component {
	case "ex", "ey":
		return "electric"
	case "hx", "hy", "hz":
		return "magnetic"
	default:
		return "auxiliary"
	}
}

// Run is a block of continuous multi-channel data at one sample rate.
type Run struct {
	ID         string
	SampleRate float64
	Start      time.Time
	End        time.Time
	Channels   []ChannelSeries
}

// Components lists the component labels present in the run, in channel order.
func (r Run) Components() []string {
	out := make([]string, len(r.Channels))
	for i, ch := range r.Channels {
		out[i] = ch.Component
	}
	return out
}

// SampleCount is the total number of samples across all channels of the run.
func (r Run) SampleCount() int64 {
	var n int64
	for _, ch := range r.Channels {
		n += int64(len(ch.Samples))
	}
	return n
}

// RateLabel renders a sample rate as the compact label used in run IDs:
// 150 -> "150", 24000 -> "24k".
func RateLabel(rate float64) string {
	if rate >= 1000 && math.Mod(rate, 1000) == 0 {
		return fmt.Sprintf("%gk", rate/1000)
	}
	return fmt.Sprintf("%g", rate)
}

// RunID names the seq-th run (1-based) at the given rate.
func RunID(rate float64, seq int) string {
	return fmt.Sprintf("sr%s_%04d", RateLabel(rate), seq)
}

// Filter is a named frequency-response table destined for the archive's
// Filters group.
type Filter struct {
	Name        string
	UnitsIn     string
	UnitsOut    string
	Gain        float64
	Frequencies []float64
	Amplitudes  []float64
	Phases      []float64
}

// ArchiveJob is a fully assembled recording, ready to be written.
type ArchiveJob struct {
	Survey     string
	Station    string
	OutputPath string

	Latitude  float64
	Longitude float64
	Elevation float64

	InstrumentType   string
	InstrumentSerial string

	DeclaredStart time.Time
	DeclaredStop  time.Time

	Runs    []Run
	Filters []Filter

	ProcessedAt time.Time
}

// ArchiveResult summarizes one written archive, for logs and notifications.
type ArchiveResult struct {
	Station     string        `json:"station"`
	Path        string        `json:"path"`
	Runs        int           `json:"runs"`
	SampleRates []float64     `json:"sample_rates"`
	Samples     int64         `json:"samples"`
	Bytes       int64         `json:"bytes"`
	Duration    time.Duration `json:"duration_ns"`
	CompletedAt time.Time     `json:"completed_at"`
}
