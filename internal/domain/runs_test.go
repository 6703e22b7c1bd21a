package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2021, 4, 27, 3, 25, 0, 0, time.UTC)

func block(start time.Time, n int) Block {
	return Block{Start: start, Data: make([]float32, n)}
}

func TestRateLabel(t *testing.T) {
	assert.Equal(t, "150", RateLabel(150))
	assert.Equal(t, "24k", RateLabel(24000))
	assert.Equal(t, "96k", RateLabel(96000))
	assert.Equal(t, "2400", RateLabel(2400))
	assert.Equal(t, "sr24k_0001", RunID(24000, 1))
	assert.Equal(t, "sr150_0012", RunID(150, 12))
}

func TestChannelKind(t *testing.T) {
	assert.Equal(t, "electric", ChannelKind("ex"))
	assert.Equal(t, "magnetic", ChannelKind("hz"))
	assert.Equal(t, "auxiliary", ChannelKind("h1"))
}

func TestChannelSeriesEnd(t *testing.T) {
	c := ChannelSeries{Start: t0, SampleRate: 24000, Samples: make([]float32, 48000)}
	assert.Equal(t, t0.Add(2*time.Second), c.End())

	empty := ChannelSeries{Start: t0, SampleRate: 24000}
	assert.Equal(t, t0, empty.End())
}

func TestMergeBlocksJoinsContiguous(t *testing.T) {
	// Two 2-second bursts at 24 kHz, back to back.
	merged := MergeBlocks([]Block{
		block(t0, 48000),
		block(t0.Add(2*time.Second), 48000),
	}, 24000)

	require.Len(t, merged, 1)
	assert.Len(t, merged[0].Data, 96000)
	assert.Equal(t, t0, merged[0].Start)
}

func TestMergeBlocksSplitsAtGap(t *testing.T) {
	// Second burst starts 10 seconds late.
	merged := MergeBlocks([]Block{
		block(t0, 48000),
		block(t0.Add(12*time.Second), 48000),
	}, 24000)

	require.Len(t, merged, 2)
	assert.Equal(t, t0.Add(12*time.Second), merged[1].Start)
}

func TestMergeBlocksAccumulatesCounters(t *testing.T) {
	a := block(t0, 48000)
	a.SaturationCount = 2
	b := block(t0.Add(2*time.Second), 48000)
	b.SaturationCount = 1
	b.MissingCount = 4

	merged := MergeBlocks([]Block{a, b}, 24000)
	require.Len(t, merged, 1)
	assert.Equal(t, 3, merged[0].SaturationCount)
	assert.Equal(t, 4, merged[0].MissingCount)
}

func TestAssembleRunsGroupsChannelsByStart(t *testing.T) {
	hx := ChannelBlocks{
		Meta:   ChannelSeries{Component: "hx", ChannelNumber: 0, Type: "magnetic"},
		Blocks: []Block{block(t0, 48000), block(t0.Add(30*time.Second), 48000)},
	}
	ex := ChannelBlocks{
		Meta:   ChannelSeries{Component: "ex", ChannelNumber: 3, Type: "electric"},
		Blocks: []Block{block(t0, 48000), block(t0.Add(30*time.Second), 48000)},
	}

	runs, warnings := AssembleRuns(24000, []ChannelBlocks{ex, hx})
	require.Empty(t, warnings)
	require.Len(t, runs, 2)

	first := runs[0]
	assert.Equal(t, "sr24k_0001", first.ID)
	assert.Equal(t, t0, first.Start)
	assert.Equal(t, t0.Add(2*time.Second), first.End)
	// Channels come out in channel-number order regardless of input order.
	assert.Equal(t, []string{"hx", "ex"}, first.Components())
	assert.Equal(t, int64(96000), first.SampleCount())

	assert.Equal(t, "sr24k_0002", runs[1].ID)
	assert.Equal(t, t0.Add(30*time.Second), runs[1].Start)
}

func TestAssembleRunsMergesBeforeGrouping(t *testing.T) {
	hx := ChannelBlocks{
		Meta:   ChannelSeries{Component: "hx", ChannelNumber: 0},
		Blocks: []Block{block(t0, 48000), block(t0.Add(2*time.Second), 48000)},
	}

	runs, warnings := AssembleRuns(24000, []ChannelBlocks{hx})
	require.Empty(t, warnings)
	require.Len(t, runs, 1)
	assert.Len(t, runs[0].Channels[0].Samples, 96000)
}

func TestAssembleRunsWarnsOnShortChannel(t *testing.T) {
	hx := ChannelBlocks{
		Meta:   ChannelSeries{Component: "hx", ChannelNumber: 0},
		Blocks: []Block{block(t0, 48000)},
	}
	ex := ChannelBlocks{
		Meta:   ChannelSeries{Component: "ex", ChannelNumber: 3},
		Blocks: []Block{block(t0, 24000)}, // truncated fragment
	}

	runs, warnings := AssembleRuns(24000, []ChannelBlocks{hx, ex})
	require.Len(t, runs, 1)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "ex")
	// Both channels keep their own lengths.
	assert.Len(t, runs[0].Channels[0].Samples, 48000)
	assert.Len(t, runs[0].Channels[1].Samples, 24000)
}

func TestNewRecordingUsesClockAndDefaultName(t *testing.T) {
	fake := clockwork.NewFakeClockAt(t0)
	SetClock(fake)
	t.Cleanup(func() { SetClock(nil) })

	rec := NewRecording("/data/10128_2021-04-27-032436", "")
	assert.Equal(t, DefaultArchiveName, rec.ArchiveName)
	assert.Equal(t, t0, rec.DiscoveredAt)
}
