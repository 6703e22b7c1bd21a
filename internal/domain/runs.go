package domain

import (
	"fmt"
	"sort"
	"time"
)

// Block is a contiguous stretch of samples for one channel, as decoded from
// a single burst segment or data file fragment.
type Block struct {
	Start           time.Time
	Data            []float32
	SaturationCount int
	MissingCount    int
}

// ChannelBlocks pairs a channel's metadata with its time-ordered blocks.
type ChannelBlocks struct {
	Meta   ChannelSeries // Samples is ignored; everything else is copied
	Blocks []Block
}

// gapTolerance returns the largest start-time slack treated as contiguous.
func gapTolerance(rate float64) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / rate / 2)
}

// MergeBlocks concatenates back-to-back blocks and splits at gaps. Input
// blocks must be ordered by start time.
func MergeBlocks(blocks []Block, rate float64) []Block {
	if len(blocks) <= 1 {
		return blocks
	}

	tol := gapTolerance(rate)
	merged := make([]Block, 0, len(blocks))
	cur := Block{
		Start:           blocks[0].Start,
		Data:            append([]float32(nil), blocks[0].Data...),
		SaturationCount: blocks[0].SaturationCount,
		MissingCount:    blocks[0].MissingCount,
	}

	for _, b := range blocks[1:] {
		curEnd := cur.Start.Add(time.Duration(float64(len(cur.Data)) / rate * float64(time.Second)))
		delta := b.Start.Sub(curEnd)
		if delta < 0 {
			delta = -delta
		}
		if delta <= tol {
			cur.Data = append(cur.Data, b.Data...)
			cur.SaturationCount += b.SaturationCount
			cur.MissingCount += b.MissingCount
			continue
		}
		merged = append(merged, cur)
		cur = Block{
			Start:           b.Start,
			Data:            append([]float32(nil), b.Data...),
			SaturationCount: b.SaturationCount,
			MissingCount:    b.MissingCount,
		}
	}

	return append(merged, cur)
}

// AssembleRuns builds the runs for one sample rate from per-channel blocks.
// Channels whose merged blocks share a start time join the same run. Runs
// are numbered in start order. Channels of unequal length within a run are
// kept at their own length and reported as warnings.
func AssembleRuns(rate float64, channels []ChannelBlocks) ([]Run, []string) {
	tol := gapTolerance(rate)

	type span struct {
		meta  ChannelSeries
		block Block
	}

	var starts []time.Time
	spansByStart := make(map[time.Time][]span)

	findStart := func(t time.Time) (time.Time, bool) {
		for _, s := range starts {
			d := t.Sub(s)
			if d < 0 {
				d = -d
			}
			if d <= tol {
				return s, true
			}
		}
		return time.Time{}, false
	}

	for _, ch := range channels {
		for _, block := range MergeBlocks(ch.Blocks, rate) {
			key, ok := findStart(block.Start)
			if !ok {
				key = block.Start
				starts = append(starts, key)
			}
			spansByStart[key] = append(spansByStart[key], span{meta: ch.Meta, block: block})
		}
	}

	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	var runs []Run
	var warnings []string

	for seq, start := range starts {
		run := Run{
			ID:         RunID(rate, seq+1),
			SampleRate: rate,
			Start:      start,
			End:        start,
		}

		spans := spansByStart[start]
		nWant := len(spans[0].block.Data)
		for _, sp := range spans {
			series := sp.meta
			series.Start = start
			series.SampleRate = rate
			series.Samples = sp.block.Data
			series.SaturationCount = sp.block.SaturationCount
			series.MissingCount = sp.block.MissingCount
			run.Channels = append(run.Channels, series)

			if end := series.End(); end.After(run.End) {
				run.End = end
			}
			if len(sp.block.Data) != nWant {
				warnings = append(warnings, fmt.Sprintf(
					"run %s: channel %s has %d samples, expected %d",
					run.ID, series.Component, len(sp.block.Data), nWant))
			}
		}

		sort.Slice(run.Channels, func(i, j int) bool {
			return run.Channels[i].ChannelNumber < run.Channels[j].ChannelNumber
		})
		runs = append(runs, run)
	}

	return runs, warnings
}
