// Command validate cross-checks an MTH5 archive against the Phoenix station
// directory it was converted from: every data file must parse, every
// assembled run must appear in the archive, and sample counts must match
// channel for channel.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -station data/fixtures/MT001 \
//	  -archive data/fixtures/MT001/from_phoenix.h5 \
//	  -sample-rates 150,24000
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/magnetotellurics/phx2mth5/internal/calibration"
	"github.com/magnetotellurics/phx2mth5/internal/config"
	"github.com/magnetotellurics/phx2mth5/internal/converter"
	"github.com/magnetotellurics/phx2mth5/internal/domain"
	"github.com/magnetotellurics/phx2mth5/internal/mth5"
	"github.com/magnetotellurics/phx2mth5/internal/observability"
	"github.com/magnetotellurics/phx2mth5/internal/phoenix"
)

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	stationDir := flag.String("station", "", "Phoenix station directory")
	archive := flag.String("archive", "", "MTH5 archive to validate")
	rates := flag.String("sample-rates", "150,24000", "sample rates that were archived")
	rxcalDir := flag.String("rxcal-dir", "", "receiver calibration directory (optional)")
	scalDir := flag.String("scal-dir", "", "sensor calibration directory (optional)")
	flag.Parse()

	if *stationDir == "" || *archive == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*stationDir, *archive, *rates, *rxcalDir, *scalDir))
}

func run(stationDir, archive, rates, rxcalDir, scalDir string) int {
	sampleRates, err := config.ParseSampleRates(rates)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	fmt.Println("=== MTH5 Archive Validation ===")
	fmt.Println()

	// Re-assemble the job from the source directory.
	conv := converter.New(slog.Default(), observability.NewMetrics())
	job, err := conv.Assemble(context.Background(), converter.Options{
		StationDir:  stationDir,
		SampleRates: sampleRates,
		ReceiverCal: calibration.Source{Dir: rxcalDir},
		SensorCal:   calibration.Source{Dir: scalDir},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: assemble station: %v\n", err)
		return 1
	}

	info, err := mth5.Summarize(archive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read archive: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateSourceFiles(stationDir),
		validateArchiveStructure(job, info),
		validateSampleCounts(job, info),
		validateFilters(job, info),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-44s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Runs: %d assembled, %d archived; samples: %d archived\n",
		len(job.Runs), countRuns(info), info.TotalSamples())

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Source Files ──
// Every data file in the station directory must parse cleanly.

func validateSourceFiles(stationDir string) *phase {
	p := &phase{name: "Phase 1: Source Files (headers parse)"}

	sd, err := phoenix.ScanStation(stationDir)
	if err != nil {
		p.errorf("scan: %v", err)
		return p
	}

	for _, group := range sd.Groups {
		for _, path := range group.Files {
			pf, err := phoenix.Open(path)
			if err != nil {
				p.errorf("%s: %v", path, err)
				continue
			}
			if pf.Header.ChannelID != uint8(group.Channel) {
				p.errorf("%s: header channel %d does not match file name channel %d",
					path, pf.Header.ChannelID, group.Channel)
			}
			pf.Close()
		}
	}
	return p
}

// ── Phase 2: Archive Structure ──
// Every assembled run must exist in the archive with the same channels.

func validateArchiveStructure(job domain.ArchiveJob, info *mth5.ArchiveInfo) *phase {
	p := &phase{name: "Phase 2: Archive Structure (runs, channels)"}

	if info.FileVersion != mth5.FileVersion {
		p.errorf("file version: expected %s, got %q", mth5.FileVersion, info.FileVersion)
	}

	st := findStation(info, job.Station)
	if st == nil {
		p.errorf("station %q not found in archive", job.Station)
		return p
	}

	for _, run := range job.Runs {
		archived := findRun(st, run.ID)
		if archived == nil {
			p.errorf("run %s missing from archive", run.ID)
			continue
		}
		if len(archived.Channels) != len(run.Channels) {
			p.errorf("run %s: expected %d channels, archive has %d",
				run.ID, len(run.Channels), len(archived.Channels))
		}
	}

	if len(st.Runs) != len(job.Runs) {
		p.errorf("archive has %d runs, source assembles %d", len(st.Runs), len(job.Runs))
	}
	return p
}

// ── Phase 3: Sample Counts ──

func validateSampleCounts(job domain.ArchiveJob, info *mth5.ArchiveInfo) *phase {
	p := &phase{name: "Phase 3: Sample Counts (channel by channel)"}

	st := findStation(info, job.Station)
	if st == nil {
		p.errorf("station %q not found in archive", job.Station)
		return p
	}

	for _, run := range job.Runs {
		archived := findRun(st, run.ID)
		if archived == nil {
			continue // reported in phase 2
		}
		for _, ch := range run.Channels {
			n, ok := channelSamples(archived, ch.Component)
			if !ok {
				p.errorf("run %s: channel %s missing from archive", run.ID, ch.Component)
				continue
			}
			if n != len(ch.Samples) {
				p.errorf("run %s channel %s: expected %d samples, archive has %d",
					run.ID, ch.Component, len(ch.Samples), n)
			}
		}
	}
	return p
}

// ── Phase 4: Filters ──

func validateFilters(job domain.ArchiveJob, info *mth5.ArchiveInfo) *phase {
	p := &phase{name: "Phase 4: Filters (calibration tables)"}

	archived := make(map[string]bool, len(info.Filters))
	for _, name := range info.Filters {
		archived[name] = true
	}
	for _, f := range job.Filters {
		if !archived[f.Name] {
			p.errorf("filter %s missing from archive", f.Name)
		}
	}
	if len(info.Filters) != len(job.Filters) {
		p.errorf("archive has %d filters, source resolves %d", len(info.Filters), len(job.Filters))
	}
	return p
}

// ── Helpers ──

func findStation(info *mth5.ArchiveInfo, name string) *mth5.StationInfo {
	for i := range info.Stations {
		if info.Stations[i].Name == name {
			return &info.Stations[i]
		}
	}
	return nil
}

func findRun(st *mth5.StationInfo, id string) *mth5.RunInfo {
	for i := range st.Runs {
		if st.Runs[i].ID == id {
			return &st.Runs[i]
		}
	}
	return nil
}

func channelSamples(run *mth5.RunInfo, component string) (int, bool) {
	for _, ch := range run.Channels {
		if ch.Component == component {
			return ch.Samples, true
		}
	}
	return 0, false
}

func countRuns(info *mth5.ArchiveInfo) int {
	n := 0
	for _, st := range info.Stations {
		n += len(st.Runs)
	}
	return n
}
