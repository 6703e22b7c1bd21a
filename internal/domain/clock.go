package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock stamps DiscoveredAt/ProcessedAt fields. Tests swap in a fake via
// SetClock for deterministic fixtures.
var clock = clockwork.NewRealClock()

// SetClock swaps the package time source. Pass nil to restore real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current time from the package clock.
func Now() time.Time { return clock.Now() }

// NewRecording stamps a discovered recording with the package clock.
func NewRecording(stationDir, archiveName string) Recording {
	if archiveName == "" {
		archiveName = DefaultArchiveName
	}
	return Recording{
		StationDir:   stationDir,
		ArchiveName:  archiveName,
		DiscoveredAt: clock.Now(),
	}
}
