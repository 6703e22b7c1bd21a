// Command genfixtures writes a synthetic Phoenix station directory plus
// matching calibration files. It drives the same wire codecs the converter
// reads with, so the output exercises the full parse path in tests and
// demos.
//
// Usage:
//
//	go run ./cmd/genfixtures \
//	  -out data/fixtures/MT001 \
//	  -cal-out data/fixtures/cal \
//	  -station MT001 -seconds 10
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/magnetotellurics/phx2mth5/internal/fixture"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "station directory to create")
	calOut := flag.String("cal-out", "", "directory for calibration JSON files (optional)")
	station := flag.String("station", "MT001", "station name")
	serial := flag.String("serial", fixture.DefaultSerial, "instrument serial")
	start := flag.String("start", "2021-04-27T03:25:00Z", "recording start (RFC3339)")
	seconds := flag.Int("seconds", 10, "seconds of data per channel")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	startTime, err := time.Parse(time.RFC3339, *start)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	if *seconds <= 0 {
		return fmt.Errorf("-seconds must be positive")
	}

	n150 := 150 * *seconds
	bursts := make([]fixture.Burst, 0, *seconds)
	for i := 0; i < *seconds; i++ {
		bursts = append(bursts, fixture.Burst{
			Offset: time.Duration(i) * time.Second,
			Data:   fixture.Sine(24000, 60, 24000, 1.2),
		})
	}

	st := fixture.Station{
		Survey:    "FIXTURE",
		Name:      *station,
		Serial:    *serial,
		Start:     startTime.UTC(),
		Latitude:  43.6904,
		Longitude: -79.3703,
		Elevation: 123,
		Channels: []fixture.Channel{
			{Index: 0, SensorType: "MTC-155", SensorSerial: "57001", Azimuth: 0,
				Continuous: fixture.Sine(n150, 1, 150, 0.8), Bursts: bursts},
			{Index: 1, SensorType: "MTC-155", SensorSerial: "57002", Azimuth: 90,
				Continuous: fixture.Sine(n150, 1, 150, 0.8), Bursts: bursts},
			{Index: 3, SensorType: "dipole", DipoleLength: 100, Azimuth: 0,
				Continuous: fixture.Sine(n150, 1, 150, 0.05), Bursts: bursts},
			{Index: 4, SensorType: "dipole", DipoleLength: 100, Azimuth: 90,
				Continuous: fixture.Sine(n150, 1, 150, 0.05), Bursts: bursts},
		},
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}
	if err := st.Write(*out); err != nil {
		return fmt.Errorf("writing station: %w", err)
	}
	log.Printf("wrote station %s: %d channels, %d s", *out, len(st.Channels), *seconds)

	if *calOut != "" {
		rxPath := filepath.Join(*calOut, "rxcal_"+*serial+".json")
		if err := fixture.WriteReceiverCal(rxPath, *serial, []int{0, 1, 3, 4}); err != nil {
			return fmt.Errorf("writing receiver cal: %w", err)
		}
		log.Printf("wrote receiver cal: %s", rxPath)

		for _, coil := range []string{"57001", "57002"} {
			scalPath := filepath.Join(*calOut, "scal_"+coil+".json")
			if err := fixture.WriteSensorCal(scalPath, coil); err != nil {
				return fmt.Errorf("writing sensor cal: %w", err)
			}
			log.Printf("wrote sensor cal: %s", scalPath)
		}
	}

	return nil
}
