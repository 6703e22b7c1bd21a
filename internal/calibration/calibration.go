// Package calibration loads receiver and sensor calibration files exported
// from Phoenix EMpower and matches them to recording channels.
//
// Receiver calibrations ("rxcal") are keyed by instrument serial and carry
// one frequency-response table per channel. Sensor calibrations ("scal")
// are keyed by the coil or dipole serial number and carry a single table.
// Both are JSON with the vendor's column names: freq_Hz, magnitude,
// phs_deg.
package calibration

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound reports that no calibration file matched a requested serial.
var ErrNotFound = errors.New("calibration: no file for serial")

// FAPTable is a frequency/amplitude/phase response table.
type FAPTable struct {
	Frequencies []float64 // Hz, ascending
	Amplitudes  []float64 // dimensionless magnitude
	Phases      []float64 // degrees
}

// Len returns the number of table rows.
func (t FAPTable) Len() int { return len(t.Frequencies) }

func (t FAPTable) validate() error {
	if len(t.Frequencies) == 0 {
		return errors.New("empty frequency table")
	}
	if len(t.Amplitudes) != len(t.Frequencies) || len(t.Phases) != len(t.Frequencies) {
		return fmt.Errorf("column lengths differ: %d frequencies, %d amplitudes, %d phases",
			len(t.Frequencies), len(t.Amplitudes), len(t.Phases))
	}
	return nil
}

// ReceiverCal is a parsed receiver calibration file.
type ReceiverCal struct {
	InstrumentType string
	Serial         string
	Timestamp      string
	Channels       map[int]FAPTable
}

// ChannelTable returns the response table for a channel index.
func (c *ReceiverCal) ChannelTable(channel int) (FAPTable, bool) {
	t, ok := c.Channels[channel]
	return t, ok
}

// SensorCal is a parsed sensor calibration file.
type SensorCal struct {
	SensorType string
	Serial     string
	Timestamp  string
	Table      FAPTable
}

// --- EMpower JSON wire types ---

type calDoc struct {
	InstrumentType string     `json:"instrument_type"`
	InstSerial     string     `json:"inst_serial"`
	SensorType     string     `json:"sensor_type"`
	Serial         string     `json:"serial"`
	TimestampUTC   string     `json:"timestamp_utc"`
	FileVersion    string     `json:"file_version"`
	CalData        []calEntry `json:"cal_data"`
}

type calEntry struct {
	Tag       string    `json:"tag"`
	Chan      *int      `json:"chan"`
	FreqHz    []float64 `json:"freq_Hz"`
	Magnitude []float64 `json:"magnitude"`
	PhaseDeg  []float64 `json:"phs_deg"`
}

// ParseReceiverCal decodes an rxcal JSON document.
func ParseReceiverCal(raw []byte) (*ReceiverCal, error) {
	var doc calDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse receiver calibration: %w", err)
	}
	if doc.InstSerial == "" {
		return nil, errors.New("parse receiver calibration: missing inst_serial")
	}

	cal := &ReceiverCal{
		InstrumentType: doc.InstrumentType,
		Serial:         doc.InstSerial,
		Timestamp:      doc.TimestampUTC,
		Channels:       make(map[int]FAPTable, len(doc.CalData)),
	}
	for i, entry := range doc.CalData {
		if entry.Chan == nil {
			return nil, fmt.Errorf("parse receiver calibration: entry %d has no channel", i)
		}
		table := FAPTable{Frequencies: entry.FreqHz, Amplitudes: entry.Magnitude, Phases: entry.PhaseDeg}
		if err := table.validate(); err != nil {
			return nil, fmt.Errorf("parse receiver calibration: channel %d: %w", *entry.Chan, err)
		}
		cal.Channels[*entry.Chan] = table
	}
	return cal, nil
}

// ParseSensorCal decodes an scal JSON document.
func ParseSensorCal(raw []byte) (*SensorCal, error) {
	var doc calDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse sensor calibration: %w", err)
	}
	if doc.Serial == "" {
		return nil, errors.New("parse sensor calibration: missing serial")
	}
	if len(doc.CalData) == 0 {
		return nil, errors.New("parse sensor calibration: no cal_data")
	}

	entry := doc.CalData[0]
	table := FAPTable{Frequencies: entry.FreqHz, Amplitudes: entry.Magnitude, Phases: entry.PhaseDeg}
	if err := table.validate(); err != nil {
		return nil, fmt.Errorf("parse sensor calibration: %w", err)
	}

	return &SensorCal{
		SensorType: doc.SensorType,
		Serial:     doc.Serial,
		Timestamp:  doc.TimestampUTC,
		Table:      table,
	}, nil
}

// LoadReceiverCal reads and parses an rxcal file.
func LoadReceiverCal(path string) (*ReceiverCal, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load receiver calibration: %w", err)
	}
	return ParseReceiverCal(raw)
}

// LoadSensorCal reads and parses an scal file.
func LoadSensorCal(path string) (*SensorCal, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load sensor calibration: %w", err)
	}
	return ParseSensorCal(raw)
}

// Source locates calibration files. An explicit serial-to-path mapping wins
// over a directory search; with only Dir set, files are auto-matched by the
// serial recorded inside each JSON document.
type Source struct {
	Explicit map[string]string
	Dir      string
}

// IsZero reports whether the source has neither a mapping nor a directory.
func (s Source) IsZero() bool { return len(s.Explicit) == 0 && s.Dir == "" }

// ResolveReceiver finds the receiver calibration for an instrument serial.
func (s Source) ResolveReceiver(serial string) (*ReceiverCal, error) {
	if path, ok := s.Explicit[serial]; ok {
		return LoadReceiverCal(path)
	}
	if s.Dir == "" {
		return nil, fmt.Errorf("%w %s", ErrNotFound, serial)
	}

	var found *ReceiverCal
	err := eachJSON(s.Dir, func(raw []byte) bool {
		cal, err := ParseReceiverCal(raw)
		if err != nil || cal.Serial != serial {
			return true
		}
		found = cal
		return false
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w %s", ErrNotFound, serial)
	}
	return found, nil
}

// ResolveSensors finds sensor calibrations for each serial. Serials with no
// matching file are returned in missing rather than failing the lookup.
func (s Source) ResolveSensors(serials []string) (found map[string]*SensorCal, missing []string, err error) {
	found = make(map[string]*SensorCal)

	wanted := make(map[string]struct{}, len(serials))
	for _, serial := range serials {
		if path, ok := s.Explicit[serial]; ok {
			cal, err := LoadSensorCal(path)
			if err != nil {
				return nil, nil, err
			}
			found[serial] = cal
			continue
		}
		wanted[serial] = struct{}{}
	}

	if len(wanted) > 0 && s.Dir != "" {
		err = eachJSON(s.Dir, func(raw []byte) bool {
			cal, perr := ParseSensorCal(raw)
			if perr != nil {
				return true
			}
			if _, ok := wanted[cal.Serial]; ok {
				found[cal.Serial] = cal
				delete(wanted, cal.Serial)
			}
			return len(wanted) > 0
		})
		if err != nil {
			return nil, nil, err
		}
	}

	for _, serial := range serials {
		if _, ok := found[serial]; !ok {
			missing = append(missing, serial)
		}
	}
	return found, missing, nil
}

// eachJSON feeds every .json file under dir to fn until fn returns false.
func eachJSON(dir string, fn func(raw []byte) bool) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read calibration candidate %q: %w", path, err)
		}
		if !fn(raw) {
			return filepath.SkipAll
		}
		return nil
	})
}
