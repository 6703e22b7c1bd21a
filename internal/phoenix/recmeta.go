package phoenix

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// RecMetaFileName is the receiver metadata descriptor written into every
// station directory.
const RecMetaFileName = "recmeta.json"

// --- recmeta.json wire types ---

type recmetaDoc struct {
	SurveyName       string         `json:"survey_name"`
	StationName      string         `json:"station_name"`
	CompanyName      string         `json:"company_name"`
	OperatorName     string         `json:"operator_name"`
	InstrumentType   string         `json:"instrument_type"`
	InstrumentSerial string         `json:"instrument_serial"`
	FirmwareVersion  string         `json:"firmware_version"`
	Version          string         `json:"version"`
	Start            string         `json:"start"`
	Stop             string         `json:"stop"`
	Latitude         float64        `json:"latitude"`
	Longitude        float64        `json:"longitude"`
	Elevation        float64        `json:"elevation"`
	ChConfig         recmetaChCfg   `json:"chconfig"`
	Notes            string         `json:"notes"`
	Extra            map[string]any `json:"-"`
}

type recmetaChCfg struct {
	Chans []recmetaChannel `json:"chans"`
}

type recmetaChannel struct {
	Idx          int     `json:"idx"`
	Tag          string  `json:"tag"`
	Type         string  `json:"ty"` // "E" or "H"
	Gain         float64 `json:"ga"`
	SensorType   string  `json:"sensor_type"`
	SensorSerial string  `json:"serial"`
	DipoleLength float64 `json:"length1"` // metres, electric channels only
	Azimuth      float64 `json:"azimuth"`
	Tilt         float64 `json:"tilt"`
	On           bool    `json:"on"`
}

// --- domain types ---

// RecMeta is the parsed receiver metadata for one recording.
type RecMeta struct {
	Survey           string
	Station          string
	Company          string
	Operator         string
	InstrumentType   string
	InstrumentSerial string
	Firmware         string
	Start            time.Time
	Stop             time.Time
	Latitude         float64
	Longitude        float64
	Elevation        float64
	Channels         []ChannelConfig
	Notes            string
}

// ChannelConfig describes one receiver input as configured for the recording.
type ChannelConfig struct {
	Index        int
	Tag          string
	Type         string // "E" or "H"
	Gain         float64
	SensorType   string
	SensorSerial string
	DipoleLength float64
	Azimuth      float64
	Tilt         float64
	Enabled      bool
}

// Channel returns the configuration for a channel index, or false when the
// index is not present in the descriptor.
func (m *RecMeta) Channel(idx int) (ChannelConfig, bool) {
	for _, ch := range m.Channels {
		if ch.Index == idx {
			return ch, true
		}
	}
	return ChannelConfig{}, false
}

// SensorSerials returns the distinct sensor serial numbers referenced by
// enabled channels, used for calibration auto-matching.
func (m *RecMeta) SensorSerials() []string {
	seen := make(map[string]struct{})
	var serials []string
	for _, ch := range m.Channels {
		if !ch.Enabled || ch.SensorSerial == "" {
			continue
		}
		if _, ok := seen[ch.SensorSerial]; ok {
			continue
		}
		seen[ch.SensorSerial] = struct{}{}
		serials = append(serials, ch.SensorSerial)
	}
	return serials
}

// ReadRecMeta loads and parses a recmeta.json descriptor.
func ReadRecMeta(path string) (*RecMeta, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recmeta: %w", err)
	}
	return ParseRecMeta(raw)
}

// ParseRecMeta converts raw recmeta.json content into a RecMeta.
func ParseRecMeta(raw []byte) (*RecMeta, error) {
	var doc recmetaDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse recmeta: %w", err)
	}
	if doc.StationName == "" {
		// Older firmware leaves station_name empty and only sets the serial.
		doc.StationName = doc.InstrumentSerial
	}
	if doc.StationName == "" {
		return nil, fmt.Errorf("parse recmeta: no station name or instrument serial")
	}

	m := &RecMeta{
		Survey:           doc.SurveyName,
		Station:          sanitizeName(doc.StationName),
		Company:          doc.CompanyName,
		Operator:         doc.OperatorName,
		InstrumentType:   doc.InstrumentType,
		InstrumentSerial: doc.InstrumentSerial,
		Firmware:         doc.FirmwareVersion,
		Start:            parseRecmetaTime(doc.Start),
		Stop:             parseRecmetaTime(doc.Stop),
		Latitude:         doc.Latitude,
		Longitude:        doc.Longitude,
		Elevation:        doc.Elevation,
		Notes:            doc.Notes,
	}

	for _, ch := range doc.ChConfig.Chans {
		m.Channels = append(m.Channels, ChannelConfig{
			Index:        ch.Idx,
			Tag:          ch.Tag,
			Type:         strings.ToUpper(ch.Type),
			Gain:         ch.Gain,
			SensorType:   ch.SensorType,
			SensorSerial: ch.SensorSerial,
			DipoleLength: ch.DipoleLength,
			Azimuth:      ch.Azimuth,
			Tilt:         ch.Tilt,
			Enabled:      ch.On,
		})
	}

	return m, nil
}

// parseRecmetaTime accepts the couple of timestamp layouts observed across
// firmware revisions. Returns the zero time when the field is absent.
func parseRecmetaTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// sanitizeName makes a station name safe for use as an HDF5 group name.
func sanitizeName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
