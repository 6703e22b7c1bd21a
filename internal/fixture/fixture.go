// Package fixture writes synthetic Phoenix station directories and
// calibration files. It drives the real wire codecs so that anything the
// generator produces parses back identically, and it backs both the test
// suites and the genfixtures command.
package fixture

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/magnetotellurics/phx2mth5/internal/phoenix"
)

// Default identity for generated stations.
const (
	DefaultSerial     = "10128"
	DefaultInstrument = "MTU-5C"
)

// defaultChannelMap is the factory wiring: channel index equals component
// code.
var defaultChannelMap = [8]uint8{0, 1, 2, 3, 4, 5, 6, 7}

// Burst is one GPS-aligned segment for a 24 kHz channel.
type Burst struct {
	Offset time.Duration // from recording start
	Data   []float32
}

// Channel describes one receiver input and the data files to generate for
// it. Any of the three data shapes may be left empty.
type Channel struct {
	Index        int
	SensorType   string
	SensorSerial string
	DipoleLength float64
	Azimuth      float64
	Tilt         float64

	Continuous []float32 // one td_150 file at 150 samples/s
	Bursts     []Burst   // one td_24k segmented file at 24000 samples/s
	Counts     []int32   // one native .bin file at 24000 samples/s
}

// Station describes a synthetic recording to write to disk.
type Station struct {
	Survey    string
	Name      string
	Serial    string
	Start     time.Time
	Latitude  float64
	Longitude float64
	Elevation float64
	Channels  []Channel
}

// Write materializes the station under dir: recmeta.json plus one numbered
// subdirectory per channel holding its data files.
func (s Station) Write(dir string) error {
	if s.Serial == "" {
		s.Serial = DefaultSerial
	}
	if err := s.writeRecMeta(dir); err != nil {
		return err
	}

	for _, ch := range s.Channels {
		chDir := filepath.Join(dir, fmt.Sprintf("%d", ch.Index))
		if err := os.MkdirAll(chDir, 0o755); err != nil {
			return err
		}

		if len(ch.Continuous) > 0 {
			if err := s.writeContinuous(chDir, ch); err != nil {
				return err
			}
		}
		if len(ch.Bursts) > 0 {
			if err := s.writeSegmented(chDir, ch); err != nil {
				return err
			}
		}
		if len(ch.Counts) > 0 {
			if err := s.writeNative(chDir, ch); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s Station) recordingID() uint32 {
	return uint32(s.Start.Unix())
}

func (s Station) fileName(channel int, seq int, ext string) string {
	return fmt.Sprintf("%s_%08X_%d_%08d.%s", s.Serial, s.recordingID(), channel, seq, ext)
}

func (s Station) header(ch Channel, fileType uint8, rateBase uint16, bytesPerSample uint8) phoenix.Header {
	return phoenix.Header{
		FileType:         fileType,
		FileVersion:      phoenix.SupportedVersion,
		HeaderLength:     phoenix.HeaderLength,
		RecordingID:      s.recordingID(),
		InstrumentType:   DefaultInstrument,
		InstrumentSerial: s.Serial,
		ChannelID:        uint8(ch.Index),
		BytesPerSample:   bytesPerSample,
		FrameSize:        phoenix.FrameSize,
		FileSequence:     1,
		FragPeriod:       360,
		SampleRateBase:   rateBase,
		SampleRateExp:    0,
		ChannelMainGain:  1,
		PreampGain:       1,
		AttenuatorGain:   1,
		ADPlusMinusRange: 5,
		GPSLatitude:      float32(s.Latitude),
		GPSLongitude:     float32(s.Longitude),
		GPSElevation:     float32(s.Elevation),
		TimingSatCount:   9,
		BatteryVoltage:   12.6,
		BoardModel:       "BCM01-I",
		ChannelMap:       defaultChannelMap,
	}
}

func (s Station) writeContinuous(chDir string, ch Channel) error {
	h := s.header(ch, phoenix.FileTypeContinuous, 150, 4)
	buf := h.Marshal()
	buf = appendFloat32s(buf, ch.Continuous)
	path := filepath.Join(chDir, s.fileName(ch.Index, 1, "td_150"))
	return os.WriteFile(path, buf, 0o644)
}

func (s Station) writeSegmented(chDir string, ch Channel) error {
	h := s.header(ch, phoenix.FileTypeSegmented, 24000, 4)
	buf := h.Marshal()
	for _, burst := range ch.Bursts {
		sh := phoenix.SegmentHeader{
			GPSTimeStamp: uint32(s.Start.Add(burst.Offset).Unix()),
			NSamples:     uint32(len(burst.Data)),
		}
		sh.ValueMin, sh.ValueMax, sh.ValueMean = burstStats(burst.Data)
		buf = append(buf, sh.Marshal()...)
		buf = appendFloat32s(buf, burst.Data)
	}
	path := filepath.Join(chDir, s.fileName(ch.Index, 1, "td_24k"))
	return os.WriteFile(path, buf, 0o644)
}

func (s Station) writeNative(chDir string, ch Channel) error {
	h := s.header(ch, phoenix.FileTypeNative, 24000, 3)
	payload, err := phoenix.EncodeFrames(ch.Counts, 0)
	if err != nil {
		return err
	}
	path := filepath.Join(chDir, s.fileName(ch.Index, 1, "bin"))
	return os.WriteFile(path, append(h.Marshal(), payload...), 0o644)
}

func (s Station) writeRecMeta(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	type chanDoc struct {
		Idx          int     `json:"idx"`
		Tag          string  `json:"tag"`
		Type         string  `json:"ty"`
		Gain         float64 `json:"ga"`
		SensorType   string  `json:"sensor_type"`
		SensorSerial string  `json:"serial"`
		DipoleLength float64 `json:"length1"`
		Azimuth      float64 `json:"azimuth"`
		Tilt         float64 `json:"tilt"`
		On           bool    `json:"on"`
	}

	chans := make([]chanDoc, 0, len(s.Channels))
	for _, ch := range s.Channels {
		tag := componentTag(ch.Index)
		chans = append(chans, chanDoc{
			Idx:          ch.Index,
			Tag:          tag,
			Type:         channelType(tag),
			Gain:         1,
			SensorType:   ch.SensorType,
			SensorSerial: ch.SensorSerial,
			DipoleLength: ch.DipoleLength,
			Azimuth:      ch.Azimuth,
			Tilt:         ch.Tilt,
			On:           true,
		})
	}

	doc := map[string]any{
		"survey_name":       s.Survey,
		"station_name":      s.Name,
		"instrument_type":   DefaultInstrument,
		"instrument_serial": s.Serial,
		"start":             s.Start.UTC().Format(time.RFC3339),
		"latitude":          s.Latitude,
		"longitude":         s.Longitude,
		"elevation":         s.Elevation,
		"chconfig":          map[string]any{"chans": chans},
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, phoenix.RecMetaFileName), raw, 0o644)
}

// WriteReceiverCal writes an EMpower-style rxcal JSON for an instrument
// serial, with a flat unity response table per channel.
func WriteReceiverCal(path, serial string, channels []int) error {
	entries := make([]map[string]any, 0, len(channels))
	for _, ch := range channels {
		entries = append(entries, map[string]any{
			"chan":      ch,
			"freq_Hz":   []float64{0.1, 1, 10, 100, 1000},
			"magnitude": []float64{1, 1, 1, 1, 1},
			"phs_deg":   []float64{0, 0, 0, 0, 0},
		})
	}
	doc := map[string]any{
		"instrument_type": DefaultInstrument,
		"inst_serial":     serial,
		"timestamp_utc":   "2021-04-20T18:00:00Z",
		"file_version":    "1.0",
		"cal_data":        entries,
	}
	return writeJSONFile(path, doc)
}

// WriteSensorCal writes an EMpower-style scal JSON for a coil serial.
func WriteSensorCal(path, serial string) error {
	doc := map[string]any{
		"sensor_type":   "MTC-155",
		"serial":        serial,
		"timestamp_utc": "2021-04-20T18:00:00Z",
		"file_version":  "1.0",
		"cal_data": []map[string]any{{
			"freq_Hz":   []float64{0.1, 1, 10, 100, 1000},
			"magnitude": []float64{0.2, 2, 20, 80, 100},
			"phs_deg":   []float64{88, 80, 45, 10, 2},
		}},
	}
	return writeJSONFile(path, doc)
}

// Sine fills a slice with a test tone, handy for eyeballing archives.
func Sine(n int, freq, rate, amplitude float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/rate))
	}
	return out
}

// Ramp fills a slice with a linear ramp, handy for asserting sample order.
func Ramp(n int, step float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = step * float32(i)
	}
	return out
}

func appendFloat32s(buf []byte, data []float32) []byte {
	for _, v := range data {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
		buf = append(buf, b[:]...)
	}
	return buf
}

func burstStats(data []float32) (vmin, vmax, vmean float32) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	vmin, vmax = data[0], data[0]
	var sum float64
	for _, v := range data {
		if v < vmin {
			vmin = v
		}
		if v > vmax {
			vmax = v
		}
		sum += float64(v)
	}
	return vmin, vmax, float32(sum / float64(len(data)))
}

func componentTag(idx int) string {
	tags := [8]string{"hx", "hy", "hz", "ex", "ey", "h1", "h2", "h3"}
	if idx >= 0 && idx < len(tags) {
		return tags[idx]
	}
	return fmt.Sprintf("ch%d", idx)
}

func channelType(tag string) string {
	switch tag {
	case "ex", "ey":
		return "E"
	default:
		return "H"
	}
}

func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
