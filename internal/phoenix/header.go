package phoenix

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// HeaderLength is the size of the fixed file header in bytes.
	HeaderLength = 128

	// FrameSize is the size of a native data frame in bytes.
	FrameSize = 64

	// SupportedVersion is the only header format version this package reads.
	SupportedVersion = 2
)

// File type discriminators stored in the first header byte.
const (
	FileTypeNative     uint8 = 1 // raw A/D counts in 64-byte frames
	FileTypeSegmented  uint8 = 2 // GPS-aligned float32 segments
	FileTypeContinuous uint8 = 3 // contiguous float32 stream
)

// componentNames maps channel-map codes to component labels.
var componentNames = [8]string{"hx", "hy", "hz", "ex", "ey", "h1", "h2", "h3"}

// Header is the 128-byte descriptor at the start of every MTU-5C data file.
//
// Layout (little-endian unless noted):
//
//	  0  uint8    file type
//	  1  uint8    header version
//	  2  uint16   header length
//	  4  uint32   recording id (unix seconds of recording start)
//	  8  [8]byte  instrument type, NUL padded
//	 16  [8]byte  instrument serial, NUL padded
//	 24  uint8    channel id
//	 25  uint8    bytes per sample
//	 26  uint16   frame size
//	 28  uint32   file sequence
//	 32  uint32   fragmentation period, seconds
//	 36  uint16   sample rate base
//	 38  int8     sample rate exponent (rate = base * 2^exp)
//	 39  uint8    reserved
//	 40  float32  channel main gain
//	 44  float32  preamp gain
//	 48  float32  attenuator gain
//	 52  float32  A/D plus/minus range, volts
//	 56  float32  GPS latitude, degrees
//	 60  float32  GPS longitude, degrees
//	 64  float32  GPS elevation, metres
//	 68  float32  GPS horizontal accuracy, metres
//	 72  float32  GPS vertical accuracy, metres
//	 76  uint8    timing flags
//	 77  uint8    timing satellite count
//	 78  uint16   timing stability
//	 80  float32  battery voltage
//	 84  [8]byte  channel board model, NUL padded
//	 92  uint32   channel board serial
//	 96  uint32   channel firmware version
//	100  uint32   low-pass filter cutoff, Hz
//	104  uint32   saturated frame count
//	108  uint32   missing frame count
//	112  [8]uint8 channel map codes
//	120  uint32   future1
//	124  uint32   future2
type Header struct {
	FileType         uint8
	FileVersion      uint8
	HeaderLength     uint16
	RecordingID      uint32
	InstrumentType   string
	InstrumentSerial string
	ChannelID        uint8
	BytesPerSample   uint8
	FrameSize        uint16
	FileSequence     uint32
	FragPeriod       uint32
	SampleRateBase   uint16
	SampleRateExp    int8
	ChannelMainGain  float32
	PreampGain       float32
	AttenuatorGain   float32
	ADPlusMinusRange float32
	GPSLatitude      float32
	GPSLongitude     float32
	GPSElevation     float32
	GPSHorizAccuracy float32
	GPSVertAccuracy  float32
	TimingFlags      uint8
	TimingSatCount   uint8
	TimingStability  uint16
	BatteryVoltage   float32
	BoardModel       string
	BoardSerial      uint32
	Firmware         uint32
	LPFrequency      uint32
	SaturatedFrames  uint32
	MissingFrames    uint32
	ChannelMap       [8]uint8
	Future1          uint32
	Future2          uint32
}

// ParseHeader decodes the fixed file header from buf.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderLength {
		return Header{}, fmt.Errorf("parse header: need %d bytes, have %d", HeaderLength, len(buf))
	}

	h := Header{
		FileType:         buf[0],
		FileVersion:      buf[1],
		HeaderLength:     binary.LittleEndian.Uint16(buf[2:4]),
		RecordingID:      binary.LittleEndian.Uint32(buf[4:8]),
		InstrumentType:   nulTrimmed(buf[8:16]),
		InstrumentSerial: nulTrimmed(buf[16:24]),
		ChannelID:        buf[24],
		BytesPerSample:   buf[25],
		FrameSize:        binary.LittleEndian.Uint16(buf[26:28]),
		FileSequence:     binary.LittleEndian.Uint32(buf[28:32]),
		FragPeriod:       binary.LittleEndian.Uint32(buf[32:36]),
		SampleRateBase:   binary.LittleEndian.Uint16(buf[36:38]),
		SampleRateExp:    int8(buf[38]),
		ChannelMainGain:  f32(buf[40:44]),
		PreampGain:       f32(buf[44:48]),
		AttenuatorGain:   f32(buf[48:52]),
		ADPlusMinusRange: f32(buf[52:56]),
		GPSLatitude:      f32(buf[56:60]),
		GPSLongitude:     f32(buf[60:64]),
		GPSElevation:     f32(buf[64:68]),
		GPSHorizAccuracy: f32(buf[68:72]),
		GPSVertAccuracy:  f32(buf[72:76]),
		TimingFlags:      buf[76],
		TimingSatCount:   buf[77],
		TimingStability:  binary.LittleEndian.Uint16(buf[78:80]),
		BatteryVoltage:   f32(buf[80:84]),
		BoardModel:       nulTrimmed(buf[84:92]),
		BoardSerial:      binary.LittleEndian.Uint32(buf[92:96]),
		Firmware:         binary.LittleEndian.Uint32(buf[96:100]),
		LPFrequency:      binary.LittleEndian.Uint32(buf[100:104]),
		SaturatedFrames:  binary.LittleEndian.Uint32(buf[104:108]),
		MissingFrames:    binary.LittleEndian.Uint32(buf[108:112]),
		Future1:          binary.LittleEndian.Uint32(buf[120:124]),
		Future2:          binary.LittleEndian.Uint32(buf[124:128]),
	}
	copy(h.ChannelMap[:], buf[112:120])

	if h.FileVersion != SupportedVersion {
		return Header{}, fmt.Errorf("parse header: unsupported format version %d", h.FileVersion)
	}
	if h.HeaderLength != HeaderLength {
		return Header{}, fmt.Errorf("parse header: unexpected header length %d", h.HeaderLength)
	}
	switch h.FileType {
	case FileTypeNative, FileTypeSegmented, FileTypeContinuous:
	default:
		return Header{}, fmt.Errorf("parse header: unknown file type %d", h.FileType)
	}
	if h.ChannelID > 7 {
		return Header{}, fmt.Errorf("parse header: channel id %d out of range", h.ChannelID)
	}

	return h, nil
}

// Marshal encodes the header back into its 128-byte wire form. Used by the
// fixture generator and codec tests.
func (h Header) Marshal() []byte {
	buf := make([]byte, HeaderLength)
	buf[0] = h.FileType
	buf[1] = h.FileVersion
	binary.LittleEndian.PutUint16(buf[2:4], h.HeaderLength)
	binary.LittleEndian.PutUint32(buf[4:8], h.RecordingID)
	copy(buf[8:16], h.InstrumentType)
	copy(buf[16:24], h.InstrumentSerial)
	buf[24] = h.ChannelID
	buf[25] = h.BytesPerSample
	binary.LittleEndian.PutUint16(buf[26:28], h.FrameSize)
	binary.LittleEndian.PutUint32(buf[28:32], h.FileSequence)
	binary.LittleEndian.PutUint32(buf[32:36], h.FragPeriod)
	binary.LittleEndian.PutUint16(buf[36:38], h.SampleRateBase)
	buf[38] = byte(h.SampleRateExp)
	putF32(buf[40:44], h.ChannelMainGain)
	putF32(buf[44:48], h.PreampGain)
	putF32(buf[48:52], h.AttenuatorGain)
	putF32(buf[52:56], h.ADPlusMinusRange)
	putF32(buf[56:60], h.GPSLatitude)
	putF32(buf[60:64], h.GPSLongitude)
	putF32(buf[64:68], h.GPSElevation)
	putF32(buf[68:72], h.GPSHorizAccuracy)
	putF32(buf[72:76], h.GPSVertAccuracy)
	buf[76] = h.TimingFlags
	buf[77] = h.TimingSatCount
	binary.LittleEndian.PutUint16(buf[78:80], h.TimingStability)
	putF32(buf[80:84], h.BatteryVoltage)
	copy(buf[84:92], h.BoardModel)
	binary.LittleEndian.PutUint32(buf[92:96], h.BoardSerial)
	binary.LittleEndian.PutUint32(buf[96:100], h.Firmware)
	binary.LittleEndian.PutUint32(buf[100:104], h.LPFrequency)
	binary.LittleEndian.PutUint32(buf[104:108], h.SaturatedFrames)
	binary.LittleEndian.PutUint32(buf[108:112], h.MissingFrames)
	copy(buf[112:120], h.ChannelMap[:])
	binary.LittleEndian.PutUint32(buf[120:124], h.Future1)
	binary.LittleEndian.PutUint32(buf[124:128], h.Future2)
	return buf
}

// SampleRate returns the acquisition rate in samples per second.
func (h Header) SampleRate() float64 {
	return float64(h.SampleRateBase) * math.Pow(2, float64(h.SampleRateExp))
}

// TotalGain is the product of every gain stage between sensor and A/D.
// The intrinsic circuitry gain of the BCM boards is unity.
func (h Header) TotalGain() float64 {
	return float64(h.ChannelMainGain) * float64(h.PreampGain) * float64(h.AttenuatorGain)
}

// Component returns the component label for this file's channel, resolved
// through the header channel map.
func (h Header) Component() string {
	return componentNames[h.ChannelMap[h.ChannelID]&0x07]
}

// ChannelType returns "E" for electric dipole channels and "H" for magnetic.
func (h Header) ChannelType() string {
	switch h.Component() {
	case "ex", "ey":
		return "E"
	default:
		return "H"
	}
}

// RecordingStart is the GPS-disciplined start time of the whole recording.
func (h Header) RecordingStart() time.Time {
	return time.Unix(int64(h.RecordingID), 0).UTC()
}

// MaxSamples is the sample capacity of a file of the given size.
func (h Header) MaxSamples(fileSize int64) int64 {
	if h.BytesPerSample == 0 {
		return 0
	}
	return (fileSize - HeaderLength) / int64(h.BytesPerSample)
}

func nulTrimmed(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}

func f32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func putF32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}
