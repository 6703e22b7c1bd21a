package phoenix

import (
	"encoding/binary"
	"fmt"
	"time"
)

// SegmentHeaderLength is the size of the per-segment descriptor in bytes.
const SegmentHeaderLength = 32

// SegmentHeader describes one GPS-aligned burst in a segmented file.
//
// Layout (little-endian):
//
//	 0  uint32   GPS timestamp, unix seconds
//	 4  uint32   sample count
//	 8  uint16   saturation count
//	10  uint16   missing count
//	12  float32  minimum sample value
//	16  float32  maximum sample value
//	20  float32  mean sample value
//	24  [8]byte  reserved
type SegmentHeader struct {
	GPSTimeStamp    uint32
	NSamples        uint32
	SaturationCount uint16
	MissingCount    uint16
	ValueMin        float32
	ValueMax        float32
	ValueMean       float32
}

// ParseSegmentHeader decodes a segment descriptor from buf.
func ParseSegmentHeader(buf []byte) (SegmentHeader, error) {
	if len(buf) < SegmentHeaderLength {
		return SegmentHeader{}, fmt.Errorf("parse segment header: need %d bytes, have %d", SegmentHeaderLength, len(buf))
	}
	return SegmentHeader{
		GPSTimeStamp:    binary.LittleEndian.Uint32(buf[0:4]),
		NSamples:        binary.LittleEndian.Uint32(buf[4:8]),
		SaturationCount: binary.LittleEndian.Uint16(buf[8:10]),
		MissingCount:    binary.LittleEndian.Uint16(buf[10:12]),
		ValueMin:        f32(buf[12:16]),
		ValueMax:        f32(buf[16:20]),
		ValueMean:       f32(buf[20:24]),
	}, nil
}

// Marshal encodes the segment descriptor into its 32-byte wire form.
func (sh SegmentHeader) Marshal() []byte {
	buf := make([]byte, SegmentHeaderLength)
	binary.LittleEndian.PutUint32(buf[0:4], sh.GPSTimeStamp)
	binary.LittleEndian.PutUint32(buf[4:8], sh.NSamples)
	binary.LittleEndian.PutUint16(buf[8:10], sh.SaturationCount)
	binary.LittleEndian.PutUint16(buf[10:12], sh.MissingCount)
	putF32(buf[12:16], sh.ValueMin)
	putF32(buf[16:20], sh.ValueMax)
	putF32(buf[20:24], sh.ValueMean)
	return buf
}

// Start is the GPS-aligned start time of the segment.
func (sh SegmentHeader) Start() time.Time {
	return time.Unix(int64(sh.GPSTimeStamp), 0).UTC()
}

// End is the time of the first sample after the segment.
func (sh SegmentHeader) End(sampleRate float64) time.Time {
	if sampleRate <= 0 {
		return sh.Start()
	}
	d := time.Duration(float64(sh.NSamples) / sampleRate * float64(time.Second))
	return sh.Start().Add(d)
}

// Segment is one decoded burst: its descriptor plus sample data in volts.
type Segment struct {
	Header SegmentHeader
	Index  int
	Data   []float32
}
