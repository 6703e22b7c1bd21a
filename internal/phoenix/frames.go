package phoenix

import (
	"encoding/binary"
	"fmt"
)

const (
	samplesPerFrame = 20
	bytesPerRaw     = 3
	frameDataBytes  = samplesPerFrame * bytesPerRaw // 60
)

// frameSaturated is set in the footer status byte when any sample in the
// frame clipped the A/D range.
const frameSaturated = 0x01

// FrameStats accumulates footer information across a native payload.
type FrameStats struct {
	Frames          int
	SaturatedFrames int
	MissingFrames   int
	RolloverCount   int
}

// DecodeFrames unpacks a native framed payload into raw A/D counts.
//
// Each 64-byte frame holds twenty 24-bit big-endian two's complement
// samples followed by a 4-byte footer: the low 24 bits are a rolling frame
// counter, the top byte carries status flags. Gaps in the counter are
// counted as missing frames. A trailing partial frame is rejected.
func DecodeFrames(payload []byte) ([]int32, FrameStats, error) {
	if len(payload)%FrameSize != 0 {
		return nil, FrameStats{}, fmt.Errorf("decode frames: payload length %d is not a multiple of %d", len(payload), FrameSize)
	}

	nFrames := len(payload) / FrameSize
	counts := make([]int32, 0, nFrames*samplesPerFrame)
	var stats FrameStats
	prevCounter := int64(-1)

	for i := 0; i < nFrames; i++ {
		frame := payload[i*FrameSize : (i+1)*FrameSize]

		for s := 0; s < frameDataBytes; s += bytesPerRaw {
			counts = append(counts, decode24(frame[s:s+bytesPerRaw]))
		}

		footer := binary.LittleEndian.Uint32(frame[frameDataBytes:])
		counter := int64(footer & 0x00ffffff)
		status := uint8(footer >> 24)

		if status&frameSaturated != 0 {
			stats.SaturatedFrames++
		}
		if prevCounter >= 0 {
			switch {
			case counter > prevCounter+1:
				stats.MissingFrames += int(counter - prevCounter - 1)
			case counter <= prevCounter:
				// 24-bit counter wrapped.
				stats.RolloverCount++
			}
		}
		prevCounter = counter
		stats.Frames++
	}

	return counts, stats, nil
}

// EncodeFrames packs raw counts into native frames. The inverse of
// DecodeFrames, used by the fixture generator; len(counts) must be a
// multiple of twenty.
func EncodeFrames(counts []int32, firstCounter uint32) ([]byte, error) {
	if len(counts)%samplesPerFrame != 0 {
		return nil, fmt.Errorf("encode frames: %d counts is not a multiple of %d", len(counts), samplesPerFrame)
	}

	nFrames := len(counts) / samplesPerFrame
	out := make([]byte, 0, nFrames*FrameSize)

	for i := 0; i < nFrames; i++ {
		for s := 0; s < samplesPerFrame; s++ {
			out = append(out, encode24(counts[i*samplesPerFrame+s])...)
		}
		footer := (firstCounter + uint32(i)) & 0x00ffffff
		var fb [4]byte
		binary.LittleEndian.PutUint32(fb[:], footer)
		out = append(out, fb[:]...)
	}

	return out, nil
}

// decode24 sign-extends a 24-bit big-endian two's complement sample.
func decode24(b []byte) int32 {
	v := int32(b[0])<<16 | int32(b[1])<<8 | int32(b[2])
	if v&0x800000 != 0 {
		v |= ^int32(0xffffff)
	}
	return v
}

func encode24(v int32) []byte {
	return []byte{byte(v >> 16), byte(v >> 8), byte(v)}
}
