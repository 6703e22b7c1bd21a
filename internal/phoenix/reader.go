package phoenix

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrTruncated reports a file whose payload ends mid-record.
var ErrTruncated = errors.New("phoenix: truncated data file")

// File is an open MTU-5C data file with its header decoded.
type File struct {
	Path   string
	Header Header
	Size   int64

	f *os.File
}

// Open reads and validates the header of a Phoenix data file.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open phoenix file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %q: %w", path, err)
	}

	buf := make([]byte, HeaderLength)
	if _, err := io.ReadFull(f, buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("read header of %q: %w", path, err)
	}

	h, err := ParseHeader(buf)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%q: %w", path, err)
	}

	return &File{Path: path, Header: h, Size: info.Size(), f: f}, nil
}

// Close releases the underlying file handle.
func (pf *File) Close() error {
	return pf.f.Close()
}

// ReadSegments decodes every burst of a segmented file. Segments are
// returned in file order with their index set.
func (pf *File) ReadSegments() ([]Segment, error) {
	if pf.Header.FileType != FileTypeSegmented {
		return nil, fmt.Errorf("%q: file type %d is not segmented", pf.Path, pf.Header.FileType)
	}

	if _, err := pf.f.Seek(HeaderLength, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %q: %w", pf.Path, err)
	}

	r := bufio.NewReaderSize(pf.f, 1<<16)
	var segments []Segment
	hdr := make([]byte, SegmentHeaderLength)

	for i := 0; ; i++ {
		if _, err := io.ReadFull(r, hdr); err != nil {
			if errors.Is(err, io.EOF) {
				return segments, nil
			}
			return nil, fmt.Errorf("%q segment %d: %w", pf.Path, i, ErrTruncated)
		}

		sh, err := ParseSegmentHeader(hdr)
		if err != nil {
			return nil, fmt.Errorf("%q segment %d: %w", pf.Path, i, err)
		}

		data, err := readFloat32s(r, int(sh.NSamples))
		if err != nil {
			return nil, fmt.Errorf("%q segment %d: %w", pf.Path, i, ErrTruncated)
		}

		segments = append(segments, Segment{Header: sh, Index: i, Data: data})
	}
}

// ReadTimeSeries decodes the sample stream of a continuous file, in volts.
func (pf *File) ReadTimeSeries() ([]float32, error) {
	if pf.Header.FileType != FileTypeContinuous {
		return nil, fmt.Errorf("%q: file type %d is not continuous", pf.Path, pf.Header.FileType)
	}

	if _, err := pf.f.Seek(HeaderLength, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %q: %w", pf.Path, err)
	}

	n := int((pf.Size - HeaderLength) / 4)
	data, err := readFloat32s(bufio.NewReaderSize(pf.f, 1<<16), n)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", pf.Path, ErrTruncated)
	}
	return data, nil
}

// ReadCounts decodes the framed payload of a native file into raw A/D
// counts, together with frame-level statistics.
func (pf *File) ReadCounts() ([]int32, FrameStats, error) {
	if pf.Header.FileType != FileTypeNative {
		return nil, FrameStats{}, fmt.Errorf("%q: file type %d is not native", pf.Path, pf.Header.FileType)
	}

	if _, err := pf.f.Seek(HeaderLength, io.SeekStart); err != nil {
		return nil, FrameStats{}, fmt.Errorf("seek %q: %w", pf.Path, err)
	}

	payload, err := io.ReadAll(bufio.NewReaderSize(pf.f, 1<<16))
	if err != nil {
		return nil, FrameStats{}, fmt.Errorf("read %q: %w", pf.Path, err)
	}

	counts, stats, err := DecodeFrames(payload)
	if err != nil {
		return nil, FrameStats{}, fmt.Errorf("%q: %w", pf.Path, err)
	}
	return counts, stats, nil
}

// ToVolts converts raw A/D counts to volts at the sensor input using the
// header's A/D range and total gain.
func (pf *File) ToVolts(counts []int32) []float32 {
	scale := float64(pf.Header.ADPlusMinusRange) / float64(1<<23) / pf.Header.TotalGain()
	out := make([]float32, len(counts))
	for i, c := range counts {
		out[i] = float32(float64(c) * scale)
	}
	return out
}

func readFloat32s(r io.Reader, n int) ([]float32, error) {
	raw := make([]byte, n*4)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = f32(raw[i*4 : i*4+4])
	}
	return out, nil
}
