package phoenix

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrNoRecMeta reports a station directory without a recmeta.json.
	ErrNoRecMeta = errors.New("phoenix: station directory has no recmeta.json")

	// ErrNoChannelData reports a station directory without any data files.
	ErrNoChannelData = errors.New("phoenix: station directory has no channel data")
)

// dataFileRe matches "<serial>_<recid-hex>_<channel>_<sequence>.<ext>",
// e.g. "10128_608783F4_0_00000001.td_24k".
var dataFileRe = regexp.MustCompile(`^([0-9A-Za-z]+)_([0-9A-Fa-f]{8})_(\d+)_(\d+)\.([A-Za-z0-9_]+)$`)

// DataFileName is a parsed Phoenix data file name.
type DataFileName struct {
	Serial      string
	RecordingID uint32
	Channel     int
	Sequence    int
	Ext         string
}

// ParseDataFileName splits a Phoenix data file name into its parts.
func ParseDataFileName(name string) (DataFileName, error) {
	m := dataFileRe.FindStringSubmatch(name)
	if m == nil {
		return DataFileName{}, fmt.Errorf("parse file name %q: not a phoenix data file", name)
	}

	recID, err := strconv.ParseUint(m[2], 16, 32)
	if err != nil {
		return DataFileName{}, fmt.Errorf("parse file name %q: recording id: %w", name, err)
	}
	channel, err := strconv.Atoi(m[3])
	if err != nil {
		return DataFileName{}, fmt.Errorf("parse file name %q: channel: %w", name, err)
	}
	seq, err := strconv.Atoi(m[4])
	if err != nil {
		return DataFileName{}, fmt.Errorf("parse file name %q: sequence: %w", name, err)
	}

	return DataFileName{
		Serial:      m[1],
		RecordingID: uint32(recID),
		Channel:     channel,
		Sequence:    seq,
		Ext:         strings.ToLower(m[5]),
	}, nil
}

// RateFromExtension decodes the decimated sample rate carried in a "td_*"
// extension: "td_150" is 150 samples/second, "td_24k" is 24000. Returns
// false for native ".bin" files, whose rate only the header knows.
func RateFromExtension(ext string) (float64, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if !strings.HasPrefix(ext, "td_") {
		return 0, false
	}
	s := strings.TrimPrefix(ext, "td_")
	mult := 1.0
	if strings.HasSuffix(s, "k") {
		mult = 1000
		s = strings.TrimSuffix(s, "k")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v * mult, true
}

// ChannelGroup is one channel's ordered file sequence at a single rate.
type ChannelGroup struct {
	Channel     int
	Ext         string
	Rate        float64 // 0 for native files until the header is read
	RecordingID uint32
	Files       []string // absolute paths ordered by sequence
}

// StationDir is the result of scanning a Phoenix station directory.
type StationDir struct {
	Path        string
	RecMetaPath string
	Groups      []ChannelGroup
}

// ScanStation walks a station directory and collates its data files into
// per-channel, per-rate sequences. The directory must contain a
// recmeta.json and at least one recognizable data file.
func ScanStation(dir string) (*StationDir, error) {
	recmeta := filepath.Join(dir, RecMetaFileName)
	if _, err := os.Stat(recmeta); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoRecMeta, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan station %q: %w", dir, err)
	}

	type groupKey struct {
		channel int
		recID   uint32
		ext     string
	}
	type member struct {
		seq  int
		path string
	}
	groups := make(map[groupKey][]member)

	for _, e := range entries {
		if !e.IsDir() || !isChannelDirName(e.Name()) {
			continue
		}
		chDir := filepath.Join(dir, e.Name())
		files, err := os.ReadDir(chDir)
		if err != nil {
			return nil, fmt.Errorf("scan channel dir %q: %w", chDir, err)
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			dfn, err := ParseDataFileName(f.Name())
			if err != nil {
				continue // vendor directories carry logs and config droppings
			}
			key := groupKey{channel: dfn.Channel, recID: dfn.RecordingID, ext: dfn.Ext}
			groups[key] = append(groups[key], member{seq: dfn.Sequence, path: filepath.Join(chDir, f.Name())})
		}
	}

	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoChannelData, dir)
	}

	sd := &StationDir{Path: dir, RecMetaPath: recmeta}
	for key, members := range groups {
		sort.Slice(members, func(i, j int) bool { return members[i].seq < members[j].seq })
		paths := make([]string, len(members))
		for i, m := range members {
			paths[i] = m.path
		}
		rate, _ := RateFromExtension(key.ext)
		sd.Groups = append(sd.Groups, ChannelGroup{
			Channel:     key.channel,
			Ext:         key.ext,
			Rate:        rate,
			RecordingID: key.recID,
			Files:       paths,
		})
	}

	// Deterministic order: by channel, then rate, then extension.
	sort.Slice(sd.Groups, func(i, j int) bool {
		a, b := sd.Groups[i], sd.Groups[j]
		if a.Channel != b.Channel {
			return a.Channel < b.Channel
		}
		if a.Rate != b.Rate {
			return a.Rate < b.Rate
		}
		return a.Ext < b.Ext
	})

	return sd, nil
}

func isChannelDirName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
