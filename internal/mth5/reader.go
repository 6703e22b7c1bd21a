package mth5

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scigolib/hdf5"
)

// ChannelInfo summarizes one channel dataset in an archive.
type ChannelInfo struct {
	Component string
	Samples   int
}

// RunInfo summarizes one run group.
type RunInfo struct {
	ID       string
	Channels []ChannelInfo
}

// StationInfo summarizes one station group.
type StationInfo struct {
	Name string
	Runs []RunInfo
}

// ArchiveInfo is a structural summary of an MTH5 archive, produced by
// walking the HDF5 object tree.
type ArchiveInfo struct {
	Path        string
	FileVersion string
	Stations    []StationInfo
	Filters     []string
}

// TotalSamples sums the sample counts of every channel in the archive.
func (a *ArchiveInfo) TotalSamples() int64 {
	var n int64
	for _, st := range a.Stations {
		for _, run := range st.Runs {
			for _, ch := range run.Channels {
				n += int64(ch.Samples)
			}
		}
	}
	return n
}

// Summarize opens an archive read-only and collects its structure.
func Summarize(path string) (*ArchiveInfo, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %q: %w", path, err)
	}
	defer f.Close()

	info := &ArchiveInfo{Path: path}

	stations := make(map[string]*StationInfo)
	runs := make(map[string]*RunInfo) // keyed by "<station>/<run>"

	f.Walk(func(objPath string, obj hdf5.Object) {
		parts := strings.Split(strings.Trim(objPath, "/"), "/")

		switch v := obj.(type) {
		case *hdf5.Group:
			switch {
			case strings.Trim(objPath, "/") == "Survey":
				info.FileVersion = groupStringAttr(v, "mth5.file_version")
			case len(parts) == 3 && parts[1] == "Stations":
				stations[parts[2]] = &StationInfo{Name: parts[2]}
			case len(parts) == 4 && parts[1] == "Stations":
				runs[parts[2]+"/"+parts[3]] = &RunInfo{ID: parts[3]}
			case len(parts) == 4 && parts[1] == "Filters" && parts[2] == "fap":
				info.Filters = append(info.Filters, parts[3])
			}
		case *hdf5.Dataset:
			if len(parts) != 5 || parts[1] != "Stations" {
				return
			}
			run, ok := runs[parts[2]+"/"+parts[3]]
			if !ok {
				return
			}
			n := 0
			if data, err := v.Read(); err == nil {
				n = len(data)
			}
			run.Channels = append(run.Channels, ChannelInfo{Component: parts[4], Samples: n})
		}
	})

	for key, run := range runs {
		station := strings.SplitN(key, "/", 2)[0]
		if st, ok := stations[station]; ok {
			sort.Slice(run.Channels, func(i, j int) bool {
				return run.Channels[i].Component < run.Channels[j].Component
			})
			st.Runs = append(st.Runs, *run)
		}
	}
	for _, st := range stations {
		sort.Slice(st.Runs, func(i, j int) bool { return st.Runs[i].ID < st.Runs[j].ID })
		info.Stations = append(info.Stations, *st)
	}
	sort.Slice(info.Stations, func(i, j int) bool { return info.Stations[i].Name < info.Stations[j].Name })
	sort.Strings(info.Filters)

	return info, nil
}

// groupStringAttr decodes a fixed-string group attribute, or "" when absent.
func groupStringAttr(g *hdf5.Group, name string) string {
	attrs, err := g.Attributes()
	if err != nil {
		return ""
	}
	for _, a := range attrs {
		if a.Name == name {
			return strings.TrimRight(string(a.Data), "\x00")
		}
	}
	return ""
}
