// Package domain models magnetotelluric (MT) time-series data on its way
// from a Phoenix MTU-5C recording into an MTH5 archive.
//
// # Recordings, runs, channels
//
// A recording is one deployment of a receiver at a station: a directory of
// channel data files plus a recmeta.json descriptor. The receiver samples
// up to eight channels; each channel carries one component of the natural
// electromagnetic field:
//
//	ex, ey          electric dipoles, millivolts per kilometre
//	hx, hy, hz      magnetic induction coils
//	h1, h2, h3      auxiliary magnetic inputs
//
// A run is a block of continuous data at one sample rate. Low-rate data
// (e.g. 150 samples/second) records continuously and usually yields a
// single long run. High-rate data (e.g. 24000 samples/second) records in
// GPS-aligned bursts; back-to-back bursts merge into one run and a gap
// starts the next. Runs are numbered per rate with compact labels:
//
//	sr150_0001, sr150_0002, ...     150 samples/second
//	sr24k_0001, sr24k_0002, ...     24000 samples/second
//
// # Calibration
//
// Raw channel data is counts or volts at the receiver input. Converting to
// physical field units requires the receiver's per-channel frequency
// response and the sensor's response, both exported from vendor software as
// frequency/amplitude/phase tables. The archive stores these as named
// filters referenced by each channel's filter list; samples themselves stay
// uncorrected, matching standard MT archival practice.
//
// # Gap tolerance
//
// Consecutive bursts are considered contiguous when the next burst starts
// within half a sample period of the previous end. GPS timestamps have
// whole-second resolution, so anything beyond that is a genuine gap, not
// jitter.
package domain
