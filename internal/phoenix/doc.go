// Package phoenix reads the native file layout produced by Phoenix
// Geophysics MTU-5C receivers.
//
// # Station directory layout
//
// A recording is a directory named "<serial>_<date>-<time>" containing one
// numeric subdirectory per channel (0-7) and a recmeta.json descriptor:
//
//	10128_2021-04-27-032436/
//	  recmeta.json
//	  0/10128_608783F4_0_00000001.td_24k
//	  0/10128_608783F4_0_00000002.td_24k
//	  1/10128_608783F4_1_00000001.td_24k
//	  ...
//
// Data file names follow "<serial>_<recid>_<channel>_<sequence>.<ext>" where
// recid is the recording start time (unix seconds) in uppercase hex and
// sequence is a zero-padded decimal. Files with the same serial, recid, and
// channel form one ordered sequence; a recording is split into fragments
// every frag-period seconds.
//
// # File types
//
// Every file starts with a 128-byte header (format version 2). The payload
// depends on the file type:
//
//   - Native (.bin): raw A/D counts packed in 64-byte frames of twenty
//     24-bit big-endian samples plus a 4-byte footer carrying a rolling
//     frame counter and saturation flag. Counts convert to volts as
//     counts * (adRange / 2^23) / totalGain.
//   - Continuous (.td_150 and other low-rate extensions): a contiguous
//     stream of little-endian float32 samples already scaled to volts.
//   - Segmented (.td_24k and other burst-rate extensions): repeated records
//     of a 32-byte segment header followed by that segment's float32
//     samples. Burst segments are aligned to GPS time and may be separated
//     by gaps.
//
// The extension encodes the decimated sample rate: "td_150" is 150 samples
// per second, "td_24k" is 24000.
//
// # Channel map
//
// The header carries an 8-entry channel map assigning a component to each
// channel id. The factory default is
//
//	0:hx 1:hy 2:hz 3:ex 4:ey 5:h1 6:h2 7:h3
//
// ex/ey are electric dipoles, everything else is magnetic.
package phoenix
