package phoenix

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataFileName(t *testing.T) {
	dfn, err := ParseDataFileName("10128_608783F4_0_00000001.td_24k")
	require.NoError(t, err)

	assert.Equal(t, "10128", dfn.Serial)
	assert.Equal(t, uint32(0x608783F4), dfn.RecordingID)
	assert.Equal(t, 0, dfn.Channel)
	assert.Equal(t, 1, dfn.Sequence)
	assert.Equal(t, "td_24k", dfn.Ext)
}

func TestParseDataFileNameRejectsNonDataFiles(t *testing.T) {
	for _, name := range []string{
		"recmeta.json",
		"10128.td_24k",
		"10128_notahex_0_00000001.td_24k",
		"config.log",
	} {
		_, err := ParseDataFileName(name)
		assert.Error(t, err, name)
	}
}

func TestRateFromExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want float64
		ok   bool
	}{
		{"td_150", 150, true},
		{"td_24k", 24000, true},
		{"td_2400", 2400, true},
		{".td_96k", 96000, true},
		{"bin", 0, false},
		{"td_", 0, false},
	}

	for _, tt := range tests {
		got, ok := RateFromExtension(tt.ext)
		assert.Equal(t, tt.ok, ok, tt.ext)
		assert.Equal(t, tt.want, got, tt.ext)
	}
}

func TestScanStation(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, RecMetaFileName), []byte(`{}`), 0o644))

	files := []string{
		"0/10128_608783F4_0_00000002.td_24k",
		"0/10128_608783F4_0_00000001.td_24k",
		"0/10128_608783F4_0_00000001.td_150",
		"1/10128_608783F4_1_00000001.td_24k",
		"1/notes.txt", // ignored
	}
	for _, f := range files {
		path := filepath.Join(dir, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	sd, err := ScanStation(dir)
	require.NoError(t, err)
	require.Len(t, sd.Groups, 3)

	// Channel 0 at 150 Hz sorts before channel 0 at 24 kHz.
	assert.Equal(t, 0, sd.Groups[0].Channel)
	assert.Equal(t, 150.0, sd.Groups[0].Rate)

	burst := sd.Groups[1]
	assert.Equal(t, 0, burst.Channel)
	assert.Equal(t, 24000.0, burst.Rate)
	require.Len(t, burst.Files, 2)
	// Sequences are ordered regardless of directory listing order.
	assert.Contains(t, burst.Files[0], "00000001")
	assert.Contains(t, burst.Files[1], "00000002")

	assert.Equal(t, 1, sd.Groups[2].Channel)
}

func TestScanStationMissingRecMeta(t *testing.T) {
	_, err := ScanStation(t.TempDir())
	assert.ErrorIs(t, err, ErrNoRecMeta)
}

func TestScanStationNoData(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, RecMetaFileName), []byte(`{}`), 0o644))

	_, err := ScanStation(dir)
	assert.ErrorIs(t, err, ErrNoChannelData)
}
