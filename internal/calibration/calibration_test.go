package calibration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRxCal = `{
  "instrument_type": "MTU-5C",
  "inst_serial": "10128",
  "timestamp_utc": "2021-04-20T18:00:00Z",
  "file_version": "1.0",
  "cal_data": [
    {"tag": "CH1", "chan": 0, "freq_Hz": [0.1, 1, 10], "magnitude": [1.0, 1.0, 0.99], "phs_deg": [0, -0.1, -1.2]},
    {"tag": "CH4", "chan": 3, "freq_Hz": [0.1, 1, 10], "magnitude": [1.0, 1.0, 0.98], "phs_deg": [0, -0.2, -1.5]}
  ]
}`

const sampleSCal = `{
  "sensor_type": "MTC-155",
  "serial": "53577",
  "timestamp_utc": "2020-11-02T09:30:00Z",
  "cal_data": [
    {"freq_Hz": [0.01, 0.1, 1], "magnitude": [0.02, 0.2, 2.0], "phs_deg": [89, 85, 45]}
  ]
}`

func TestParseReceiverCal(t *testing.T) {
	cal, err := ParseReceiverCal([]byte(sampleRxCal))
	require.NoError(t, err)

	assert.Equal(t, "10128", cal.Serial)
	assert.Equal(t, "MTU-5C", cal.InstrumentType)
	require.Len(t, cal.Channels, 2)

	table, ok := cal.ChannelTable(0)
	require.True(t, ok)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []float64{0.1, 1, 10}, table.Frequencies)

	_, ok = cal.ChannelTable(5)
	assert.False(t, ok)
}

func TestParseSensorCal(t *testing.T) {
	cal, err := ParseSensorCal([]byte(sampleSCal))
	require.NoError(t, err)

	assert.Equal(t, "53577", cal.Serial)
	assert.Equal(t, "MTC-155", cal.SensorType)
	assert.Equal(t, []float64{89, 85, 45}, cal.Table.Phases)
}

func TestParseRejectsRaggedTables(t *testing.T) {
	_, err := ParseReceiverCal([]byte(`{
	  "inst_serial": "1",
	  "cal_data": [{"chan": 0, "freq_Hz": [1, 2], "magnitude": [1], "phs_deg": [0, 0]}]
	}`))
	assert.Error(t, err)

	_, err = ParseSensorCal([]byte(`{"serial": "1", "cal_data": [{"freq_Hz": [], "magnitude": [], "phs_deg": []}]}`))
	assert.Error(t, err)
}

func TestParseRejectsMissingSerial(t *testing.T) {
	_, err := ParseReceiverCal([]byte(`{"cal_data": []}`))
	assert.Error(t, err)

	_, err = ParseSensorCal([]byte(`{"cal_data": []}`))
	assert.Error(t, err)
}

func writeCalDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "10128_rxcal.json"), []byte(sampleRxCal), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "53577_scal.json"), []byte(sampleSCal), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))
	return dir
}

func TestSourceResolveReceiverFromDir(t *testing.T) {
	src := Source{Dir: writeCalDir(t)}

	cal, err := src.ResolveReceiver("10128")
	require.NoError(t, err)
	assert.Equal(t, "10128", cal.Serial)

	_, err = src.ResolveReceiver("99999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSourceExplicitMappingWins(t *testing.T) {
	dir := writeCalDir(t)
	explicit := filepath.Join(t.TempDir(), "override.json")
	require.NoError(t, os.WriteFile(explicit, []byte(sampleRxCal), 0o644))

	src := Source{
		Explicit: map[string]string{"10128": explicit},
		Dir:      dir,
	}
	cal, err := src.ResolveReceiver("10128")
	require.NoError(t, err)
	assert.Equal(t, "10128", cal.Serial)
}

func TestSourceResolveSensors(t *testing.T) {
	src := Source{Dir: writeCalDir(t)}

	found, missing, err := src.ResolveSensors([]string{"53577", "00000"})
	require.NoError(t, err)

	require.Contains(t, found, "53577")
	assert.Equal(t, "MTC-155", found["53577"].SensorType)
	assert.Equal(t, []string{"00000"}, missing)
}

func TestSourceResolveSensorsEmptySource(t *testing.T) {
	found, missing, err := Source{}.ResolveSensors([]string{"53577"})
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Equal(t, []string{"53577"}, missing)
}
