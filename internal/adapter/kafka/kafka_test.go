package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnetotellurics/phx2mth5/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2021, 4, 27, 5, 30, 0, 0, time.UTC)
	result := domain.ArchiveResult{
		Station:     "MT001",
		Path:        "/data/archives/from_phoenix.h5",
		Runs:        3,
		SampleRates: []float64{150, 24000},
		Samples:     192300,
		CompletedAt: now,
	}

	msg, err := serializeToMessage(result)
	require.NoError(t, err)

	assert.Equal(t, []byte("MT001"), msg.Key)
	assert.Contains(t, string(msg.Value), `"station":"MT001"`)
	assert.Contains(t, string(msg.Value), `"runs":3`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "archive_path", msg.Headers[0].Key)
	assert.Equal(t, []byte("/data/archives/from_phoenix.h5"), msg.Headers[0].Value)
	assert.Equal(t, "completed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}
