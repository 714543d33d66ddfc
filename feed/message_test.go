package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingle(t *testing.T) {
	got, err := Parse([]byte(`{"symbol":"aapl","last":101.5,"ts":"2026-05-04T13:30:00Z"}`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "aapl", got[0].Symbol)
	require.NotNil(t, got[0].Last)
	assert.Equal(t, 101.5, *got[0].Last)
	assert.Nil(t, got[0].Bid)
	assert.Equal(t, time.Date(2026, 5, 4, 13, 30, 0, 0, time.UTC), got[0].Time)
}

func TestParseBatchAndEnvelope(t *testing.T) {
	got, err := Parse([]byte(`[{"symbol":"AAPL","bid":99,"ask":101},{"symbol":""},{"symbol":"MSFT","last":300}]`))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 99.0, *got[0].Bid)
	assert.True(t, got[1].Time.IsZero())

	got, err = Parse([]byte(`{"stream":"quotes","data":{"symbol":"TSLA","last":200}}`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "TSLA", got[0].Symbol)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("  "))
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = Parse([]byte(`{"symbol":""}`))
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = Parse([]byte(`pong`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"symbol":`))
	assert.Error(t, err)
}
