package ops

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCandles(t *testing.T) {
	csv := `time,open,high,low,close,volume
2024-03-04T09:15:00Z,100,102,94,101,1200
1709544000,101,101.5,99,99.5
`
	candles, err := LoadCandles(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.Equal(t, time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC), candles[0].OpenTime)
	assert.Equal(t, "94", candles[0].Low.String())
	assert.Equal(t, "1200", candles[0].Volume.String())
	assert.True(t, candles[0].IsBullish())

	assert.Equal(t, time.Unix(1709544000, 0).UTC(), candles[1].OpenTime)
	assert.Equal(t, "101.5", candles[1].High.String())
	assert.True(t, candles[1].Volume.IsZero())
	assert.False(t, candles[1].IsBullish())
}

func TestLoadCandlesInvalid(t *testing.T) {
	cases := map[string]string{
		"short row":      "2024-03-04T09:15:00Z,100,102,94\n",
		"bad number":     "2024-03-04T09:15:00Z,100,10x,94,101\n",
		"bad time":       "yesterday,100,102,94,101\n",
		"high below low": "2024-03-04T09:15:00Z,100,90,94,95\n",
		"out of order":   "2024-03-04T09:16:00Z,100,102,94,101\n2024-03-04T09:15:00Z,100,102,94,101\n",
	}
	for name, csv := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadCandles(strings.NewReader(csv))
			require.Error(t, err)
		})
	}
}
