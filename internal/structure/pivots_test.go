package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgewatch/edgewatch/internal/domain"
)

func TestPivots_InteriorExtremaOnly(t *testing.T) {
	candles := []domain.Candle{
		{High: 110, Low: 90}, // edge buffer: never a pivot even though extreme
		{High: 105, Low: 95},
		{High: 108, Low: 94}, // pivot high 108, pivot low 94
		{High: 104, Low: 96},
		{High: 103, Low: 97},
		{High: 120, Low: 80}, // edge buffer
	}
	supports, resistances := Pivots(candles)

	require.Len(t, resistances, 1)
	require.Len(t, supports, 1)
	assert.Equal(t, 108.0, resistances[0].Price)
	assert.Equal(t, 94.0, supports[0].Price)
}

func TestPivots_MergesNearbyTouches(t *testing.T) {
	// Two pivot lows at 1001 and 1004 both round to the 1000 zone.
	candles := []domain.Candle{
		{High: 1100, Low: 1050},
		{High: 1100, Low: 1020},
		{High: 1090, Low: 1001}, // pivot low
		{High: 1100, Low: 1030},
		{High: 1095, Low: 1004}, // pivot low
		{High: 1100, Low: 1040},
		{High: 1100, Low: 1050},
	}
	supports, _ := Pivots(candles)

	require.Len(t, supports, 1)
	assert.Equal(t, 1000.0, supports[0].Price)
	assert.Equal(t, 2, supports[0].Touches)
}

func TestPivots_TooFewCandles(t *testing.T) {
	supports, resistances := Pivots([]domain.Candle{{High: 1, Low: 0.5}, {High: 2, Low: 1}})
	assert.Empty(t, supports)
	assert.Empty(t, resistances)
}

func TestRoundZone_Tiers(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{64123, 64120},
		{1004, 1000},
		{1006, 1010},
		{432.6, 433},
		{101.4, 101},
		{3.14159, 3.14},
		{1.005, 1.0}, // float rounding lands on the nearest cent grid point
		{0.00012345, 0.000123},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, roundZone(tc.in), 1e-9, "roundZone(%v)", tc.in)
	}
}
