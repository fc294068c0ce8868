package score

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgewatch/edgewatch/internal/domain"
)

func TestActivity_ClampInvariant(t *testing.T) {
	cases := []struct {
		name      string
		change    float64
		volume    float64
		baseline  float64
	}{
		{"flat", 0, 0, 1},
		{"strong up", 25, 5e9, 1e9},
		{"strong down", -40, 5e9, 1e9},
		{"extreme up", 5000, 1e12, 1},
		{"extreme down", -5000, 1e12, 1},
		{"zero baseline", 3, 1e9, 0},
		{"negative baseline", 3, 1e9, -5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Activity(domain.AssetSnapshot{
				Symbol:       "BTC",
				Price:        50000,
				Change24hPct: tc.change,
				Volume24h:    tc.volume,
			}, tc.baseline)

			for _, s := range []float64{got.Score15m, got.Score1h, got.Combined} {
				assert.GreaterOrEqual(t, s, 0.0)
				assert.LessOrEqual(t, s, 100.0)
				assert.False(t, math.IsNaN(s))
			}
		})
	}
}

func TestActivity_NeutralInputsScoreMidRange(t *testing.T) {
	got := Activity(domain.AssetSnapshot{Symbol: "ETH", Price: 3000, Volume24h: 1e9}, 1e9)

	// change=0, volFactor=1: changeScore=50, volScore=50.
	assert.InDelta(t, 54.0, got.Score15m, 1e-9) // 50*0.55+50*0.45+4
	assert.InDelta(t, 50.0, got.Score1h, 1e-9)
	assert.InDelta(t, 54*0.48+50*0.52, got.Combined, 1e-9)
	assert.InDelta(t, 1.0, got.VolFactor, 1e-9)
}

func TestActivity_ZeroBaselineKeepsVolFactorOne(t *testing.T) {
	got := Activity(domain.AssetSnapshot{Symbol: "SOL", Volume24h: 1e9}, 0)
	assert.Equal(t, 1.0, got.VolFactor)
}

func TestActivity_Reasons(t *testing.T) {
	hot := Activity(domain.AssetSnapshot{Symbol: "BTC", Change24hPct: 12, Volume24h: 5e9}, 1e9)
	assert.Contains(t, hot.Reasons, "hot: broad participation")
	assert.Contains(t, hot.Reasons, "volume elevated vs watchlist median")
	assert.Contains(t, hot.Reasons, "trending up on the day")

	down := Activity(domain.AssetSnapshot{Symbol: "DOGE", Change24hPct: -2, Volume24h: 1e8}, 1e9)
	assert.Contains(t, down.Reasons, "down on the day")
}

func TestBaselineVolume(t *testing.T) {
	snaps := []domain.AssetSnapshot{
		{Symbol: "A", Volume24h: 100},
		{Symbol: "B", Volume24h: 0}, // excluded
		{Symbol: "C", Volume24h: 300},
		{Symbol: "D", Volume24h: 200},
	}
	assert.Equal(t, 200.0, BaselineVolume(snaps))

	even := snaps[:1]
	even = append(even, domain.AssetSnapshot{Symbol: "E", Volume24h: 300})
	assert.Equal(t, 200.0, BaselineVolume(even))

	assert.Equal(t, 1.0, BaselineVolume(nil))
	assert.Equal(t, 1.0, BaselineVolume([]domain.AssetSnapshot{{Symbol: "Z"}}))
}

func TestRank_TopNHighestFirst(t *testing.T) {
	snaps := []domain.AssetSnapshot{
		{Symbol: "A", Change24hPct: 1, Volume24h: 1e9},
		{Symbol: "B", Change24hPct: 9, Volume24h: 4e9},
		{Symbol: "C", Change24hPct: -4, Volume24h: 2e9},
		{Symbol: "D", Change24hPct: 5, Volume24h: 3e9},
	}
	top := Rank(snaps, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "B", top[0].Symbol)
	assert.Equal(t, "D", top[1].Symbol)
	assert.GreaterOrEqual(t, top[0].Combined, top[1].Combined)
}
