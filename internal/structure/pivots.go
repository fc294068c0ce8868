// Package structure derives pivot-based support/resistance zones from 1h
// candles and evaluates whether a valid ≥2R long structure exists at the
// current price.
package structure

import (
	"math"
	"sort"

	"github.com/edgewatch/edgewatch/internal/domain"
)

// pivotEdgeBuffer excludes the first and last candles from pivot detection.
// The extremum test itself only looks one candle each side; the wider buffer
// avoids boundary artifacts on a still-forming bar.
const pivotEdgeBuffer = 2

// Pivots scans the candle series (oldest first) for local 3-candle extremes
// and merges them into rounded, touch-counted zones. Returns supports and
// resistances separately.
func Pivots(candles []domain.Candle) (supports, resistances []domain.PivotZone) {
	supportTouches := make(map[float64]int)
	resistanceTouches := make(map[float64]int)

	for i := pivotEdgeBuffer; i < len(candles)-pivotEdgeBuffer; i++ {
		c := candles[i]
		if c.High > candles[i-1].High && c.High > candles[i+1].High {
			resistanceTouches[roundZone(c.High)]++
		}
		if c.Low < candles[i-1].Low && c.Low < candles[i+1].Low {
			supportTouches[roundZone(c.Low)]++
		}
	}

	return zones(supportTouches), zones(resistanceTouches)
}

// roundZone merges nearby pivots into a shared level. The grid widens with
// price so that zones stay meaningful from sub-cent alts to BTC.
func roundZone(price float64) float64 {
	switch {
	case price >= 1000:
		return math.Round(price/10) * 10
	case price >= 100:
		return math.Round(price)
	case price >= 1:
		return math.Round(price*100) / 100
	default:
		return math.Round(price*1e6) / 1e6
	}
}

func zones(touches map[float64]int) []domain.PivotZone {
	out := make([]domain.PivotZone, 0, len(touches))
	for price, n := range touches {
		out = append(out, domain.PivotZone{Price: price, Touches: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}
