package structure

import (
	"fmt"
	"sort"

	"github.com/edgewatch/edgewatch/internal/domain"
)

// Evaluation constants. Fixed trading rules: targets farther than 15% away
// are not realistic intraday objectives, and anything under 2R is a hard no.
const (
	maxTargetDistancePct = 15.0
	minRoomR             = 2.0
	minTouchesConfirmed  = 2
)

// Evaluate derives zones from the candle history and judges the long
// structure at the current price. Candles must be chronological, oldest
// first; fewer than five degrade gracefully toward WAIT.
func Evaluate(candles []domain.Candle, price float64) domain.StructureResult {
	supports, resistances := Pivots(candles)
	return EvaluateZones(supports, resistances, price)
}

// EvaluateZones applies the room-to-2R rules against precomputed zone sets.
//
// Rule order is load-bearing: missing support means there is nothing to
// anchor a stop (WAIT), a non-positive risk means the data is inconsistent
// (NO_EDGE), and only then is a reward target sought.
func EvaluateZones(supports, resistances []domain.PivotZone, price float64) domain.StructureResult {
	res := domain.StructureResult{Label: domain.StructureWait, Source: domain.StructureSourceComputed}

	below := zonesBelow(supports, price)
	if len(below) == 0 {
		res.Reasons = []string{"no support below price"}
		return res
	}
	support := below[0]
	res.Support = &support

	risk := price - support.Price
	if risk <= 0 {
		res.Label = domain.StructureNoEdge
		res.Reasons = []string{"invalid structure: support at or above price"}
		return res
	}

	above := zonesAbove(resistances, price, maxTargetDistancePct)
	if len(above) == 0 {
		res.Reasons = []string{"no resistance above price within reach"}
		return res
	}

	// Prefer the nearest target that already clears 2R; otherwise fall back
	// to the nearest one and let the room check reject it.
	target := above[0]
	for _, z := range above {
		if (z.Price-price)/risk >= minRoomR {
			target = z
			break
		}
	}
	res.Resistance = &target

	room := (target.Price - price) / risk
	res.RoomTo2R = &room

	if room < minRoomR {
		res.Label = domain.StructureNoEdge
		res.Reasons = []string{fmt.Sprintf("room to target only %.2fR, need %.0fR", room, minRoomR)}
		return res
	}

	res.OK = true
	res.Label = domain.StructureOK
	res.Reasons = []string{fmt.Sprintf("%.2fR to nearest resistance", room)}
	if support.Touches < minTouchesConfirmed || target.Touches < minTouchesConfirmed {
		res.Reasons = append(res.Reasons, "weak levels: single-touch zone in play")
	}
	return res
}

// zonesBelow returns supports at or below price, nearest first. A zone
// sitting exactly at price is kept so the non-positive-risk check can
// reject it explicitly instead of it silently vanishing.
func zonesBelow(supports []domain.PivotZone, price float64) []domain.PivotZone {
	out := make([]domain.PivotZone, 0, len(supports))
	for _, z := range supports {
		if z.Price <= price {
			out = append(out, z)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	return out
}

// zonesAbove returns resistances strictly above price and within
// maxDistancePct of it, nearest first.
func zonesAbove(resistances []domain.PivotZone, price, maxDistancePct float64) []domain.PivotZone {
	limit := price * (1 + maxDistancePct/100)
	out := make([]domain.PivotZone, 0, len(resistances))
	for _, z := range resistances {
		if z.Price > price && z.Price <= limit {
			out = append(out, z)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}
