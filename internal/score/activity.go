// Package score converts watchlist snapshot rows into 0-100 activity scores.
// The score blends 24h percent change with volume participation relative to
// the watchlist median, on two weighting profiles (15m-ish and 1h-ish).
package score

import (
	"math"
	"sort"

	"github.com/edgewatch/edgewatch/internal/domain"
)

// Scoring thresholds for the qualitative reason tags.
const (
	hotScoreThreshold    = 80.0
	activeScoreThreshold = 65.0
	elevatedVolFactor    = 1.3
	strongChangePct      = 3.0
)

// BaselineVolume returns the median 24h volume across the watchlist,
// excluding zero/missing values. Falls back to 1 so the volume factor
// stays defined on a dead tape.
func BaselineVolume(snapshots []domain.AssetSnapshot) float64 {
	vols := make([]float64, 0, len(snapshots))
	for _, s := range snapshots {
		if s.Volume24h > 0 {
			vols = append(vols, s.Volume24h)
		}
	}
	if len(vols) == 0 {
		return 1
	}
	sort.Float64s(vols)
	mid := len(vols) / 2
	if len(vols)%2 == 1 {
		return vols[mid]
	}
	return (vols[mid-1] + vols[mid]) / 2
}

// Activity scores one snapshot row against the watchlist volume baseline.
// Always produces a result: missing change/volume degrade to neutral inputs.
func Activity(snap domain.AssetSnapshot, baseline float64) domain.ActivityScore {
	volFactor := 1.0
	if baseline > 0 {
		volFactor = snap.Volume24h / baseline
	}

	changeScore := clamp(50+snap.Change24hPct*4, 0, 100)
	volScore := clamp(50+math.Log10(math.Max(1, volFactor))*25, 0, 100)

	score15m := clamp(changeScore*0.55+volScore*0.45+4, 0, 100)
	score1h := clamp(changeScore*0.65+volScore*0.35, 0, 100)
	combined := clamp(score15m*0.48+score1h*0.52, 0, 100)

	return domain.ActivityScore{
		Symbol:    snap.Symbol,
		Score15m:  score15m,
		Score1h:   score1h,
		Combined:  combined,
		VolFactor: volFactor,
		Reasons:   reasons(combined, volFactor, snap.Change24hPct),
	}
}

// Rank scores every snapshot and returns the top n by combined score,
// highest first.
func Rank(snapshots []domain.AssetSnapshot, n int) []domain.ActivityScore {
	baseline := BaselineVolume(snapshots)
	scored := make([]domain.ActivityScore, 0, len(snapshots))
	for _, s := range snapshots {
		scored = append(scored, Activity(s, baseline))
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Combined > scored[j].Combined
	})
	if n > 0 && len(scored) > n {
		scored = scored[:n]
	}
	return scored
}

func reasons(combined, volFactor, changePct float64) []string {
	var out []string
	switch {
	case combined >= hotScoreThreshold:
		out = append(out, "hot: broad participation")
	case combined >= activeScoreThreshold:
		out = append(out, "active participation")
	}
	if volFactor >= elevatedVolFactor {
		out = append(out, "volume elevated vs watchlist median")
	}
	if changePct >= strongChangePct {
		out = append(out, "trending up on the day")
	} else if changePct < 0 {
		out = append(out, "down on the day")
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
