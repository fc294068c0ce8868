// Package microstats classifies short-horizon price action into an entry
// quality label. Input is an ordered series of recent price samples at an
// hourly cadence, oldest first; indices clamp to the start for short series.
package microstats

import (
	"fmt"

	"github.com/edgewatch/edgewatch/internal/domain"
)

// Classification thresholds, in percent. These are trading business
// constants; changing them changes behavior, not correctness.
const (
	fastDumpRet1hPct   = -3.0
	pullbackFromHighPct = -4.0
	spikeFromLowPct     = 6.0
)

// sixHourWindow is the number of trailing samples spanning ~6h at hourly
// cadence (inclusive of the endpoints).
const sixHourWindow = 7

// Classify derives return/drawdown statistics from the sample series and
// applies the entry rules in priority order. The dump rule is evaluated
// first on purpose: a fast dump must suppress the softer extended labels.
// NaN percentages (flat-at-zero series) fail every comparison and fall
// through toward VALID; that is the accepted policy for degenerate input.
func Classify(samples []float64) domain.MicroMetrics {
	m := domain.MicroMetrics{Quality: domain.EntryValid}
	if len(samples) == 0 {
		return m
	}

	n := len(samples)
	last := samples[n-1]

	m.Ret1h = pctChange(samples[clampIndex(n-2)], last)
	m.Ret4h = pctChange(samples[clampIndex(n-5)], last)

	window := samples[clampIndex(n-sixHourWindow):]
	hi, lo := window[0], window[0]
	for _, p := range window[1:] {
		if p > hi {
			hi = p
		}
		if p < lo {
			lo = p
		}
	}
	m.DropFromHigh6h = pctChange(hi, last)
	m.SpikeFromLow6h = pctChange(lo, last)

	switch {
	case m.Ret1h <= fastDumpRet1hPct:
		m.Quality = domain.EntryNoEdge
		m.Reasons = []string{
			fmt.Sprintf("fast dump: %.1f%% in the last hour", m.Ret1h),
			"wait for the selling to stop",
		}
	case m.DropFromHigh6h <= pullbackFromHighPct:
		m.Quality = domain.EntryExtended
		m.Reasons = []string{
			fmt.Sprintf("pulling back %.1f%% from the 6h high", m.DropFromHigh6h),
		}
	case m.SpikeFromLow6h >= spikeFromLowPct:
		m.Quality = domain.EntryExtended
		m.Reasons = []string{
			fmt.Sprintf("extended %.1f%% off the 6h low", m.SpikeFromLow6h),
			"chasing here worsens the entry",
		}
	}

	return m
}

func clampIndex(i int) int {
	if i < 0 {
		return 0
	}
	return i
}

func pctChange(from, to float64) float64 {
	return (to - from) / from * 100
}
